package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
)

// Rollback eligibility errors, distinguished so the HTTP layer can map
// them to precise statuses.
var (
	ErrBatchNotFound      = errors.New("import batch not found")
	ErrRollbackNotAllowed = errors.New("batch is not in a rollbackable state")
	ErrRollbackNotLatest  = errors.New("only the most recent batch can be rolled back")
)

// Rollback undoes the most recent completed import batch: leads the
// batch created are deleted, leads it updated are restored from their
// snapshots, and contracts and vendors it introduced are removed. The
// whole reversal is one transaction.
func (e *Engine) Rollback(ctx context.Context, batchID pgtype.UUID) error {
	batch, err := e.store.GetImportBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return ErrBatchNotFound
	}
	if batch.Status != store.BatchCompleted {
		return fmt.Errorf("%w: status is %s", ErrRollbackNotAllowed, batch.Status)
	}

	latest, err := e.store.LatestBatchID(ctx)
	if err != nil {
		return err
	}
	if latest != batchID {
		return ErrRollbackNotLatest
	}

	log := e.log.With("batch_id", uuid.UUID(batchID.Bytes))
	started := time.Now()

	var contracts, deleted, vendors int64
	var restored int

	err = e.inTx(ctx, func(qtx leadStore) error {
		var err error

		// Contracts reference leads, so they go first.
		if contracts, err = qtx.DeleteContractsBackedUpByBatch(ctx, batchID); err != nil {
			return err
		}

		if deleted, err = qtx.DeleteLeadsInsertedByBatch(ctx, batchID); err != nil {
			return err
		}

		snapshots, err := qtx.ListLeadRestoreBackups(ctx, batchID)
		if err != nil {
			return err
		}
		restored = len(snapshots)
		for _, b := range snapshots {
			if err := qtx.RestoreLead(ctx, b); err != nil {
				return err
			}
		}

		if vendors, err = qtx.DeleteUnusedVendorsBackedUpByBatch(ctx, batchID); err != nil {
			return err
		}

		if err := qtx.FinishBatch(ctx, batchID, store.BatchRolledBack); err != nil {
			return err
		}

		// Backups and pivots are single-use.
		if err := qtx.DeleteBatchPivots(ctx, batchID); err != nil {
			return err
		}
		return qtx.DeleteBatchBackups(ctx, batchID)
	})
	if err != nil {
		return err
	}

	log.Info("rollback completed",
		"leads_deleted", deleted,
		"leads_restored", restored,
		"contracts_deleted", contracts,
		"vendors_deleted", vendors,
		"elapsed", time.Since(started))
	return nil
}
