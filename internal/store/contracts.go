package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// InsertContractIfAbsent inserts a contract keyed on (lead, date).
// Returns the contract id and whether a row was actually inserted;
// an existing (lead, date) pair is left untouched.
func (q *Queries) InsertContractIfAbsent(ctx context.Context, leadID int64, date time.Time, vendorID pgtype.Int8) (int64, bool, error) {
	var id int64
	err := q.db.QueryRow(ctx, `
		INSERT INTO contracts (lead_id, contract_date, vendor_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (lead_id, contract_date) DO NOTHING
		RETURNING id`,
		leadID, date, vendorID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert contract: %w", err)
	}
	return id, true, nil
}

// DeleteContractsBackedUpByBatch removes every contract recorded as
// inserted by the batch. Returns the number deleted.
func (q *Queries) DeleteContractsBackedUpByBatch(ctx context.Context, batchID pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM contracts
		WHERE id IN (
			SELECT contract_id FROM contract_backups
			WHERE batch_id = $1 AND was_new
		)`, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete batch contracts: %w", err)
	}
	return tag.RowsAffected(), nil
}
