package importer

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
)

// backupWriter persists lead snapshots. Satisfied by *store.Queries.
type backupWriter interface {
	InsertLeadBackups(ctx context.Context, backups []store.LeadBackup) error
}

// Recorder accumulates pre-mutation lead snapshots for one batch and
// writes them in groups. Only the first touch of a lead within a batch
// produces a snapshot; later rows for the same CPF see state the batch
// itself wrote, which is not a restore point.
type Recorder struct {
	q       backupWriter
	batchID pgtype.UUID
	chunk   int
	seen    map[int64]bool
	buf     []store.LeadBackup
}

// NewRecorder returns a Recorder flushing through q, which must be
// pool-bound: snapshots survive even when the row that triggered them
// later fails.
func NewRecorder(q backupWriter, batchID pgtype.UUID, chunk int) *Recorder {
	if chunk < 1 {
		chunk = 1
	}
	return &Recorder{
		q:       q,
		batchID: batchID,
		chunk:   chunk,
		seen:    make(map[int64]bool),
	}
}

// Snapshot captures a lead's state before it is mutated. Call it with
// the lead as loaded, before any applier runs.
func Snapshot(batchID pgtype.UUID, l *store.Lead) store.LeadBackup {
	return store.LeadBackup{
		BatchID:         batchID,
		LeadID:          l.ID,
		WasNew:          false,
		CPF:             l.CPF,
		Name:            l.Name,
		BirthDate:       l.BirthDate,
		Phone1:          l.Phone1,
		Phone2:          l.Phone2,
		Phone3:          l.Phone3,
		Phone4:          l.Phone4,
		Class1:          l.Class1,
		Class2:          l.Class2,
		Class3:          l.Class3,
		Class4:          l.Class4,
		StatusCode:      l.StatusCode,
		StatusMessage:   l.StatusMessage,
		Balance:         l.Balance,
		ReleasedAmount:  l.ReleasedAmount,
		StatusUpdatedAt: l.StatusUpdatedAt,
	}
}

// Add buffers one snapshot, flushing when the buffer reaches the chunk
// size. Duplicate lead ids are dropped.
func (r *Recorder) Add(ctx context.Context, b store.LeadBackup) error {
	if r.seen[b.LeadID] {
		return nil
	}
	r.seen[b.LeadID] = true
	r.buf = append(r.buf, b)

	if len(r.buf) >= r.chunk {
		return r.Flush(ctx)
	}
	return nil
}

// AddNew marks a lead as created by the batch; rollback deletes it
// instead of restoring fields.
func (r *Recorder) AddNew(ctx context.Context, leadID int64, cpf string) error {
	return r.Add(ctx, store.LeadBackup{
		BatchID: r.batchID,
		LeadID:  leadID,
		WasNew:  true,
		CPF:     cpf,
	})
}

// Seen reports whether the batch already snapshotted (or created) the
// lead.
func (r *Recorder) Seen(leadID int64) bool {
	return r.seen[leadID]
}

// Flush writes any buffered snapshots.
func (r *Recorder) Flush(ctx context.Context) error {
	if len(r.buf) == 0 {
		return nil
	}
	if err := r.q.InsertLeadBackups(ctx, r.buf); err != nil {
		return err
	}
	r.buf = r.buf[:0]
	return nil
}
