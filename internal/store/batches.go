package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrImportInProgress is returned when batch creation is rejected
// because another batch is pending or running.
var ErrImportInProgress = errors.New("another import is pending or running")

const batchColumns = `id, type, origin, file_name, total_rows, processed_rows,
	status, started_at, finished_at, created_at`

func scanBatch(row pgx.Row) (ImportBatch, error) {
	var b ImportBatch
	err := row.Scan(
		&b.ID, &b.Type, &b.Origin, &b.FileName, &b.TotalRows, &b.ProcessedRows,
		&b.Status, &b.StartedAt, &b.FinishedAt, &b.CreatedAt,
	)
	return b, err
}

// CreateImportBatchIfIdle inserts a pending batch only if no batch is
// currently pending or running. The admission check and the insert run
// in one statement so two concurrent submissions cannot both pass a
// separate existence check.
func (q *Queries) CreateImportBatchIfIdle(ctx context.Context, id pgtype.UUID, importType string, origin pgtype.Text, fileName string) error {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO import_batches (id, type, origin, file_name, status)
		SELECT $1, $2, $3, $4, 'pending'
		WHERE NOT EXISTS (
			SELECT 1 FROM import_batches WHERE status IN ('pending', 'running')
		)`,
		id, importType, origin, fileName)
	if err != nil {
		return fmt.Errorf("create import batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrImportInProgress
	}
	return nil
}

// GetImportBatch returns a batch by id.
func (q *Queries) GetImportBatch(ctx context.Context, id pgtype.UUID) (*ImportBatch, error) {
	row := q.db.QueryRow(ctx, `SELECT `+batchColumns+` FROM import_batches WHERE id = $1`, id)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get import batch: %w", err)
	}
	return &b, nil
}

// LatestBatchID returns the id of the most recently created batch, or
// an invalid UUID when none exist.
func (q *Queries) LatestBatchID(ctx context.Context) (pgtype.UUID, error) {
	var id pgtype.UUID
	err := q.db.QueryRow(ctx,
		`SELECT id FROM import_batches ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return pgtype.UUID{}, nil
	}
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("latest batch id: %w", err)
	}
	return id, nil
}

// MarkBatchRunning transitions pending -> running and records the start
// time and total row count.
func (q *Queries) MarkBatchRunning(ctx context.Context, id pgtype.UUID, totalRows int) error {
	_, err := q.db.Exec(ctx, `
		UPDATE import_batches
		SET status = 'running', total_rows = $2, started_at = now()
		WHERE id = $1`, id, totalRows)
	if err != nil {
		return fmt.Errorf("mark batch running: %w", err)
	}
	return nil
}

// FinishBatch sets a terminal status and the finish timestamp.
func (q *Queries) FinishBatch(ctx context.Context, id pgtype.UUID, status string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE import_batches
		SET status = $2, finished_at = now()
		WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	return nil
}

// AdvanceBatchProgress atomically increments processed_rows by delta,
// clamped so the reported count never exceeds total_rows.
func (q *Queries) AdvanceBatchProgress(ctx context.Context, id pgtype.UUID, delta int) error {
	_, err := q.db.Exec(ctx, `
		UPDATE import_batches
		SET processed_rows = LEAST(processed_rows + $2, total_rows)
		WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("advance batch progress: %w", err)
	}
	return nil
}

// AddRowError appends one row/column/message triple for the batch.
func (q *Queries) AddRowError(ctx context.Context, batchID pgtype.UUID, rowNum int, column, message string) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO import_row_errors (batch_id, row_number, column_name, message)
		VALUES ($1, $2, $3, $4)`,
		batchID, rowNum, column, message)
	if err != nil {
		return fmt.Errorf("add row error: %w", err)
	}
	return nil
}

// CountRowErrors returns the number of captured row errors for a batch.
func (q *Queries) CountRowErrors(ctx context.Context, batchID pgtype.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM import_row_errors WHERE batch_id = $1`, batchID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count row errors: %w", err)
	}
	return n, nil
}

// ListRowErrors returns all row errors for a batch ordered by row number.
func (q *Queries) ListRowErrors(ctx context.Context, batchID pgtype.UUID) ([]RowError, error) {
	rows, err := q.db.Query(ctx, `
		SELECT row_number, column_name, message
		FROM import_row_errors
		WHERE batch_id = $1
		ORDER BY row_number, id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list row errors: %w", err)
	}
	defer rows.Close()

	var out []RowError
	for rows.Next() {
		var e RowError
		if err := rows.Scan(&e.RowNumber, &e.Column, &e.Message); err != nil {
			return nil, fmt.Errorf("scan row error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AttachLeadPivot records that the batch touched a lead, tagged with
// whether the batch created it. A lead touched twice in one batch keeps
// its first action.
func (q *Queries) AttachLeadPivot(ctx context.Context, batchID pgtype.UUID, leadID int64, action string) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO import_batch_leads (batch_id, lead_id, action)
		VALUES ($1, $2, $3)
		ON CONFLICT (batch_id, lead_id) DO NOTHING`,
		batchID, leadID, action)
	if err != nil {
		return fmt.Errorf("attach lead pivot: %w", err)
	}
	return nil
}

// DeleteBatchPivots removes the batch's pivot rows (rollback cleanup).
func (q *Queries) DeleteBatchPivots(ctx context.Context, batchID pgtype.UUID) error {
	_, err := q.db.Exec(ctx,
		`DELETE FROM import_batch_leads WHERE batch_id = $1`, batchID)
	if err != nil {
		return fmt.Errorf("delete batch pivots: %w", err)
	}
	return nil
}
