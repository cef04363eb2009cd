package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const consultColumns = `id, title, valid_cpfs, invalid_cpfs, success_count, fail_count,
	status, cancel_requested, report_path, started_at, finished_at, created_at`

func scanConsultation(row pgx.Row) (ConsultationBatch, error) {
	var c ConsultationBatch
	err := row.Scan(
		&c.ID, &c.Title, &c.ValidCPFs, &c.InvalidCPFs, &c.SuccessCount, &c.FailCount,
		&c.Status, &c.CancelRequested, &c.ReportPath, &c.StartedAt, &c.FinishedAt, &c.CreatedAt,
	)
	return c, err
}

// CreateConsultation inserts a pending consultation batch.
func (q *Queries) CreateConsultation(ctx context.Context, id pgtype.UUID, title string, valid, invalid []string) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO consultation_batches (id, title, valid_cpfs, invalid_cpfs, status)
		VALUES ($1, $2, $3, $4, 'pending')`,
		id, title, valid, invalid)
	if err != nil {
		return fmt.Errorf("create consultation: %w", err)
	}
	return nil
}

// GetConsultation returns a consultation batch by id, or (nil, nil).
func (q *Queries) GetConsultation(ctx context.Context, id pgtype.UUID) (*ConsultationBatch, error) {
	row := q.db.QueryRow(ctx, `SELECT `+consultColumns+` FROM consultation_batches WHERE id = $1`, id)
	c, err := scanConsultation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get consultation: %w", err)
	}
	return &c, nil
}

// MarkConsultationRunning transitions pending -> running.
func (q *Queries) MarkConsultationRunning(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE consultation_batches
		SET status = 'running', started_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark consultation running: %w", err)
	}
	return nil
}

// UpdateConsultationCounts persists the running success/failure totals.
func (q *Queries) UpdateConsultationCounts(ctx context.Context, id pgtype.UUID, success, fail int) error {
	_, err := q.db.Exec(ctx, `
		UPDATE consultation_batches
		SET success_count = $2, fail_count = $3
		WHERE id = $1`, id, success, fail)
	if err != nil {
		return fmt.Errorf("update consultation counts: %w", err)
	}
	return nil
}

// SetConsultationReport records the generated artifact's path.
func (q *Queries) SetConsultationReport(ctx context.Context, id pgtype.UUID, path string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE consultation_batches SET report_path = $2 WHERE id = $1`, id, path)
	if err != nil {
		return fmt.Errorf("set consultation report: %w", err)
	}
	return nil
}

// FinishConsultation sets a terminal status and the finish timestamp.
func (q *Queries) FinishConsultation(ctx context.Context, id pgtype.UUID, status string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE consultation_batches
		SET status = $2, finished_at = now()
		WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("finish consultation: %w", err)
	}
	return nil
}

// RequestConsultationCancel flags the batch for cooperative
// cancellation. The orchestrator polls this flag between units of work.
// Returns false when the batch is already terminal.
func (q *Queries) RequestConsultationCancel(ctx context.Context, id pgtype.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE consultation_batches
		SET cancel_requested = TRUE
		WHERE id = $1 AND status IN ('pending', 'running')`, id)
	if err != nil {
		return false, fmt.Errorf("request consultation cancel: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ConsultationCancelRequested reads the persisted cancellation flag.
func (q *Queries) ConsultationCancelRequested(ctx context.Context, id pgtype.UUID) (bool, error) {
	var cancelled bool
	err := q.db.QueryRow(ctx,
		`SELECT cancel_requested FROM consultation_batches WHERE id = $1`, id,
	).Scan(&cancelled)
	if err != nil {
		return false, fmt.Errorf("consultation cancel requested: %w", err)
	}
	return cancelled, nil
}
