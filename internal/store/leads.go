package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const leadColumns = `id, cpf, name, birth_date,
	phone1, phone2, phone3, phone4,
	class1, class2, class3, class4,
	status_code, status_message, balance, released_amount, status_updated_at,
	created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.CPF, &l.Name, &l.BirthDate,
		&l.Phone1, &l.Phone2, &l.Phone3, &l.Phone4,
		&l.Class1, &l.Class2, &l.Class3, &l.Class4,
		&l.StatusCode, &l.StatusMessage, &l.Balance, &l.ReleasedAmount, &l.StatusUpdatedAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// GetLeadByCPF returns the lead for a normalized CPF, or (nil, nil) when
// no lead exists.
func (q *Queries) GetLeadByCPF(ctx context.Context, cpf string) (*Lead, error) {
	row := q.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE cpf = $1`, cpf)
	l, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead by cpf: %w", err)
	}
	return &l, nil
}

// InsertLead creates a lead and returns it with its generated id.
func (q *Queries) InsertLead(ctx context.Context, l *Lead) error {
	row := q.db.QueryRow(ctx, `
		INSERT INTO leads (cpf, name, birth_date,
			phone1, phone2, phone3, phone4,
			class1, class2, class3, class4,
			status_code, status_message, balance, released_amount, status_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`,
		l.CPF, l.Name, l.BirthDate,
		l.Phone1, l.Phone2, l.Phone3, l.Phone4,
		l.Class1, l.Class2, l.Class3, l.Class4,
		l.StatusCode, l.StatusMessage, l.Balance, l.ReleasedAmount, l.StatusUpdatedAt,
	)
	if err := row.Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// UpdateLead writes all mutable lead fields. Callers decide the merge
// policy (sparse vs dense) before calling; this persists verbatim.
func (q *Queries) UpdateLead(ctx context.Context, l *Lead) error {
	_, err := q.db.Exec(ctx, `
		UPDATE leads SET
			name = $2, birth_date = $3,
			phone1 = $4, phone2 = $5, phone3 = $6, phone4 = $7,
			class1 = $8, class2 = $9, class3 = $10, class4 = $11,
			status_code = $12, status_message = $13,
			balance = $14, released_amount = $15, status_updated_at = $16,
			updated_at = now()
		WHERE id = $1`,
		l.ID, l.Name, l.BirthDate,
		l.Phone1, l.Phone2, l.Phone3, l.Phone4,
		l.Class1, l.Class2, l.Class3, l.Class4,
		l.StatusCode, l.StatusMessage, l.Balance, l.ReleasedAmount, l.StatusUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return nil
}

// DeleteLeadsInsertedByBatch removes every lead whose pivot action for
// the batch was "insert". Returns the number of leads deleted.
func (q *Queries) DeleteLeadsInsertedByBatch(ctx context.Context, batchID pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM leads
		WHERE id IN (
			SELECT lead_id FROM import_batch_leads
			WHERE batch_id = $1 AND action = 'insert'
		)`, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete inserted leads: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RestoreLead overwrites a lead's mutable fields with a backup snapshot.
// Full restore, not a merge.
func (q *Queries) RestoreLead(ctx context.Context, b LeadBackup) error {
	_, err := q.db.Exec(ctx, `
		UPDATE leads SET
			name = $2, birth_date = $3,
			phone1 = $4, phone2 = $5, phone3 = $6, phone4 = $7,
			class1 = $8, class2 = $9, class3 = $10, class4 = $11,
			status_code = $12, status_message = $13,
			balance = $14, released_amount = $15, status_updated_at = $16,
			updated_at = now()
		WHERE id = $1`,
		b.LeadID, b.Name, b.BirthDate,
		b.Phone1, b.Phone2, b.Phone3, b.Phone4,
		b.Class1, b.Class2, b.Class3, b.Class4,
		b.StatusCode, b.StatusMessage, b.Balance, b.ReleasedAmount, b.StatusUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("restore lead %d: %w", b.LeadID, err)
	}
	return nil
}
