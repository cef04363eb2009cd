package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// InsertLeadBackups writes a group of lead snapshots in one multi-row
// statement. Grouping inserts by chunk keeps backup writes off the
// per-row hot path.
func (q *Queries) InsertLeadBackups(ctx context.Context, backups []LeadBackup) error {
	if len(backups) == 0 {
		return nil
	}

	const cols = 19
	query := `INSERT INTO lead_backups (batch_id, lead_id, was_new, cpf, name, birth_date,
		phone1, phone2, phone3, phone4, class1, class2, class3, class4,
		status_code, status_message, balance, released_amount, status_updated_at) VALUES `
	args := make([]interface{}, 0, len(backups)*cols)

	for i, b := range backups {
		if i > 0 {
			query += ", "
		}
		query += placeholders(i*cols, cols)
		args = append(args,
			b.BatchID, b.LeadID, b.WasNew, b.CPF, b.Name, b.BirthDate,
			b.Phone1, b.Phone2, b.Phone3, b.Phone4,
			b.Class1, b.Class2, b.Class3, b.Class4,
			b.StatusCode, b.StatusMessage, b.Balance, b.ReleasedAmount, b.StatusUpdatedAt,
		)
	}

	if _, err := q.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert lead backups: %w", err)
	}
	return nil
}

// placeholders renders "($n+1, $n+2, ...)" for one multi-row values group.
func placeholders(offset, n int) string {
	s := "("
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("$%d", offset+i+1)
	}
	return s + ")"
}

// ListLeadRestoreBackups returns the was_new=false snapshots for a batch,
// the ones rollback restores field by field.
func (q *Queries) ListLeadRestoreBackups(ctx context.Context, batchID pgtype.UUID) ([]LeadBackup, error) {
	rows, err := q.db.Query(ctx, `
		SELECT batch_id, lead_id, was_new, cpf, name, birth_date,
			phone1, phone2, phone3, phone4, class1, class2, class3, class4,
			status_code, status_message, balance, released_amount, status_updated_at
		FROM lead_backups
		WHERE batch_id = $1 AND NOT was_new`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list lead backups: %w", err)
	}
	defer rows.Close()

	var out []LeadBackup
	for rows.Next() {
		var b LeadBackup
		if err := rows.Scan(
			&b.BatchID, &b.LeadID, &b.WasNew, &b.CPF, &b.Name, &b.BirthDate,
			&b.Phone1, &b.Phone2, &b.Phone3, &b.Phone4,
			&b.Class1, &b.Class2, &b.Class3, &b.Class4,
			&b.StatusCode, &b.StatusMessage, &b.Balance, &b.ReleasedAmount, &b.StatusUpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lead backup: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertContractBackup records a contract inserted by the batch.
func (q *Queries) InsertContractBackup(ctx context.Context, batchID pgtype.UUID, contractID int64) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO contract_backups (batch_id, contract_id, was_new)
		VALUES ($1, $2, TRUE)`, batchID, contractID)
	if err != nil {
		return fmt.Errorf("insert contract backup: %w", err)
	}
	return nil
}

// EnsureVendorBackup records a vendor created by the batch, once per
// (batch, vendor) no matter how many contract rows reference it.
func (q *Queries) EnsureVendorBackup(ctx context.Context, batchID pgtype.UUID, vendorID int64) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO vendor_backups (batch_id, vendor_id)
		VALUES ($1, $2)
		ON CONFLICT (batch_id, vendor_id) DO NOTHING`, batchID, vendorID)
	if err != nil {
		return fmt.Errorf("ensure vendor backup: %w", err)
	}
	return nil
}

// PurgeAllBackups unconditionally clears every backup table. Called at
// the start of each import: only the latest batch's backups are ever
// retained (single-generation retention).
func (q *Queries) PurgeAllBackups(ctx context.Context) error {
	for _, table := range []string{"lead_backups", "contract_backups", "vendor_backups"} {
		if _, err := q.db.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("purge %s: %w", table, err)
		}
	}
	return nil
}

// DeleteBatchBackups removes the batch's backup rows after a completed
// rollback; backups are single-use.
func (q *Queries) DeleteBatchBackups(ctx context.Context, batchID pgtype.UUID) error {
	for _, table := range []string{"lead_backups", "contract_backups", "vendor_backups"} {
		if _, err := q.db.Exec(ctx, "DELETE FROM "+table+" WHERE batch_id = $1", batchID); err != nil {
			return fmt.Errorf("delete %s for batch: %w", table, err)
		}
	}
	return nil
}
