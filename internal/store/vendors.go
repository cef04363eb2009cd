package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// FindOrCreateVendor returns the vendor with the given normalized name,
// creating it on first reference. Created reports whether a new row was
// inserted.
func (q *Queries) FindOrCreateVendor(ctx context.Context, name, normalized string) (vendorID int64, created bool, err error) {
	// Upsert keyed on normalized_name; xmax = 0 distinguishes a fresh
	// insert from a conflict-update on the same row version.
	err = q.db.QueryRow(ctx, `
		INSERT INTO vendors (name, normalized_name)
		VALUES ($1, $2)
		ON CONFLICT (normalized_name) DO UPDATE SET normalized_name = EXCLUDED.normalized_name
		RETURNING id, (xmax = 0)`,
		name, normalized,
	).Scan(&vendorID, &created)
	if err != nil {
		return 0, false, fmt.Errorf("find or create vendor: %w", err)
	}
	return vendorID, created, nil
}

// DeleteUnusedVendorsBackedUpByBatch deletes every vendor backed up for
// the batch that no longer has any contract referencing it. Vendors
// shared with contracts from other batches survive.
func (q *Queries) DeleteUnusedVendorsBackedUpByBatch(ctx context.Context, batchID pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM vendors v
		WHERE v.id IN (SELECT vendor_id FROM vendor_backups WHERE batch_id = $1)
		  AND NOT EXISTS (SELECT 1 FROM contracts c WHERE c.vendor_id = v.id)`,
		batchID)
	if err != nil {
		return 0, fmt.Errorf("delete unused vendors: %w", err)
	}
	return tag.RowsAffected(), nil
}
