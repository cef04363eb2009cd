// Package store is the persistence layer for leads, contracts, vendors,
// import batches and consultation batches. Queries are written against
// the DBTX interface so the same methods run on a pool or inside a
// transaction.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries exposes all persistence operations over a DBTX.
type Queries struct {
	db DBTX
}

// New returns a Queries bound to db, which may be a pool or a transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}
