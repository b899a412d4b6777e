// Package store implements the lead persistence ports on PostgreSQL via pgx.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/leads/internal/core"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so the same queries run
// inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the PostgreSQL implementation of core.CaptureStore and core.ExportStore.
type Store struct {
	db DBTX
}

var (
	_ core.CaptureStore = (*Store)(nil)
	_ core.ExportStore  = (*Store)(nil)
)

// New creates a store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// InTx runs fn in a transaction. Nested calls use a savepoint.
func (s *Store) InTx(ctx context.Context, fn func(tx core.CaptureStore) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&Store{db: tx})
	})
}

// TableExists reports whether table exists in the current search path.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return ok, nil
}

// Ready reports an error unless every lead table exists.
func (s *Store) Ready(ctx context.Context) error {
	for _, t := range Tables {
		ok, err := s.TableExists(ctx, t)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("table %s is missing", t)
		}
	}
	return nil
}

// Tables lists the tables the schema migrations create.
var Tables = []string{"forms", "form_fields", "form_field_aliases", "members", "leads", "lead_data", "lead_exports"}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// idFilter turns an optional id list into a query argument; an empty
// array matches every row.
func idFilter(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
