package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fabricstore/internal/domain"
)

// ErrNotFound is returned, wrapped, when a row lookup misses.
var ErrNotFound = domain.ErrNotFound

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict("record already exists")
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// pgTx implements Tx on top of one open pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

var _ Tx = (*pgTx)(nil)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// lookupError turns pgx.ErrNoRows into a NotFoundError for entity.
func lookupError(err error, entity string, id any, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound(entity, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// writeError maps constraint violations to the domain taxonomy.
func writeError(err error, entity, op string) error {
	switch {
	case isUniqueViolation(err):
		return domain.Conflict("%s already exists", entity)
	case isForeignKeyViolation(err):
		return domain.Invalid("%s references a missing or still referenced record", entity)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectOne(tag pgconn.CommandTag, entity string, id any) error {
	if tag.RowsAffected() == 0 {
		return domain.NotFound(entity, id)
	}
	return nil
}
