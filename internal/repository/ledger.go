package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fabricstore/internal/domain"
)

const transactionColumns = `id, product_id, change_quantity, reason, reference_id, notes, created_by, created_at`

// InsertTransaction appends a ledger row. The ledger has no update or delete
// path; corrections are new offsetting rows.
func (t *pgTx) InsertTransaction(ctx context.Context, txn domain.InventoryTransaction) (domain.InventoryTransaction, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO inventory_transactions (product_id, change_quantity, reason, reference_id, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+transactionColumns,
		txn.ProductID, txn.ChangeQuantity, string(txn.Reason), txn.ReferenceID, txn.Notes, txn.CreatedBy,
	)
	created, err := scanTransactionRow(row)
	if err != nil {
		return domain.InventoryTransaction{}, writeError(err, "inventory transaction", "insert inventory transaction")
	}
	return created, nil
}

func (t *pgTx) ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.InventoryTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM inventory_transactions WHERE 1 = 1`
	args := []any{}
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		query += fmt.Sprintf(" AND product_id = $%d", len(args))
	}
	if filter.Reason != nil {
		args = append(args, string(*filter.Reason))
		query += fmt.Sprintf(" AND reason = $%d", len(args))
	}
	if filter.ReferenceID != nil {
		args = append(args, *filter.ReferenceID)
		query += fmt.Sprintf(" AND reference_id = $%d", len(args))
	}
	args = append(args, normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory transactions: %w", err)
	}
	txns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.InventoryTransaction, error) {
		return scanTransactionRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan inventory transactions: %w", err)
	}
	return txns, nil
}

func (t *pgTx) SumTransactions(ctx context.Context, productID int64, reason domain.TransactionReason) (float64, error) {
	var sum float64
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(change_quantity), 0)
		FROM inventory_transactions
		WHERE product_id = $1 AND reason = $2
	`, productID, string(reason)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum %s transactions for product %d: %w", reason, productID, err)
	}
	return sum, nil
}

func (t *pgTx) CountTransactions(ctx context.Context, productID int64) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_transactions WHERE product_id = $1`, productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions for product %d: %w", productID, err)
	}
	return count, nil
}

func scanTransactionRow(row pgx.Row) (domain.InventoryTransaction, error) {
	var (
		txn    domain.InventoryTransaction
		reason string
	)
	if err := row.Scan(
		&txn.ID,
		&txn.ProductID,
		&txn.ChangeQuantity,
		&reason,
		&txn.ReferenceID,
		&txn.Notes,
		&txn.CreatedBy,
		&txn.CreatedAt,
	); err != nil {
		return domain.InventoryTransaction{}, err
	}
	txn.Reason = domain.TransactionReason(reason)
	return txn, nil
}
