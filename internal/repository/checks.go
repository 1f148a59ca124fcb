package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fabricstore/internal/domain"
)

const checkColumns = `
	id,
	check_number,
	customer_id,
	amount::double precision,
	issue_date,
	due_date,
	status,
	related_invoice_id,
	attachments,
	created_by,
	created_at,
	updated_at
`

func (t *pgTx) ListChecks(ctx context.Context, filter CheckFilter) ([]domain.Check, error) {
	query := `SELECT ` + checkColumns + ` FROM checks WHERE 1 = 1`
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}
	if filter.CustomerID != nil {
		add("customer_id = $%d", *filter.CustomerID)
	}
	if filter.InvoiceID != nil {
		add("related_invoice_id = $%d", *filter.InvoiceID)
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	// due dates are free-form strings; ISO-style values compare correctly
	if filter.DueFrom != "" {
		add("due_date >= $%d", filter.DueFrom)
	}
	if filter.DueTo != "" {
		add("due_date <= $%d", filter.DueTo)
	}
	args = append(args, normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	checks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Check, error) {
		return scanCheckRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan checks: %w", err)
	}
	return checks, nil
}

func (t *pgTx) GetCheck(ctx context.Context, id int64) (*domain.Check, error) {
	return t.getCheck(ctx, `SELECT `+checkColumns+` FROM checks WHERE id = $1`, id)
}

func (t *pgTx) GetCheckForUpdate(ctx context.Context, id int64) (*domain.Check, error) {
	return t.getCheck(ctx, `SELECT `+checkColumns+` FROM checks WHERE id = $1 FOR UPDATE`, id)
}

func (t *pgTx) getCheck(ctx context.Context, query string, id int64) (*domain.Check, error) {
	check, err := scanCheckRow(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, lookupError(err, "check", id, fmt.Sprintf("get check %d", id))
	}
	return &check, nil
}

func (t *pgTx) CreateCheck(ctx context.Context, c domain.Check) (domain.Check, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO checks (
			check_number, customer_id, amount, issue_date, due_date,
			status, related_invoice_id, attachments, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+checkColumns,
		c.CheckNumber, c.CustomerID, c.Amount, c.IssueDate, c.DueDate,
		string(c.Status), c.RelatedInvoiceID, nonNilStrings(c.Attachments), c.CreatedBy,
	)
	created, err := scanCheckRow(row)
	if err != nil {
		return domain.Check{}, writeError(err, "check", "create check")
	}
	return created, nil
}

func (t *pgTx) UpdateCheck(ctx context.Context, c domain.Check) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE checks
		SET check_number = $2,
			customer_id = $3,
			amount = $4,
			issue_date = $5,
			due_date = $6,
			status = $7,
			related_invoice_id = $8,
			attachments = $9,
			updated_at = NOW()
		WHERE id = $1
	`, c.ID, c.CheckNumber, c.CustomerID, c.Amount, c.IssueDate, c.DueDate,
		string(c.Status), c.RelatedInvoiceID, nonNilStrings(c.Attachments))
	if err != nil {
		return writeError(err, "check", fmt.Sprintf("update check %d", c.ID))
	}
	return expectOne(tag, "check", c.ID)
}

func (t *pgTx) DeleteCheck(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM checks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete check %d: %w", id, err)
	}
	return expectOne(tag, "check", id)
}

func scanCheckRow(row pgx.Row) (domain.Check, error) {
	var (
		c      domain.Check
		status string
	)
	if err := row.Scan(
		&c.ID,
		&c.CheckNumber,
		&c.CustomerID,
		&c.Amount,
		&c.IssueDate,
		&c.DueDate,
		&status,
		&c.RelatedInvoiceID,
		&c.Attachments,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return domain.Check{}, err
	}
	c.Status = domain.CheckStatus(status)
	return c, nil
}
