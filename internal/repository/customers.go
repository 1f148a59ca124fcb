package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"fabricstore/internal/domain"
)

const customerColumns = `
	id,
	first_name,
	last_name,
	phone,
	mobile,
	address,
	city,
	province,
	current_balance::double precision,
	balance_notes,
	password_hash,
	created_at,
	updated_at
`

func (t *pgTx) ListCustomers(ctx context.Context, filter CustomerFilter) ([]domain.Customer, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE ($1 = ''
			OR first_name ILIKE '%' || $1 || '%'
			OR last_name ILIKE '%' || $1 || '%'
			OR phone ILIKE '%' || $1 || '%'
			OR COALESCE(mobile, '') ILIKE '%' || $1 || '%')
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`, strings.TrimSpace(filter.Search), normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		c, err := scanCustomerRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}

func (t *pgTx) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return t.getCustomer(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

func (t *pgTx) GetCustomerForUpdate(ctx context.Context, id int64) (*domain.Customer, error) {
	return t.getCustomer(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id)
}

func (t *pgTx) getCustomer(ctx context.Context, query string, id int64) (*domain.Customer, error) {
	customer, err := scanCustomerRow(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, lookupError(err, "customer", id, fmt.Sprintf("get customer %d", id))
	}
	accounts, err := t.ListBankAccounts(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.BankAccounts = accounts
	return &customer, nil
}

func (t *pgTx) GetCustomerByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	phone = strings.TrimSpace(phone)
	row := t.tx.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE phone = $1 OR mobile = $1
		ORDER BY id ASC
		LIMIT 1
	`, phone)
	customer, err := scanCustomerRow(row)
	if err != nil {
		return nil, lookupError(err, "customer", phone, "get customer by phone")
	}
	return &customer, nil
}

func (t *pgTx) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO customers (
			first_name, last_name, phone, mobile, address, city, province,
			current_balance, balance_notes, password_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+customerColumns,
		c.FirstName, c.LastName, c.Phone, c.Mobile, c.Address, c.City, c.Province,
		c.CurrentBalance, c.BalanceNotes, c.PasswordHash,
	)
	created, err := scanCustomerRow(row)
	if err != nil {
		return domain.Customer{}, writeError(err, "customer phone", "create customer")
	}
	created.BankAccounts = []domain.BankAccount{}
	return created, nil
}

func (t *pgTx) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE customers
		SET first_name = $2,
			last_name = $3,
			phone = $4,
			mobile = $5,
			address = $6,
			city = $7,
			province = $8,
			current_balance = $9,
			balance_notes = $10,
			password_hash = $11,
			updated_at = NOW()
		WHERE id = $1
	`, c.ID, c.FirstName, c.LastName, c.Phone, c.Mobile, c.Address, c.City, c.Province,
		c.CurrentBalance, c.BalanceNotes, c.PasswordHash)
	if err != nil {
		return writeError(err, "customer phone", fmt.Sprintf("update customer %d", c.ID))
	}
	return expectOne(tag, "customer", c.ID)
}

func (t *pgTx) DeleteCustomer(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Invalid("customer %d still has invoices or checks", id)
		}
		return fmt.Errorf("delete customer %d: %w", id, err)
	}
	return expectOne(tag, "customer", id)
}

func (t *pgTx) GetCustomerStats(ctx context.Context, id int64) (CustomerStats, error) {
	var stats CustomerStats
	err := t.tx.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total) FILTER (WHERE status <> 'cancelled'), 0)::double precision,
			COALESCE(SUM(total) FILTER (WHERE status IN ('shipped', 'delivered')), 0)::double precision,
			COUNT(*),
			(SELECT COUNT(*) FROM checks WHERE customer_id = $1 AND status = 'in_progress')
		FROM invoices
		WHERE customer_id = $1
	`, id).Scan(&stats.TotalPurchases, &stats.TotalPaid, &stats.InvoicesCount, &stats.ChecksInProgressCount)
	if err != nil {
		return CustomerStats{}, fmt.Errorf("customer %d stats: %w", id, err)
	}
	return stats, nil
}

func (t *pgTx) ListBankAccounts(ctx context.Context, customerID int64) ([]domain.BankAccount, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, customer_id, bank_name, account_number, iban
		FROM bank_accounts
		WHERE customer_id = $1
		ORDER BY id ASC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BankAccount, error) {
		var a domain.BankAccount
		err := row.Scan(&a.ID, &a.CustomerID, &a.BankName, &a.AccountNumber, &a.IBAN)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan bank accounts: %w", err)
	}
	return accounts, nil
}

func (t *pgTx) CreateBankAccount(ctx context.Context, a domain.BankAccount) (domain.BankAccount, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO bank_accounts (customer_id, bank_name, account_number, iban)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, a.CustomerID, a.BankName, a.AccountNumber, a.IBAN).Scan(&a.ID)
	if err != nil {
		return domain.BankAccount{}, writeError(err, "bank account", "create bank account")
	}
	return a, nil
}

func (t *pgTx) DeleteBankAccount(ctx context.Context, customerID, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM bank_accounts WHERE id = $1 AND customer_id = $2`, id, customerID)
	if err != nil {
		return fmt.Errorf("delete bank account %d: %w", id, err)
	}
	return expectOne(tag, "bank account", id)
}

func scanCustomerRow(row pgx.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Phone,
		&c.Mobile,
		&c.Address,
		&c.City,
		&c.Province,
		&c.CurrentBalance,
		&c.BalanceNotes,
		&c.PasswordHash,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}
