package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"fabricstore/internal/domain"
)

const userColumns = `id, email, first_name, last_name, role, is_active, password_hash, created_at`

func (t *pgTx) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := scanUserRow(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, lookupError(err, "user", id, fmt.Sprintf("get user %d", id))
	}
	return &user, nil
}

func (t *pgTx) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := scanUserRow(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, lookupError(err, "user", email, "get user by email")
	}
	return &user, nil
}

func (t *pgTx) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO users (email, first_name, last_name, role, is_active, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		strings.ToLower(strings.TrimSpace(u.Email)), u.FirstName, u.LastName, string(u.Role), u.IsActive, u.PasswordHash,
	)
	created, err := scanUserRow(row)
	if err != nil {
		return domain.User{}, writeError(err, "user email", "create user")
	}
	return created, nil
}

func (t *pgTx) ListUsers(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1 = 1`
	args := []any{}
	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	args = append(args, normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		return scanUserRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

func (t *pgTx) UpdateUser(ctx context.Context, u domain.User) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE users
		SET email = $2,
			first_name = $3,
			last_name = $4,
			role = $5,
			is_active = $6,
			password_hash = $7
		WHERE id = $1
	`, u.ID, strings.ToLower(strings.TrimSpace(u.Email)), u.FirstName, u.LastName, string(u.Role), u.IsActive, u.PasswordHash)
	if err != nil {
		return writeError(err, "user email", fmt.Sprintf("update user %d", u.ID))
	}
	return expectOne(tag, "user", u.ID)
}

// DeleteUser fails with a ValidationError while invoices or ledger rows still
// name the user as creator.
func (t *pgTx) DeleteUser(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return writeError(err, "user", fmt.Sprintf("delete user %d", id))
	}
	return expectOne(tag, "user", id)
}

func (t *pgTx) CountUsersByRole(ctx context.Context, role domain.Role) (int, error) {
	var count int
	if err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func scanUserRow(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &role, &u.IsActive, &u.PasswordHash, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	return u, nil
}
