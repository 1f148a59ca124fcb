package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fabricstore/internal/domain"
)

const cartColumns = `
	id,
	customer_id,
	customer_name,
	customer_phone,
	customer_email,
	customer_address,
	notes,
	total_amount::double precision,
	status,
	submitted_at,
	created_at,
	updated_at
`

const cartItemColumns = `id, cart_id, product_id, quantity, unit, price::double precision, selected_series, selected_color`

func (t *pgTx) ListCarts(ctx context.Context, filter CartFilter) ([]domain.Cart, error) {
	// open customer carts are still being filled and stay out of the review queue
	query := `SELECT ` + cartColumns + ` FROM carts WHERE submitted_at IS NOT NULL`
	args := []any{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	args = append(args, normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	carts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Cart, error) {
		return scanCartRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan carts: %w", err)
	}
	return carts, nil
}

func (t *pgTx) GetCart(ctx context.Context, id int64) (*domain.Cart, error) {
	cart, err := scanCartRow(t.tx.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id))
	if err != nil {
		return nil, lookupError(err, "cart", id, fmt.Sprintf("get cart %d", id))
	}
	if cart.Items, err = t.loadCartItems(ctx, cart.ID); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (t *pgTx) GetOpenCustomerCart(ctx context.Context, customerID int64) (*domain.Cart, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+cartColumns+`
		FROM carts
		WHERE customer_id = $1 AND submitted_at IS NULL
		FOR UPDATE
	`, customerID)
	cart, err := scanCartRow(row)
	if err != nil {
		return nil, lookupError(err, "cart", nil, "get open customer cart")
	}
	if cart.Items, err = t.loadCartItems(ctx, cart.ID); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (t *pgTx) loadCartItems(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 ORDER BY id ASC`, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart %d items: %w", cartID, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CartItem, error) {
		return scanCartItemRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan cart %d items: %w", cartID, err)
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := t.loadProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if p, ok := products[items[i].ProductID]; ok {
			items[i].Product = &p
		}
	}
	return items, nil
}

func (t *pgTx) CreateCart(ctx context.Context, cart *domain.Cart) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO carts (
			customer_id, customer_name, customer_phone, customer_email,
			customer_address, notes, total_amount, status, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, cart.CustomerID, cart.CustomerName, cart.CustomerPhone, cart.CustomerEmail,
		cart.CustomerAddress, cart.Notes, cart.TotalAmount, string(cart.Status), cart.SubmittedAt,
	).Scan(&cart.ID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return writeError(err, "open cart for customer", "create cart")
	}
	for i := range cart.Items {
		cart.Items[i].CartID = cart.ID
		created, err := t.CreateCartItem(ctx, cart.Items[i])
		if err != nil {
			return err
		}
		cart.Items[i].ID = created.ID
	}
	return nil
}

func (t *pgTx) UpdateCart(ctx context.Context, cart domain.Cart) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE carts
		SET customer_name = $2,
			customer_phone = $3,
			customer_email = $4,
			customer_address = $5,
			notes = $6,
			total_amount = $7,
			status = $8,
			submitted_at = $9,
			updated_at = NOW()
		WHERE id = $1
	`, cart.ID, cart.CustomerName, cart.CustomerPhone, cart.CustomerEmail, cart.CustomerAddress,
		cart.Notes, cart.TotalAmount, string(cart.Status), cart.SubmittedAt)
	if err != nil {
		return fmt.Errorf("update cart %d: %w", cart.ID, err)
	}
	return expectOne(tag, "cart", cart.ID)
}

func (t *pgTx) DeleteCart(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart %d: %w", id, err)
	}
	return expectOne(tag, "cart", id)
}

func (t *pgTx) GetCartStats(ctx context.Context) (domain.CartStats, error) {
	stats := domain.CartStats{StatusBreakdown: map[domain.CartStatus]int{}}
	rows, err := t.tx.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)::double precision
		FROM carts
		WHERE submitted_at IS NOT NULL
		GROUP BY status
	`)
	if err != nil {
		return domain.CartStats{}, fmt.Errorf("cart stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
			amount float64
		)
		if err := rows.Scan(&status, &count, &amount); err != nil {
			return domain.CartStats{}, fmt.Errorf("scan cart stats: %w", err)
		}
		stats.StatusBreakdown[domain.CartStatus(status)] = count
		stats.TotalOrders += count
		stats.TotalAmount += amount
	}
	if err := rows.Err(); err != nil {
		return domain.CartStats{}, fmt.Errorf("iterate cart stats: %w", err)
	}
	return stats, nil
}

func (t *pgTx) CreateCartItem(ctx context.Context, item domain.CartItem) (domain.CartItem, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity, unit, price, selected_series, selected_color)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, item.CartID, item.ProductID, item.Quantity, item.Unit, item.Price, item.SelectedSeries, item.SelectedColor,
	).Scan(&item.ID)
	if err != nil {
		return domain.CartItem{}, writeError(err, "cart item", "create cart item")
	}
	return item, nil
}

func (t *pgTx) UpdateCartItem(ctx context.Context, item domain.CartItem) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE cart_items
		SET quantity = $3,
			unit = $4,
			price = $5,
			selected_series = $6,
			selected_color = $7
		WHERE id = $1 AND cart_id = $2
	`, item.ID, item.CartID, item.Quantity, item.Unit, item.Price, item.SelectedSeries, item.SelectedColor)
	if err != nil {
		return fmt.Errorf("update cart item %d: %w", item.ID, err)
	}
	return expectOne(tag, "cart item", item.ID)
}

func (t *pgTx) DeleteCartItem(ctx context.Context, cartID, itemID int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return fmt.Errorf("delete cart item %d: %w", itemID, err)
	}
	return expectOne(tag, "cart item", itemID)
}

func (t *pgTx) DeleteCartItems(ctx context.Context, cartID int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart %d: %w", cartID, err)
	}
	return nil
}

func scanCartRow(row pgx.Row) (domain.Cart, error) {
	var (
		cart   domain.Cart
		status string
	)
	if err := row.Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.CustomerName,
		&cart.CustomerPhone,
		&cart.CustomerEmail,
		&cart.CustomerAddress,
		&cart.Notes,
		&cart.TotalAmount,
		&status,
		&cart.SubmittedAt,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		return domain.Cart{}, err
	}
	cart.Status = domain.CartStatus(status)
	return cart, nil
}

func scanCartItemRow(row pgx.Row) (domain.CartItem, error) {
	var item domain.CartItem
	err := row.Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
		&item.Unit,
		&item.Price,
		&item.SelectedSeries,
		&item.SelectedColor,
	)
	return item, err
}
