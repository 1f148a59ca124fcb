package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fabricstore/internal/domain"
)

const invoiceColumns = `
	id,
	invoice_number,
	customer_id,
	created_by,
	subtotal::double precision,
	total::double precision,
	payment_type,
	payment_breakdown,
	status,
	tracking_info,
	attachments,
	reserved_at,
	created_at,
	updated_at
`

const invoiceItemColumns = `
	id,
	invoice_id,
	product_id,
	quantity,
	unit,
	price::double precision,
	rolls_count,
	pieces_per_roll,
	detailed_rolls,
	selected_series,
	selected_color,
	reserved_quantity
`

func (t *pgTx) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1 = 1`
	args := []any{}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Statuses != nil {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	args = append(args, normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	invoices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Invoice, error) {
		return scanInvoiceRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan invoices: %w", err)
	}
	return invoices, nil
}

func (t *pgTx) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	return t.getInvoice(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

func (t *pgTx) GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.Invoice, error) {
	return t.getInvoice(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
}

func (t *pgTx) getInvoice(ctx context.Context, query string, id int64) (*domain.Invoice, error) {
	invoice, err := scanInvoiceRow(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, lookupError(err, "invoice", id, fmt.Sprintf("get invoice %d", id))
	}
	items, err := t.loadInvoiceItems(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.Items = items
	return &invoice, nil
}

func (t *pgTx) loadInvoiceItems(ctx context.Context, invoiceID int64) ([]domain.InvoiceItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+invoiceItemColumns+`
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id ASC
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice %d items: %w", invoiceID, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.InvoiceItem, error) {
		return scanInvoiceItemRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan invoice %d items: %w", invoiceID, err)
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

func (t *pgTx) loadProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := t.tx.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func (t *pgTx) CreateInvoice(ctx context.Context, inv *domain.Invoice) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (
			invoice_number, customer_id, created_by, subtotal, total,
			payment_type, payment_breakdown, status, tracking_info, attachments
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, inv.InvoiceNumber, inv.CustomerID, inv.CreatedBy, inv.Subtotal, inv.Total,
		string(inv.PaymentType), inv.PaymentBreakdown, string(inv.Status), inv.TrackingInfo,
		nonNilStrings(inv.Attachments),
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return writeError(err, "invoice number", "create invoice")
	}

	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = inv.ID
		err := t.tx.QueryRow(ctx, `
			INSERT INTO invoice_items (
				invoice_id, product_id, quantity, unit, price, rolls_count,
				pieces_per_roll, detailed_rolls, selected_series, selected_color, reserved_quantity
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`, item.InvoiceID, item.ProductID, item.Quantity, item.Unit, item.Price, item.RollsCount,
			item.PiecesPerRoll, rollsParam(item.DetailedRolls), item.SelectedSeries, item.SelectedColor,
			item.ReservedQuantity,
		).Scan(&item.ID)
		if err != nil {
			return writeError(err, "invoice item", "create invoice item")
		}
	}
	return nil
}

func (t *pgTx) UpdateInvoice(ctx context.Context, inv domain.Invoice) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE invoices
		SET subtotal = $2,
			total = $3,
			payment_type = $4,
			payment_breakdown = $5,
			status = $6,
			tracking_info = $7,
			attachments = $8,
			reserved_at = $9,
			updated_at = NOW()
		WHERE id = $1
	`, inv.ID, inv.Subtotal, inv.Total, string(inv.PaymentType), inv.PaymentBreakdown,
		string(inv.Status), inv.TrackingInfo, nonNilStrings(inv.Attachments), inv.ReservedAt)
	if err != nil {
		return fmt.Errorf("update invoice %d: %w", inv.ID, err)
	}
	return expectOne(tag, "invoice", inv.ID)
}

func (t *pgTx) UpdateInvoiceItem(ctx context.Context, item domain.InvoiceItem) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE invoice_items
		SET quantity = $3,
			unit = $4,
			price = $5,
			rolls_count = $6,
			pieces_per_roll = $7,
			detailed_rolls = $8,
			selected_series = $9,
			selected_color = $10,
			reserved_quantity = $11
		WHERE id = $1 AND invoice_id = $2
	`, item.ID, item.InvoiceID, item.Quantity, item.Unit, item.Price, item.RollsCount,
		item.PiecesPerRoll, rollsParam(item.DetailedRolls), item.SelectedSeries, item.SelectedColor,
		item.ReservedQuantity)
	if err != nil {
		return fmt.Errorf("update invoice item %d: %w", item.ID, err)
	}
	return expectOne(tag, "invoice item", item.ID)
}

func (t *pgTx) HeldSelections(ctx context.Context, productID int64) ([]domain.Selection, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT selected_series, selected_color
		FROM invoice_items
		WHERE product_id = $1
			AND reserved_quantity > 0
			AND (selected_series IS NOT NULL OR selected_color IS NOT NULL)
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list held selections of product %d: %w", productID, err)
	}
	selections, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Selection, error) {
		var sel domain.Selection
		err := row.Scan(&sel.SelectedSeries, &sel.SelectedColor)
		return sel, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan held selections of product %d: %w", productID, err)
	}
	return selections, nil
}

// NextInvoiceSequence bumps the per-year counter in one statement. The first
// allocation of a year starts after the highest number already issued.
func (t *pgTx) NextInvoiceSequence(ctx context.Context, year int) (int64, error) {
	var next int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoice_sequences (year, last_value)
		VALUES ($1, (
			SELECT COALESCE(MAX(CAST(substring(invoice_number FROM length($2::text) + 1) AS BIGINT)), 0) + 1
			FROM invoices
			WHERE invoice_number LIKE $2::text || '%'
				AND substring(invoice_number FROM length($2::text) + 1) ~ '^[0-9]+$'
		))
		ON CONFLICT (year) DO UPDATE
		SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value
	`, year, domain.InvoiceNumberPrefix(year)).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate invoice number for %d: %w", year, err)
	}
	return next, nil
}

func rollsParam(rolls []domain.Roll) any {
	if len(rolls) == 0 {
		return nil
	}
	return rolls
}

func scanInvoiceRow(row pgx.Row) (domain.Invoice, error) {
	var (
		inv         domain.Invoice
		paymentType string
		status      string
	)
	if err := row.Scan(
		&inv.ID,
		&inv.InvoiceNumber,
		&inv.CustomerID,
		&inv.CreatedBy,
		&inv.Subtotal,
		&inv.Total,
		&paymentType,
		&inv.PaymentBreakdown,
		&status,
		&inv.TrackingInfo,
		&inv.Attachments,
		&inv.ReservedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	); err != nil {
		return domain.Invoice{}, err
	}
	inv.PaymentType = domain.PaymentType(paymentType)
	inv.Status = domain.InvoiceStatus(status)
	return inv, nil
}

func scanInvoiceItemRow(row pgx.Row) (domain.InvoiceItem, error) {
	var (
		item          domain.InvoiceItem
		rollsCount    *int32
		piecesPerRoll *int32
	)
	if err := row.Scan(
		&item.ID,
		&item.InvoiceID,
		&item.ProductID,
		&item.Quantity,
		&item.Unit,
		&item.Price,
		&rollsCount,
		&piecesPerRoll,
		&item.DetailedRolls,
		&item.SelectedSeries,
		&item.SelectedColor,
		&item.ReservedQuantity,
	); err != nil {
		return domain.InvoiceItem{}, err
	}
	item.RollsCount = intFrom32(rollsCount)
	item.PiecesPerRoll = intFrom32(piecesPerRoll)
	return item, nil
}

func intFrom32(v *int32) *int {
	if v == nil {
		return nil
	}
	out := int(*v)
	return &out
}
