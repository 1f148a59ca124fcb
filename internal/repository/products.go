package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"fabricstore/internal/domain"
)

const productColumns = `
	id,
	code,
	name,
	description,
	category,
	unit,
	pieces_per_roll,
	purchase_price::double precision,
	sale_price::double precision,
	is_available,
	visible,
	images,
	is_series,
	series_numbers,
	series_inventory,
	available_colors,
	color_inventory,
	created_at,
	updated_at
`

func (t *pgTx) ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error) {
	limit := normalizeLimit(filter.Limit)
	offset := normalizeOffset(filter.Offset)

	query := `SELECT ` + productColumns + ` FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR code ILIKE '%' || $1 || '%')
		AND ($2 = '' OR category = $2)`
	args := []any{strings.TrimSpace(filter.Search), strings.TrimSpace(filter.Category)}
	argIndex := 3
	if filter.IsAvailable != nil {
		query += fmt.Sprintf(" AND is_available = $%d", argIndex)
		args = append(args, *filter.IsAvailable)
		argIndex++
	}
	if filter.Visible != nil {
		query += fmt.Sprintf(" AND visible = $%d", argIndex)
		args = append(args, *filter.Visible)
		argIndex++
	}
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (t *pgTx) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return t.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (t *pgTx) GetProductForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return t.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (t *pgTx) getProduct(ctx context.Context, query string, id int64) (*domain.Product, error) {
	product, err := scanProductRow(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, lookupError(err, "product", id, fmt.Sprintf("get product %d", id))
	}
	return &product, nil
}

func (t *pgTx) GetProductByCode(ctx context.Context, code string) (*domain.Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE code = $1`, strings.TrimSpace(code))
	product, err := scanProductRow(row)
	if err != nil {
		return nil, lookupError(err, "product", code, "get product by code")
	}
	return &product, nil
}

func (t *pgTx) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	fields := domain.FlattenVariant(p.Variant)
	row := t.tx.QueryRow(ctx, `
		INSERT INTO products (
			code, name, description, category, unit, pieces_per_roll,
			purchase_price, sale_price, is_available, visible, images,
			is_series, series_numbers, series_inventory, available_colors, color_inventory
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+productColumns,
		p.Code, p.Name, p.Description, p.Category, p.Unit, p.PiecesPerRoll,
		p.PurchasePrice, p.SalePrice, p.IsAvailable, p.Visible, nonNilStrings(p.Images),
		fields.IsSeries, nonNilInt64s(fields.SeriesNumbers), nonNilInt64s(fields.SeriesInventory),
		nonNilStrings(fields.AvailableColors), nonNilFloats(fields.ColorInventory),
	)
	created, err := scanProductRow(row)
	if err != nil {
		return domain.Product{}, writeError(err, "product code", "create product")
	}
	return created, nil
}

func (t *pgTx) UpdateProduct(ctx context.Context, p domain.Product) error {
	fields := domain.FlattenVariant(p.Variant)
	tag, err := t.tx.Exec(ctx, `
		UPDATE products
		SET code = $2,
			name = $3,
			description = $4,
			category = $5,
			unit = $6,
			pieces_per_roll = $7,
			purchase_price = $8,
			sale_price = $9,
			is_available = $10,
			visible = $11,
			images = $12,
			is_series = $13,
			series_numbers = $14,
			series_inventory = $15,
			available_colors = $16,
			color_inventory = $17,
			updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Code, p.Name, p.Description, p.Category, p.Unit, p.PiecesPerRoll,
		p.PurchasePrice, p.SalePrice, p.IsAvailable, p.Visible, nonNilStrings(p.Images),
		fields.IsSeries, nonNilInt64s(fields.SeriesNumbers), nonNilInt64s(fields.SeriesInventory),
		nonNilStrings(fields.AvailableColors), nonNilFloats(fields.ColorInventory),
	)
	if err != nil {
		return writeError(err, "product code", fmt.Sprintf("update product %d", p.ID))
	}
	return expectOne(tag, "product", p.ID)
}

func (t *pgTx) UpdateProductVariant(ctx context.Context, id int64, variant domain.ProductVariant) error {
	fields := domain.FlattenVariant(variant)
	tag, err := t.tx.Exec(ctx, `
		UPDATE products
		SET series_inventory = $2,
			color_inventory = $3,
			updated_at = NOW()
		WHERE id = $1
	`, id, nonNilInt64s(fields.SeriesInventory), nonNilFloats(fields.ColorInventory))
	if err != nil {
		return fmt.Errorf("update product %d inventory: %w", id, err)
	}
	return expectOne(tag, "product", id)
}

func (t *pgTx) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Invalid("product %d is referenced by invoices, carts or ledger rows", id)
		}
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return expectOne(tag, "product", id)
}

func scanProductRow(row pgx.Row) (domain.Product, error) {
	var (
		product       domain.Product
		piecesPerRoll *int32
		fields        domain.VariantFields
	)
	if err := row.Scan(
		&product.ID,
		&product.Code,
		&product.Name,
		&product.Description,
		&product.Category,
		&product.Unit,
		&piecesPerRoll,
		&product.PurchasePrice,
		&product.SalePrice,
		&product.IsAvailable,
		&product.Visible,
		&product.Images,
		&fields.IsSeries,
		&fields.SeriesNumbers,
		&fields.SeriesInventory,
		&fields.AvailableColors,
		&fields.ColorInventory,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}
	if piecesPerRoll != nil {
		value := int(*piecesPerRoll)
		product.PiecesPerRoll = &value
	}
	variant, err := fields.Build()
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %d has malformed variant: %w", product.ID, err)
	}
	product.Variant = variant
	return product, nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilInt64s(v []int64) []int64 {
	if v == nil {
		return []int64{}
	}
	return v
}

func nonNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
