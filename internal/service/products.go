package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"fabricstore/internal/domain"
	"fabricstore/internal/excel"
	"fabricstore/internal/repository"
)

// ProductInput carries both create and update payloads; nil fields are left
// untouched on update.
type ProductInput struct {
	Code          *string
	Name          *string
	Description   *string
	Category      *string
	Unit          *string
	PiecesPerRoll *int
	PurchasePrice *float64
	SalePrice     *float64
	IsAvailable   *bool
	Visible       *bool
	Variant       *domain.VariantFields
}

type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

func (s *Service) CreateProduct(ctx context.Context, actor domain.Principal, in ProductInput) (*domain.Product, error) {
	if err := authorize(actor, domain.RoleAdmin, domain.RoleWarehouse); err != nil {
		return nil, err
	}
	product := domain.Product{IsAvailable: true, Visible: true, Images: []string{}, Unit: "meter"}
	if in.Code == nil || strings.TrimSpace(*in.Code) == "" {
		return nil, domain.InvalidField("code", "is required")
	}
	if in.Variant == nil {
		return nil, domain.InvalidField("is_series", "variant inventory is required")
	}
	if err := applyProductInput(&product, in); err != nil {
		return nil, err
	}
	if product.Name == "" {
		return nil, domain.InvalidField("name", "is required")
	}

	var created domain.Product
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if existing, err := tx.GetProductByCode(ctx, product.Code); err == nil {
			return domain.Conflict("product with code %s already exists (id %d)", existing.Code, existing.ID)
		} else if !domain.IsNotFound(err) {
			return err
		}
		var err error
		created, err = tx.CreateProduct(ctx, product)
		return err
	})
	if err != nil {
		s.logInternal("CreateProduct", map[string]any{"code": product.Code}, err)
		return nil, err
	}
	return &created, nil
}

func (s *Service) GetProduct(ctx context.Context, actor domain.Principal, id int64) (*domain.Product, error) {
	var product *domain.Product
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		product, err = tx.GetProduct(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if actor.IsCustomer() && !product.Visible {
		return nil, domain.NotFound("product", id)
	}
	return product, nil
}

// ListProducts shows customers only visible, available products.
func (s *Service) ListProducts(ctx context.Context, actor domain.Principal, filter repository.ProductFilter) ([]domain.Product, error) {
	if actor.IsCustomer() {
		visible := true
		filter.Visible = &visible
		filter.IsAvailable = &visible
	}
	var products []domain.Product
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		products, err = tx.ListProducts(ctx, filter)
		return err
	})
	if err != nil {
		s.logInternal("ListProducts", nil, err)
		return nil, err
	}
	return products, nil
}

// UpdateProduct edits a product. Once a product has ledger history its
// variant mode is fixed; the inventory arrays can still be replaced.
func (s *Service) UpdateProduct(ctx context.Context, actor domain.Principal, id int64, in ProductInput) (*domain.Product, error) {
	if err := authorize(actor, domain.RoleAdmin, domain.RoleWarehouse); err != nil {
		return nil, err
	}
	var updated *domain.Product
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		product, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previousMode := product.Variant.Mode()
		if err := applyProductInput(product, in); err != nil {
			return err
		}
		if product.Name == "" || product.Code == "" {
			return domain.Invalid("code and name cannot be empty")
		}
		if in.Variant != nil {
			if err := guardHeldStock(ctx, tx, *product); err != nil {
				return err
			}
		}
		if product.Variant.Mode() != previousMode {
			count, err := tx.CountTransactions(ctx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return domain.InvalidField("is_series", "product %s has %d inventory transactions; its mode cannot change", product.Code, count)
			}
		}
		if err := tx.UpdateProduct(ctx, *product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		s.logInternal("UpdateProduct", map[string]any{"product_id": id}, err)
		return nil, err
	}
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, actor domain.Principal, id int64) error {
	if err := authorize(actor, domain.RoleAdmin); err != nil {
		return err
	}
	var images []string
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		product, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		images = product.Images
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		return err
	}
	s.dropBlobs(ctx, images...)
	return nil
}

func (s *Service) AddProductImage(ctx context.Context, actor domain.Principal, id int64, filename string, r io.Reader) (*domain.Product, error) {
	if err := authorize(actor, domain.RoleAdmin, domain.RoleWarehouse); err != nil {
		return nil, err
	}
	if _, err := s.GetProduct(ctx, actor, id); err != nil {
		return nil, err
	}
	path, err := s.saveBlob(ctx, fmt.Sprintf("products/%d", id), filename, r)
	if err != nil {
		return nil, err
	}
	var updated *domain.Product
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		product, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		product.Images = append(product.Images, path)
		if err := tx.UpdateProduct(ctx, *product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		s.dropBlobs(ctx, path)
		return nil, err
	}
	return updated, nil
}

// ProductInputFromRow converts a parsed catalog line. A row listing neither
// series nor colors leaves the variant alone.
func ProductInputFromRow(row excel.ProductRow) ProductInput {
	in := ProductInput{
		Code:          optionalText(row.Code),
		Name:          optionalText(row.Name),
		Category:      optionalText(row.Category),
		Unit:          optionalText(row.Unit),
		Description:   row.Description,
		PiecesPerRoll: row.PiecesPerRoll,
		PurchasePrice: row.PurchasePrice,
		SalePrice:     row.SalePrice,
	}
	switch {
	case row.HasSeries():
		in.Variant = &domain.VariantFields{IsSeries: true, SeriesNumbers: row.SeriesNumbers, SeriesInventory: row.SeriesInventory}
	case row.HasColors():
		in.Variant = &domain.VariantFields{AvailableColors: row.Colors, ColorInventory: row.ColorInventory}
	}
	return in
}

func optionalText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// ImportProducts upserts catalog rows by code, each row in its own
// transaction. Bad rows are reported and skipped.
func (s *Service) ImportProducts(ctx context.Context, actor domain.Principal, rows []ProductInput) (ImportResult, error) {
	if err := authorize(actor, domain.RoleAdmin, domain.RoleWarehouse); err != nil {
		return ImportResult{}, err
	}
	result := ImportResult{Errors: []string{}}
	for i, row := range rows {
		created, err := s.importProductRow(ctx, row)
		if err != nil {
			if !domain.IsValidation(err) && !domain.IsConflict(err) {
				s.logInternal("ImportProducts", map[string]any{"row": i + 1}, err)
			}
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	s.log.WithFields(logrus.Fields{
		"created": result.Created,
		"updated": result.Updated,
		"failed":  len(result.Errors),
		"actor":   actor.ID,
	}).Info("product import finished")
	return result, nil
}

func (s *Service) importProductRow(ctx context.Context, row ProductInput) (bool, error) {
	if row.Code == nil || strings.TrimSpace(*row.Code) == "" {
		return false, domain.InvalidField("code", "is required")
	}
	code := strings.TrimSpace(*row.Code)
	created := false
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		existing, err := tx.GetProductByCode(ctx, code)
		switch {
		case domain.IsNotFound(err):
			if row.Variant == nil {
				return domain.InvalidField("is_series", "variant inventory is required")
			}
			product := domain.Product{IsAvailable: true, Visible: true, Images: []string{}, Unit: "meter"}
			if err := applyProductInput(&product, row); err != nil {
				return err
			}
			if product.Name == "" {
				return domain.InvalidField("name", "is required")
			}
			created = true
			_, err = tx.CreateProduct(ctx, product)
			return err
		case err != nil:
			return err
		}
		product, err := tx.GetProductForUpdate(ctx, existing.ID)
		if err != nil {
			return err
		}
		previousMode := product.Variant.Mode()
		if err := applyProductInput(product, row); err != nil {
			return err
		}
		if row.Variant != nil {
			if err := guardHeldStock(ctx, tx, *product); err != nil {
				return err
			}
		}
		if product.Variant.Mode() != previousMode {
			count, err := tx.CountTransactions(ctx, product.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				return domain.InvalidField("is_series", "product %s has inventory history; its mode cannot change", code)
			}
		}
		return tx.UpdateProduct(ctx, *product)
	})
	return created, err
}

// guardHeldStock keeps every series or color that a reserved invoice line
// selected, so the line can still be released on cancel.
func guardHeldStock(ctx context.Context, tx repository.Tx, p domain.Product) error {
	held, err := tx.HeldSelections(ctx, p.ID)
	if err != nil {
		return err
	}
	return domain.CheckHeldSelections(p.Variant, held)
}

func applyProductInput(p *domain.Product, in ProductInput) error {
	if in.Code != nil {
		p.Code = strings.TrimSpace(*in.Code)
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = normalizeNullable(in.Description)
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Unit != nil && strings.TrimSpace(*in.Unit) != "" {
		p.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.PiecesPerRoll != nil {
		if *in.PiecesPerRoll <= 0 || *in.PiecesPerRoll > math.MaxInt32 {
			return domain.InvalidField("pieces_per_roll", "must be between 1 and %d", math.MaxInt32)
		}
		p.PiecesPerRoll = in.PiecesPerRoll
	}
	if in.PurchasePrice != nil {
		if *in.PurchasePrice < 0 {
			return domain.InvalidField("purchase_price", "cannot be negative")
		}
		p.PurchasePrice = *in.PurchasePrice
	}
	if in.SalePrice != nil {
		if *in.SalePrice < 0 {
			return domain.InvalidField("sale_price", "cannot be negative")
		}
		p.SalePrice = *in.SalePrice
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	if in.Visible != nil {
		p.Visible = *in.Visible
	}
	if in.Variant != nil {
		variant, err := in.Variant.Build()
		if err != nil {
			return err
		}
		p.Variant = variant
	}
	return nil
}
