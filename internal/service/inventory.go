package service

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
)

type RecordTransactionInput struct {
	ProductID      int64
	ChangeQuantity float64
	Reason         domain.TransactionReason
	ReferenceID    *int64
	Notes          *string
	// Selection, when set, applies the change to one series or color entry
	// of the product's variant inventory.
	Selection domain.Selection
}

var manualReasons = map[domain.TransactionReason]bool{
	domain.ReasonRestock:    true,
	domain.ReasonAdjustment: true,
	domain.ReasonReturn:     true,
}

// RecordTransaction appends a manual ledger row. Reservation and shipping rows
// are only written by invoice transitions.
func (s *Service) RecordTransaction(ctx context.Context, actor domain.Principal, in RecordTransactionInput) (*domain.InventoryTransaction, error) {
	if err := authorize(actor, domain.RoleAdmin, domain.RoleWarehouse); err != nil {
		return nil, err
	}
	if !manualReasons[in.Reason] {
		return nil, domain.InvalidField("reason", "reason %q cannot be recorded manually", in.Reason)
	}
	if in.ChangeQuantity == 0 {
		return nil, domain.InvalidField("change_quantity", "cannot be zero")
	}
	sel := cleanSelection(in.Selection)

	var created domain.InventoryTransaction
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		product, err := tx.GetProductForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if !sel.IsEmpty() {
			variant, err := adjustVariant(product.Variant, sel, in.ChangeQuantity)
			if err != nil {
				return err
			}
			if err := tx.UpdateProductVariant(ctx, product.ID, variant); err != nil {
				return err
			}
		}
		created, err = tx.InsertTransaction(ctx, domain.InventoryTransaction{
			ProductID:      product.ID,
			ChangeQuantity: in.ChangeQuantity,
			Reason:         in.Reason,
			ReferenceID:    in.ReferenceID,
			Notes:          normalizeNullable(in.Notes),
			CreatedBy:      actor.ID,
		})
		return err
	})
	if err != nil {
		s.logInternal("RecordTransaction", map[string]any{"product_id": in.ProductID, "reason": in.Reason}, err)
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"product_id": in.ProductID,
		"delta":      in.ChangeQuantity,
		"reason":     in.Reason,
		"actor":      actor.ID,
	}).Info("inventory transaction recorded")
	return &created, nil
}

func adjustVariant(v domain.ProductVariant, sel domain.Selection, delta float64) (domain.ProductVariant, error) {
	switch typed := v.(type) {
	case domain.SeriesVariant:
		if len(sel.SelectedSeries) != 1 {
			return nil, domain.InvalidField("selected_series", "select exactly one series to adjust")
		}
		if delta != math.Trunc(delta) {
			return nil, domain.InvalidField("change_quantity", "series stock changes must be whole numbers")
		}
		return typed.Adjust(sel.SelectedSeries[0], int64(delta))
	case domain.ColorVariant:
		if sel.Color() == "" {
			return nil, domain.InvalidField("selected_color", "missing selection for product mode")
		}
		return typed.Adjust(sel.Color(), delta)
	}
	return nil, domain.InvalidField("product_id", "product has no variant inventory")
}

func (s *Service) ListTransactions(ctx context.Context, actor domain.Principal, filter repository.TransactionFilter) ([]domain.InventoryTransaction, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	if filter.Reason != nil && !filter.Reason.Valid() {
		return nil, domain.InvalidField("reason", "unknown reason %q", *filter.Reason)
	}
	var txns []domain.InventoryTransaction
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		txns, err = tx.ListTransactions(ctx, filter)
		return err
	})
	if err != nil {
		s.logInternal("ListTransactions", nil, err)
		return nil, err
	}
	return txns, nil
}

// ReservedQuantity is the sign-flipped sum of the product's sale_reservation
// rows.
func (s *Service) ReservedQuantity(ctx context.Context, productID int64) (float64, error) {
	var reserved float64
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			return err
		}
		sum, err := tx.SumTransactions(ctx, productID, domain.ReasonSaleReservation)
		reserved = -sum
		return err
	})
	return reserved, err
}

func (s *Service) ProductQuantity(ctx context.Context, actor domain.Principal, productID int64) (*domain.ProductQuantity, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	var out domain.ProductQuantity
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		reservations, err := tx.SumTransactions(ctx, productID, domain.ReasonSaleReservation)
		if err != nil {
			return err
		}
		returned, err := tx.SumTransactions(ctx, productID, domain.ReasonReturn)
		if err != nil {
			return err
		}
		out = domain.ProductQuantity{
			ProductID:           product.ID,
			ProductName:         product.Name,
			IsSeries:            product.IsSeries(),
			ReservedQuantity:    -reservations,
			ReturnedQuantity:    returned,
			OutstandingQuantity: -reservations - returned,
		}
		if product.Variant != nil {
			out.AvailableQuantity = product.Variant.Available()
		}
		return nil
	})
	if err != nil {
		s.logInternal("ProductQuantity", map[string]any{"product_id": productID}, err)
		return nil, err
	}
	return &out, nil
}
