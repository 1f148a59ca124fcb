package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"fabricstore/internal/domain"
	"fabricstore/internal/excel"
	"fabricstore/internal/repository"
)

type InvoiceItemInput struct {
	ProductID     int64
	Quantity      *float64
	Unit          string
	Price         float64
	RollsCount    *int
	PiecesPerRoll *int
	DetailedRolls []domain.Roll
	domain.Selection
}

type CreateInvoiceInput struct {
	CustomerID       int64
	PaymentType      domain.PaymentType
	PaymentBreakdown domain.PaymentBreakdown
	CheckID          *int64
	Items            []InvoiceItemInput
}

// ReserveItemEdit changes one line before reservation. Nil fields keep the
// stored value.
type ReserveItemEdit struct {
	ID            int64
	Quantity      *float64
	Unit          *string
	Price         *float64
	RollsCount    *int
	PiecesPerRoll *int
	DetailedRolls []domain.Roll
}

type InvoiceListFilter struct {
	CustomerID *int64
	Status     *domain.InvoiceStatus
	Limit      int
	Offset     int
}

func (s *Service) CreateInvoice(ctx context.Context, actor domain.Principal, in CreateInvoiceInput) (*domain.Invoice, error) {
	if err := authorize(actor, domain.CreateRoles...); err != nil {
		return nil, err
	}
	if !in.PaymentType.Valid() {
		return nil, domain.InvalidField("payment_type", "must be one of cash, check, mixed")
	}
	if in.PaymentType != domain.PaymentMixed && len(in.PaymentBreakdown) > 0 {
		return nil, domain.InvalidField("payment_breakdown", "is only accepted for mixed payments")
	}
	for method, amount := range in.PaymentBreakdown {
		if amount < 0 {
			return nil, domain.InvalidField("payment_breakdown", "amount for %s cannot be negative", method)
		}
	}
	if in.PaymentType.RequiresCheck() && in.CheckID == nil {
		return nil, domain.InvalidField("check_id", "is required for %s payments", in.PaymentType)
	}
	if len(in.Items) == 0 {
		return nil, domain.InvalidField("items", "at least one item is required")
	}

	items := make([]domain.InvoiceItem, 0, len(in.Items))
	for i, raw := range in.Items {
		qty, err := domain.ResolveQuantity(domain.QuantityInput{
			Quantity:      raw.Quantity,
			RollsCount:    raw.RollsCount,
			PiecesPerRoll: raw.PiecesPerRoll,
			DetailedRolls: raw.DetailedRolls,
		})
		if err != nil {
			return nil, itemError(i, err)
		}
		price := domain.RoundMoney(raw.Price)
		if price <= 0 {
			return nil, itemError(i, domain.InvalidField("price", "must be greater than zero"))
		}
		items = append(items, domain.InvoiceItem{
			ProductID:     raw.ProductID,
			Quantity:      qty,
			Unit:          strings.TrimSpace(raw.Unit),
			Price:         price,
			RollsCount:    raw.RollsCount,
			PiecesPerRoll: raw.PiecesPerRoll,
			DetailedRolls: raw.DetailedRolls,
			Selection:     cleanSelection(raw.Selection),
		})
	}

	var created *domain.Invoice
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetCustomer(ctx, in.CustomerID); err != nil {
			return err
		}
		for i := range items {
			product, err := tx.GetProduct(ctx, items[i].ProductID)
			if err != nil {
				return err
			}
			if !product.IsAvailable {
				return itemError(i, domain.InvalidField("product_id", "product %s is not available", product.Code))
			}
			if !items[i].Selection.IsEmpty() {
				if err := domain.ValidateSelection(*product, items[i].Selection, items[i].Quantity); err != nil {
					return itemError(i, err)
				}
			}
			if items[i].Unit == "" {
				items[i].Unit = product.Unit
			}
		}

		var check *domain.Check
		if in.CheckID != nil {
			var err error
			if check, err = tx.GetCheckForUpdate(ctx, *in.CheckID); err != nil {
				return err
			}
			if err := checkLinkable(*check, in.CustomerID, 0); err != nil {
				return err
			}
		}

		year := domain.PersianYear(s.now())
		seq, err := tx.NextInvoiceSequence(ctx, year)
		if err != nil {
			return err
		}
		invoice := &domain.Invoice{
			InvoiceNumber:    domain.FormatInvoiceNumber(year, seq),
			CustomerID:       in.CustomerID,
			CreatedBy:        actor.ID,
			PaymentType:      in.PaymentType,
			PaymentBreakdown: in.PaymentBreakdown,
			Status:           domain.StatusWarehousePending,
			Attachments:      []string{},
			Items:            items,
		}
		invoice.Recompute()
		if err := tx.CreateInvoice(ctx, invoice); err != nil {
			return err
		}

		if check != nil {
			check.RelatedInvoiceID = int64Ptr(invoice.ID)
			if err := tx.UpdateCheck(ctx, *check); err != nil {
				return err
			}
		}

		created, err = tx.GetInvoice(ctx, invoice.ID)
		return err
	})
	if err != nil {
		s.logInternal("CreateInvoice", map[string]any{"customer_id": in.CustomerID}, err)
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"invoice_id":     created.ID,
		"invoice_number": created.InvoiceNumber,
		"actor":          actor.ID,
		"total":          created.Total,
	}).Info("invoice created")
	return created, nil
}

// ReserveInvoice applies optional line edits, then holds stock for every
// line. Only the difference from what a line already holds is written to
// the ledger, so reserving twice never double counts.
func (s *Service) ReserveInvoice(ctx context.Context, actor domain.Principal, id int64, edits []ReserveItemEdit) (*domain.Invoice, error) {
	return s.transition(ctx, actor, id, domain.TransitionReserve, func(ctx context.Context, tx repository.Tx, inv *domain.Invoice) error {
		if err := applyItemEdits(inv, edits); err != nil {
			return err
		}
		inv.Recompute()

		productIDs := make([]int64, 0, len(inv.Items))
		for _, item := range inv.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		products, err := lockProducts(ctx, tx, productIDs)
		if err != nil {
			return err
		}

		touched := map[int64]bool{}
		for i := range inv.Items {
			item := &inv.Items[i]
			if !item.Selection.IsEmpty() {
				product := products[item.ProductID]
				variant := product.Variant
				if item.ReservedQuantity > 0 {
					if variant, err = variant.Release(item.Selection, item.ReservedQuantity); err != nil {
						return itemError(i, err)
					}
				}
				if variant, err = variant.Hold(item.Selection, item.Quantity); err != nil {
					return itemError(i, err)
				}
				product.Variant = variant
				touched[product.ID] = true
			}

			if delta := item.Quantity - item.ReservedQuantity; delta != 0 {
				if _, err := tx.InsertTransaction(ctx, domain.InventoryTransaction{
					ProductID:      item.ProductID,
					ChangeQuantity: -delta,
					Reason:         domain.ReasonSaleReservation,
					ReferenceID:    int64Ptr(inv.ID),
					Notes:          stringPtr("reservation for " + inv.InvoiceNumber),
					CreatedBy:      actor.ID,
				}); err != nil {
					return err
				}
			}
			item.ReservedQuantity = item.Quantity
			if err := tx.UpdateInvoiceItem(ctx, *item); err != nil {
				return err
			}
		}

		for productID := range touched {
			if err := tx.UpdateProductVariant(ctx, productID, products[productID].Variant); err != nil {
				return err
			}
		}
		if inv.ReservedAt == nil {
			now := s.now()
			inv.ReservedAt = &now
		}
		return nil
	})
}

func (s *Service) ApproveInvoice(ctx context.Context, actor domain.Principal, id int64) (*domain.Invoice, error) {
	return s.transition(ctx, actor, id, domain.TransitionApprove, nil)
}

// ShipInvoice stores tracking details and writes a zero-quantity shipping
// marker per line; stock already left at reservation.
func (s *Service) ShipInvoice(ctx context.Context, actor domain.Principal, id int64, tracking domain.TrackingInfo) (*domain.Invoice, error) {
	if strings.TrimSpace(tracking.CarrierName) == "" || strings.TrimSpace(tracking.TrackingCode) == "" {
		return nil, domain.InvalidField("tracking_info", "carrier_name and tracking_code are required")
	}
	return s.transition(ctx, actor, id, domain.TransitionShip, func(ctx context.Context, tx repository.Tx, inv *domain.Invoice) error {
		for _, item := range inv.Items {
			if _, err := tx.InsertTransaction(ctx, domain.InventoryTransaction{
				ProductID:      item.ProductID,
				ChangeQuantity: 0,
				Reason:         domain.ReasonShipping,
				ReferenceID:    int64Ptr(inv.ID),
				Notes:          stringPtr("shipped with " + inv.InvoiceNumber),
				CreatedBy:      actor.ID,
			}); err != nil {
				return err
			}
		}
		inv.TrackingInfo = &tracking
		return nil
	})
}

func (s *Service) DeliverInvoice(ctx context.Context, actor domain.Principal, id int64) (*domain.Invoice, error) {
	return s.transition(ctx, actor, id, domain.TransitionDeliver, nil)
}

// CancelInvoice releases whatever the invoice still holds: one return row per
// reserved line and the variant units put back.
func (s *Service) CancelInvoice(ctx context.Context, actor domain.Principal, id int64) (*domain.Invoice, error) {
	return s.transition(ctx, actor, id, domain.TransitionCancel, func(ctx context.Context, tx repository.Tx, inv *domain.Invoice) error {
		if inv.Status == domain.StatusDelivered && !s.opts.AllowCancelDelivered {
			return domain.InvalidField("status", "delivered invoices cannot be cancelled")
		}
		if inv.ReservedAt == nil {
			return nil
		}

		productIDs := make([]int64, 0, len(inv.Items))
		for _, item := range inv.Items {
			if item.ReservedQuantity > 0 && !item.Selection.IsEmpty() {
				productIDs = append(productIDs, item.ProductID)
			}
		}
		products, err := lockProducts(ctx, tx, productIDs)
		if err != nil {
			return err
		}

		for i := range inv.Items {
			item := &inv.Items[i]
			if item.ReservedQuantity <= 0 {
				continue
			}
			if _, err := tx.InsertTransaction(ctx, domain.InventoryTransaction{
				ProductID:      item.ProductID,
				ChangeQuantity: item.ReservedQuantity,
				Reason:         domain.ReasonReturn,
				ReferenceID:    int64Ptr(inv.ID),
				Notes:          stringPtr("cancellation of " + inv.InvoiceNumber),
				CreatedBy:      actor.ID,
			}); err != nil {
				return err
			}
			if product, ok := products[item.ProductID]; ok {
				if !product.Variant.Offers(item.Selection) {
					s.log.WithFields(logrus.Fields{
						"invoice_id": inv.ID,
						"product_id": item.ProductID,
					}).Warn("selected entry no longer offered, variant stock not restored")
				} else if product.Variant, err = product.Variant.Release(item.Selection, item.ReservedQuantity); err != nil {
					return itemError(i, err)
				}
			}
			item.ReservedQuantity = 0
			if err := tx.UpdateInvoiceItem(ctx, *item); err != nil {
				return err
			}
		}
		for productID, product := range products {
			if err := tx.UpdateProductVariant(ctx, productID, product.Variant); err != nil {
				return err
			}
		}
		return nil
	})
}

type transitionEffect func(ctx context.Context, tx repository.Tx, inv *domain.Invoice) error

// transition runs one guarded state change in a single transaction: lock the
// invoice, check role and status, apply the effect, persist the new status.
func (s *Service) transition(
	ctx context.Context,
	actor domain.Principal,
	id int64,
	t domain.Transition,
	effect transitionEffect,
) (*domain.Invoice, error) {
	if err := authorize(actor, t.Roles()...); err != nil {
		return nil, err
	}

	var (
		updated *domain.Invoice
		from    domain.InvoiceStatus
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = inv.Status
		next, err := inv.Status.Next(t)
		if err != nil {
			return err
		}
		if effect != nil {
			if err := effect(ctx, tx, inv); err != nil {
				return err
			}
		}
		inv.Status = next
		if err := tx.UpdateInvoice(ctx, *inv); err != nil {
			return err
		}
		updated, err = tx.GetInvoice(ctx, id)
		return err
	})
	if err != nil {
		s.logInternal(string(t), map[string]any{"invoice_id": id}, err)
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"invoice_id": id,
		"from":       from,
		"to":         updated.Status,
		"actor":      actor.ID,
	}).Info("invoice status changed")
	return updated, nil
}

func applyItemEdits(inv *domain.Invoice, edits []ReserveItemEdit) error {
	for _, edit := range edits {
		idx := -1
		for i := range inv.Items {
			if inv.Items[i].ID == edit.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.NotFound("invoice item", edit.ID)
		}
		item := &inv.Items[idx]

		if edit.Quantity != nil || edit.RollsCount != nil || len(edit.DetailedRolls) > 0 {
			pieces := edit.PiecesPerRoll
			if pieces == nil {
				pieces = item.PiecesPerRoll
			}
			qty, err := domain.ResolveQuantity(domain.QuantityInput{
				Quantity:      edit.Quantity,
				RollsCount:    edit.RollsCount,
				PiecesPerRoll: pieces,
				DetailedRolls: edit.DetailedRolls,
			})
			if err != nil {
				return itemError(idx, err)
			}
			item.Quantity = qty
			item.RollsCount = edit.RollsCount
			item.PiecesPerRoll = pieces
			item.DetailedRolls = edit.DetailedRolls
		}
		if edit.Unit != nil && strings.TrimSpace(*edit.Unit) != "" {
			item.Unit = strings.TrimSpace(*edit.Unit)
		}
		if edit.Price != nil {
			price := domain.RoundMoney(*edit.Price)
			if price <= 0 {
				return itemError(idx, domain.InvalidField("price", "must be greater than zero"))
			}
			item.Price = price
		}
	}
	return nil
}

func (s *Service) ListInvoices(ctx context.Context, actor domain.Principal, filter InvoiceListFilter) ([]domain.Invoice, error) {
	query := repository.InvoiceFilter{
		CustomerID: filter.CustomerID,
		Status:     filter.Status,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if actor.IsCustomer() {
		query.CustomerID = int64Ptr(actor.ID)
	} else {
		if err := authorize(actor, staffRoles...); err != nil {
			return nil, err
		}
		query.Statuses = domain.VisibleStatuses(actor.Role)
	}
	if filter.Status != nil && !actor.IsCustomer() && !domain.CanView(actor.Role, *filter.Status) {
		return []domain.Invoice{}, nil
	}

	var invoices []domain.Invoice
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		invoices, err = tx.ListInvoices(ctx, query)
		return err
	})
	if err != nil {
		s.logInternal("ListInvoices", nil, err)
		return nil, err
	}
	return invoices, nil
}

func (s *Service) GetInvoice(ctx context.Context, actor domain.Principal, id int64) (*domain.Invoice, error) {
	var invoice *domain.Invoice
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		if invoice, err = tx.GetInvoice(ctx, id); err != nil {
			return err
		}
		customer, err := tx.GetCustomer(ctx, invoice.CustomerID)
		if err != nil {
			return err
		}
		invoice.Customer = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	if actor.IsCustomer() {
		if invoice.CustomerID != actor.ID {
			return nil, domain.NotFound("invoice", id)
		}
		return invoice, nil
	}
	if !domain.CanView(actor.Role, invoice.Status) {
		return nil, domain.Forbidden("invoice %s is not visible to role %s", invoice.InvoiceNumber, actor.Role)
	}
	return invoice, nil
}

func (s *Service) AddInvoiceAttachment(ctx context.Context, actor domain.Principal, id int64, filename string, r io.Reader) (*domain.Invoice, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	if _, err := s.GetInvoice(ctx, actor, id); err != nil {
		return nil, err
	}
	path, err := s.saveBlob(ctx, fmt.Sprintf("invoices/%d", id), filename, r)
	if err != nil {
		return nil, err
	}

	var updated *domain.Invoice
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		inv.Attachments = append(inv.Attachments, path)
		if err := tx.UpdateInvoice(ctx, *inv); err != nil {
			return err
		}
		updated, err = tx.GetInvoice(ctx, id)
		return err
	})
	if err != nil {
		s.dropBlobs(ctx, path)
		return nil, err
	}
	return updated, nil
}

// ExportInvoice renders the invoice as an xlsx workbook.
func (s *Service) ExportInvoice(ctx context.Context, actor domain.Principal, id int64) ([]byte, string, error) {
	invoice, err := s.GetInvoice(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := excel.WriteInvoice(&buf, *invoice); err != nil {
		s.logInternal("ExportInvoice", map[string]any{"invoice_id": id}, err)
		return nil, "", err
	}
	return buf.Bytes(), invoice.InvoiceNumber + ".xlsx", nil
}

// checkLinkable reports whether check may back invoiceID for customerID.
// invoiceID 0 means an invoice being created.
func checkLinkable(check domain.Check, customerID, invoiceID int64) error {
	if check.CustomerID != customerID {
		return &domain.ValidationError{
			Field:   "check_id",
			Message: fmt.Sprintf("check %s belongs to another customer", check.CheckNumber),
			Details: map[string]any{"check_customer_id": check.CustomerID, "customer_id": customerID},
		}
	}
	if check.RelatedInvoiceID != nil && *check.RelatedInvoiceID != invoiceID {
		return &domain.ValidationError{
			Field:   "check_id",
			Message: fmt.Sprintf("check %s is already linked to invoice %d", check.CheckNumber, *check.RelatedInvoiceID),
			Details: map[string]any{"related_invoice_id": *check.RelatedInvoiceID},
		}
	}
	return nil
}

func cleanSelection(sel domain.Selection) domain.Selection {
	out := domain.Selection{}
	if len(sel.SelectedSeries) > 0 {
		out.SelectedSeries = append([]int64(nil), sel.SelectedSeries...)
	}
	if color := sel.Color(); color != "" {
		out.SelectedColor = &color
	}
	return out
}

// itemError prefixes a line-level failure with its position.
func itemError(index int, err error) error {
	if verr, ok := err.(*domain.ValidationError); ok {
		details := map[string]any{"item_index": index}
		for k, v := range verr.Details {
			details[k] = v
		}
		field := fmt.Sprintf("items[%d]", index)
		if verr.Field != "" {
			field += "." + verr.Field
		}
		return &domain.ValidationError{Field: field, Message: verr.Message, Details: details}
	}
	return err
}
