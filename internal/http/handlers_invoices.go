package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"fabricstore/internal/domain"
	"fabricstore/internal/service"
)

type invoiceItemRequest struct {
	ProductID      int64         `json:"product_id" validate:"required,gt=0"`
	Quantity       *float64      `json:"quantity" validate:"omitempty,gt=0"`
	Unit           string        `json:"unit"`
	Price          float64       `json:"price" validate:"gte=0"`
	RollsCount     *int          `json:"rolls_count" validate:"omitempty,gt=0,lte=2147483647"`
	PiecesPerRoll  *int          `json:"pieces_per_roll" validate:"omitempty,gt=0,lte=2147483647"`
	DetailedRolls  []domain.Roll `json:"detailed_rolls"`
	SelectedSeries []int64       `json:"selected_series"`
	SelectedColor  *string       `json:"selected_color"`
}

type createInvoiceRequest struct {
	CustomerID       int64                   `json:"customer_id" validate:"required,gt=0"`
	PaymentType      domain.PaymentType      `json:"payment_type" validate:"required,oneof=cash check mixed"`
	PaymentBreakdown domain.PaymentBreakdown `json:"payment_breakdown"`
	CheckID          *int64                  `json:"check_id" validate:"omitempty,gt=0"`
	Items            []invoiceItemRequest    `json:"items" validate:"required,min=1,dive"`
}

type reserveItemRequest struct {
	ID            int64         `json:"id" validate:"required,gt=0"`
	Quantity      *float64      `json:"quantity" validate:"omitempty,gt=0"`
	Unit          *string       `json:"unit"`
	Price         *float64      `json:"price" validate:"omitempty,gte=0"`
	RollsCount    *int          `json:"rolls_count" validate:"omitempty,gt=0,lte=2147483647"`
	PiecesPerRoll *int          `json:"pieces_per_roll" validate:"omitempty,gt=0,lte=2147483647"`
	DetailedRolls []domain.Roll `json:"detailed_rolls"`
}

type reserveInvoiceRequest struct {
	Items []reserveItemRequest `json:"items" validate:"dive"`
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset, err := paging(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	customerID, err := parseOptionalInt64(query.Get("customer_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	filter := service.InvoiceListFilter{CustomerID: customerID, Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := domain.InvoiceStatus(raw)
		if !status.Valid() {
			h.writeServiceError(w, r, domain.InvalidField("status", "unknown invoice status %q", raw))
			return
		}
		filter.Status = &status
	}
	items, err := h.svc.ListInvoices(r.Context(), principalFrom(r.Context()), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	invoice, err := h.svc.GetInvoice(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items := make([]service.InvoiceItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.InvoiceItemInput{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Unit:          item.Unit,
			Price:         item.Price,
			RollsCount:    item.RollsCount,
			PiecesPerRoll: item.PiecesPerRoll,
			DetailedRolls: item.DetailedRolls,
			Selection:     domain.Selection{SelectedSeries: item.SelectedSeries, SelectedColor: item.SelectedColor},
		})
	}
	invoice, err := h.svc.CreateInvoice(r.Context(), principalFrom(r.Context()), service.CreateInvoiceInput{
		CustomerID:       req.CustomerID,
		PaymentType:      req.PaymentType,
		PaymentBreakdown: req.PaymentBreakdown,
		CheckID:          req.CheckID,
		Items:            items,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, invoice)
}

// ReserveInvoice accepts an optional body of item edits.
func (h *Handler) ReserveInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req reserveInvoiceRequest
	if r.ContentLength != 0 {
		if err := decodeValid(r, &req); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}
	edits := make([]service.ReserveItemEdit, 0, len(req.Items))
	for _, item := range req.Items {
		edits = append(edits, service.ReserveItemEdit{
			ID:            item.ID,
			Quantity:      item.Quantity,
			Unit:          item.Unit,
			Price:         item.Price,
			RollsCount:    item.RollsCount,
			PiecesPerRoll: item.PiecesPerRoll,
			DetailedRolls: item.DetailedRolls,
		})
	}
	invoice, err := h.svc.ReserveInvoice(r.Context(), principalFrom(r.Context()), id, edits)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (h *Handler) ApproveInvoice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.ApproveInvoice)
}

func (h *Handler) DeliverInvoice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.DeliverInvoice)
}

func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.CancelInvoice)
}

func (h *Handler) ShipInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req domain.TrackingInfo
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	invoice, err := h.svc.ShipInvoice(r.Context(), principalFrom(r.Context()), id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

type transitionFunc func(ctx context.Context, actor domain.Principal, id int64) (*domain.Invoice, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply transitionFunc) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	invoice, err := apply(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (h *Handler) AddInvoiceAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	file, header, err := readUpload(r, "file")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer file.Close()

	invoice, err := h.svc.AddInvoiceAttachment(r.Context(), principalFrom(r.Context()), id, header.Filename, file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (h *Handler) ExportInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	data, name, err := h.svc.ExportInvoice(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
