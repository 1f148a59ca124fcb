package http

import (
	"net/http"
	"strings"

	"fabricstore/internal/domain"
	"fabricstore/internal/excel"
	"fabricstore/internal/repository"
	"fabricstore/internal/service"
)

type productRequest struct {
	Code            *string   `json:"code" validate:"omitempty,min=1,max=64"`
	Name            *string   `json:"name" validate:"omitempty,min=1"`
	Description     *string   `json:"description"`
	Category        *string   `json:"category"`
	Unit            *string   `json:"unit"`
	PiecesPerRoll   *int      `json:"pieces_per_roll" validate:"omitempty,gt=0,lte=2147483647"`
	PurchasePrice   *float64  `json:"purchase_price" validate:"omitempty,gte=0"`
	SalePrice       *float64  `json:"sale_price" validate:"omitempty,gte=0"`
	IsAvailable     *bool     `json:"is_available"`
	Visible         *bool     `json:"visible"`
	IsSeries        *bool     `json:"is_series"`
	SeriesNumbers   []int64   `json:"series_numbers"`
	SeriesInventory []int64   `json:"series_inventory"`
	AvailableColors []string  `json:"available_colors"`
	ColorInventory  []float64 `json:"color_inventory"`
}

func (req productRequest) input() service.ProductInput {
	in := service.ProductInput{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Unit:          req.Unit,
		PiecesPerRoll: req.PiecesPerRoll,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		IsAvailable:   req.IsAvailable,
		Visible:       req.Visible,
	}
	if req.IsSeries != nil || len(req.SeriesNumbers) > 0 || len(req.AvailableColors) > 0 {
		in.Variant = &domain.VariantFields{
			IsSeries:        req.IsSeries != nil && *req.IsSeries,
			SeriesNumbers:   req.SeriesNumbers,
			SeriesInventory: req.SeriesInventory,
			AvailableColors: req.AvailableColors,
			ColorInventory:  req.ColorInventory,
		}
		if req.IsSeries == nil && len(req.SeriesNumbers) > 0 {
			in.Variant.IsSeries = true
		}
	}
	return in
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset, err := paging(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	available, err := parseOptionalBool("is_available", query.Get("is_available"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	visible, err := parseOptionalBool("visible", query.Get("visible"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items, err := h.svc.ListProducts(r.Context(), principalFrom(r.Context()), repository.ProductFilter{
		Search:      strings.TrimSpace(query.Get("search")),
		Category:    strings.TrimSpace(query.Get("category")),
		IsAvailable: available,
		Visible:     visible,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	product, err := h.svc.GetProduct(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	created, err := h.svc.CreateProduct(r.Context(), principalFrom(r.Context()), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req productRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	updated, err := h.svc.UpdateProduct(r.Context(), principalFrom(r.Context()), id, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), principalFrom(r.Context()), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) AddProductImage(w http.ResponseWriter, r *http.Request) {
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

	product, err := h.svc.AddProductImage(r.Context(), principalFrom(r.Context()), id, header.Filename, file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	file, header, err := readUpload(r, "file")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer file.Close()

	rows, err := excel.ParseProductRows(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	inputs := make([]service.ProductInput, 0, len(rows))
	for _, row := range rows {
		inputs = append(inputs, service.ProductInputFromRow(row))
	}
	result, err := h.svc.ImportProducts(r.Context(), principalFrom(r.Context()), inputs)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_name":  header.Filename,
		"total_rows": len(rows),
		"created":    result.Created,
		"updated":    result.Updated,
		"errors":     result.Errors,
	})
}

type transactionRequest struct {
	ProductID      int64                    `json:"product_id" validate:"required,gt=0"`
	ChangeQuantity float64                  `json:"change_quantity" validate:"required"`
	Reason         domain.TransactionReason `json:"reason" validate:"required,oneof=restock adjustment return"`
	ReferenceID    *int64                   `json:"reference_id"`
	Notes          *string                  `json:"notes"`
	SelectedSeries []int64                  `json:"selected_series"`
	SelectedColor  *string                  `json:"selected_color"`
}

func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	txn, err := h.svc.RecordTransaction(r.Context(), principalFrom(r.Context()), service.RecordTransactionInput{
		ProductID:      req.ProductID,
		ChangeQuantity: req.ChangeQuantity,
		Reason:         req.Reason,
		ReferenceID:    req.ReferenceID,
		Notes:          req.Notes,
		Selection:      domain.Selection{SelectedSeries: req.SelectedSeries, SelectedColor: req.SelectedColor},
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset, err := paging(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	productID, err := parseOptionalInt64(query.Get("product_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	referenceID, err := parseOptionalInt64(query.Get("reference_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	filter := repository.TransactionFilter{ProductID: productID, ReferenceID: referenceID, Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(query.Get("reason")); raw != "" {
		reason := domain.TransactionReason(raw)
		if !reason.Valid() {
			h.writeServiceError(w, r, domain.InvalidField("reason", "unknown reason %q", raw))
			return
		}
		filter.Reason = &reason
	}
	items, err := h.svc.ListTransactions(r.Context(), principalFrom(r.Context()), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *Handler) ProductQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	quantity, err := h.svc.ProductQuantity(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quantity)
}
