package http

import (
	"net/http"
	"strings"

	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
	"fabricstore/internal/service"
)

type cartItemRequest struct {
	ProductID      int64   `json:"product_id" validate:"required,gt=0"`
	Quantity       float64 `json:"quantity" validate:"required,gt=0"`
	Unit           string  `json:"unit"`
	Price          float64 `json:"price" validate:"required,gt=0"`
	SelectedSeries []int64 `json:"selected_series"`
	SelectedColor  *string `json:"selected_color"`
}

func (req cartItemRequest) input() service.CartItemInput {
	return service.CartItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		Price:     req.Price,
		Selection: domain.Selection{SelectedSeries: req.SelectedSeries, SelectedColor: req.SelectedColor},
	}
}

type publicCartRequest struct {
	CustomerName    string            `json:"customer_name" validate:"required"`
	CustomerPhone   string            `json:"customer_phone" validate:"required"`
	CustomerEmail   *string           `json:"customer_email" validate:"omitempty,email"`
	CustomerAddress *string           `json:"customer_address"`
	Notes           *string           `json:"notes"`
	Items           []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) SubmitPublicCart(w http.ResponseWriter, r *http.Request) {
	var req publicCartRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items := make([]service.CartItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, item.input())
	}
	submitted, err := h.svc.SubmitPublicCart(r.Context(), service.PublicCartInput{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		CustomerAddress: req.CustomerAddress,
		Notes:           req.Notes,
		Items:           items,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitted)
}

func (h *Handler) GetCustomerCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.GetCustomerCart(r.Context(), principalFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	cart, err := h.svc.AddCartItem(r.Context(), principalFrom(r.Context()), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := urlID(r, "itemID")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req cartItemRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	cart, err := h.svc.UpdateCartItem(r.Context(), principalFrom(r.Context()), itemID, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := urlID(r, "itemID")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	cart, err := h.svc.RemoveCartItem(r.Context(), principalFrom(r.Context()), itemID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.ClearCart(r.Context(), principalFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

type checkoutRequest struct {
	Notes *string `json:"notes"`
}

func (h *Handler) CheckoutCart(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if r.ContentLength != 0 {
		if err := decodeValid(r, &req); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}
	submitted, err := h.svc.CheckoutCustomerCart(r.Context(), principalFrom(r.Context()), req.Notes)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitted)
}

func (h *Handler) ListCarts(w http.ResponseWriter, r *http.Request) {
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
	filter := repository.CartFilter{CustomerID: customerID, Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := domain.CartStatus(raw)
		if !status.Valid() {
			h.writeServiceError(w, r, domain.InvalidField("status", "unknown cart status %q", raw))
			return
		}
		filter.Status = &status
	}
	items, err := h.svc.ListCarts(r.Context(), principalFrom(r.Context()), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	cart, err := h.svc.GetCart(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

type cartStatusRequest struct {
	Status domain.CartStatus `json:"status" validate:"required,oneof=pending reviewed approved rejected"`
}

func (h *Handler) UpdateCartStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req cartStatusRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	cart, err := h.svc.UpdateCartStatus(r.Context(), principalFrom(r.Context()), id, req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.DeleteCart(r.Context(), principalFrom(r.Context()), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) CartStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.CartStats(r.Context(), principalFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
