package http

import (
	"context"
	"net/http"
	"strings"

	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
	"fabricstore/internal/service"
)

type customerRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone" validate:"omitempty,min=3,max=32"`
	Mobile    *string `json:"mobile" validate:"omitempty,max=32"`
	Address   *string `json:"address"`
	City      *string `json:"city"`
	Province  *string `json:"province"`
	Password  *string `json:"password" validate:"omitempty,min=6"`
}

func (req customerRequest) input() service.CustomerInput {
	return service.CustomerInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Mobile:    req.Mobile,
		Address:   req.Address,
		City:      req.City,
		Province:  req.Province,
		Password:  req.Password,
	}
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items, err := h.svc.ListCustomers(r.Context(), principalFrom(r.Context()), repository.CustomerFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	detail, err := h.svc.GetCustomer(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	created, err := h.svc.CreateCustomer(r.Context(), principalFrom(r.Context()), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req customerRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	updated, err := h.svc.UpdateCustomer(r.Context(), principalFrom(r.Context()), id, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.DeleteCustomer(r.Context(), principalFrom(r.Context()), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

type bankAccountRequest struct {
	BankName      string  `json:"bank_name" validate:"required"`
	AccountNumber string  `json:"account_number" validate:"required"`
	IBAN          *string `json:"iban" validate:"omitempty,max=34"`
}

func (h *Handler) AddBankAccount(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req bankAccountRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	account, err := h.svc.AddBankAccount(r.Context(), principalFrom(r.Context()), id, service.BankAccountInput{
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		IBAN:          req.IBAN,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) DeleteBankAccount(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	accountID, err := urlID(r, "accountID")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.DeleteBankAccount(r.Context(), principalFrom(r.Context()), id, accountID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeBalance(w, r, id)
}

// CustomerBalance is the panel view of the caller's own balance.
func (h *Handler) CustomerBalance(w http.ResponseWriter, r *http.Request) {
	h.writeBalance(w, r, principalFrom(r.Context()).ID)
}

func (h *Handler) writeBalance(w http.ResponseWriter, r *http.Request, customerID int64) {
	info, err := h.svc.GetBalance(r.Context(), principalFrom(r.Context()), customerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type balanceFunc func(ctx context.Context, actor domain.Principal, customerID int64, amount float64, notes string) (domain.BalanceInfo, error)

type balanceRequest struct {
	Amount *float64 `json:"amount" validate:"required"`
	Notes  string   `json:"notes"`
}

// AdjustBalance adds amount to the stored balance.
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	h.changeBalance(w, r, h.svc.AdjustBalance)
}

// SetBalance overwrites the stored balance with amount.
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	h.changeBalance(w, r, h.svc.SetBalance)
}

func (h *Handler) changeBalance(w http.ResponseWriter, r *http.Request, apply balanceFunc) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req balanceRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	info, err := apply(r.Context(), principalFrom(r.Context()), id, *req.Amount, req.Notes)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
