package http

import (
	"net/http"
	"strings"

	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
	"fabricstore/internal/service"
)

type createCheckRequest struct {
	CheckNumber      string             `json:"check_number" validate:"required"`
	CustomerID       int64              `json:"customer_id" validate:"required,gt=0"`
	Amount           float64            `json:"amount" validate:"required,gt=0"`
	IssueDate        string             `json:"issue_date" validate:"required"`
	DueDate          string             `json:"due_date" validate:"required"`
	Status           domain.CheckStatus `json:"status" validate:"omitempty,oneof=in_progress spent returned cleared"`
	RelatedInvoiceID *int64             `json:"related_invoice_id" validate:"omitempty,gt=0"`
}

type updateCheckRequest struct {
	CheckNumber      *string             `json:"check_number" validate:"omitempty,min=1"`
	CustomerID       *int64              `json:"customer_id" validate:"omitempty,gt=0"`
	Amount           *float64            `json:"amount" validate:"omitempty,gt=0"`
	IssueDate        *string             `json:"issue_date"`
	DueDate          *string             `json:"due_date"`
	Status           *domain.CheckStatus `json:"status" validate:"omitempty,oneof=in_progress spent returned cleared"`
	RelatedInvoiceID *int64              `json:"related_invoice_id" validate:"omitempty,gt=0"`
}

type checkStatusRequest struct {
	Status domain.CheckStatus `json:"status" validate:"required,oneof=in_progress spent returned cleared"`
}

func (h *Handler) ListChecks(w http.ResponseWriter, r *http.Request) {
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
	invoiceID, err := parseOptionalInt64(query.Get("invoice_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	filter := repository.CheckFilter{
		CustomerID: customerID,
		InvoiceID:  invoiceID,
		DueFrom:    strings.TrimSpace(query.Get("due_from")),
		DueTo:      strings.TrimSpace(query.Get("due_to")),
		Limit:      limit,
		Offset:     offset,
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := domain.CheckStatus(raw)
		if !status.Valid() {
			h.writeServiceError(w, r, domain.InvalidField("status", "unknown check status %q", raw))
			return
		}
		filter.Status = &status
	}
	h.listChecks(w, r, filter)
}

func (h *Handler) listChecks(w http.ResponseWriter, r *http.Request, filter repository.CheckFilter) {
	items, err := h.svc.ListChecks(r.Context(), principalFrom(r.Context()), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *Handler) GetCheck(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	check, err := h.svc.GetCheck(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *Handler) CreateCheck(w http.ResponseWriter, r *http.Request) {
	var req createCheckRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	check, err := h.svc.CreateCheck(r.Context(), principalFrom(r.Context()), service.CreateCheckInput{
		CheckNumber:      req.CheckNumber,
		CustomerID:       req.CustomerID,
		Amount:           req.Amount,
		IssueDate:        req.IssueDate,
		DueDate:          req.DueDate,
		Status:           req.Status,
		RelatedInvoiceID: req.RelatedInvoiceID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, check)
}

func (h *Handler) UpdateCheck(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req updateCheckRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	check, err := h.svc.UpdateCheck(r.Context(), principalFrom(r.Context()), id, service.UpdateCheckInput{
		CheckNumber:      req.CheckNumber,
		CustomerID:       req.CustomerID,
		Amount:           req.Amount,
		IssueDate:        req.IssueDate,
		DueDate:          req.DueDate,
		Status:           req.Status,
		RelatedInvoiceID: req.RelatedInvoiceID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *Handler) SetCheckStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req checkStatusRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	check, err := h.svc.SetCheckStatus(r.Context(), principalFrom(r.Context()), id, req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *Handler) DeleteCheck(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.DeleteCheck(r.Context(), principalFrom(r.Context()), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) AddCheckAttachment(w http.ResponseWriter, r *http.Request) {
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

	check, err := h.svc.AddCheckAttachment(r.Context(), principalFrom(r.Context()), id, header.Filename, file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}
