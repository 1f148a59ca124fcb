package http

import (
	"net/http"
	"strings"

	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
	"fabricstore/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	session, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type customerLoginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) CustomerLogin(w http.ResponseWriter, r *http.Request) {
	var req customerLoginRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	session, err := h.svc.CustomerLogin(r.Context(), req.Phone, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.svc.Me(r.Context(), principalFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

type createUserRequest struct {
	Email     string      `json:"email" validate:"required,email"`
	Password  string      `json:"password" validate:"required,min=6"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      domain.Role `json:"role" validate:"required,oneof=admin accountant warehouse"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	user, err := h.svc.CreateUser(r.Context(), principalFrom(r.Context()), service.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	filter := repository.UserFilter{Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role := domain.Role(raw)
		filter.Role = &role
	}
	users, err := h.svc.ListUsers(r.Context(), principalFrom(r.Context()), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeList(w, users)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	user, err := h.svc.GetUser(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Email     *string      `json:"email" validate:"omitempty,email"`
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`
	Role      *domain.Role `json:"role" validate:"omitempty,oneof=admin accountant warehouse"`
	IsActive  *bool        `json:"is_active"`
	Password  *string      `json:"password" validate:"omitempty,min=6"`
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req updateUserRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	user, err := h.svc.UpdateUser(r.Context(), principalFrom(r.Context()), id, service.UpdateUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		IsActive:  req.IsActive,
		Password:  req.Password,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.DeleteUser(r.Context(), principalFrom(r.Context()), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
