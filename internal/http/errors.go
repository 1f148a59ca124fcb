package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"fabricstore/internal/auth"
	"fabricstore/internal/domain"
	"fabricstore/internal/service"
)

// writeServiceError maps the domain error taxonomy onto status codes.
// Unexpected errors are logged and answered with a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		forbidden  *domain.ForbiddenError
	)
	switch {
	case errors.As(err, &validation):
		body := map[string]any{"error": validation.Error()}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		if len(validation.Details) > 0 {
			body["details"] = validation.Details
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &notFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusBadRequest, conflict.Error())
	case errors.As(err, &forbidden):
		writeError(w, http.StatusForbidden, forbidden.Error())
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		h.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
