package http

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"fabricstore/internal/domain"
	"fabricstore/internal/logging"
	"fabricstore/internal/service"
)

const maxUploadBytes = 32 << 20

type Handler struct {
	svc *service.Service
	log logrus.FieldLogger
}

func NewHandler(svc *service.Service, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// decodeValid decodes a JSON body and runs its validate tags.
func decodeValid(r *http.Request, out any) error {
	if err := decodeJSON(r, out); err != nil {
		return domain.Invalid("%s", err.Error())
	}
	return validateRequest(out)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// readUpload returns the multipart file sent under field.
func readUpload(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, domain.Invalid("failed to parse multipart form")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, domain.InvalidField(field, "field is required")
	}
	return file, header, nil
}

func parseOptionalInt(raw string, defaultValue int) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, domain.Invalid("invalid integer: %s", raw)
	}
	if parsed < 0 {
		return 0, domain.Invalid("value cannot be negative")
	}
	return parsed, nil
}

func parseOptionalInt64(raw string) (*int64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return nil, domain.Invalid("invalid id value: %s", raw)
	}
	return &parsed, nil
}

func parseOptionalBool(name, raw string) (*bool, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, domain.InvalidField(name, "must be true or false")
	}
	return &parsed, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("invalid id")
	}
	return id, nil
}

func urlID(r *http.Request, name string) (int64, error) {
	return parseID(chi.URLParam(r, name))
}

// paging reads limit and offset; the store applies its own default and cap.
func paging(r *http.Request) (limit, offset int, err error) {
	query := r.URL.Query()
	if limit, err = parseOptionalInt(query.Get("limit"), 0); err != nil {
		return 0, 0, err
	}
	if offset, err = parseOptionalInt(query.Get("offset"), 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}
