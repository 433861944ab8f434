package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"finanzas/internal/core"
	"finanzas/internal/log"
)

// headerUserID carries the acting user. Authentication lives in front
// of this service; the header is trusted as already verified.
const headerUserID = "X-User-ID"

const maxBodyBytes = 1 << 20 // 1 MiB

type errorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are gone; nothing left to do but log.
		log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP).
			Error("Failed to encode response", log.FieldError, err)
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondDomainError maps a service error onto a status code and body.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *core.InsufficientFundsError
	if errors.As(err, &insufficient) {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: "insufficient funds",
			Details: map[string]any{
				"account_id": insufficient.AccountID,
				"balance":    insufficient.Balance.String(),
				"requested":  insufficient.Requested.String(),
			},
		})
		return
	}

	var invalid *core.InvalidRecurrenceError
	if errors.As(err, &invalid) {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: "invalid recurrence",
			Details: map[string]any{
				"template_id": invalid.TemplateID,
				"reason":      invalid.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrOutsideEditWindow):
		respondError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrAccountHasHistory),
		errors.Is(err, core.ErrCategoryInUse),
		errors.Is(err, core.ErrCategoryPredefined):
		respondError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrAccountInactive),
		errors.Is(err, core.ErrCategoryKindMismatch),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidAccountType),
		errors.Is(err, core.ErrInvalidTransactionType),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrMissingAccount),
		errors.Is(err, core.ErrMissingCategory):
		respondError(w, r, http.StatusBadRequest, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Unhandled service error",
			log.FieldError, err,
			log.FieldPath, r.URL.Path)
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// requestUserID extracts the acting user from the request header.
func requestUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(headerUserID)
	if raw == "" {
		respondError(w, r, http.StatusBadRequest, "missing "+headerUserID+" header")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid "+headerUserID+" header")
		return 0, false
	}
	return id, true
}

// pathID extracts the {id} route parameter.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// optionalDate parses a query or body date, empty meaning absent.
func optionalDate(w http.ResponseWriter, r *http.Request, name, raw string) (core.Date, bool) {
	if raw == "" {
		return core.Date{}, true
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid %s: %v", name, err))
		return core.Date{}, false
	}
	return d, true
}
