package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jusflow/jusflow/internal/domain"
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, codeValidation, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

// Machine-readable error codes. Stable across releases; clients branch on
// these, not on messages.
const (
	codeValidation          = "VALIDATION_ERROR"
	codeDuplicateAdminEmail = "DUPLICATE_ADMIN_EMAIL"
	codeInvalidCredentials  = "INVALID_CREDENTIALS"
	codeTenantInactive      = "TENANT_INACTIVE"
	codeTokenInvalid        = "TOKEN_INVALID"
	codeTokenExpired        = "TOKEN_EXPIRED"
	codeTokenReused         = "TOKEN_REUSED"
	codeNotFound            = "NOT_FOUND"
	codeConflict            = "CONFLICT"
	codeInternal            = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeDomainError maps sentinel errors to their HTTP status and stable code.
func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimSuffix(err.Error(), ": "+domain.ErrValidation.Error())
		writeError(w, http.StatusBadRequest, codeValidation, msg)
	case errors.Is(err, domain.ErrDuplicateAdminEmail):
		writeError(w, http.StatusBadRequest, codeDuplicateAdminEmail, "admin email already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid credentials")
	case errors.Is(err, domain.ErrTenantInactive):
		writeError(w, http.StatusUnauthorized, codeTenantInactive, "tenant is deactivated")
	case errors.Is(err, domain.ErrTokenReused):
		writeError(w, http.StatusUnauthorized, codeTokenReused, "refresh token already used")
	case errors.Is(err, domain.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, codeTokenExpired, "token expired")
	case errors.Is(err, domain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, codeTokenInvalid, "invalid token")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, fallbackMsg)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, codeConflict, "resource already exists")
	case strings.Contains(err.Error(), "invalid input syntax"):
		writeError(w, http.StatusBadRequest, codeValidation, "invalid identifier format")
	case strings.Contains(err.Error(), "SQLSTATE 23505"):
		writeError(w, http.StatusConflict, codeConflict, "resource already exists")
	default:
		slog.Error("unhandled domain error", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}
