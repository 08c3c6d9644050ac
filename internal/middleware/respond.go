package middleware

import (
	"encoding/json"
	"net/http"
)

// Machine-readable error codes returned by the gate.
const (
	CodeTokenExpired   = "TOKEN_EXPIRED"
	CodeTokenInvalid   = "TOKEN_INVALID"
	CodeTenantInactive = "TENANT_INACTIVE"
	CodeForbiddenTier  = "FORBIDDEN_TIER"
	CodeUnauthorized   = "UNAUTHORIZED"
)

type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Required string `json:"required,omitempty"`
	Current  string `json:"current,omitempty"`
}

func writeCodedError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, Code: code})
}
