package http

import (
	"net/http"

	"github.com/jusflow/jusflow/internal/domain/tenant"
	"github.com/jusflow/jusflow/internal/domain/user"
	"github.com/jusflow/jusflow/internal/middleware"
)

// handleRegister creates a firm, provisions its schema, and returns the
// managerial admin with a fresh token pair.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenant.RegisterRequest](w, r, s.bodyLimit)
	if !ok {
		return
	}

	result, err := s.auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r, s.bodyLimit)
	if !ok {
		return
	}

	result, err := s.auth.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[refreshRequest](w, r, s.bodyLimit)
	if !ok {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "refreshToken is required")
		return
	}

	tokens, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeDomainError(w, err, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

// handleLogout revokes the presented refresh token. Idempotent: an unknown
// or already-revoked token still yields 200.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[refreshRequest](w, r, s.bodyLimit)
	if !ok {
		return
	}

	if err := s.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		writeDomainError(w, err, "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	u, err := s.auth.GetUser(r.Context(), claims.TenantID, claims.UserID)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
