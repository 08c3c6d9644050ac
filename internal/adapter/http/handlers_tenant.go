package http

import (
	"net/http"

	"github.com/jusflow/jusflow/internal/domain/tenant"
	"github.com/jusflow/jusflow/internal/domain/user"
	"github.com/jusflow/jusflow/internal/middleware"
)

// handleGetTenant returns the registry record of the caller's tenant.
func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	t, err := s.tenants.Get(r.Context(), claims.TenantID)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	req, ok := readJSON[tenant.UpdateRequest](w, r, s.bodyLimit)
	if !ok {
		return
	}

	t, err := s.tenants.Update(r.Context(), claims.TenantID, req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	users, err := s.auth.ListUsers(r.Context(), claims.TenantID)
	if err != nil {
		writeDomainError(w, err, "list users failed")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	req, ok := readJSON[user.UpdateRequest](w, r, s.bodyLimit)
	if !ok {
		return
	}

	u, err := s.auth.UpdateUser(r.Context(), claims.TenantID, urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	req, ok := readJSON[user.CreateRequest](w, r, s.bodyLimit)
	if !ok {
		return
	}

	u, err := s.auth.CreateUser(r.Context(), claims.TenantID, &req)
	if err != nil {
		writeDomainError(w, err, "create user failed")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}
