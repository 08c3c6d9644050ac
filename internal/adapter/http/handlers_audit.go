package http

import (
	"net/http"
	"strconv"

	"github.com/jusflow/jusflow/internal/domain/audit"
	"github.com/jusflow/jusflow/internal/middleware"
)

// handleListAudit returns a page of the tenant's audit trail. Read-only:
// entries are written exclusively by the database triggers.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := s.audit.ListAuditEntries(r.Context(), claims.TenantID, audit.Filter{
		TableName: r.URL.Query().Get("table"),
		Operation: r.URL.Query().Get("operation"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeDomainError(w, err, "audit query failed")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
