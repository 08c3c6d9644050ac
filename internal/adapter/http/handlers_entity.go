package http

import (
	"net/http"
	"strconv"

	"github.com/jusflow/jusflow/internal/middleware"
	"github.com/jusflow/jusflow/internal/port/database"
)

// Generic tenant-scoped entity CRUD over the scoped handle. The handle
// enforces the table and column allow-lists; these handlers only shuttle
// JSON in and out.

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	handle := middleware.HandleFromContext(r.Context())
	table := urlParam(r, "entity")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	filter := database.Filter{}
	for _, key := range []string{"status", "client_id", "project_id", "user_id", "type"} {
		if v := r.URL.Query().Get(key); v != "" {
			filter[key] = v
		}
	}

	rows, err := handle.Select(r.Context(), table, filter, limit, offset)
	if err != nil {
		writeDomainError(w, err, "list failed")
		return
	}
	if rows == nil {
		rows = []database.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	handle := middleware.HandleFromContext(r.Context())

	row, err := handle.Get(r.Context(), urlParam(r, "entity"), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	handle := middleware.HandleFromContext(r.Context())

	values, ok := readJSON[database.Row](w, r, s.bodyLimit)
	if !ok {
		return
	}

	row, err := handle.Insert(r.Context(), urlParam(r, "entity"), values)
	if err != nil {
		writeDomainError(w, err, "create failed")
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleUpdateEntity(w http.ResponseWriter, r *http.Request) {
	handle := middleware.HandleFromContext(r.Context())

	values, ok := readJSON[database.Row](w, r, s.bodyLimit)
	if !ok {
		return
	}

	row, err := handle.Update(r.Context(), urlParam(r, "entity"), urlParam(r, "id"), values)
	if err != nil {
		writeDomainError(w, err, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	handle := middleware.HandleFromContext(r.Context())

	if err := handle.Delete(r.Context(), urlParam(r, "entity"), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
