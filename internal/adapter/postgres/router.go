package postgres

import (
	"context"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/jusflow/jusflow/internal/domain"
	"github.com/jusflow/jusflow/internal/domain/tenant"
	"github.com/jusflow/jusflow/internal/port/database"
)

// Router hands out scoped handles bound to a single tenant schema. Handles
// are stateless views over the shared pool and are cached per tenant; the
// first request for a tenant validates it against the catalog, with
// concurrent misses collapsed into one lookup.
type Router struct {
	pool  *pgxpool.Pool
	store database.Store

	mu      sync.RWMutex
	handles map[string]*scopedHandle
	group   singleflight.Group
}

// NewRouter creates a Router backed by the given pool and catalog store.
func NewRouter(pool *pgxpool.Pool, store database.Store) *Router {
	return &Router{
		pool:    pool,
		store:   store,
		handles: make(map[string]*scopedHandle),
	}
}

// Handle returns the ScopedHandle for a tenant. Unknown tenants yield
// domain.ErrNotFound, deactivated ones domain.ErrTenantInactive.
func (r *Router) Handle(ctx context.Context, tenantID string) (database.ScopedHandle, error) {
	r.mu.RLock()
	h, ok := r.handles[tenantID]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	v, err, _ := r.group.Do(tenantID, func() (any, error) {
		t, err := r.store.GetTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if !t.Active {
			return nil, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrTenantInactive)
		}

		schema, err := sanitizedSchema(tenantID)
		if err != nil {
			return nil, err
		}

		h := &scopedHandle{
			pool:     r.pool,
			tenantID: tenantID,
			schema:   tenant.SchemaFor(tenantID),
			quoted:   schema,
			builder:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		}

		r.mu.Lock()
		r.handles[tenantID] = h
		r.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*scopedHandle), nil
}

// Evict drops the cached handle for a tenant. Called when a tenant is
// deactivated or deleted.
func (r *Router) Evict(tenantID string) {
	r.mu.Lock()
	delete(r.handles, tenantID)
	r.mu.Unlock()
}

// scopedHandle implements database.ScopedHandle. All identifiers pass the
// table/column allow-list before the builder sees them; values always travel
// as bind parameters.
type scopedHandle struct {
	pool     *pgxpool.Pool
	tenantID string
	schema   string
	quoted   string
	builder  sq.StatementBuilderType
}

func (h *scopedHandle) TenantID() string { return h.tenantID }
func (h *scopedHandle) Schema() string   { return h.schema }

func (h *scopedHandle) qualified(table string) string {
	return h.quoted + "." + pgx.Identifier{table}.Sanitize()
}

func (h *scopedHandle) checkFilter(table string, filter database.Filter) error {
	for col := range filter {
		if !validColumn(table, col) {
			return fmt.Errorf("unknown column %q on %s: %w", col, table, domain.ErrValidation)
		}
	}
	return nil
}

func (h *scopedHandle) Select(ctx context.Context, table string, filter database.Filter, limit, offset int) ([]database.Row, error) {
	if !validTable(table) {
		return nil, fmt.Errorf("unknown table %q: %w", table, domain.ErrValidation)
	}
	if err := h.checkFilter(table, filter); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	b := h.builder.Select("*").From(h.qualified(table)).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(max(offset, 0)))
	if len(filter) > 0 {
		b = b.Where(sq.Eq(filter))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := h.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	var out []database.Row
	for rows.Next() {
		row, err := scanGenericRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (h *scopedHandle) Get(ctx context.Context, table, id string) (database.Row, error) {
	if !validTable(table) {
		return nil, fmt.Errorf("unknown table %q: %w", table, domain.ErrValidation)
	}

	query, args, err := h.builder.Select("*").From(h.qualified(table)).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get: %w", err)
	}

	rows, err := h.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", table, id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get %s %s: %w", table, id, err)
		}
		return nil, fmt.Errorf("get %s %s: %w", table, id, domain.ErrNotFound)
	}
	return scanGenericRow(rows)
}

func (h *scopedHandle) Insert(ctx context.Context, table string, values database.Row) (database.Row, error) {
	if !validTable(table) {
		return nil, fmt.Errorf("unknown table %q: %w", table, domain.ErrValidation)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("insert %s: empty payload: %w", table, domain.ErrValidation)
	}
	if err := h.checkFilter(table, database.Filter(values)); err != nil {
		return nil, err
	}

	b := h.builder.Insert(h.qualified(table)).
		SetMap(map[string]any(values)).
		Suffix("RETURNING *")

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	rows, err := h.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("insert %s: %w", table, err)
		}
		return nil, fmt.Errorf("insert %s: no row returned", table)
	}
	return scanGenericRow(rows)
}

func (h *scopedHandle) Update(ctx context.Context, table, id string, values database.Row) (database.Row, error) {
	if !validTable(table) {
		return nil, fmt.Errorf("unknown table %q: %w", table, domain.ErrValidation)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("update %s: empty payload: %w", table, domain.ErrValidation)
	}
	if err := h.checkFilter(table, database.Filter(values)); err != nil {
		return nil, err
	}

	b := h.builder.Update(h.qualified(table)).
		SetMap(map[string]any(values)).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING *")
	if hasUpdatedAt(table) {
		b = b.Set("updated_at", sq.Expr("now()"))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	rows, err := h.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", table, id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("update %s %s: %w", table, id, err)
		}
		return nil, fmt.Errorf("update %s %s: %w", table, id, domain.ErrNotFound)
	}
	return scanGenericRow(rows)
}

func (h *scopedHandle) Delete(ctx context.Context, table, id string) error {
	if !validTable(table) {
		return fmt.Errorf("unknown table %q: %w", table, domain.ErrValidation)
	}

	query, args, err := h.builder.Delete(h.qualified(table)).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := h.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %s %s: %w", table, id, domain.ErrNotFound)
	}
	return nil
}

// scanGenericRow materializes the current row into a column-keyed map.
func scanGenericRow(rows pgx.Rows) (database.Row, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	fields := rows.FieldDescriptions()
	row := make(database.Row, len(fields))
	for i, fd := range fields {
		row[fd.Name] = values[i]
	}
	return row, nil
}
