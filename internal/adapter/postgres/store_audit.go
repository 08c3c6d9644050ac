package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/jusflow/jusflow/internal/domain/audit"
)

const defaultAuditPageSize = 100

// ListAuditEntries returns a page of the tenant's audit trail, newest first.
// The application only ever reads audit_log; triggers own the writes.
func (s *Store) ListAuditEntries(ctx context.Context, tenantID string, f audit.Filter) ([]audit.Entry, error) {
	schema, err := sanitizedSchema(tenantID)
	if err != nil {
		return nil, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = defaultAuditPageSize
	}

	b := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("id", "table_name", "COALESCE(record_id::text, '')", "operation",
			"old_data", "new_data", "COALESCE(user_id::text, '')", "created_at").
		From(schema + ".audit_log").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(max(f.Offset, 0)))

	if f.TableName != "" {
		b = b.Where(sq.Eq{"table_name": f.TableName})
	}
	if f.Operation != "" {
		b = b.Where(sq.Eq{"operation": f.Operation})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.TableName, &e.RecordID, &e.Operation,
			&e.OldData, &e.NewData, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
