package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jusflow/jusflow/internal/domain"
	"github.com/jusflow/jusflow/internal/domain/tenant"
	"github.com/jusflow/jusflow/internal/port/database"
)

const uniqueViolation = "23505"

// Store implements database.Store using PostgreSQL. Tenant catalog, login
// directory, and refresh tokens live in the admin schema; users live in the
// per-tenant schemas.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Tenants ---

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO admin.tenants (name, admin_email, license_number, plan_type, max_users, max_storage_gb, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		t.Name, t.AdminEmail, t.LicenseNumber, t.PlanType, t.MaxUsers, t.MaxStorageGB, t.Active,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create tenant: %w", domain.ErrDuplicateAdminEmail)
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, admin_email, COALESCE(license_number, ''), plan_type, max_users, max_storage_gb, active, created_at, updated_at
		 FROM admin.tenants WHERE id = $1`, id)

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get tenant %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tenant %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, admin_email, COALESCE(license_number, ''), plan_type, max_users, max_storage_gb, active, created_at, updated_at
		 FROM admin.tenants ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *Store) UpdateTenant(ctx context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE admin.tenants SET
		   name = COALESCE(NULLIF($2, ''), name),
		   plan_type = COALESCE(NULLIF($3, ''), plan_type),
		   max_users = COALESCE($4, max_users),
		   max_storage_gb = COALESCE($5, max_storage_gb),
		   active = COALESCE($6, active),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING id, name, admin_email, COALESCE(license_number, ''), plan_type, max_users, max_storage_gb, active, created_at, updated_at`,
		id, req.Name, req.PlanType, req.MaxUsers, req.MaxStorageGB, req.Active)

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update tenant %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update tenant %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM admin.tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete tenant %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// --- Login directory ---

func (s *Store) AddDirectoryEntry(ctx context.Context, email, tenantID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO admin.accounts (email, tenant_id, user_id) VALUES ($1, $2, $3)
		 ON CONFLICT (email, tenant_id) DO UPDATE SET user_id = EXCLUDED.user_id`,
		email, tenantID, userID)
	if err != nil {
		return fmt.Errorf("add directory entry: %w", err)
	}
	return nil
}

func (s *Store) LookupDirectory(ctx context.Context, email string) ([]database.DirectoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT email, tenant_id, user_id FROM admin.accounts WHERE email = $1 ORDER BY created_at ASC`, email)
	if err != nil {
		return nil, fmt.Errorf("lookup directory: %w", err)
	}
	defer rows.Close()

	var entries []database.DirectoryEntry
	for rows.Next() {
		var e database.DirectoryEntry
		if err := rows.Scan(&e.Email, &e.TenantID, &e.UserID); err != nil {
			return nil, fmt.Errorf("scan directory entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) RemoveDirectoryEntry(ctx context.Context, email, tenantID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM admin.accounts WHERE email = $1 AND tenant_id = $2`, email, tenantID)
	if err != nil {
		return fmt.Errorf("remove directory entry: %w", err)
	}
	return nil
}

// --- Helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanTenant(row scannable) (tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.AdminEmail, &t.LicenseNumber, &t.PlanType,
		&t.MaxUsers, &t.MaxStorageGB, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
