// Package database defines the database ports (interfaces).
package database

import (
	"context"

	"github.com/jusflow/jusflow/internal/domain/audit"
	"github.com/jusflow/jusflow/internal/domain/tenant"
	"github.com/jusflow/jusflow/internal/domain/user"
)

// Store is the port interface for the admin catalog: tenants, the
// cross-tenant login directory, and refresh tokens.
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, t *tenant.Tenant) error
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	UpdateTenant(ctx context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error)
	DeleteTenant(ctx context.Context, id string) error

	// Login directory: maps an email to the tenants holding a user with it.
	// A given email may exist in multiple tenants.
	AddDirectoryEntry(ctx context.Context, email, tenantID, userID string) error
	LookupDirectory(ctx context.Context, email string) ([]DirectoryEntry, error)
	RemoveDirectoryEntry(ctx context.Context, email, tenantID string) error

	// Users, scoped to a tenant schema.
	CreateUser(ctx context.Context, tenantID string, u *user.User) error
	GetUser(ctx context.Context, tenantID, userID string) (*user.User, error)
	GetUserByEmail(ctx context.Context, tenantID, email string) (*user.User, error)
	ListUsers(ctx context.Context, tenantID string) ([]user.User, error)
	UpdateUser(ctx context.Context, tenantID, userID string, req user.UpdateRequest) (*user.User, error)

	// Refresh tokens (admin catalog, tenant-bound).
	CreateRefreshToken(ctx context.Context, rt *user.RefreshToken) error
	// RotateRefreshToken atomically deactivates the token identified by
	// tokenHash and returns it. When the token exists but is already
	// inactive it returns the row together with domain.ErrTokenReused so
	// the caller can revoke the owner's family; an unknown hash yields
	// domain.ErrTokenInvalid.
	RotateRefreshToken(ctx context.Context, tokenHash string) (*user.RefreshToken, error)
	// RevokeAllForUser deactivates every refresh token of a user.
	RevokeAllForUser(ctx context.Context, tenantID, userID string) error
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)

	// Audit trail, read side. Entries are written by triggers.
	ListAuditEntries(ctx context.Context, tenantID string, f audit.Filter) ([]audit.Entry, error)
}

// DirectoryEntry is one email-to-tenant mapping in the login directory.
type DirectoryEntry struct {
	Email    string
	TenantID string
	UserID   string
}

// Provisioner creates and repairs tenant schemas. Provisioning is
// idempotent: re-running against a partially created schema completes
// the missing pieces without touching existing data.
type Provisioner interface {
	Provision(ctx context.Context, tenantID string) error
	Deprovision(ctx context.Context, tenantID string) error
}

// Router hands out scoped handles bound to a single tenant schema.
type Router interface {
	// Handle returns a ScopedHandle for the tenant. It fails for unknown
	// or inactive tenants.
	Handle(ctx context.Context, tenantID string) (ScopedHandle, error)
	// Evict drops any cached handle state for the tenant, forcing the
	// next Handle call to revalidate.
	Evict(tenantID string)
}

// Filter constrains rows by column equality. Keys are validated against
// the tenant schema's column allow-list before any SQL is built.
type Filter map[string]any

// Row is a generic record from a tenant table.
type Row map[string]any

// ScopedHandle executes queries confined to one tenant's schema. Table
// names are checked against a fixed allow-list; identifiers are always
// quoted, never interpolated from request input.
type ScopedHandle interface {
	TenantID() string
	Schema() string

	Select(ctx context.Context, table string, filter Filter, limit, offset int) ([]Row, error)
	Get(ctx context.Context, table, id string) (Row, error)
	Insert(ctx context.Context, table string, values Row) (Row, error)
	Update(ctx context.Context, table, id string, values Row) (Row, error)
	Delete(ctx context.Context, table, id string) error
}
