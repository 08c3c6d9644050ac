// Package tenant defines the tenant domain model for multi-tenancy.
package tenant

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Plan types available to a tenant. They gate nothing by themselves;
// user tiers carry the per-request authorization level.
const (
	PlanBasic        = "basic"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Tenant represents an isolated law firm within the system. Each tenant
// owns a dedicated PostgreSQL schema named SchemaName().
type Tenant struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	AdminEmail    string    `json:"admin_email"`
	LicenseNumber string    `json:"license_number,omitempty"`
	PlanType      string    `json:"plan_type"`
	MaxUsers      int       `json:"max_users"`
	MaxStorageGB  int       `json:"max_storage_gb"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SchemaName returns the PostgreSQL schema that holds this tenant's data:
// "tenant_" followed by the tenant UUID with hyphens stripped.
func (t *Tenant) SchemaName() string {
	return SchemaFor(t.ID)
}

// SchemaFor derives the schema name for a tenant ID.
func SchemaFor(tenantID string) string {
	return "tenant_" + strings.ReplaceAll(tenantID, "-", "")
}

// RegisterRequest holds the fields required to register a new firm. The
// registering user becomes the tenant's managerial admin.
type RegisterRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	OrganizationName string `json:"organizationName"`
	LicenseNumber    string `json:"licenseNumber,omitempty"`
}

// Validate checks that the RegisterRequest has all required fields.
func (r *RegisterRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email format")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if r.OrganizationName == "" {
		return errors.New("organizationName is required")
	}
	return nil
}

// UpdateRequest holds the fields that can be updated on a tenant.
type UpdateRequest struct {
	Name         string `json:"name,omitempty"`
	PlanType     string `json:"plan_type,omitempty"`
	MaxUsers     *int   `json:"max_users,omitempty"`
	MaxStorageGB *int   `json:"max_storage_gb,omitempty"`
	Active       *bool  `json:"active,omitempty"`
}

// Validate checks that the UpdateRequest only carries known plan types.
func (r *UpdateRequest) Validate() error {
	switch r.PlanType {
	case "", PlanBasic, PlanProfessional, PlanEnterprise:
	default:
		return errors.New("invalid plan_type: must be basic, professional, or enterprise")
	}
	if r.MaxUsers != nil && *r.MaxUsers < 1 {
		return errors.New("max_users must be >= 1")
	}
	if r.MaxStorageGB != nil && *r.MaxStorageGB < 1 {
		return errors.New("max_storage_gb must be >= 1")
	}
	return nil
}
