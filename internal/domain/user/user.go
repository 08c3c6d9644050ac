// Package user defines the user domain model for authentication and authorization.
package user

import (
	"errors"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tier represents the authorization level of a user within a firm.
type Tier string

const (
	TierBasic        Tier = "basic"
	TierIntermediate Tier = "intermediate"
	TierManagerial   Tier = "managerial"
)

// tierRank orders tiers for least-privilege comparison.
var tierRank = map[Tier]int{
	TierBasic:        1,
	TierIntermediate: 2,
	TierManagerial:   3,
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// AtLeast reports whether t grants at least the privileges of min.
// Unknown tiers never satisfy any requirement.
func (t Tier) AtLeast(min Tier) bool {
	r, ok := tierRank[t]
	if !ok {
		return false
	}
	return r >= tierRank[min]
}

// User represents a registered user within a tenant.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialized
	Tier         Tier      `json:"tier"`
	TenantID     string    `json:"tenant_id"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateRequest is the input for adding a user to an existing tenant.
type CreateRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	Tier     Tier   `json:"tier"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email format")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if !r.Tier.Valid() {
		return errors.New("invalid tier: must be basic, intermediate, or managerial")
	}
	return nil
}

// LoginRequest is the input for user authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// TokenPair is returned after successful authentication or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`  //nolint:gosec // response field, not a hardcoded secret
	RefreshToken string `json:"refreshToken"` //nolint:gosec // response field, not a hardcoded secret
	ExpiresIn    int    `json:"expiresIn"`    // seconds until access token expires
	User         User   `json:"user"`
}

// Claims is the JWT payload embedded in every access token.
type Claims struct {
	UserID   string `json:"sub"`
	TenantID string `json:"tenantId"`
	Tier     Tier   `json:"tier"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// RefreshToken represents a stored refresh token. The raw token never
// touches the database; only its SHA-256 hash is persisted. TenantID is
// bound at issue time so rotation never scans across tenants.
type RefreshToken struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateRequest is the input for updating an existing user.
type UpdateRequest struct {
	Name   string `json:"name,omitempty"`
	Tier   Tier   `json:"tier,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

// Validate checks that the UpdateRequest only carries known tiers.
func (r *UpdateRequest) Validate() error {
	if r.Tier != "" && !r.Tier.Valid() {
		return errors.New("invalid tier: must be basic, intermediate, or managerial")
	}
	return nil
}
