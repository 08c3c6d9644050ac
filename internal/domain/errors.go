// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness or concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource already exists or was modified")

// ErrValidation indicates the request payload failed validation.
var ErrValidation = errors.New("validation failed")

// ErrInvalidCredentials indicates a failed login attempt. Callers must not
// reveal whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrTokenExpired indicates an access or refresh token past its expiry.
var ErrTokenExpired = errors.New("token expired")

// ErrTokenInvalid indicates a malformed, forged, or unknown token.
var ErrTokenInvalid = errors.New("token invalid")

// ErrTokenReused indicates a refresh token that was already rotated.
// Treated as a possible theft signal.
var ErrTokenReused = errors.New("refresh token already used")

// ErrTenantInactive indicates the tenant exists but is deactivated.
var ErrTenantInactive = errors.New("tenant inactive")

// ErrDuplicateAdminEmail indicates a registration with an email already
// owning a tenant.
var ErrDuplicateAdminEmail = errors.New("admin email already registered")

// ErrProvisioning indicates tenant schema provisioning failed.
var ErrProvisioning = errors.New("tenant provisioning failed")
