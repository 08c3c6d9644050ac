// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Queue is the port interface for publishing lifecycle events.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Drain gracefully drains the connection before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for NATS subjects published by jusflow.
const (
	SubjectTenantRegistered  = "tenants.registered"
	SubjectTenantUpdated     = "tenants.updated"
	SubjectTenantDeactivated = "tenants.deactivated"
	SubjectAuthLogin         = "auth.login"
	SubjectAuthRefresh       = "auth.refresh"
	SubjectAuthLogout        = "auth.logout"
	SubjectAuthTokenReused   = "auth.token_reused" // possible refresh token theft
	SubjectUserCreated       = "users.created"
)
