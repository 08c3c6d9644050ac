package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "jusflow"

// Metrics holds all jusflow metric instruments.
type Metrics struct {
	Registrations    metric.Int64Counter
	Logins           metric.Int64Counter
	LoginFailures    metric.Int64Counter
	TokenRefreshes   metric.Int64Counter
	TokenReuses      metric.Int64Counter
	ProvisionSeconds metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Registrations, err = meter.Int64Counter("jusflow.tenants.registered",
		metric.WithDescription("Number of tenants registered"))
	if err != nil {
		return nil, err
	}

	m.Logins, err = meter.Int64Counter("jusflow.auth.logins",
		metric.WithDescription("Number of successful logins"))
	if err != nil {
		return nil, err
	}

	m.LoginFailures, err = meter.Int64Counter("jusflow.auth.login_failures",
		metric.WithDescription("Number of failed logins"))
	if err != nil {
		return nil, err
	}

	m.TokenRefreshes, err = meter.Int64Counter("jusflow.auth.refreshes",
		metric.WithDescription("Number of refresh token rotations"))
	if err != nil {
		return nil, err
	}

	m.TokenReuses, err = meter.Int64Counter("jusflow.auth.token_reuses",
		metric.WithDescription("Number of refresh token reuse detections"))
	if err != nil {
		return nil, err
	}

	m.ProvisionSeconds, err = meter.Float64Histogram("jusflow.provision.duration_seconds",
		metric.WithDescription("Tenant schema provisioning duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
