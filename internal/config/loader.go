package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "jusflow.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "JUSFLOW_PORT")
	setString(&cfg.Server.CORSOrigin, "JUSFLOW_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "JUSFLOW_REQUEST_TIMEOUT")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "JUSFLOW_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "JUSFLOW_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "JUSFLOW_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "JUSFLOW_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.ConnectTimeout, "JUSFLOW_PG_CONNECT_TIMEOUT")
	setDuration(&cfg.Postgres.HealthCheck, "JUSFLOW_PG_HEALTH_CHECK")

	setString(&cfg.Auth.AccessSecret, "JUSFLOW_JWT_ACCESS_SECRET")
	setDuration(&cfg.Auth.AccessTokenExpiry, "JUSFLOW_ACCESS_TOKEN_EXPIRY")
	setDuration(&cfg.Auth.RefreshTokenExpiry, "JUSFLOW_REFRESH_TOKEN_EXPIRY")
	setInt(&cfg.Auth.BcryptCost, "JUSFLOW_BCRYPT_COST")

	setString(&cfg.NATS.URL, "NATS_URL")

	setInt64(&cfg.Cache.MaxCostBytes, "JUSFLOW_CACHE_MAX_COST_BYTES")
	setDuration(&cfg.Cache.TenantTTL, "JUSFLOW_CACHE_TENANT_TTL")

	setString(&cfg.Otel.Endpoint, "JUSFLOW_OTEL_ENDPOINT")

	setString(&cfg.Logging.Level, "JUSFLOW_LOG_LEVEL")
	setString(&cfg.Logging.Service, "JUSFLOW_LOG_SERVICE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Auth.AccessSecret == "" {
		return errors.New("auth.access_secret is required")
	}
	if cfg.Auth.AccessTokenExpiry <= 0 {
		return errors.New("auth.access_token_expiry must be positive")
	}
	if cfg.Auth.RefreshTokenExpiry <= cfg.Auth.AccessTokenExpiry {
		return errors.New("auth.refresh_token_expiry must exceed auth.access_token_expiry")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
