// Package service contains the application services wiring domain logic to ports.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/jusflow/jusflow/internal/adapter/otel"
	"github.com/jusflow/jusflow/internal/config"
	"github.com/jusflow/jusflow/internal/domain"
	"github.com/jusflow/jusflow/internal/domain/tenant"
	"github.com/jusflow/jusflow/internal/domain/user"
	"github.com/jusflow/jusflow/internal/port/database"
	"github.com/jusflow/jusflow/internal/port/messagequeue"
)

const (
	tokenIssuer   = "jusflow-core"
	tokenAudience = "jusflow"
)

// RegisterResult is returned after a successful firm registration.
type RegisterResult struct {
	Tenant *tenant.Tenant  `json:"tenant"`
	User   *user.User      `json:"user"`
	Tokens *user.TokenPair `json:"tokens"`
}

// AuthService handles registration, login, token issuance, and rotation.
type AuthService struct {
	store       database.Store
	provisioner database.Provisioner
	queue       messagequeue.Queue
	metrics     *otel.Metrics
	cfg         *config.Auth
	secret      []byte
}

// NewAuthService creates a new authentication service. queue and metrics
// may be nil; events and instruments are then skipped.
func NewAuthService(store database.Store, provisioner database.Provisioner, queue messagequeue.Queue, metrics *otel.Metrics, cfg *config.Auth) *AuthService {
	return &AuthService{
		store:       store,
		provisioner: provisioner,
		queue:       queue,
		metrics:     metrics,
		cfg:         cfg,
		secret:      []byte(cfg.AccessSecret),
	}
}

// Register creates a tenant, provisions its schema, and creates the
// registering user as the managerial admin. If provisioning or user
// creation fails, the tenant row is compensated away so the admin email
// can be retried.
func (s *AuthService) Register(ctx context.Context, req *tenant.RegisterRequest) (*RegisterResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	t := &tenant.Tenant{
		Name:          req.OrganizationName,
		AdminEmail:    req.Email,
		LicenseNumber: req.LicenseNumber,
		PlanType:      tenant.PlanBasic,
		MaxUsers:      5,
		MaxStorageGB:  10,
		Active:        true,
	}
	if err := s.store.CreateTenant(ctx, t); err != nil {
		return nil, err
	}

	u := &user.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Tier:         user.TierManagerial,
		Active:       true,
	}

	start := time.Now()
	err = s.provisioner.Provision(ctx, t.ID)
	if err == nil {
		err = s.store.CreateUser(ctx, t.ID, u)
	}
	if err == nil {
		err = s.store.AddDirectoryEntry(ctx, u.Email, t.ID, u.ID)
	}
	if err != nil {
		s.compensateRegistration(ctx, t)
		return nil, fmt.Errorf("register tenant: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Registrations.Add(ctx, 1)
		s.metrics.ProvisionSeconds.Record(ctx, time.Since(start).Seconds())
	}

	tokens, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messagequeue.SubjectTenantRegistered, map[string]string{
		"tenant_id": t.ID,
		"name":      t.Name,
	})
	slog.Info("tenant registered", "tenant_id", t.ID, "schema", t.SchemaName())

	return &RegisterResult{Tenant: t, User: u, Tokens: tokens}, nil
}

// compensateRegistration undoes the tenant row and any partial state after
// a failed registration. The provisioner is idempotent, so a later retry
// with the same email starts clean.
func (s *AuthService) compensateRegistration(ctx context.Context, t *tenant.Tenant) {
	if err := s.store.RemoveDirectoryEntry(ctx, t.AdminEmail, t.ID); err != nil {
		slog.Warn("registration compensation: directory entry", "tenant_id", t.ID, "error", err)
	}
	if err := s.provisioner.Deprovision(ctx, t.ID); err != nil {
		slog.Warn("registration compensation: deprovision", "tenant_id", t.ID, "error", err)
	}
	if err := s.store.DeleteTenant(ctx, t.ID); err != nil {
		slog.Warn("registration compensation: tenant row", "tenant_id", t.ID, "error", err)
	}
}

// Login authenticates a user. The directory resolves the email to candidate
// tenants; the password is verified against each in order and the first
// match wins. Unknown email and wrong password are indistinguishable to the
// caller.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (*RegisterResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}

	entries, err := s.store.LookupDirectory(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup directory: %w", err)
	}

	for _, e := range entries {
		u, err := s.store.GetUserByEmail(ctx, e.TenantID, req.Email)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			continue
		}
		if !u.Active {
			continue
		}

		t, err := s.store.GetTenant(ctx, e.TenantID)
		if err != nil {
			return nil, err
		}
		if !t.Active {
			return nil, fmt.Errorf("login: %w", domain.ErrTenantInactive)
		}

		tokens, err := s.issueTokens(ctx, u)
		if err != nil {
			return nil, err
		}

		if s.metrics != nil {
			s.metrics.Logins.Add(ctx, 1)
		}
		s.publish(ctx, messagequeue.SubjectAuthLogin, map[string]string{
			"tenant_id": t.ID,
			"user_id":   u.ID,
		})
		return &RegisterResult{Tenant: t, User: u, Tokens: tokens}, nil
	}

	if s.metrics != nil {
		s.metrics.LoginFailures.Add(ctx, 1)
	}
	return nil, domain.ErrInvalidCredentials
}

// Refresh rotates a refresh token and issues a new token pair. Reuse of an
// already-rotated token revokes every token of that user.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*user.TokenPair, error) {
	tokenHash := hashSHA256(rawToken)

	rt, err := s.store.RotateRefreshToken(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrTokenReused) && rt != nil {
			s.revokeFamily(ctx, rt)
		}
		return nil, err
	}

	if time.Now().After(rt.ExpiresAt) {
		return nil, domain.ErrTokenExpired
	}

	u, err := s.store.GetUser(ctx, rt.TenantID, rt.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !u.Active {
		return nil, domain.ErrInvalidCredentials
	}

	t, err := s.store.GetTenant(ctx, rt.TenantID)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, fmt.Errorf("refresh: %w", domain.ErrTenantInactive)
	}

	tokens, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TokenRefreshes.Add(ctx, 1)
	}
	s.publish(ctx, messagequeue.SubjectAuthRefresh, map[string]string{
		"tenant_id": rt.TenantID,
		"user_id":   rt.UserID,
	})
	return tokens, nil
}

// revokeFamily kills every refresh token of the user owning the reused token.
func (s *AuthService) revokeFamily(ctx context.Context, rt *user.RefreshToken) {
	if s.metrics != nil {
		s.metrics.TokenReuses.Add(ctx, 1)
	}
	if err := s.store.RevokeAllForUser(ctx, rt.TenantID, rt.UserID); err != nil {
		slog.Error("token reuse: family revocation failed", "user_id", rt.UserID, "error", err)
		return
	}
	slog.Warn("refresh token reuse detected, token family revoked",
		"tenant_id", rt.TenantID, "user_id", rt.UserID)
	s.publish(ctx, messagequeue.SubjectAuthTokenReused, map[string]string{
		"tenant_id": rt.TenantID,
		"user_id":   rt.UserID,
	})
}

// Logout revokes every refresh token of the presented token's owner, so all
// of the user's sessions end together at the next access-token expiry.
// Idempotent: an unknown token still succeeds with nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}

	rt, err := s.store.RotateRefreshToken(ctx, hashSHA256(rawToken))
	if err != nil && !errors.Is(err, domain.ErrTokenReused) {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return nil
		}
		return err
	}

	if err := s.store.RevokeAllForUser(ctx, rt.TenantID, rt.UserID); err != nil {
		return err
	}
	s.publish(ctx, messagequeue.SubjectAuthLogout, map[string]string{
		"tenant_id": rt.TenantID,
		"user_id":   rt.UserID,
	})
	return nil
}

// VerifyAccess parses and verifies a bearer token, distinguishing expiry
// from every other failure mode.
func (s *AuthService) VerifyAccess(tokenStr string) (*user.Claims, error) {
	var claims user.Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%v: %w", err, domain.ErrTokenInvalid)
	}
	return &claims, nil
}

// CreateUser adds a user to an existing tenant (managerial callers only,
// enforced at the gate).
func (s *AuthService) CreateUser(ctx context.Context, tenantID string, req *user.CreateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Tier:         req.Tier,
		Active:       true,
	}
	if err := s.store.CreateUser(ctx, tenantID, u); err != nil {
		return nil, err
	}
	if err := s.store.AddDirectoryEntry(ctx, u.Email, tenantID, u.ID); err != nil {
		return nil, fmt.Errorf("directory entry: %w", err)
	}

	s.publish(ctx, messagequeue.SubjectUserCreated, map[string]string{
		"tenant_id": tenantID,
		"user_id":   u.ID,
	})
	return u, nil
}

// GetUser returns a user inside a tenant namespace.
func (s *AuthService) GetUser(ctx context.Context, tenantID, userID string) (*user.User, error) {
	return s.store.GetUser(ctx, tenantID, userID)
}

// UpdateUser changes a user's name, tier, or active flag. Deactivation
// revokes the user's refresh tokens so the account goes dark at the next
// access-token expiry.
func (s *AuthService) UpdateUser(ctx context.Context, tenantID, userID string, req user.UpdateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}

	u, err := s.store.UpdateUser(ctx, tenantID, userID, req)
	if err != nil {
		return nil, err
	}

	if req.Active != nil && !*req.Active {
		if err := s.store.RevokeAllForUser(ctx, tenantID, userID); err != nil {
			slog.Warn("failed to revoke tokens of deactivated user", "user_id", userID, "error", err)
		}
	}
	return u, nil
}

// ListUsers returns all users of a tenant.
func (s *AuthService) ListUsers(ctx context.Context, tenantID string) ([]user.User, error) {
	return s.store.ListUsers(ctx, tenantID)
}

// StartTokenCleanup starts a background goroutine that periodically purges
// expired refresh tokens. It stops when ctx is cancelled.
func (s *AuthService) StartTokenCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.store.DeleteExpiredRefreshTokens(ctx)
				if err != nil {
					slog.Warn("failed to purge expired refresh tokens", "error", err)
				} else if n > 0 {
					slog.Info("purged expired refresh tokens", "count", n)
				}
			}
		}
	}()
}

// issueTokens signs a fresh access token and persists a new refresh token.
func (s *AuthService) issueTokens(ctx context.Context, u *user.User) (*user.TokenPair, error) {
	now := time.Now()
	claims := user.Claims{
		UserID:   u.ID,
		TenantID: u.TenantID,
		Tier:     u.Tier,
		Email:    u.Email,
		Name:     u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenExpiry)),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}

	rawRefresh, err := generateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	rt := &user.RefreshToken{
		TenantID:  u.TenantID,
		UserID:    u.ID,
		TokenHash: hashSHA256(rawRefresh),
		ExpiresAt: now.Add(s.cfg.RefreshTokenExpiry),
	}
	if err := s.store.CreateRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &user.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		ExpiresIn:    int(s.cfg.AccessTokenExpiry.Seconds()),
		User:         *u,
	}, nil
}

// publish sends an event if a queue is configured. Failures are logged,
// never surfaced to the caller.
func (s *AuthService) publish(ctx context.Context, subject string, payload map[string]string) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("event publish failed", "subject", subject, "error", err)
	}
}

// --- Helpers ---

func hashSHA256(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

func generateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
