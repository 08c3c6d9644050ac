package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jusflow/jusflow/internal/config"
	"github.com/jusflow/jusflow/internal/domain"
	"github.com/jusflow/jusflow/internal/domain/audit"
	"github.com/jusflow/jusflow/internal/domain/tenant"
	"github.com/jusflow/jusflow/internal/domain/user"
	"github.com/jusflow/jusflow/internal/port/database"
)

// Ensure mockStore implements database.Store at compile time.
var _ database.Store = (*mockStore)(nil)

// mockStore is a minimal in-memory implementation of database.Store for testing.
type mockStore struct {
	tenants   []tenant.Tenant
	directory []database.DirectoryEntry
	users     map[string][]user.User       // tenantID -> users
	tokens    map[string]user.RefreshToken // tokenHash -> token

	getTenantCalls int

	// Error hooks. Set these to inject failures.
	createTenantErr error
	createUserErr   error
	directoryErr    error
}

func (m *mockStore) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	if m.createTenantErr != nil {
		return m.createTenantErr
	}
	for _, existing := range m.tenants {
		if existing.AdminEmail == t.AdminEmail {
			return domain.ErrDuplicateAdminEmail
		}
	}
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.tenants = append(m.tenants, *t)
	return nil
}

func (m *mockStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	m.getTenantCalls++
	for i := range m.tenants {
		if m.tenants[i].ID == id {
			t := m.tenants[i]
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	return m.tenants, nil
}

func (m *mockStore) UpdateTenant(_ context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	for i := range m.tenants {
		if m.tenants[i].ID != id {
			continue
		}
		if req.Name != "" {
			m.tenants[i].Name = req.Name
		}
		if req.PlanType != "" {
			m.tenants[i].PlanType = req.PlanType
		}
		if req.MaxUsers != nil {
			m.tenants[i].MaxUsers = *req.MaxUsers
		}
		if req.MaxStorageGB != nil {
			m.tenants[i].MaxStorageGB = *req.MaxStorageGB
		}
		if req.Active != nil {
			m.tenants[i].Active = *req.Active
		}
		t := m.tenants[i]
		return &t, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) DeleteTenant(_ context.Context, id string) error {
	for i := range m.tenants {
		if m.tenants[i].ID == id {
			m.tenants = append(m.tenants[:i], m.tenants[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) AddDirectoryEntry(_ context.Context, email, tenantID, userID string) error {
	if m.directoryErr != nil {
		return m.directoryErr
	}
	m.directory = append(m.directory, database.DirectoryEntry{Email: email, TenantID: tenantID, UserID: userID})
	return nil
}

func (m *mockStore) LookupDirectory(_ context.Context, email string) ([]database.DirectoryEntry, error) {
	var out []database.DirectoryEntry
	for _, e := range m.directory {
		if e.Email == email {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStore) RemoveDirectoryEntry(_ context.Context, email, tenantID string) error {
	for i, e := range m.directory {
		if e.Email == email && e.TenantID == tenantID {
			m.directory = append(m.directory[:i], m.directory[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockStore) CreateUser(_ context.Context, tenantID string, u *user.User) error {
	if m.createUserErr != nil {
		return m.createUserErr
	}
	if m.users == nil {
		m.users = make(map[string][]user.User)
	}
	u.ID = uuid.NewString()
	u.TenantID = tenantID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[tenantID] = append(m.users[tenantID], *u)
	return nil
}

func (m *mockStore) GetUser(_ context.Context, tenantID, userID string) (*user.User, error) {
	for i := range m.users[tenantID] {
		if m.users[tenantID][i].ID == userID {
			u := m.users[tenantID][i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetUserByEmail(_ context.Context, tenantID, email string) (*user.User, error) {
	for i := range m.users[tenantID] {
		if m.users[tenantID][i].Email == email {
			u := m.users[tenantID][i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListUsers(_ context.Context, tenantID string) ([]user.User, error) {
	return m.users[tenantID], nil
}

func (m *mockStore) UpdateUser(_ context.Context, tenantID, userID string, req user.UpdateRequest) (*user.User, error) {
	for i := range m.users[tenantID] {
		if m.users[tenantID][i].ID != userID {
			continue
		}
		if req.Name != "" {
			m.users[tenantID][i].Name = req.Name
		}
		if req.Tier != "" {
			m.users[tenantID][i].Tier = req.Tier
		}
		if req.Active != nil {
			m.users[tenantID][i].Active = *req.Active
		}
		u := m.users[tenantID][i]
		return &u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateRefreshToken(_ context.Context, rt *user.RefreshToken) error {
	if m.tokens == nil {
		m.tokens = make(map[string]user.RefreshToken)
	}
	rt.ID = uuid.NewString()
	rt.Active = true
	rt.CreatedAt = time.Now()
	m.tokens[rt.TokenHash] = *rt
	return nil
}

func (m *mockStore) RotateRefreshToken(_ context.Context, tokenHash string) (*user.RefreshToken, error) {
	rt, ok := m.tokens[tokenHash]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	if !rt.Active {
		return &rt, domain.ErrTokenReused
	}
	rt.Active = false
	m.tokens[tokenHash] = rt
	return &rt, nil
}

func (m *mockStore) RevokeAllForUser(_ context.Context, tenantID, userID string) error {
	for hash, rt := range m.tokens {
		if rt.TenantID == tenantID && rt.UserID == userID {
			rt.Active = false
			m.tokens[hash] = rt
		}
	}
	return nil
}

func (m *mockStore) DeleteExpiredRefreshTokens(_ context.Context) (int64, error) {
	var n int64
	for hash, rt := range m.tokens {
		if time.Now().After(rt.ExpiresAt) {
			delete(m.tokens, hash)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) ListAuditEntries(_ context.Context, _ string, _ audit.Filter) ([]audit.Entry, error) {
	return nil, nil
}

// mockProvisioner records schema lifecycle calls.
type mockProvisioner struct {
	provisioned   []string
	deprovisioned []string
	provisionErr  error
}

func (m *mockProvisioner) Provision(_ context.Context, tenantID string) error {
	if m.provisionErr != nil {
		return m.provisionErr
	}
	m.provisioned = append(m.provisioned, tenantID)
	return nil
}

func (m *mockProvisioner) Deprovision(_ context.Context, tenantID string) error {
	m.deprovisioned = append(m.deprovisioned, tenantID)
	return nil
}

func newTestAuthService(store *mockStore, prov *mockProvisioner) *AuthService {
	cfg := config.Auth{
		AccessSecret:       "test-secret-key-must-be-long-enough",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		BcryptCost:         bcrypt.MinCost, // low cost for fast tests
	}
	return NewAuthService(store, prov, nil, nil, &cfg)
}

func register(t *testing.T, svc *AuthService) *RegisterResult {
	t.Helper()
	res, err := svc.Register(context.Background(), &tenant.RegisterRequest{
		Name:             "Ana Souza",
		Email:            "ana@firm.example",
		Password:         "Password123",
		OrganizationName: "Souza Advocacia",
		LicenseNumber:    "SP-12345",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res
}

func TestAuthService_Register(t *testing.T) {
	store := &mockStore{}
	prov := &mockProvisioner{}
	svc := newTestAuthService(store, prov)

	res := register(t, svc)

	if res.Tenant.Name != "Souza Advocacia" {
		t.Errorf("tenant name = %q, want Souza Advocacia", res.Tenant.Name)
	}
	if !res.Tenant.Active {
		t.Error("new tenant should be active")
	}
	if res.User.Tier != user.TierManagerial {
		t.Errorf("registering user tier = %q, want managerial", res.User.Tier)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Error("token pair incomplete")
	}
	if len(prov.provisioned) != 1 || prov.provisioned[0] != res.Tenant.ID {
		t.Errorf("provisioned = %v, want [%s]", prov.provisioned, res.Tenant.ID)
	}
	if len(store.directory) != 1 {
		t.Fatalf("directory entries = %d, want 1", len(store.directory))
	}

	claims, err := svc.VerifyAccess(res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.TenantID != res.Tenant.ID {
		t.Errorf("claims tenant = %q, want %q", claims.TenantID, res.Tenant.ID)
	}
	if claims.Tier != user.TierManagerial {
		t.Errorf("claims tier = %q, want managerial", claims.Tier)
	}
}

func TestAuthService_RegisterCompensatesOnFailure(t *testing.T) {
	store := &mockStore{}
	prov := &mockProvisioner{provisionErr: errors.New("schema creation failed")}
	svc := newTestAuthService(store, prov)

	_, err := svc.Register(context.Background(), &tenant.RegisterRequest{
		Name:             "Ana Souza",
		Email:            "ana@firm.example",
		Password:         "Password123",
		OrganizationName: "Souza Advocacia",
	})
	if err == nil {
		t.Fatal("expected error when provisioning fails")
	}

	if len(store.tenants) != 0 {
		t.Errorf("tenant row not compensated, %d rows remain", len(store.tenants))
	}
	if len(store.directory) != 0 {
		t.Errorf("directory not compensated, %d entries remain", len(store.directory))
	}
	if len(prov.deprovisioned) != 1 {
		t.Errorf("deprovision calls = %d, want 1", len(prov.deprovisioned))
	}

	// A retry with the same email must succeed.
	prov.provisionErr = nil
	if _, err := svc.Register(context.Background(), &tenant.RegisterRequest{
		Name:             "Ana Souza",
		Email:            "ana@firm.example",
		Password:         "Password123",
		OrganizationName: "Souza Advocacia",
	}); err != nil {
		t.Fatalf("retry after compensation: %v", err)
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store, &mockProvisioner{})

	register(t, svc)

	_, err := svc.Register(context.Background(), &tenant.RegisterRequest{
		Name:             "Other",
		Email:            "ana@firm.example",
		Password:         "Password123",
		OrganizationName: "Other Firm",
	})
	if !errors.Is(err, domain.ErrDuplicateAdminEmail) {
		t.Errorf("err = %v, want ErrDuplicateAdminEmail", err)
	}
}

func TestAuthService_Login(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store, &mockProvisioner{})
	reg := register(t, svc)

	res, err := svc.Login(context.Background(), user.LoginRequest{
		Email:    "ana@firm.example",
		Password: "Password123",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Tenant.ID != reg.Tenant.ID {
		t.Errorf("resolved tenant = %q, want %q", res.Tenant.ID, reg.Tenant.ID)
	}
	if res.Tokens.AccessToken == "" {
		t.Error("access token is empty")
	}
}

func TestAuthService_LoginIndistinguishableFailures(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store, &mockProvisioner{})
	register(t, svc)

	// Wrong password and unknown email must yield the same error.
	_, errWrong := svc.Login(context.Background(), user.LoginRequest{
		Email:    "ana@firm.example",
		Password: "not-the-password",
	})
	_, errUnknown := svc.Login(context.Background(), user.LoginRequest{
		Email:    "nobody@firm.example",
		Password: "Password123",
	})

	if !errors.Is(errWrong, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", errWrong)
	}
	if !errors.Is(errUnknown, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Errorf("failure messages differ: %q vs %q", errWrong, errUnknown)
	}
}

func TestAuthService_LoginInactiveTenant(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store, &mockProvisioner{})
	reg := register(t, svc)

	inactive := false
	if _, err := store.UpdateTenant(context.Background(), reg.Tenant.ID, tenant.UpdateRequest{Active: &inactive}); err != nil {
		t.Fatalf("deactivate tenant: %v", err)
	}

	_, err := svc.Login(context.Background(), user.LoginRequest{
		Email:    "ana@firm.example",
		Password: "Password123",
	})
	if !errors.Is(err, domain.ErrTenantInactive) {
		t.Errorf("err = %v, want ErrTenantInactive", err)
	}
}

func TestAuthService_RefreshRotation(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store, &mockProvisioner{})
	reg := register(t, svc)
	ctx := context.Background()

	first := reg.Tokens.RefreshToken

	pair, err := svc.Refresh(ctx, first)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.RefreshToken == first {
		t.Error("rotation returned the same refresh token")
	}

	// Replaying the consumed token is reuse and revokes the whole family.
	_, err = svc.Refresh(ctx, first)
	if !errors.Is(err, domain.ErrTokenReused) {
		t.Fatalf("replay err = %v, want ErrTokenReused", err)
	}

	for hash, rt := range store.tokens {
		if rt.Active {
			t.Errorf("token %s still active after family revocation", hash[:8])
		}
	}

	// The freshly issued token died with the family.
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	if !errors.Is(err, domain.ErrTokenReused) {
		t.Errorf("revoked token err = %v, want ErrTokenReused", err)
	}
}

func TestAuthService_RefreshUnknownToken(t *testing.T) {
	svc := newTestAuthService(&mockStore{}, &mockProvisioner{})

	_, err := svc.Refresh(context.Background(), "deadbeef")
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestAuthService_RefreshExpiredToken(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store, &mockProvisioner{})
	reg := register(t, svc)

	// Backdate the stored token past its window.
	for hash, rt := range store.tokens {
		rt.ExpiresAt = time.Now().Add(-time.Hour)
		store.tokens[hash] = rt
	}

	_, err := svc.Refresh(context.Background(), reg.Tokens.RefreshToken)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestAuthService_VerifyAccessExpired(t *testing.T) {
	store := &mockStore{}
	cfg := config.Auth{
		AccessSecret:       "test-secret-key-must-be-long-enough",
		AccessTokenExpiry:  -time.Minute, // issue already-expired tokens
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		BcryptCost:         bcrypt.MinCost,
	}
	svc := NewAuthService(store, &mockProvisioner{}, nil, nil, &cfg)

	res := register(t, svc)

	_, err := svc.VerifyAccess(res.Tokens.AccessToken)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestAuthService_VerifyAccessInvalid(t *testing.T) {
	svc := newTestAuthService(&mockStore{}, &mockProvisioner{})

	for _, tok := range []string{"garbage.token.here", "not-even-three-parts", ""} {
		if _, err := svc.VerifyAccess(tok); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("VerifyAccess(%q) = %v, want ErrTokenInvalid", tok, err)
		}
	}
}

func TestAuthService_VerifyAccessWrongSecret(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store, &mockProvisioner{})
	res := register(t, svc)

	other := config.Auth{
		AccessSecret:       "a-completely-different-signing-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		BcryptCost:         bcrypt.MinCost,
	}
	otherSvc := NewAuthService(store, &mockProvisioner{}, nil, nil, &other)

	if _, err := otherSvc.VerifyAccess(res.Tokens.AccessToken); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store, &mockProvisioner{})
	reg := register(t, svc)
	ctx := context.Background()

	// A second device signs in before the first one logs out.
	second, err := svc.Login(ctx, user.LoginRequest{
		Email:    "ana@firm.example",
		Password: "Password123",
	})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if err := svc.Logout(ctx, reg.Tokens.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}

	// Logout ends every session of the user, not just the presented one.
	if _, err := svc.Refresh(ctx, reg.Tokens.RefreshToken); !errors.Is(err, domain.ErrTokenReused) {
		t.Errorf("refresh after logout = %v, want ErrTokenReused", err)
	}
	if _, err := svc.Refresh(ctx, second.Tokens.RefreshToken); !errors.Is(err, domain.ErrTokenReused) {
		t.Errorf("sibling refresh after logout = %v, want ErrTokenReused", err)
	}

	// Logout is idempotent, including with no token at all.
	if err := svc.Logout(ctx, reg.Tokens.RefreshToken); err != nil {
		t.Errorf("second logout: %v", err)
	}
	if err := svc.Logout(ctx, ""); err != nil {
		t.Errorf("empty logout: %v", err)
	}
	if err := svc.Logout(ctx, "never-issued"); err != nil {
		t.Errorf("unknown-token logout: %v", err)
	}
}

func TestAuthService_CreateUser(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store, &mockProvisioner{})
	reg := register(t, svc)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, reg.Tenant.ID, &user.CreateRequest{
		Email:    "joao@firm.example",
		Name:     "Joao Lima",
		Password: "Password123",
		Tier:     user.TierBasic,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Tier != user.TierBasic {
		t.Errorf("tier = %q, want basic", u.Tier)
	}

	// The new user can log in through the directory.
	res, err := svc.Login(ctx, user.LoginRequest{Email: "joao@firm.example", Password: "Password123"})
	if err != nil {
		t.Fatalf("login as created user: %v", err)
	}
	if res.User.ID != u.ID {
		t.Errorf("logged-in user = %q, want %q", res.User.ID, u.ID)
	}
}

func TestAuthService_UpdateUserDeactivation(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store, &mockProvisioner{})
	reg := register(t, svc)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, reg.Tenant.ID, &user.CreateRequest{
		Email:    "joao@firm.example",
		Name:     "Joao Lima",
		Password: "Password123",
		Tier:     user.TierBasic,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	res, err := svc.Login(ctx, user.LoginRequest{Email: "joao@firm.example", Password: "Password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	inactive := false
	updated, err := svc.UpdateUser(ctx, reg.Tenant.ID, u.ID, user.UpdateRequest{Active: &inactive})
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Active {
		t.Error("user still active after deactivation")
	}

	// The deactivated user's refresh tokens were revoked.
	if _, err := svc.Refresh(ctx, res.Tokens.RefreshToken); !errors.Is(err, domain.ErrTokenReused) {
		t.Errorf("refresh after deactivation = %v, want ErrTokenReused", err)
	}

	// And they can no longer log in.
	if _, err := svc.Login(ctx, user.LoginRequest{Email: "joao@firm.example", Password: "Password123"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("login after deactivation = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthService_CreateUserValidation(t *testing.T) {
	svc := newTestAuthService(&mockStore{}, &mockProvisioner{})

	_, err := svc.CreateUser(context.Background(), "tid", &user.CreateRequest{
		Email:    "not-an-email",
		Name:     "X",
		Password: "Password123",
		Tier:     user.TierBasic,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}

	_, err = svc.CreateUser(context.Background(), "tid", &user.CreateRequest{
		Email:    "ok@firm.example",
		Name:     "X",
		Password: "Password123",
		Tier:     "superuser",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown tier err = %v, want ErrValidation", err)
	}
}
