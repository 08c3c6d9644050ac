package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jusflow/jusflow/internal/domain"
	"github.com/jusflow/jusflow/internal/domain/tenant"
	"github.com/jusflow/jusflow/internal/port/cache"
	"github.com/jusflow/jusflow/internal/port/database"
)

var _ cache.Cache = (*mockCache)(nil)

// mockCache is a TTL-less in-memory cache.
type mockCache struct {
	entries map[string][]byte
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

var _ database.Router = (*mockRouter)(nil)

type mockRouter struct {
	evicted []string
}

func (m *mockRouter) Handle(_ context.Context, _ string) (database.ScopedHandle, error) {
	return nil, domain.ErrNotFound
}

func (m *mockRouter) Evict(tenantID string) {
	m.evicted = append(m.evicted, tenantID)
}

func seedTenant(t *testing.T, store *mockStore, active bool) string {
	t.Helper()
	tn := &tenant.Tenant{
		Name:       "Souza Advocacia",
		AdminEmail: "ana@firm.example",
		PlanType:   tenant.PlanBasic,
		Active:     active,
	}
	if err := store.CreateTenant(context.Background(), tn); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tn.ID
}

func TestTenantService_ListActive(t *testing.T) {
	store := &mockStore{}
	svc := NewTenantService(store, nil, nil, nil, time.Minute)
	ctx := context.Background()

	for i, active := range []bool{true, false, true} {
		tn := &tenant.Tenant{
			Name:       "Firm",
			AdminEmail: string(rune('a'+i)) + "@firm.example",
			PlanType:   tenant.PlanBasic,
			Active:     active,
		}
		if err := store.CreateTenant(ctx, tn); err != nil {
			t.Fatalf("seed tenant %d: %v", i, err)
		}
	}

	tenants, err := svc.ListActive(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tenants) != 2 {
		t.Fatalf("tenants = %d, want 2 (deactivated ones excluded)", len(tenants))
	}
	for _, tn := range tenants {
		if !tn.Active {
			t.Errorf("listed deactivated tenant %s", tn.ID)
		}
	}
}

func TestTenantService_ValidateActiveCachesResult(t *testing.T) {
	store := &mockStore{}
	c := &mockCache{}
	svc := NewTenantService(store, nil, c, nil, time.Minute)
	id := seedTenant(t, store, true)
	ctx := context.Background()

	if err := svc.ValidateActive(ctx, id); err != nil {
		t.Fatalf("first check: %v", err)
	}
	calls := store.getTenantCalls

	for range 5 {
		if err := svc.ValidateActive(ctx, id); err != nil {
			t.Fatalf("cached check: %v", err)
		}
	}
	if store.getTenantCalls != calls {
		t.Errorf("catalog lookups = %d, want %d (served from cache)", store.getTenantCalls, calls)
	}
}

func TestTenantService_ValidateActiveInactive(t *testing.T) {
	store := &mockStore{}
	c := &mockCache{}
	svc := NewTenantService(store, nil, c, nil, time.Minute)
	id := seedTenant(t, store, false)
	ctx := context.Background()

	if err := svc.ValidateActive(ctx, id); !errors.Is(err, domain.ErrTenantInactive) {
		t.Fatalf("err = %v, want ErrTenantInactive", err)
	}

	// The negative result is cached too.
	calls := store.getTenantCalls
	if err := svc.ValidateActive(ctx, id); !errors.Is(err, domain.ErrTenantInactive) {
		t.Fatalf("cached err = %v, want ErrTenantInactive", err)
	}
	if store.getTenantCalls != calls {
		t.Errorf("catalog lookups = %d, want %d", store.getTenantCalls, calls)
	}
}

func TestTenantService_ValidateActiveUnknown(t *testing.T) {
	svc := NewTenantService(&mockStore{}, nil, &mockCache{}, nil, time.Minute)

	err := svc.ValidateActive(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTenantService_UpdateEvictsCachedState(t *testing.T) {
	store := &mockStore{}
	c := &mockCache{}
	router := &mockRouter{}
	svc := NewTenantService(store, router, c, nil, time.Minute)
	id := seedTenant(t, store, true)
	ctx := context.Background()

	// Warm the cache, then deactivate.
	if err := svc.ValidateActive(ctx, id); err != nil {
		t.Fatalf("warm: %v", err)
	}

	inactive := false
	if _, err := svc.Update(ctx, id, tenant.UpdateRequest{Active: &inactive}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(router.evicted) != 1 || router.evicted[0] != id {
		t.Errorf("router evictions = %v, want [%s]", router.evicted, id)
	}

	// The very next check must see the deactivation, not the stale cache.
	if err := svc.ValidateActive(ctx, id); !errors.Is(err, domain.ErrTenantInactive) {
		t.Errorf("post-update check = %v, want ErrTenantInactive", err)
	}
}

func TestTenantService_UpdateValidation(t *testing.T) {
	store := &mockStore{}
	svc := NewTenantService(store, nil, nil, nil, time.Minute)
	id := seedTenant(t, store, true)

	_, err := svc.Update(context.Background(), id, tenant.UpdateRequest{PlanType: "platinum"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestTenantService_ValidateActiveNoCache(t *testing.T) {
	store := &mockStore{}
	svc := NewTenantService(store, nil, nil, nil, time.Minute)
	id := seedTenant(t, store, true)

	// Works without a cache wired, hitting the catalog each time.
	for range 3 {
		if err := svc.ValidateActive(context.Background(), id); err != nil {
			t.Fatalf("check: %v", err)
		}
	}
	if store.getTenantCalls != 3 {
		t.Errorf("catalog lookups = %d, want 3", store.getTenantCalls)
	}
}
