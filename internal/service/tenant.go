package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jusflow/jusflow/internal/domain"
	"github.com/jusflow/jusflow/internal/domain/tenant"
	"github.com/jusflow/jusflow/internal/port/cache"
	"github.com/jusflow/jusflow/internal/port/database"
	"github.com/jusflow/jusflow/internal/port/messagequeue"
	"golang.org/x/sync/singleflight"
)

// TenantService exposes the tenant registry and a cached activity check
// used by the access gate on every authenticated request.
type TenantService struct {
	store  database.Store
	router database.Router
	cache  cache.Cache
	queue  messagequeue.Queue
	ttl    time.Duration
	group  singleflight.Group
}

// NewTenantService creates a TenantService. cache and queue may be nil.
func NewTenantService(store database.Store, router database.Router, c cache.Cache, queue messagequeue.Queue, ttl time.Duration) *TenantService {
	return &TenantService{
		store:  store,
		router: router,
		cache:  c,
		queue:  queue,
		ttl:    ttl,
	}
}

// Get returns the registry record for a tenant.
func (s *TenantService) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

// ListActive returns the active tenants in the registry. Deactivated
// tenants stay in the catalog for reactivation but are not listed.
func (s *TenantService) ListActive(ctx context.Context) ([]tenant.Tenant, error) {
	all, err := s.store.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]tenant.Tenant, 0, len(all))
	for _, t := range all {
		if t.Active {
			active = append(active, t)
		}
	}
	return active, nil
}

// Update modifies a tenant's registry record. Deactivation evicts the
// tenant's cached state so in-flight sessions lose access promptly.
func (s *TenantService) Update(ctx context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}

	t, err := s.store.UpdateTenant(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.evict(ctx, id)
	if !t.Active {
		s.publishEvent(ctx, messagequeue.SubjectTenantDeactivated, id)
	} else {
		s.publishEvent(ctx, messagequeue.SubjectTenantUpdated, id)
	}
	return t, nil
}

// ValidateActive reports whether a tenant exists and is active, serving
// repeated checks from the in-process cache. Concurrent misses for the same
// tenant collapse into one catalog lookup.
func (s *TenantService) ValidateActive(ctx context.Context, id string) error {
	if s.cache != nil {
		if data, ok, _ := s.cache.Get(ctx, activeKey(id)); ok {
			if string(data) == "1" {
				return nil
			}
			return fmt.Errorf("tenant %s: %w", id, domain.ErrTenantInactive)
		}
	}

	_, err, _ := s.group.Do(id, func() (any, error) {
		t, err := s.store.GetTenant(ctx, id)
		if err != nil {
			return nil, err
		}
		active := "0"
		if t.Active {
			active = "1"
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, activeKey(id), []byte(active), s.ttl)
		}
		if !t.Active {
			return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrTenantInactive)
		}
		return nil, nil
	})
	return err
}

func (s *TenantService) evict(ctx context.Context, id string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, activeKey(id))
	}
	if s.router != nil {
		s.router.Evict(id)
	}
}

func (s *TenantService) publishEvent(ctx context.Context, subject, tenantID string) {
	if s.queue == nil {
		return
	}
	data, _ := json.Marshal(map[string]string{"tenant_id": tenantID})
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("event publish failed", "subject", subject, "error", err)
	}
}

func activeKey(id string) string {
	return "tenant:active:" + id
}
