package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jusflow/jusflow/internal/adapter/otel"
	"github.com/jusflow/jusflow/internal/config"
	"github.com/jusflow/jusflow/internal/domain/audit"
	"github.com/jusflow/jusflow/internal/domain/user"
	"github.com/jusflow/jusflow/internal/middleware"
	"github.com/jusflow/jusflow/internal/service"
)

const defaultBodyLimit = 1 << 20 // 1 MiB

// restrictedEntities require at least the intermediate tier; every other
// allow-listed entity is open to any authenticated tier.
var restrictedEntities = map[string]bool{
	"cash_flow":            true,
	"billing_documents":    true,
	"billing_items":        true,
	"receivables_invoices": true,
}

// AuditLister is the read side of the audit trail.
type AuditLister interface {
	ListAuditEntries(ctx context.Context, tenantID string, f audit.Filter) ([]audit.Entry, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	auth      *service.AuthService
	tenants   *service.TenantService
	audit     AuditLister
	bodyLimit int64
}

// NewServer creates the HTTP server surface.
func NewServer(auth *service.AuthService, tenants *service.TenantService, audit AuditLister) *Server {
	return &Server{
		auth:      auth,
		tenants:   tenants,
		audit:     audit,
		bodyLimit: defaultBodyLimit,
	}
}

// NewRouter builds the chi router with the full middleware chain and all
// routes mounted.
func (s *Server) NewRouter(cfg config.Server, gate func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(SecurityHeaders)
	r.Use(CORS(cfg.CORSOrigin))
	r.Use(otel.HTTPMiddleware("jusflow"))

	r.Get("/health", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(gate)
			r.Post("/logout", s.handleLogout)
			r.Get("/me", s.handleMe)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(gate)

		r.With(middleware.RequireTier(user.TierManagerial)).
			Get("/tenant", s.handleGetTenant)
		r.With(middleware.RequireTier(user.TierManagerial)).
			Patch("/tenant", s.handleUpdateTenant)

		r.Get("/users", s.handleListUsers)
		r.With(middleware.RequireTier(user.TierManagerial)).
			Post("/users", s.handleCreateUser)
		r.With(middleware.RequireTier(user.TierManagerial)).
			Patch("/users/{id}", s.handleUpdateUser)

		r.With(middleware.RequireTier(user.TierManagerial)).
			Get("/audit", s.handleListAudit)

		r.Route("/{entity}", func(r chi.Router) {
			r.Use(s.entityTierGate)
			r.Get("/", s.handleListEntities)
			r.Post("/", s.handleCreateEntity)
			r.Get("/{id}", s.handleGetEntity)
			r.Put("/{id}", s.handleUpdateEntity)
			r.Delete("/{id}", s.handleDeleteEntity)
		})
	})

	return r
}

// entityTierGate applies the intermediate-tier requirement to financial
// entities and passes everything else through.
func (s *Server) entityTierGate(next http.Handler) http.Handler {
	restricted := middleware.RequireTier(user.TierIntermediate)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if restrictedEntities[urlParam(r, "entity")] {
			restricted.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
