package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authHandler "vras/internal/auth/handler"
	authMiddleware "vras/internal/auth/middleware"
	"vras/internal/auth/models"
	catalogHandler "vras/internal/catalog/handler"
	contactHandler "vras/internal/contact/handler"
	platformMiddleware "vras/internal/platform/middleware"
	tenantHandler "vras/internal/tenant/handler"
	trainingHandler "vras/internal/training/handler"
)

// Deps collects the wired handlers the router mounts. Health may be nil in
// tests; everything else is required.
type Deps struct {
	Logger        *slog.Logger
	Authenticator *authMiddleware.Authenticator
	Auth          *authHandler.Handler
	Tenant        *tenantHandler.Handler
	Catalog       *catalogHandler.Handler
	Training      *trainingHandler.Handler
	Contact       *contactHandler.Handler
	Health        http.Handler
}

const requestTimeout = 30 * time.Second

// New assembles the full route tree.
//
// Layout: /api carries the tenant surface (public login plus the
// operator/user group), /api/admin the platform surface (public admin login
// plus the admin group). /healthz and /metrics sit outside /api so probes
// and scrapers skip the API middleware.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(platformMiddleware.Recovery(d.Logger))
	r.Use(platformMiddleware.RequestID)
	r.Use(platformMiddleware.Logger(d.Logger))
	r.Use(platformMiddleware.Metrics)

	if d.Health != nil {
		r.Method(http.MethodGet, "/healthz", d.Health)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(platformMiddleware.Timeout(requestTimeout))

		d.Auth.RegisterPublic(r)
		d.Tenant.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(d.Authenticator.Anonymous)
			d.Contact.Register(r)
		})

		// tenant principals
		r.Group(func(r chi.Router) {
			r.Use(d.Authenticator.RequireAuth)
			r.Use(d.Authenticator.RequireRole(models.RoleOperator, models.RoleUser))

			d.Auth.RegisterSession(r)
			d.Auth.RegisterProfile(r)
			d.Auth.RegisterUsers(r)
			d.Catalog.RegisterTenant(r)
			d.Training.RegisterTenant(r)
		})

		// platform admins
		r.Route("/admin", func(r chi.Router) {
			d.Auth.RegisterPublicAdmin(r)

			r.Group(func(r chi.Router) {
				r.Use(d.Authenticator.RequireAuth)
				r.Use(d.Authenticator.RequireRole(models.RoleAdmin))

				d.Auth.RegisterSession(r)
				d.Tenant.RegisterAdmin(r)
				d.Catalog.RegisterAdmin(r)
			})
		})
	})

	return r
}
