package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/clinicadesk/clinica_backend/config"
	"github.com/clinicadesk/clinica_backend/internal/api/http/handler"
	"github.com/clinicadesk/clinica_backend/internal/api/http/middleware"
	"github.com/clinicadesk/clinica_backend/internal/repo"
	"github.com/clinicadesk/clinica_backend/internal/service/directory"
	"github.com/clinicadesk/clinica_backend/internal/service/scheduling"
	"github.com/clinicadesk/clinica_backend/internal/service/visit"
	"github.com/clinicadesk/clinica_backend/pkg/authorize"
	"github.com/clinicadesk/clinica_backend/pkg/observability"
	pasetotoken "github.com/clinicadesk/clinica_backend/pkg/paseto"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg           *config.Config
	Redis         *redis.Client
	DB            *repo.Client
	Auth          authorize.IAuthorization
	PasetoMgr     *pasetotoken.Manager
	SchedulingSvc scheduling.Service
	VisitSvc      visit.Service
	DirectorySvc  directory.Service
	Metrics       *observability.DomainMetrics `optional:"true"`
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

// readinessTimeout bounds the dependency pings of the readiness probe.
const readinessTimeout = 2 * time.Second

type permFunc func(authorize.Resource, authorize.Action) fiber.Handler

func (r *Router) Register(app *fiber.App) {
	r.registerSystemRoutes(app)

	authRequired := middleware.AuthRequired(r.p.PasetoMgr, r.p.Redis, r.p.Cfg.Authentication.RequireSession)
	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	appointmentH := handler.NewAppointmentHandler(r.p.SchedulingSvc)
	visitH := handler.NewVisitHandler(r.p.VisitSvc, r.p.SchedulingSvc.Options().Location)
	directoryH := handler.NewDirectoryHandler(r.p.DirectorySvc)

	api := app.Group("/api/v1", authRequired)

	r.registerAppointmentRoutes(api, appointmentH, requirePerm)
	r.registerVisitRoutes(api, visitH, requirePerm)
	r.registerDirectoryRoutes(api, directoryH, appointmentH, requirePerm)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			if !authorize.IsPolicyHealthy() {
				return false
			}
			ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
			defer cancel()
			return r.p.DB.Ping(ctx) == nil && r.p.Redis.Ping(ctx).Err() == nil
		},
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
