package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/app"
	iauth "github.com/jobhive/jobhive/internal/auth"
	"github.com/jobhive/jobhive/internal/handlers"
	"github.com/jobhive/jobhive/internal/middleware"
	"github.com/jobhive/jobhive/internal/monitoring"
	"github.com/jobhive/jobhive/internal/monitoring/checks"
	"github.com/jobhive/jobhive/internal/permissions"
	"github.com/jobhive/jobhive/internal/security"
	"github.com/jobhive/jobhive/internal/services"
)

// RouterOption customises NewRouter.
type RouterOption func(*routerOptions)

type routerOptions struct {
	readiness []monitoring.Check
}

// WithReadinessChecks adds checks to /health next to the database check.
func WithReadinessChecks(checks ...monitoring.Check) RouterOption {
	return func(o *routerOptions) {
		o.readiness = append(o.readiness, checks...)
	}
}

// NewRouter builds the Gin engine, wires middleware and registers the admin API.
// A nil rateStore falls back to an in-process limiter.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, rateStore middleware.RateStore, opts ...RouterOption) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	var options routerOptions
	for _, opt := range opts {
		opt(&options)
	}

	h, loader, err := buildHandlers(db, cfg)
	if err != nil {
		return nil, err
	}

	health := monitoring.NewHealthManager()
	health.RegisterReadiness(checks.Database(db, 0))
	for _, check := range options.readiness {
		health.RegisterReadiness(check)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(cfg.Server.Production))
	if cfg.RateLimit.Enabled {
		if rateStore == nil {
			rateStore = middleware.NewMemoryRateStore()
		}
		r.Use(middleware.RateLimit(rateStore, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// Public endpoints
	r.GET("/health", handlers.Health(health))
	r.GET("/health/live", handlers.Liveness(health))
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))
	registerRoutes(api, loader, routeTable(h))

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func buildHandlers(db *gorm.DB, cfg *app.Config) (routeHandlers, *permissions.Loader, error) {
	var loaderOpts []permissions.LoaderOption
	if cfg.Database.LoadTimeout > 0 {
		loaderOpts = append(loaderOpts, permissions.WithLoadTimeout(cfg.Database.LoadTimeout))
	}
	loader, err := permissions.NewLoader(db, loaderOpts...)
	if err != nil {
		return routeHandlers{}, nil, err
	}

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return routeHandlers{}, nil, err
	}
	permSvc, err := services.NewPermissionService(db, auditSvc)
	if err != nil {
		return routeHandlers{}, nil, err
	}
	roleSvc, err := services.NewRoleService(db, auditSvc)
	if err != nil {
		return routeHandlers{}, nil, err
	}
	grantSvc, err := services.NewGrantService(db, auditSvc, loader)
	if err != nil {
		return routeHandlers{}, nil, err
	}
	userSvc, err := services.NewUserService(db, auditSvc)
	if err != nil {
		return routeHandlers{}, nil, err
	}
	companySvc, err := services.NewCompanyService(db, auditSvc)
	if err != nil {
		return routeHandlers{}, nil, err
	}
	jobSvc, err := services.NewJobService(db, auditSvc)
	if err != nil {
		return routeHandlers{}, nil, err
	}

	return routeHandlers{
		permissions: handlers.NewPermissionHandler(permSvc),
		roles:       handlers.NewRoleHandler(roleSvc),
		grants:      handlers.NewGrantHandler(grantSvc),
		companies:   handlers.NewCompanyHandler(companySvc, userSvc),
		jobs:        handlers.NewJobHandler(jobSvc),
		audit:       handlers.NewAuditHandler(auditSvc),
		security:    handlers.NewSecurityHandler(security.NewPostureService(db, cfg)),
	}, loader, nil
}
