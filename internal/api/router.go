package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/guildhall-io/guildhall/internal/app"
	iauth "github.com/guildhall-io/guildhall/internal/auth"
	"github.com/guildhall-io/guildhall/internal/handlers"
	"github.com/guildhall-io/guildhall/internal/middleware"
	"github.com/guildhall-io/guildhall/internal/permissions"
	"github.com/guildhall-io/guildhall/internal/services"
)

// Dependencies collects the wired components the router mounts routes over.
type Dependencies struct {
	DB       *gorm.DB
	JWT      *iauth.JWTService
	Config   *app.Config
	Engine   *permissions.Engine
	Computer middleware.FlagComputer
	// Invalidator lets the assignment write path evict cached flag maps.
	// Nil when no permission cache is configured.
	Invalidator services.Invalidator
	RateStore   middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("permission engine must be provided")
	}
	if deps.Computer == nil {
		deps.Computer = deps.Engine
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	if rl := deps.Config.Server.RateLimit; rl.Enabled {
		maxRequests, window := rl.MaxRequests, rl.Window
		if maxRequests <= 0 {
			maxRequests = 100
		}
		if window <= 0 {
			window = time.Minute
		}
		r.Use(middleware.RateLimitWithStore(deps.RateStore, maxRequests, window))
	}

	r.NoRoute(middleware.NotFoundHandler)

	r.GET("/health", handlers.Health(deps.DB))
	if mon := deps.Config.Monitoring.Prometheus; mon.Enabled {
		endpoint := mon.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	api.Use(middleware.Actor(deps.JWT))

	if err := registerPermissionRoutes(api, deps); err != nil {
		return nil, err
	}
	if err := registerAssignmentRoutes(api, deps); err != nil {
		return nil, err
	}
	if err := registerRoleRoutes(api, deps); err != nil {
		return nil, err
	}
	if err := registerSpaceRoutes(api, deps); err != nil {
		return nil, err
	}

	return r, nil
}
