// Package app provides router configuration.
package app

import (
	"github.com/guttosm/geo-cache-service/config"
	"github.com/guttosm/geo-cache-service/internal/http"
	"github.com/guttosm/geo-cache-service/internal/middleware"
)

// RouterComponents holds router-related components.
type RouterComponents struct {
	Handler       *http.Handler
	HealthHandler *http.HealthHandler
	Config        http.RouterConfig
	// RateLimiter is nil when rate limiting is disabled.
	RateLimiter *middleware.RateLimiter
}

// InitializeRouter initializes HTTP handlers, readiness checks and router
// configuration.
func InitializeRouter(services *ServiceComponents, store *StoreComponents, cfg config.Config) *RouterComponents {
	handler := http.NewHandler(services.Lookup, services.Maintenance)

	healthHandler := http.NewHealthHandler()
	healthHandler.RegisterChecker("cache_store", http.HealthCheckFunc(store.Store.Ping))
	healthHandler.RegisterCircuitBreaker("cache_store", store.CircuitBreaker)
	for _, b := range services.Breakers {
		healthHandler.RegisterProviderBreaker(b)
	}

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewShardedRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow, 16)
	}

	var apiKeys map[string]bool
	if cfg.Auth.Enabled {
		apiKeys = cfg.Auth.APIKeys
	}

	routerCfg := http.RouterConfig{
		RateLimit:      cfg.Server.RateLimit,
		RateWindow:     cfg.Server.RateWindow,
		APIKeys:        apiKeys,
		CORSOrigins:    cfg.Server.CORSOrigins,
		SwaggerUser:    cfg.Server.SwaggerUser,
		SwaggerPass:    cfg.Server.SwaggerPass,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimiter:    limiter,
	}

	return &RouterComponents{
		Handler:       handler,
		HealthHandler: healthHandler,
		Config:        routerCfg,
		RateLimiter:   limiter,
	}
}
