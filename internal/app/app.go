// Package app provides application initialization and dependency injection.
package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/geo-cache-service/config"
	"github.com/guttosm/geo-cache-service/internal/http"
	"github.com/rs/zerolog/log"
)

// App holds the wired application and the resources it must release.
type App struct {
	Router   *gin.Engine
	Store    *StoreComponents
	Services *ServiceComponents
	routing  *RouterComponents
}

// InitializeApp creates and wires all application dependencies. The logger
// is initialized first since every other component logs.
func InitializeApp(ctx context.Context, cfg config.Config) (*App, error) {
	InitializeLogger(cfg.Log)

	providers, err := InitializeProviders(cfg.Providers)
	if err != nil {
		return nil, err
	}

	store, err := InitializeStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	services := InitializeServices(cfg, store.Store, providers)
	routing := InitializeRouter(services, store, cfg)

	return &App{
		Router:   http.NewRouter(routing.Handler, routing.HealthHandler, routing.Config),
		Store:    store,
		Services: services,
		routing:  routing,
	}, nil
}

// Start launches background work: the maintenance scheduler.
func (a *App) Start(ctx context.Context) {
	a.Services.Scheduler.Start(ctx)
}

// Close stops background work, flushes pending usage counters and closes
// the store.
func (a *App) Close(ctx context.Context) error {
	a.Services.Scheduler.Stop()
	if a.routing.RateLimiter != nil {
		a.routing.RateLimiter.Stop()
	}

	a.Services.Usage.Stop()
	if a.Services.Local != nil {
		a.Services.Local.Stop()
	}

	if err := a.Store.Store.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to close cache store")
		return err
	}
	log.Info().Msg("Resources released")
	return nil
}
