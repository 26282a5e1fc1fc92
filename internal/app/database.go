// Package app provides cache store initialization.
package app

import (
	"context"
	"fmt"

	"github.com/guttosm/geo-cache-service/config"
	"github.com/guttosm/geo-cache-service/internal/circuitbreaker"
	"github.com/guttosm/geo-cache-service/internal/repository"
	"github.com/rs/zerolog/log"
)

// StoreComponents holds the cache store and its circuit breaker.
type StoreComponents struct {
	// Store is the backend wrapped with the circuit breaker.
	Store          repository.CacheStore
	CircuitBreaker *circuitbreaker.CircuitBreaker
	Driver         string
}

// InitializeStore opens the configured cache store backend and wraps it with
// a circuit breaker.
func InitializeStore(ctx context.Context, cfg config.StoreConfig) (*StoreComponents, error) {
	backend, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cb := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.CircuitBreakerFailureThreshold,
		SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
		Timeout:          cfg.CircuitBreakerTimeout,
		Name:             "cache-store-" + cfg.Driver,
	})

	return &StoreComponents{
		Store:          repository.NewCacheStoreWithCircuitBreaker(backend, cb),
		CircuitBreaker: cb,
		Driver:         cfg.Driver,
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (repository.CacheStore, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		db, err := repository.NewMongoDB(cfg.MongoURI, cfg.DatabaseName)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		log.Info().Str("database", cfg.DatabaseName).Msg("Connected to MongoDB")
		return repository.NewMongoCacheStore(db), nil
	case config.DriverDuckDB:
		store, err := repository.NewDuckDBCacheStore(ctx, cfg.DuckDBPath)
		if err != nil {
			return nil, fmt.Errorf("open DuckDB %s: %w", cfg.DuckDBPath, err)
		}
		log.Info().Str("path", cfg.DuckDBPath).Msg("Opened DuckDB cache store")
		return store, nil
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory cache store, entries are lost on restart")
		return repository.NewMemoryCacheStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
