// Package app provides service initialization.
package app

import (
	"errors"
	"fmt"

	"github.com/guttosm/geo-cache-service/config"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/http"
	"github.com/guttosm/geo-cache-service/internal/provider"
	"github.com/guttosm/geo-cache-service/internal/repository"
	"github.com/guttosm/geo-cache-service/internal/service"
	"github.com/guttosm/geo-cache-service/internal/service/cache"
	"github.com/rs/zerolog/log"
)

// ServiceComponents holds service-related components.
type ServiceComponents struct {
	Lookup *service.LookupService
	Usage  *service.UsageRecorder
	// Local is the in-process cache tier, nil when disabled.
	Local       *cache.ShardedCache
	Maintenance *service.MaintenanceJob
	Scheduler   *service.Scheduler
	// Breakers are the provider circuit breakers, reported by readiness.
	Breakers []http.ProviderBreaker
}

// ProviderComponents holds the provider chains built from configuration.
type ProviderComponents struct {
	Chains   service.Chains
	Breakers []http.ProviderBreaker
	// CostPer1000 is the list price of the most expensive primary provider.
	CostPer1000 float64
}

// InitializeProviders builds the geocode and distance chains in configured
// order. Providers lacking required credentials are skipped.
func InitializeProviders(cfg config.ProvidersConfig) (*ProviderComponents, error) {
	components := &ProviderComponents{Chains: service.Chains{}}
	breakerCfg := provider.BreakerConfig{
		ConsecutiveFailures: uint32(max(cfg.BreakerFailures, 1)),
		OpenTimeout:         cfg.BreakerTimeout,
		HalfOpenRequests:    1,
	}

	chains := []struct {
		kind  model.RequestKind
		names []string
	}{
		{kind: model.KindGeocode, names: cfg.GeocodeChain},
		{kind: model.KindDistance, names: cfg.DistanceChain},
	}
	for _, chain := range chains {
		for _, name := range chain.names {
			p, err := newProvider(name, cfg)
			if errors.Is(err, provider.ErrNotConfigured) {
				log.Warn().Str("provider", name).Msg("Provider not configured, skipping")
				continue
			}
			if err != nil {
				return nil, err
			}
			if !p.Supports(chain.kind) {
				return nil, fmt.Errorf("provider %s cannot serve %s lookups", name, chain.kind)
			}

			wrapped := provider.WithBreaker(p, breakerCfg)
			if b, ok := wrapped.(http.ProviderBreaker); ok {
				components.Breakers = append(components.Breakers, b)
			}
			if len(components.Chains[chain.kind]) == 0 {
				components.CostPer1000 = max(components.CostPer1000, provider.DefaultCostPer1000[name])
			}
			components.Chains[chain.kind] = append(components.Chains[chain.kind], wrapped)
		}
		if len(components.Chains[chain.kind]) == 0 {
			log.Warn().Str("kind", chain.kind.String()).Msg("No provider configured, misses will fail")
		}
	}

	if cfg.CostPer1000 > 0 {
		components.CostPer1000 = cfg.CostPer1000
	}
	return components, nil
}

func newProvider(name string, cfg config.ProvidersConfig) (provider.Provider, error) {
	client := func(p config.ProviderConfig) provider.ClientConfig {
		return provider.ClientConfig{
			BaseURL:    p.BaseURL,
			APIKey:     p.APIKey,
			Region:     cfg.Region,
			UserAgent:  cfg.UserAgent,
			RatePerSec: p.RatePerSec,
		}
	}

	switch name {
	case provider.NameGeocodio:
		return provider.NewGeocodio(client(cfg.Geocodio))
	case provider.NameGoogle:
		return provider.NewGoogleGeocoder(client(cfg.Google))
	case provider.NameGoogleDistance:
		return provider.NewGoogleDistanceMatrix(client(cfg.Google))
	case provider.NameOpenCage:
		return provider.NewOpenCage(client(cfg.OpenCage))
	case provider.NameNominatim:
		return provider.NewNominatim(client(cfg.Nominatim)), nil
	case provider.NameOSRM:
		return provider.NewOSRM(client(cfg.OSRM)), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

const localCacheShards = 16

// InitializeServices wires the lookup service, usage recorder, maintenance
// job and scheduler around store.
func InitializeServices(cfg config.Config, store repository.CacheStore, providers *ProviderComponents) *ServiceComponents {
	usage := service.NewUsageRecorder(store, service.UsageRecorderConfig{
		FlushInterval: cfg.Cache.UsageFlushInterval,
	})

	opts := []service.LookupOption{service.WithUsageTracker(usage)}
	var local *cache.ShardedCache
	if cfg.Cache.LocalSize > 0 {
		local = cache.NewShardedCache(cfg.Cache.LocalSize, cfg.Cache.LocalTTL, localCacheShards)
		opts = append(opts, service.WithLocalCache(local))
		log.Info().Int("capacity", cfg.Cache.LocalSize).Dur("ttl", cfg.Cache.LocalTTL).Msg("Local cache tier enabled")
	}

	lookup := service.NewLookupService(store, providers.Chains, lookupConfig(cfg.Cache), opts...)

	var sources []service.WarmSource
	if cfg.Maintenance.WarmFile != "" {
		sources = append(sources, service.NewFileWarmSource(cfg.Maintenance.WarmFile))
	}
	sources = append(sources, service.NewStoreWarmSource(store))
	warm := service.NewCompositeWarmSource(cfg.Cache.KeyPrecision, sources...)

	job := service.NewMaintenanceJob(store, lookup, warm, service.MaintenanceConfig{
		StatsWindow: cfg.Maintenance.StatsWindow,
		CostPer1000: providers.CostPer1000,
		Thresholds: service.Thresholds{
			TargetHitRate:      cfg.Maintenance.TargetHitRate,
			MaxStorageBytes:    cfg.Maintenance.MaxStorageBytes,
			MaxExpiredFraction: cfg.Maintenance.MaxExpiredFraction,
		},
		WarmLimit: cfg.Maintenance.WarmLimit,
	})

	return &ServiceComponents{
		Lookup:      lookup,
		Usage:       usage,
		Local:       local,
		Maintenance: job,
		Scheduler:   service.NewScheduler(job, cfg.Maintenance.Interval, cfg.Maintenance.Timeout),
		Breakers:    providers.Breakers,
	}
}

func lookupConfig(cfg config.CacheConfig) service.LookupConfig {
	return service.LookupConfig{
		KeyPrecision: cfg.KeyPrecision,
		TTL: service.TTLPolicy{
			Distance: cfg.TTLDistance,
			Geocode:  cfg.TTLGeocode,
		},
		StoreTimeout:     cfg.StoreTimeout,
		ProviderTimeout:  cfg.ProviderTimeout,
		BulkWriteTimeout: cfg.BulkWriteTimeout,
		MinConfidence:    cfg.MinConfidence,
		RefreshAhead:     cfg.RefreshAhead,
		BatchConcurrency: cfg.BatchConcurrency,
		Coalesce:         cfg.Coalesce,
	}
}
