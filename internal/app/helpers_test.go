package app

import (
	"time"

	"github.com/guttosm/geo-cache-service/config"
)

// memoryConfig is a complete configuration on the in-memory store with no
// provider credentials.
func memoryConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			RateLimit:      100,
			RateWindow:     time.Minute,
			RequestTimeout: 30 * time.Second,
		},
		Log: config.LogConfig{Level: "error"},
		Cache: config.CacheConfig{
			KeyPrecision:       4,
			TTLDistance:        24 * time.Hour,
			TTLGeocode:         30 * 24 * time.Hour,
			MinConfidence:      0.7,
			Coalesce:           true,
			UsageFlushInterval: time.Second,
		},
		Store: config.StoreConfig{
			Driver:                         config.DriverMemory,
			CircuitBreakerFailureThreshold: 5,
			CircuitBreakerSuccessThreshold: 2,
			CircuitBreakerTimeout:          30 * time.Second,
		},
		Providers: config.ProvidersConfig{
			GeocodeChain:    []string{"geocodio", "google", "opencage", "nominatim"},
			DistanceChain:   []string{"google_distance", "osrm"},
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Maintenance: config.MaintenanceConfig{
			StatsWindow:        24 * time.Hour,
			WarmLimit:          10,
			TargetHitRate:      0.7,
			MaxStorageBytes:    256 << 20,
			MaxExpiredFraction: 0.25,
		},
	}
}
