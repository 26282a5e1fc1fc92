// Package config provides configuration management for the geo cache service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverDuckDB = "duckdb"
	DriverMemory = "memory"
)

// Config holds the complete application configuration.
type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Cache       CacheConfig
	Store       StoreConfig
	Providers   ProvidersConfig
	Maintenance MaintenanceConfig
	Auth        AuthConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	RateLimit      int
	RateWindow     time.Duration
	RequestTimeout time.Duration
	CORSOrigins    []string
	SwaggerUser    string
	SwaggerPass    string
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Pretty bool
}

// CacheConfig holds lookup cache configuration.
type CacheConfig struct {
	KeyPrecision     int
	TTLDistance      time.Duration
	TTLGeocode       time.Duration
	StoreTimeout     time.Duration
	ProviderTimeout  time.Duration
	BulkWriteTimeout time.Duration
	RefreshAhead     time.Duration
	MinConfidence    float64
	BatchConcurrency int
	Coalesce         bool
	// UsageFlushInterval is how often durable hit and usage counters are written.
	UsageFlushInterval time.Duration
	// LocalSize is the capacity of the in-process tier in front of the
	// store. Zero disables it.
	LocalSize int
	LocalTTL  time.Duration
}

// StoreConfig selects and configures the cache store backend.
type StoreConfig struct {
	Driver       string
	MongoURI     string
	DatabaseName string
	DuckDBPath   string
	// CircuitBreaker configuration
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration
}

// ProviderConfig holds the settings of one external lookup provider.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string
	RatePerSec float64
}

// ProvidersConfig configures the provider chains. A provider whose API key
// is required but missing is left out of its chain.
type ProvidersConfig struct {
	Geocodio  ProviderConfig
	Google    ProviderConfig
	OpenCage  ProviderConfig
	Nominatim ProviderConfig
	OSRM      ProviderConfig
	// Primary order of each chain, by provider name.
	GeocodeChain  []string
	DistanceChain []string
	// CostPer1000 overrides the list price used for savings estimates when positive.
	CostPer1000 float64
	// BreakerFailures opens a provider circuit after this many consecutive failures.
	BreakerFailures int
	BreakerTimeout  time.Duration
	UserAgent       string
	Region          string
}

// MaintenanceConfig holds the maintenance job configuration.
type MaintenanceConfig struct {
	Interval           time.Duration
	Timeout            time.Duration
	StatsWindow        time.Duration
	WarmLimit          int
	WarmFile           string
	TargetHitRate      float64
	MaxStorageBytes    int64
	MaxExpiredFraction float64
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled bool
	APIKeys map[string]bool
}

// Load creates a Config from environment variables.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RateLimit:      getEnvInt("RATE_LIMIT", 100),
			RateWindow:     getEnvDuration("RATE_WINDOW", time.Minute),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
			CORSOrigins:    parseCORSOrigins(os.Getenv("CORS_ORIGINS")),
			SwaggerUser:    getEnv("SWAGGER_USER", ""),
			SwaggerPass:    getEnv("SWAGGER_PASS", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		Cache: CacheConfig{
			KeyPrecision:       getEnvInt("CACHE_KEY_PRECISION", 4),
			TTLDistance:        getEnvDuration("CACHE_TTL_DISTANCE", 24*time.Hour),
			TTLGeocode:         getEnvDuration("CACHE_TTL_GEOCODE", 30*24*time.Hour),
			StoreTimeout:       getEnvDuration("CACHE_STORE_TIMEOUT", 300*time.Millisecond),
			ProviderTimeout:    getEnvDuration("CACHE_PROVIDER_TIMEOUT", 10*time.Second),
			BulkWriteTimeout:   getEnvDuration("CACHE_BULK_WRITE_TIMEOUT", 5*time.Second),
			RefreshAhead:       getEnvDuration("CACHE_REFRESH_AHEAD", time.Hour),
			MinConfidence:      getEnvFloat("CACHE_MIN_CONFIDENCE", 0.7),
			BatchConcurrency:   getEnvInt("CACHE_BATCH_CONCURRENCY", 8),
			Coalesce:           getEnvBool("CACHE_COALESCE", true),
			UsageFlushInterval: getEnvDuration("CACHE_USAGE_FLUSH_INTERVAL", 5*time.Second),
			LocalSize:          getEnvInt("CACHE_LOCAL_SIZE", 0),
			LocalTTL:           getEnvDuration("CACHE_LOCAL_TTL", time.Minute),
		},
		Store: StoreConfig{
			Driver:                         strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
			MongoURI:                       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			DatabaseName:                   getEnv("MONGODB_DATABASE", "geo_cache"),
			DuckDBPath:                     getEnv("DUCKDB_PATH", "geo_cache.duckdb"),
			CircuitBreakerFailureThreshold: getEnvInt("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
			CircuitBreakerSuccessThreshold: getEnvInt("CIRCUIT_BREAKER_SUCCESS_THRESHOLD", 2),
			CircuitBreakerTimeout:          getEnvDuration("CIRCUIT_BREAKER_TIMEOUT", 30*time.Second),
		},
		Providers: ProvidersConfig{
			Geocodio:        loadProvider("GEOCODIO"),
			Google:          loadProvider("GOOGLE_MAPS"),
			OpenCage:        loadProvider("OPENCAGE"),
			Nominatim:       loadProvider("NOMINATIM"),
			OSRM:            loadProvider("OSRM"),
			GeocodeChain:    parseList(getEnv("GEOCODE_PROVIDERS", "geocodio,google,opencage,nominatim")),
			DistanceChain:   parseList(getEnv("DISTANCE_PROVIDERS", "google_distance,osrm")),
			CostPer1000:     getEnvFloat("PROVIDER_COST_PER_1000", 0),
			BreakerFailures: getEnvInt("PROVIDER_BREAKER_FAILURES", 5),
			BreakerTimeout:  getEnvDuration("PROVIDER_BREAKER_TIMEOUT", 30*time.Second),
			UserAgent:       getEnv("PROVIDER_USER_AGENT", ""),
			Region:          getEnv("PROVIDER_REGION", "us"),
		},
		Maintenance: MaintenanceConfig{
			Interval:           getEnvDuration("MAINTENANCE_INTERVAL", 0),
			Timeout:            getEnvDuration("MAINTENANCE_TIMEOUT", 10*time.Minute),
			StatsWindow:        getEnvDuration("MAINTENANCE_STATS_WINDOW", 24*time.Hour),
			WarmLimit:          getEnvInt("MAINTENANCE_WARM_LIMIT", 100),
			WarmFile:           getEnv("MAINTENANCE_WARM_FILE", ""),
			TargetHitRate:      getEnvFloat("MAINTENANCE_TARGET_HIT_RATE", 0.70),
			MaxStorageBytes:    int64(getEnvInt("MAINTENANCE_MAX_STORAGE_BYTES", 256<<20)),
			MaxExpiredFraction: getEnvFloat("MAINTENANCE_MAX_EXPIRED_FRACTION", 0.25),
		},
		Auth: AuthConfig{
			Enabled: getEnvBool("AUTH_ENABLED", false),
			APIKeys: parseAPIKeys(os.Getenv("API_KEYS")),
		},
	}
}

// loadProvider reads <PREFIX>_API_KEY, <PREFIX>_BASE_URL and <PREFIX>_RATE.
func loadProvider(prefix string) ProviderConfig {
	return ProviderConfig{
		APIKey:     getEnv(prefix+"_API_KEY", ""),
		BaseURL:    getEnv(prefix+"_BASE_URL", ""),
		RatePerSec: getEnvFloat(prefix+"_RATE", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			result = append(result, p)
		}
	}
	return result
}

func parseAPIKeys(s string) map[string]bool {
	if s == "" {
		return nil
	}
	keys := strings.Split(s, ",")
	result := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			result[k] = true
		}
	}
	return result
}

func parseCORSOrigins(s string) []string {
	// Default origins for local development
	defaults := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if s == "" {
		return defaults
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts)+len(defaults))
	result = append(result, defaults...)
	for _, p := range parts {
		if origin := strings.TrimSpace(p); origin != "" {
			result = append(result, origin)
		}
	}
	return result
}
