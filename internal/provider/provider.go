// Package provider contains the external geocoding and distance API clients.
//
// Each client returns its own response shape wrapped in a RawResult; the
// lookup service turns that into the canonical payload through
// RawResult.Normalize and never inspects provider JSON directly.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

// Provider names, also stored as CacheEntry.SourceProvider.
const (
	NameGeocodio       = "geocodio"
	NameGoogle         = "google"
	NameGoogleDistance = "google_distance"
	NameOpenCage       = "opencage"
	NameNominatim      = "nominatim"
	NameOSRM           = "osrm"
)

// DefaultCostPer1000 is the list price per 1000 lookups in USD.
var DefaultCostPer1000 = map[string]float64{
	NameGeocodio:       0.50,
	NameGoogle:         5.00,
	NameGoogleDistance: 5.00,
	NameOpenCage:       0.50,
	NameNominatim:      0,
	NameOSRM:           0,
}

var (
	// ErrNoResult means the provider answered but found nothing for the request.
	ErrNoResult = errors.New("provider returned no result")
	// ErrUnsupportedKind means the provider cannot serve the request kind.
	ErrUnsupportedKind = errors.New("request kind not supported by provider")
	// ErrNotConfigured means the provider is missing credentials.
	ErrNotConfigured = errors.New("provider not configured")
)

// Provider resolves one request against an external API.
type Provider interface {
	// Name identifies the provider in logs, metrics and stored entries.
	Name() string
	// Supports reports whether the provider can resolve the given kind.
	Supports(kind model.RequestKind) bool
	// Resolve performs a single lookup.
	Resolve(ctx context.Context, req model.Request) (RawResult, error)
}

// BatchProvider resolves many requests in one logical call.
type BatchProvider interface {
	Provider
	// ResolveBatch returns exactly one item per request, in request order.
	// A non-nil error means the whole batch failed.
	ResolveBatch(ctx context.Context, reqs []model.Request) ([]BatchItem, error)
}

// BatchItem is the outcome for one request of a batch call.
type BatchItem struct {
	Result RawResult
	Err    error
}

// HTTPError is a non-2xx response from a provider.
type HTTPError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

// APIError is an application-level error reported inside a 200 response.
type APIError struct {
	Provider string
	Status   string
	Message  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s error (%s): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error (%s)", e.Provider, e.Status)
}

func unsupported(p Provider, kind model.RequestKind) error {
	return fmt.Errorf("%s: %w: %s", p.Name(), ErrUnsupportedKind, kind)
}

func noResult(name string, req model.Request) error {
	return fmt.Errorf("%s: %w for %s", name, ErrNoResult, req)
}

// failAll fills a batch result with the same error for every item.
func failAll(n int, err error) []BatchItem {
	items := make([]BatchItem, n)
	for i := range items {
		items[i].Err = err
	}
	return items
}
