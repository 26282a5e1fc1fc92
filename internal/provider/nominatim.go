package provider

import (
	"context"
	"net/url"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

const (
	nominatimBaseURL   = "https://nominatim.openstreetmap.org"
	nominatimPath      = "/search"
	nominatimUserAgent = "geo-cache-service/1.0"
)

// Nominatim geocodes addresses with an OpenStreetMap Nominatim server. The
// public instance allows one request per second and requires a User-Agent.
type Nominatim struct {
	httpProvider
}

// NewNominatim creates a Nominatim client. No API key is needed.
func NewNominatim(cfg ClientConfig) *Nominatim {
	if cfg.UserAgent == "" {
		cfg.UserAgent = nominatimUserAgent
	}
	if cfg.RatePerSec <= 0 || cfg.RatePerSec > 1 {
		cfg.RatePerSec = 1
	}
	cfg.Burst = 1
	return &Nominatim{httpProvider: newHTTPProvider(NameNominatim, nominatimBaseURL, 1, cfg)}
}

// Supports reports whether kind is GEOCODE.
func (n *Nominatim) Supports(kind model.RequestKind) bool {
	return kind == model.KindGeocode
}

// Resolve geocodes one address.
func (n *Nominatim) Resolve(ctx context.Context, req model.Request) (RawResult, error) {
	if !n.Supports(req.Kind) {
		return RawResult{}, unsupported(n, req.Kind)
	}
	q := url.Values{}
	q.Set("q", req.Address)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("countrycodes", n.region)

	var resp []NominatimResult
	if err := n.getJSON(ctx, n.endpoint(nominatimPath, q), &resp); err != nil {
		return RawResult{}, err
	}
	if len(resp) == 0 {
		return RawResult{}, noResult(n.name, req)
	}
	first := resp[0]
	return RawResult{Source: NameNominatim, Nominatim: &first}, nil
}
