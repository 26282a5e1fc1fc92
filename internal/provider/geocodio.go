package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

const (
	geocodioBaseURL = "https://api.geocod.io"
	geocodioPath    = "/v1.9/geocode"
	// GeocodioMaxBatch is the largest address list accepted by one batch call.
	GeocodioMaxBatch = 10000
)

// Geocodio geocodes addresses with the Geocodio API, singly or in batches.
type Geocodio struct {
	httpProvider
}

// NewGeocodio creates a Geocodio client.
func NewGeocodio(cfg ClientConfig) (*Geocodio, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w: missing API key", NameGeocodio, ErrNotConfigured)
	}
	return &Geocodio{httpProvider: newHTTPProvider(NameGeocodio, geocodioBaseURL, 10, cfg)}, nil
}

// Supports reports whether kind is GEOCODE.
func (g *Geocodio) Supports(kind model.RequestKind) bool {
	return kind == model.KindGeocode
}

type geocodioResponse struct {
	Results []GeocodioResult `json:"results"`
	Error   string           `json:"error"`
}

type geocodioBatchResponse struct {
	Results []struct {
		Query    string           `json:"query"`
		Response geocodioResponse `json:"response"`
	} `json:"results"`
}

// Resolve geocodes one address.
func (g *Geocodio) Resolve(ctx context.Context, req model.Request) (RawResult, error) {
	if !g.Supports(req.Kind) {
		return RawResult{}, unsupported(g, req.Kind)
	}
	q := url.Values{}
	q.Set("q", req.Address)
	q.Set("api_key", g.apiKey)

	var resp geocodioResponse
	if err := g.getJSON(ctx, g.endpoint(geocodioPath, q), &resp); err != nil {
		return RawResult{}, err
	}
	return g.convertResponse(req, resp)
}

func (g *Geocodio) convertResponse(req model.Request, resp geocodioResponse) (RawResult, error) {
	if resp.Error != "" {
		return RawResult{}, &APIError{Provider: g.name, Status: "error", Message: resp.Error}
	}
	if len(resp.Results) == 0 {
		return RawResult{}, noResult(g.name, req)
	}
	first := resp.Results[0]
	return RawResult{Source: NameGeocodio, Geocodio: &first}, nil
}

// ResolveBatch geocodes addresses with the batch endpoint, one POST per
// GeocodioMaxBatch addresses.
func (g *Geocodio) ResolveBatch(ctx context.Context, reqs []model.Request) ([]BatchItem, error) {
	items := make([]BatchItem, len(reqs))
	for start := 0; start < len(reqs); start += GeocodioMaxBatch {
		end := min(start+GeocodioMaxBatch, len(reqs))
		if err := g.resolveChunk(ctx, reqs[start:end], items[start:end]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (g *Geocodio) resolveChunk(ctx context.Context, reqs []model.Request, out []BatchItem) error {
	addresses := make([]string, len(reqs))
	for i, r := range reqs {
		if !g.Supports(r.Kind) {
			return unsupported(g, r.Kind)
		}
		addresses[i] = r.Address
	}

	q := url.Values{}
	q.Set("api_key", g.apiKey)
	var resp geocodioBatchResponse
	if err := g.postJSON(ctx, g.endpoint(geocodioPath, q), addresses, &resp); err != nil {
		return err
	}
	if len(resp.Results) != len(reqs) {
		return &APIError{
			Provider: g.name,
			Status:   "batch_mismatch",
			Message:  fmt.Sprintf("sent %d addresses, got %d results", len(reqs), len(resp.Results)),
		}
	}
	for i, r := range resp.Results {
		out[i].Result, out[i].Err = g.convertResponse(reqs[i], r.Response)
	}
	return nil
}
