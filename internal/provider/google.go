package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

const (
	googleBaseURL        = "https://maps.googleapis.com"
	googleGeocodePath    = "/maps/api/geocode/json"
	googleDistancePath   = "/maps/api/distancematrix/json"
	googleStatusOK       = "OK"
	googleStatusZero     = "ZERO_RESULTS"
	googleStatusNotFound = "NOT_FOUND"
)

// Distance Matrix request limits.
var googleMatrixLimits = matrixLimits{origins: 25, destinations: 25, elements: 100}

// GoogleGeocoder geocodes addresses with the Google Geocoding API.
type GoogleGeocoder struct {
	httpProvider
}

// NewGoogleGeocoder creates a Google Geocoding client.
func NewGoogleGeocoder(cfg ClientConfig) (*GoogleGeocoder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w: missing API key", NameGoogle, ErrNotConfigured)
	}
	return &GoogleGeocoder{httpProvider: newHTTPProvider(NameGoogle, googleBaseURL, 50, cfg)}, nil
}

// Supports reports whether kind is GEOCODE.
func (g *GoogleGeocoder) Supports(kind model.RequestKind) bool {
	return kind == model.KindGeocode
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message"`
	Results      []GoogleGeocodeResult `json:"results"`
}

// Resolve geocodes one address.
func (g *GoogleGeocoder) Resolve(ctx context.Context, req model.Request) (RawResult, error) {
	if !g.Supports(req.Kind) {
		return RawResult{}, unsupported(g, req.Kind)
	}
	q := url.Values{}
	q.Set("address", req.Address)
	q.Set("key", g.apiKey)
	q.Set("region", g.region)

	var resp googleGeocodeResponse
	if err := g.getJSON(ctx, g.endpoint(googleGeocodePath, q), &resp); err != nil {
		return RawResult{}, err
	}

	switch resp.Status {
	case googleStatusOK:
	case googleStatusZero:
		return RawResult{}, noResult(g.name, req)
	default:
		return RawResult{}, &APIError{Provider: g.name, Status: resp.Status, Message: resp.ErrorMessage}
	}
	if len(resp.Results) == 0 {
		return RawResult{}, noResult(g.name, req)
	}
	first := resp.Results[0]
	return RawResult{Source: NameGoogle, GoogleGeocode: &first}, nil
}

// GoogleDistanceMatrix resolves driving distance and duration with the Google
// Distance Matrix API.
type GoogleDistanceMatrix struct {
	httpProvider
	concurrency int
}

// NewGoogleDistanceMatrix creates a Distance Matrix client.
func NewGoogleDistanceMatrix(cfg ClientConfig) (*GoogleDistanceMatrix, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w: missing API key", NameGoogleDistance, ErrNotConfigured)
	}
	return &GoogleDistanceMatrix{
		httpProvider: newHTTPProvider(NameGoogleDistance, googleBaseURL, 50, cfg),
		concurrency:  4,
	}, nil
}

// Supports reports whether kind is DISTANCE.
func (g *GoogleDistanceMatrix) Supports(kind model.RequestKind) bool {
	return kind == model.KindDistance
}

type googleDistanceResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []GoogleDistanceElement `json:"elements"`
	} `json:"rows"`
}

// Resolve looks up one origin/destination pair.
func (g *GoogleDistanceMatrix) Resolve(ctx context.Context, req model.Request) (RawResult, error) {
	items, err := g.ResolveBatch(ctx, []model.Request{req})
	if err != nil {
		return RawResult{}, err
	}
	return items[0].Result, items[0].Err
}

// ResolveBatch packs pairs into matrix calls of at most 100 elements and runs
// them concurrently.
func (g *GoogleDistanceMatrix) ResolveBatch(ctx context.Context, reqs []model.Request) ([]BatchItem, error) {
	for _, r := range reqs {
		if !validDistanceRequest(r) {
			return nil, unsupported(g, r.Kind)
		}
	}

	items := make([]BatchItem, len(reqs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for _, chunk := range planMatrix(reqs, googleMatrixLimits) {
		eg.Go(func() error {
			return g.queryMatrix(egCtx, chunk, reqs, items)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (g *GoogleDistanceMatrix) queryMatrix(ctx context.Context, chunk *matrixChunk, reqs []model.Request, items []BatchItem) error {
	q := url.Values{}
	q.Set("origins", joinCoordinates(chunk.origins))
	q.Set("destinations", joinCoordinates(chunk.destinations))
	q.Set("mode", "driving")
	q.Set("units", "metric")
	q.Set("key", g.apiKey)

	var resp googleDistanceResponse
	if err := g.getJSON(ctx, g.endpoint(googleDistancePath, q), &resp); err != nil {
		return err
	}
	if resp.Status != googleStatusOK {
		return &APIError{Provider: g.name, Status: resp.Status, Message: resp.ErrorMessage}
	}

	// each cell belongs to exactly one chunk, so writes to items never overlap
	for _, cell := range chunk.cells {
		if cell.origin >= len(resp.Rows) || cell.destination >= len(resp.Rows[cell.origin].Elements) {
			items[cell.request].Err = &APIError{Provider: g.name, Status: "short_matrix"}
			continue
		}
		element := resp.Rows[cell.origin].Elements[cell.destination]
		switch element.Status {
		case googleStatusOK:
			items[cell.request].Result = RawResult{Source: NameGoogleDistance, GoogleDistance: &element}
		case googleStatusZero, googleStatusNotFound:
			items[cell.request].Err = noResult(g.name, reqs[cell.request])
		default:
			items[cell.request].Err = &APIError{Provider: g.name, Status: element.Status}
		}
	}
	return nil
}

// joinCoordinates renders "lat,lng|lat,lng".
func joinCoordinates(cs []model.Coordinate) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
	}
	return strings.Join(parts, "|")
}
