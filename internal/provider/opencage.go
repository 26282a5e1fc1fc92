package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

const (
	openCageBaseURL = "https://api.opencagedata.com"
	openCagePath    = "/geocode/v1/json"
)

// OpenCage geocodes addresses with the OpenCage API.
type OpenCage struct {
	httpProvider
}

// NewOpenCage creates an OpenCage client.
func NewOpenCage(cfg ClientConfig) (*OpenCage, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w: missing API key", NameOpenCage, ErrNotConfigured)
	}
	return &OpenCage{httpProvider: newHTTPProvider(NameOpenCage, openCageBaseURL, 1, cfg)}, nil
}

// Supports reports whether kind is GEOCODE.
func (o *OpenCage) Supports(kind model.RequestKind) bool {
	return kind == model.KindGeocode
}

type openCageResponse struct {
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Results []OpenCageResult `json:"results"`
}

// Resolve geocodes one address.
func (o *OpenCage) Resolve(ctx context.Context, req model.Request) (RawResult, error) {
	if !o.Supports(req.Kind) {
		return RawResult{}, unsupported(o, req.Kind)
	}
	q := url.Values{}
	q.Set("q", req.Address)
	q.Set("key", o.apiKey)
	q.Set("countrycode", o.region)
	q.Set("limit", "1")
	q.Set("no_annotations", "1")

	var resp openCageResponse
	if err := o.getJSON(ctx, o.endpoint(openCagePath, q), &resp); err != nil {
		return RawResult{}, err
	}
	if resp.Status.Code != 0 && resp.Status.Code != 200 {
		return RawResult{}, &APIError{Provider: o.name, Status: fmt.Sprint(resp.Status.Code), Message: resp.Status.Message}
	}
	if len(resp.Results) == 0 {
		return RawResult{}, noResult(o.name, req)
	}
	first := resp.Results[0]
	return RawResult{Source: NameOpenCage, OpenCage: &first}, nil
}
