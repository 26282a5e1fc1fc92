package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

const (
	osrmBaseURL   = "https://router.project-osrm.org"
	osrmRoutePath = "/route/v1/driving/"
	osrmTablePath = "/table/v1/driving/"
	osrmCodeOK    = "Ok"
)

// The default osrm-routed max-table-size is 100 coordinates.
var osrmTableLimits = matrixLimits{origins: 50, destinations: 50, elements: 2500}

// OSRM resolves driving routes against an OSRM server. It is free and keyless,
// which makes it the usual last distance tier.
type OSRM struct {
	httpProvider
}

// NewOSRM creates an OSRM client.
func NewOSRM(cfg ClientConfig) *OSRM {
	return &OSRM{httpProvider: newHTTPProvider(NameOSRM, osrmBaseURL, 1, cfg)}
}

// Supports reports whether kind is DISTANCE.
func (o *OSRM) Supports(kind model.RequestKind) bool {
	return kind == model.KindDistance
}

type osrmRouteResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []OSRMRoute `json:"routes"`
}

type osrmTableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Durations [][]*float64 `json:"durations"`
	Distances [][]*float64 `json:"distances"`
}

// Resolve looks up one route.
func (o *OSRM) Resolve(ctx context.Context, req model.Request) (RawResult, error) {
	if !validDistanceRequest(req) {
		return RawResult{}, unsupported(o, req.Kind)
	}
	q := url.Values{}
	q.Set("overview", "false")
	path := osrmRoutePath + osrmCoordinates([]model.Coordinate{*req.Origin, *req.Destination})

	var resp osrmRouteResponse
	if err := o.getJSON(ctx, o.endpoint(path, q), &resp); err != nil {
		return RawResult{}, err
	}
	if resp.Code == "NoRoute" || (resp.Code == osrmCodeOK && len(resp.Routes) == 0) {
		return RawResult{}, noResult(o.name, req)
	}
	if resp.Code != osrmCodeOK {
		return RawResult{}, &APIError{Provider: o.name, Status: resp.Code, Message: resp.Message}
	}
	first := resp.Routes[0]
	return RawResult{Source: NameOSRM, OSRM: &first}, nil
}

// ResolveBatch resolves pairs through the table service.
func (o *OSRM) ResolveBatch(ctx context.Context, reqs []model.Request) ([]BatchItem, error) {
	for _, r := range reqs {
		if !validDistanceRequest(r) {
			return nil, unsupported(o, r.Kind)
		}
	}
	items := make([]BatchItem, len(reqs))
	for _, chunk := range planMatrix(reqs, osrmTableLimits) {
		if err := o.queryTable(ctx, chunk, reqs, items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (o *OSRM) queryTable(ctx context.Context, chunk *matrixChunk, reqs []model.Request, items []BatchItem) error {
	coords := append(append([]model.Coordinate{}, chunk.origins...), chunk.destinations...)
	q := url.Values{}
	q.Set("sources", indexRange(0, len(chunk.origins)))
	q.Set("destinations", indexRange(len(chunk.origins), len(coords)))
	q.Set("annotations", "duration,distance")

	var resp osrmTableResponse
	if err := o.getJSON(ctx, o.endpoint(osrmTablePath+osrmCoordinates(coords), q), &resp); err != nil {
		return err
	}
	if resp.Code != osrmCodeOK {
		return &APIError{Provider: o.name, Status: resp.Code, Message: resp.Message}
	}

	for _, cell := range chunk.cells {
		duration := tableValue(resp.Durations, cell)
		distance := tableValue(resp.Distances, cell)
		if duration == nil || distance == nil {
			items[cell.request].Err = noResult(o.name, reqs[cell.request])
			continue
		}
		items[cell.request].Result = RawResult{
			Source: NameOSRM,
			OSRM:   &OSRMRoute{Duration: *duration, Distance: *distance},
		}
	}
	return nil
}

func tableValue(table [][]*float64, cell matrixCell) *float64 {
	if cell.origin >= len(table) || cell.destination >= len(table[cell.origin]) {
		return nil
	}
	return table[cell.origin][cell.destination]
}

// osrmCoordinates renders "lng,lat;lng,lat" as OSRM expects.
func osrmCoordinates(cs []model.Coordinate) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = strconv.FormatFloat(c.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
	}
	return strings.Join(parts, ";")
}

func indexRange(from, to int) string {
	parts := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		parts = append(parts, fmt.Sprint(i))
	}
	return strings.Join(parts, ";")
}
