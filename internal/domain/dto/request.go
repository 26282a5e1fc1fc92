// Package dto defines the JSON bodies of the geo cache HTTP API.
//
// DTOs decouple the HTTP layer from the domain model; they carry binding
// tags for gin and convert into model.Request values.
package dto

import (
	"strings"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

// MaxBatchSize bounds the number of requests accepted by a batch endpoint.
const MaxBatchSize = 1000

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message for ValidationError.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

var (
	// ErrMissingCoordinates is returned when origin or destination is absent.
	ErrMissingCoordinates = &ValidationError{Field: "origin/destination", Message: "both points are required"}
	// ErrBlankAddress is returned for an empty geocode address.
	ErrBlankAddress = &ValidationError{Field: "address", Message: "must not be blank"}
	// ErrBatchSize is returned for an empty or oversized batch.
	ErrBatchSize = &ValidationError{Field: "requests", Message: "must contain between 1 and 1000 items"}
)

// DistanceRequest asks for the drive distance from Origin to Destination.
//
// @Description Directional distance lookup between two points
type DistanceRequest struct {
	Origin      *model.Coordinate `json:"origin" binding:"required"`
	Destination *model.Coordinate `json:"destination" binding:"required"`
} // @name DistanceRequest

// Validate checks that both points are present. Ranges are checked by the
// lookup service.
func (r *DistanceRequest) Validate() error {
	if r.Origin == nil || r.Destination == nil {
		return ErrMissingCoordinates
	}
	return nil
}

// ToModel converts the body into a lookup request.
func (r DistanceRequest) ToModel() model.Request {
	return model.Request{Kind: model.KindDistance, Origin: r.Origin, Destination: r.Destination}
}

// GeocodeRequest asks for the coordinates of a free-text address.
//
// @Description Address geocoding lookup
type GeocodeRequest struct {
	Address string `json:"address" binding:"required" example:"145 Hannalei Dr, Vista, CA 92083"`
} // @name GeocodeRequest

// Validate rejects whitespace-only addresses.
func (r *GeocodeRequest) Validate() error {
	if strings.TrimSpace(r.Address) == "" {
		return ErrBlankAddress
	}
	return nil
}

// ToModel converts the body into a lookup request.
func (r GeocodeRequest) ToModel() model.Request {
	return model.NewGeocodeRequest(r.Address)
}

// BatchDistanceRequest carries many distance lookups. Invalid items are
// reported individually in the response.
//
// @Description Batch of distance lookups
type BatchDistanceRequest struct {
	Requests []DistanceRequest `json:"requests" binding:"required"`
} // @name BatchDistanceRequest

// Validate checks the batch size.
func (r *BatchDistanceRequest) Validate() error {
	return validateBatchSize(len(r.Requests))
}

// ToModel converts every item, preserving order.
func (r BatchDistanceRequest) ToModel() []model.Request {
	out := make([]model.Request, len(r.Requests))
	for i, item := range r.Requests {
		out[i] = item.ToModel()
	}
	return out
}

// BatchGeocodeRequest carries many address lookups.
//
// @Description Batch of address geocoding lookups
type BatchGeocodeRequest struct {
	Addresses []string `json:"addresses" binding:"required"`
} // @name BatchGeocodeRequest

// Validate checks the batch size.
func (r *BatchGeocodeRequest) Validate() error {
	return validateBatchSize(len(r.Addresses))
}

// ToModel converts every address, preserving order.
func (r BatchGeocodeRequest) ToModel() []model.Request {
	out := make([]model.Request, len(r.Addresses))
	for i, a := range r.Addresses {
		out[i] = model.NewGeocodeRequest(a)
	}
	return out
}

func validateBatchSize(n int) error {
	if n == 0 || n > MaxBatchSize {
		return ErrBatchSize
	}
	return nil
}
