package provider

import (
	"fmt"
	"math"
	"strconv"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

// RawResult is a provider response tagged by its source. Exactly one of the
// variant pointers matching Source is set.
type RawResult struct {
	Source         string
	Geocodio       *GeocodioResult
	GoogleGeocode  *GoogleGeocodeResult
	GoogleDistance *GoogleDistanceElement
	OpenCage       *OpenCageResult
	Nominatim      *NominatimResult
	OSRM           *OSRMRoute
}

// Normalize maps the raw result into the canonical stored payload.
func (r RawResult) Normalize() (model.Payload, error) {
	switch {
	case r.Source == NameGeocodio && r.Geocodio != nil:
		return convertGeocodio(r.Geocodio), nil
	case r.Source == NameGoogle && r.GoogleGeocode != nil:
		return convertGoogleGeocode(r.GoogleGeocode), nil
	case r.Source == NameGoogleDistance && r.GoogleDistance != nil:
		return convertGoogleDistance(r.GoogleDistance), nil
	case r.Source == NameOpenCage && r.OpenCage != nil:
		return convertOpenCage(r.OpenCage), nil
	case r.Source == NameNominatim && r.Nominatim != nil:
		return convertNominatim(r.Nominatim)
	case r.Source == NameOSRM && r.OSRM != nil:
		return convertOSRM(r.OSRM), nil
	default:
		return model.Payload{}, fmt.Errorf("raw result from %q has no matching variant", r.Source)
	}
}

// LatLng is the {lat, lng} object used by Geocodio and Google.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeocodioResult is one entry of a Geocodio "results" array.
type GeocodioResult struct {
	FormattedAddress string  `json:"formatted_address"`
	Location         LatLng  `json:"location"`
	Accuracy         float64 `json:"accuracy"`
	AccuracyType     string  `json:"accuracy_type"`
	Source           string  `json:"source"`
}

var geocodioAccuracy = map[string]string{
	"rooftop":               model.AccuracyRooftop,
	"point":                 model.AccuracyRooftop,
	"range_interpolation":   model.AccuracyRangeInterpolation,
	"nearest_rooftop_match": model.AccuracyRangeInterpolation,
	"intersection":          model.AccuracyGeometricCenter,
	"street_center":         model.AccuracyGeometricCenter,
	"geometric_center":      model.AccuracyGeometricCenter,
	"place":                 model.AccuracyApproximate,
	"county":                model.AccuracyApproximate,
	"state":                 model.AccuracyApproximate,
}

func convertGeocodio(r *GeocodioResult) model.Payload {
	return model.Payload{Geocode: &model.GeocodePayload{
		Latitude:         r.Location.Lat,
		Longitude:        r.Location.Lng,
		Accuracy:         mapAccuracy(geocodioAccuracy, r.AccuracyType),
		Confidence:       clamp01(r.Accuracy),
		FormattedAddress: r.FormattedAddress,
		Source:           NameGeocodio,
	}}
}

// GoogleGeocodeResult is one entry of a Google Geocoding "results" array.
type GoogleGeocodeResult struct {
	FormattedAddress string `json:"formatted_address"`
	PlaceID          string `json:"place_id"`
	Geometry         struct {
		Location     LatLng `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
}

var googleAccuracy = map[string]string{
	"ROOFTOP":            model.AccuracyRooftop,
	"RANGE_INTERPOLATED": model.AccuracyRangeInterpolation,
	"GEOMETRIC_CENTER":   model.AccuracyGeometricCenter,
	"APPROXIMATE":        model.AccuracyApproximate,
}

// Google does not report a score; confidence follows the location type.
var googleConfidence = map[string]float64{
	"ROOFTOP":            0.9,
	"RANGE_INTERPOLATED": 0.7,
}

func convertGoogleGeocode(r *GoogleGeocodeResult) model.Payload {
	confidence, ok := googleConfidence[r.Geometry.LocationType]
	if !ok {
		confidence = 0.5
	}
	return model.Payload{Geocode: &model.GeocodePayload{
		Latitude:         r.Geometry.Location.Lat,
		Longitude:        r.Geometry.Location.Lng,
		Accuracy:         mapAccuracy(googleAccuracy, r.Geometry.LocationType),
		Confidence:       confidence,
		FormattedAddress: r.FormattedAddress,
		Source:           NameGoogle,
	}}
}

// GoogleTextValue is the {text, value} pair used for distance and duration.
type GoogleTextValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// GoogleDistanceElement is one cell of a Distance Matrix response.
type GoogleDistanceElement struct {
	Status   string          `json:"status"`
	Duration GoogleTextValue `json:"duration"`
	Distance GoogleTextValue `json:"distance"`
}

func convertGoogleDistance(e *GoogleDistanceElement) model.Payload {
	return model.Payload{Distance: &model.DistancePayload{
		DurationSeconds: e.Duration.Value,
		DistanceMeters:  e.Distance.Value,
		DurationText:    e.Duration.Text,
		DistanceText:    e.Distance.Text,
	}}
}

// OpenCageResult is one entry of an OpenCage "results" array.
type OpenCageResult struct {
	Formatted  string  `json:"formatted"`
	Confidence float64 `json:"confidence"`
	Geometry   LatLng  `json:"geometry"`
}

func convertOpenCage(r *OpenCageResult) model.Payload {
	return model.Payload{Geocode: &model.GeocodePayload{
		Latitude:         r.Geometry.Lat,
		Longitude:        r.Geometry.Lng,
		Accuracy:         model.AccuracyApproximate,
		Confidence:       clamp01(r.Confidence / 10),
		FormattedAddress: r.Formatted,
		Source:           NameOpenCage,
	}}
}

// NominatimResult is one entry of a Nominatim search response. Coordinates
// arrive as strings.
type NominatimResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

func convertNominatim(r *NominatimResult) (model.Payload, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return model.Payload{}, fmt.Errorf("nominatim latitude %q: %w", r.Lat, err)
	}
	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return model.Payload{}, fmt.Errorf("nominatim longitude %q: %w", r.Lon, err)
	}
	confidence := r.Importance
	if confidence == 0 {
		confidence = 0.5
	}
	return model.Payload{Geocode: &model.GeocodePayload{
		Latitude:         lat,
		Longitude:        lng,
		Accuracy:         model.AccuracyApproximate,
		Confidence:       clamp01(confidence),
		FormattedAddress: r.DisplayName,
		Source:           NameNominatim,
	}}, nil
}

// OSRMRoute is a single route or table cell from an OSRM server.
type OSRMRoute struct {
	Duration float64 `json:"duration"`
	Distance float64 `json:"distance"`
}

func convertOSRM(r *OSRMRoute) model.Payload {
	return model.Payload{Distance: &model.DistancePayload{
		DurationSeconds: r.Duration,
		DistanceMeters:  r.Distance,
		DurationText:    formatDuration(r.Duration),
		DistanceText:    formatDistance(r.Distance),
	}}
}

func mapAccuracy(m map[string]string, v string) string {
	if a, ok := m[v]; ok {
		return a
	}
	return model.AccuracyApproximate
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func formatDuration(seconds float64) string {
	mins := int(math.Round(seconds / 60))
	if mins < 60 {
		return fmt.Sprintf("%d mins", mins)
	}
	return fmt.Sprintf("%d hours %d mins", mins/60, mins%60)
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}
