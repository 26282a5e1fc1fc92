package cachekey

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distance(olat, olng, dlat, dlng float64) model.Request {
	return model.NewDistanceRequest(
		model.Coordinate{Lat: olat, Lng: olng},
		model.Coordinate{Lat: dlat, Lng: dlng},
	)
}

func TestNew_Precision(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		expected  int
	}{
		{name: "default precision kept", precision: 4, expected: 4},
		{name: "minimum accepted", precision: 3, expected: 3},
		{name: "maximum accepted", precision: 6, expected: 6},
		{name: "too coarse falls back", precision: 1, expected: DefaultPrecision},
		{name: "too fine falls back", precision: 9, expected: DefaultPrecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.precision).Precision())
		})
	}
}

func TestNormalizer_Distance(t *testing.T) {
	n := New(DefaultPrecision)

	tests := []struct {
		name     string
		req      model.Request
		expected string
	}{
		{
			name:     "rounds to four decimals",
			req:      distance(32.715738, -117.161084, 33.684567, -117.826505),
			expected: "32.7157,-117.1611:33.6846,-117.8265",
		},
		{
			name:     "pads short values",
			req:      distance(32.7, -117.1, 33, -117),
			expected: "32.7000,-117.1000:33.0000,-117.0000",
		},
		{
			name:     "folds negative zero",
			req:      distance(-0.00001, 0.00001, 10, 20),
			expected: "0.0000,0.0000:10.0000,20.0000",
		},
		{
			name:     "accepts range boundaries",
			req:      distance(90, 180, -90, -180),
			expected: "90.0000,180.0000:-90.0000,-180.0000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := n.Normalize(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, key.Value)
			assert.Equal(t, model.KindDistance, key.Kind)
			assert.Equal(t, model.KindDistance, key.Request.Kind)
		})
	}
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := New(DefaultPrecision)
	reqs := []model.Request{
		distance(32.715738, -117.161084, 33.684567, -117.826505),
		distance(-33.86882, 151.20929, -37.81363, 144.96306),
		distance(0, 0, 1e-7, -1e-7),
		model.NewGeocodeRequest("  145 Hannalei Dr,   Vista CA 92083. "),
	}

	for _, req := range reqs {
		first, err := n.Normalize(req)
		require.NoError(t, err)
		second, err := n.Normalize(first.Request)
		require.NoError(t, err)
		assert.Equal(t, first.Value, second.Value, req.String())
		assert.Equal(t, first.Request, second.Request)
	}
}

func TestNormalizer_JitterCollides(t *testing.T) {
	n := New(DefaultPrecision)

	a, err := n.Normalize(distance(32.71571, -117.16112, 33.68461, -117.82648))
	require.NoError(t, err)
	b, err := n.Normalize(distance(32.71574, -117.16108, 33.68459, -117.82652))
	require.NoError(t, err)

	assert.Equal(t, a.Value, b.Value)
}

func TestNormalizer_Directional(t *testing.T) {
	n := New(DefaultPrecision)

	ab, err := n.Normalize(distance(32.7157, -117.1611, 33.6846, -117.8265))
	require.NoError(t, err)
	ba, err := n.Normalize(distance(33.6846, -117.8265, 32.7157, -117.1611))
	require.NoError(t, err)

	assert.NotEqual(t, ab.Value, ba.Value)
}

func TestNormalizer_Geocode(t *testing.T) {
	n := New(DefaultPrecision)

	base, err := n.Normalize(model.NewGeocodeRequest("145 hannalei dr, vista ca 92083"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(base.Value, "addr:"))
	assert.Len(t, base.Value, len("addr:")+40)
	assert.Equal(t, model.KindGeocode, base.Kind)
	assert.Equal(t, "145 hannalei dr, vista ca 92083", base.Request.Address)

	variants := []string{
		"145 Hannalei Dr, Vista CA 92083",
		"  145   HANNALEI dr,\tVista CA 92083  ",
		"145 Hannalei Dr, Vista CA 92083.",
		"145 Hannalei Dr, Vista CA 92083 !?",
	}
	for _, v := range variants {
		key, err := n.Normalize(model.NewGeocodeRequest(v))
		require.NoError(t, err)
		assert.Equal(t, base.Value, key.Value, v)
	}

	other, err := n.Normalize(model.NewGeocodeRequest("146 hannalei dr, vista ca 92083"))
	require.NoError(t, err)
	assert.NotEqual(t, base.Value, other.Value)
}

func TestNormalizer_InvalidRequests(t *testing.T) {
	n := New(DefaultPrecision)
	origin := model.Coordinate{Lat: 1, Lng: 1}

	tests := []struct {
		name string
		req  model.Request
	}{
		{name: "NaN latitude", req: distance(math.NaN(), 0, 1, 1)},
		{name: "infinite longitude", req: distance(0, math.Inf(1), 1, 1)},
		{name: "latitude out of range", req: distance(91, 0, 1, 1)},
		{name: "longitude out of range", req: distance(0, 0, 1, -181)},
		{name: "missing destination", req: model.Request{Kind: model.KindDistance, Origin: &origin}},
		{name: "empty address", req: model.NewGeocodeRequest("")},
		{name: "whitespace address", req: model.NewGeocodeRequest("   \t ")},
		{name: "punctuation only address", req: model.NewGeocodeRequest(" ... ")},
		{name: "unknown kind", req: model.Request{Kind: "ROUTE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrInvalidRequest))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "Main St.", expected: "main st"},
		{in: "Main St. ,", expected: "main st"},
		{in: "  A   B  ", expected: "a b"},
		{in: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.in))
		})
	}
}
