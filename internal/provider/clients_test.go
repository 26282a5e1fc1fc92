package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) ClientConfig {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return ClientConfig{BaseURL: srv.URL, APIKey: "test-key", RatePerSec: 1000, Burst: 100}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

var (
	sanDiego  = model.Coordinate{Lat: 32.7157, Lng: -117.1611}
	irvine    = model.Coordinate{Lat: 33.6846, Lng: -117.8265}
	oceanside = model.Coordinate{Lat: 33.1959, Lng: -117.3795}
)

func TestConstructors_RequireAPIKey(t *testing.T) {
	_, err := NewGeocodio(ClientConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewGoogleGeocoder(ClientConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewGoogleDistanceMatrix(ClientConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewOpenCage(ClientConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGeocodio_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		expectErr error
		check     func(t *testing.T, raw RawResult)
	}{
		{
			name:   "first result returned",
			status: http.StatusOK,
			body: `{"results":[
				{"formatted_address":"1 Main St, Carlsbad, CA","location":{"lat":33.1,"lng":-117.3},"accuracy":0.9,"accuracy_type":"rooftop"},
				{"formatted_address":"other","location":{"lat":0,"lng":0},"accuracy":0.1,"accuracy_type":"place"}]}`,
			check: func(t *testing.T, raw RawResult) {
				require.NotNil(t, raw.Geocodio)
				assert.Equal(t, NameGeocodio, raw.Source)
				assert.Equal(t, "1 Main St, Carlsbad, CA", raw.Geocodio.FormattedAddress)
				assert.Equal(t, 33.1, raw.Geocodio.Location.Lat)
			},
		},
		{
			name:      "empty results",
			status:    http.StatusOK,
			body:      `{"results":[]}`,
			expectErr: ErrNoResult,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/v1.9/geocode", r.URL.Path)
				assert.Equal(t, "1 main st carlsbad ca", r.URL.Query().Get("q"))
				assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
				w.WriteHeader(tt.status)
				writeJSON(w, tt.body)
			})
			g, err := NewGeocodio(cfg)
			require.NoError(t, err)

			raw, err := g.Resolve(context.Background(), model.NewGeocodeRequest("1 main st carlsbad ca"))

			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, raw)
		})
	}
}

func TestGeocodio_Resolve_HTTPError(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "invalid api key")
	})
	g, err := NewGeocodio(cfg)
	require.NoError(t, err)

	_, err = g.Resolve(context.Background(), model.NewGeocodeRequest("x"))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Contains(t, httpErr.Error(), "invalid api key")
}

func TestGeocodio_Resolve_UnsupportedKind(t *testing.T) {
	g, err := NewGeocodio(ClientConfig{APIKey: "k"})
	require.NoError(t, err)

	_, err = g.Resolve(context.Background(), model.NewDistanceRequest(sanDiego, irvine))

	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestGeocodio_ResolveBatch(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var addresses []string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&addresses))
		assert.Equal(t, []string{"1 a st", "nowhere", "3 c st"}, addresses)
		writeJSON(w, `{"results":[
			{"query":"1 a st","response":{"results":[{"formatted_address":"1 A St","location":{"lat":1,"lng":1},"accuracy":1,"accuracy_type":"rooftop"}]}},
			{"query":"nowhere","response":{"results":[]}},
			{"query":"3 c st","response":{"results":[{"formatted_address":"3 C St","location":{"lat":3,"lng":3},"accuracy":0.8,"accuracy_type":"range_interpolation"}]}}]}`)
	})
	g, err := NewGeocodio(cfg)
	require.NoError(t, err)

	items, err := g.ResolveBatch(context.Background(), []model.Request{
		model.NewGeocodeRequest("1 a st"),
		model.NewGeocodeRequest("nowhere"),
		model.NewGeocodeRequest("3 c st"),
	})

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.NoError(t, items[0].Err)
	assert.Equal(t, "1 A St", items[0].Result.Geocodio.FormattedAddress)
	assert.ErrorIs(t, items[1].Err, ErrNoResult)
	assert.NoError(t, items[2].Err)
	assert.Equal(t, 3.0, items[2].Result.Geocodio.Location.Lat)
}

func TestGeocodio_ResolveBatch_CountMismatch(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"results":[]}`)
	})
	g, err := NewGeocodio(cfg)
	require.NoError(t, err)

	_, err = g.ResolveBatch(context.Background(), []model.Request{model.NewGeocodeRequest("a")})

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestGoogleGeocoder_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		expectErr error
		apiErr    bool
	}{
		{
			name: "ok",
			body: `{"status":"OK","results":[{"formatted_address":"Carlsbad, CA","geometry":{"location":{"lat":33.15,"lng":-117.35},"location_type":"ROOFTOP"}}]}`,
		},
		{
			name:      "zero results",
			body:      `{"status":"ZERO_RESULTS","results":[]}`,
			expectErr: ErrNoResult,
		},
		{
			name:   "request denied",
			body:   `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`,
			apiErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
				assert.Equal(t, "us", r.URL.Query().Get("region"))
				assert.Equal(t, "test-key", r.URL.Query().Get("key"))
				writeJSON(w, tt.body)
			})
			g, err := NewGoogleGeocoder(cfg)
			require.NoError(t, err)

			raw, err := g.Resolve(context.Background(), model.NewGeocodeRequest("carlsbad"))

			switch {
			case tt.expectErr != nil:
				assert.ErrorIs(t, err, tt.expectErr)
			case tt.apiErr:
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "REQUEST_DENIED", apiErr.Status)
			default:
				require.NoError(t, err)
				payload, err := raw.Normalize()
				require.NoError(t, err)
				assert.Equal(t, 0.9, payload.Geocode.Confidence)
				assert.Equal(t, model.AccuracyRooftop, payload.Geocode.Accuracy)
			}
		})
	}
}

func TestGoogleDistanceMatrix_ResolveBatch(t *testing.T) {
	var calls atomic.Int32
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		origins := strings.Split(r.URL.Query().Get("origins"), "|")
		destinations := strings.Split(r.URL.Query().Get("destinations"), "|")

		type element struct {
			Status   string          `json:"status"`
			Distance GoogleTextValue `json:"distance"`
			Duration GoogleTextValue `json:"duration"`
		}
		type row struct {
			Elements []element `json:"elements"`
		}
		resp := struct {
			Status string `json:"status"`
			Rows   []row  `json:"rows"`
		}{Status: "OK"}
		for i := range origins {
			var rw row
			for j := range destinations {
				el := element{Status: "OK", Distance: GoogleTextValue{Value: float64((i+1)*1000 + j)}, Duration: GoogleTextValue{Value: 60}}
				if origins[i] == destinations[j] {
					el = element{Status: "ZERO_RESULTS"}
				}
				rw.Elements = append(rw.Elements, el)
			}
			resp.Rows = append(resp.Rows, rw)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	g, err := NewGoogleDistanceMatrix(cfg)
	require.NoError(t, err)

	items, err := g.ResolveBatch(context.Background(), []model.Request{
		model.NewDistanceRequest(sanDiego, irvine),
		model.NewDistanceRequest(sanDiego, oceanside),
		model.NewDistanceRequest(irvine, oceanside),
		model.NewDistanceRequest(irvine, irvine),
	})

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, items, 4)
	// origins [sanDiego, irvine], destinations [irvine, oceanside]
	assert.Equal(t, 1000.0, items[0].Result.GoogleDistance.Distance.Value)
	assert.Equal(t, 1001.0, items[1].Result.GoogleDistance.Distance.Value)
	assert.Equal(t, 2001.0, items[2].Result.GoogleDistance.Distance.Value)
	assert.ErrorIs(t, items[3].Err, ErrNoResult)
}

func TestGoogleDistanceMatrix_Resolve_Denied(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"OVER_QUERY_LIMIT","error_message":"quota"}`)
	})
	g, err := NewGoogleDistanceMatrix(cfg)
	require.NoError(t, err)

	_, err = g.Resolve(context.Background(), model.NewDistanceRequest(sanDiego, irvine))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "OVER_QUERY_LIMIT", apiErr.Status)
}

func TestOpenCage_Resolve(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "us", r.URL.Query().Get("countrycode"))
		writeJSON(w, `{"status":{"code":200,"message":"OK"},"results":[{"formatted":"Vista, CA","confidence":8,"geometry":{"lat":33.2,"lng":-117.24}}]}`)
	})
	o, err := NewOpenCage(cfg)
	require.NoError(t, err)

	raw, err := o.Resolve(context.Background(), model.NewGeocodeRequest("vista ca"))

	require.NoError(t, err)
	payload, err := raw.Normalize()
	require.NoError(t, err)
	assert.InDelta(t, 0.8, payload.Geocode.Confidence, 1e-9)
	assert.Equal(t, "Vista, CA", payload.Geocode.FormattedAddress)
}

func TestNominatim_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		expectErr error
	}{
		{name: "match", body: `[{"lat":"32.7157","lon":"-117.1611","display_name":"San Diego, CA","importance":0.82}]`},
		{name: "no match", body: `[]`, expectErr: ErrNoResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/search", r.URL.Path)
				assert.Equal(t, "json", r.URL.Query().Get("format"))
				assert.Equal(t, nominatimUserAgent, r.Header.Get("User-Agent"))
				writeJSON(w, tt.body)
			})
			n := NewNominatim(cfg)

			raw, err := n.Resolve(context.Background(), model.NewGeocodeRequest("san diego"))

			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			payload, err := raw.Normalize()
			require.NoError(t, err)
			assert.Equal(t, 32.7157, payload.Geocode.Latitude)
			assert.Equal(t, 0.82, payload.Geocode.Confidence)
		})
	}
}

func TestNominatim_RateCappedAtOnePerSecond(t *testing.T) {
	n := NewNominatim(ClientConfig{RatePerSec: 50, Burst: 10})

	assert.Equal(t, 1.0, float64(n.limiter.Limit()))
	assert.Equal(t, 1, n.limiter.Burst())
}

func TestOSRM_Resolve(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/-117.1611,32.7157;-117.8265,33.6846", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("overview"))
		writeJSON(w, `{"code":"Ok","routes":[{"duration":5400.5,"distance":140123.4}]}`)
	})
	o := NewOSRM(cfg)

	raw, err := o.Resolve(context.Background(), model.NewDistanceRequest(sanDiego, irvine))

	require.NoError(t, err)
	require.NotNil(t, raw.OSRM)
	assert.Equal(t, 5400.5, raw.OSRM.Duration)
	assert.Equal(t, 140123.4, raw.OSRM.Distance)
}

func TestOSRM_Resolve_NoRoute(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":"NoRoute","message":"Impossible route between points"}`)
	})

	_, err := NewOSRM(cfg).Resolve(context.Background(), model.NewDistanceRequest(sanDiego, irvine))

	assert.ErrorIs(t, err, ErrNoResult)
}

func TestOSRM_ResolveBatch(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/table/v1/driving/"))
		// origins [sanDiego, irvine], destinations [irvine, oceanside]
		assert.Equal(t, "0;1", r.URL.Query().Get("sources"))
		assert.Equal(t, "2;3", r.URL.Query().Get("destinations"))
		writeJSON(w, `{"code":"Ok",
			"durations":[[100,200],[null,400]],
			"distances":[[1000,2000],[null,4000]]}`)
	})

	items, err := NewOSRM(cfg).ResolveBatch(context.Background(), []model.Request{
		model.NewDistanceRequest(sanDiego, irvine),
		model.NewDistanceRequest(sanDiego, oceanside),
		model.NewDistanceRequest(irvine, irvine),
		model.NewDistanceRequest(irvine, oceanside),
	})

	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, 1000.0, items[0].Result.OSRM.Distance)
	assert.Equal(t, 200.0, items[1].Result.OSRM.Duration)
	assert.ErrorIs(t, items[2].Err, ErrNoResult)
	assert.Equal(t, 4000.0, items[3].Result.OSRM.Distance)
}

func TestHTTPProvider_CanceledContext(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[]`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNominatim(cfg).Resolve(ctx, model.NewGeocodeRequest("x"))

	assert.ErrorIs(t, err, context.Canceled)
}
