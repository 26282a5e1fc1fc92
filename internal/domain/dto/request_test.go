package dto

import (
	"testing"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func TestDistanceRequest_Validate(t *testing.T) {
	point := &model.Coordinate{Lat: 32.7157, Lng: -117.1611}

	tests := []struct {
		name     string
		request  DistanceRequest
		expected error
	}{
		{name: "both points", request: DistanceRequest{Origin: point, Destination: point}},
		{name: "missing origin", request: DistanceRequest{Destination: point}, expected: ErrMissingCoordinates},
		{name: "missing destination", request: DistanceRequest{Origin: point}, expected: ErrMissingCoordinates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.expected, err)
		})
	}
}

func TestGeocodeRequest_Validate(t *testing.T) {
	assert.NoError(t, (&GeocodeRequest{Address: "1 Main St"}).Validate())
	assert.Equal(t, ErrBlankAddress, (&GeocodeRequest{Address: " \t "}).Validate())
}

func TestBatchRequests_Validate(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{name: "empty", size: 0, wantErr: true},
		{name: "single", size: 1},
		{name: "at limit", size: MaxBatchSize},
		{name: "over limit", size: MaxBatchSize + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := BatchGeocodeRequest{Addresses: make([]string, tt.size)}
			dist := BatchDistanceRequest{Requests: make([]DistanceRequest, tt.size)}
			if tt.wantErr {
				assert.Equal(t, ErrBatchSize, geo.Validate())
				assert.Equal(t, ErrBatchSize, dist.Validate())
			} else {
				assert.NoError(t, geo.Validate())
				assert.NoError(t, dist.Validate())
			}
		})
	}
}

func TestBatchDistanceRequest_ToModel(t *testing.T) {
	a := &model.Coordinate{Lat: 1, Lng: 2}
	b := &model.Coordinate{Lat: 3, Lng: 4}
	req := BatchDistanceRequest{Requests: []DistanceRequest{{Origin: a, Destination: b}, {Origin: b}}}

	out := req.ToModel()

	assert.Equal(t, []model.Request{
		model.NewDistanceRequest(*a, *b),
		{Kind: model.KindDistance, Origin: b},
	}, out)
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "address: must not be blank", ErrBlankAddress.Error())
}
