package service

import (
	"testing"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommend(t *testing.T) {
	healthy := model.AggregateStats{
		TotalEntries:      100,
		ExpiredEntries:    5,
		StorageSizeBytes:  1 << 20,
		Window:            "24h0m0s",
		WindowHits:        90,
		WindowMisses:      10,
		HitRateOverWindow: 0.9,
	}

	tests := []struct {
		name     string
		mutate   func(s *model.AggregateStats)
		contains []string
	}{
		{name: "healthy cache", mutate: func(*model.AggregateStats) {}},
		{
			name: "low hit rate",
			mutate: func(s *model.AggregateStats) {
				s.WindowHits, s.WindowMisses, s.HitRateOverWindow = 40, 60, 0.4
			},
			contains: []string{"warm the cache"},
		},
		{
			name: "no lookups",
			mutate: func(s *model.AggregateStats) {
				s.WindowHits, s.WindowMisses, s.HitRateOverWindow = 0, 0, 0
			},
			contains: []string{"No lookups recorded in the last 24h0m0s"},
		},
		{
			name:     "oversized store",
			mutate:   func(s *model.AggregateStats) { s.StorageSizeBytes = 300 << 20 },
			contains: []string{"consider shorter TTLs"},
		},
		{
			name:     "many expired entries",
			mutate:   func(s *model.AggregateStats) { s.ExpiredEntries = 40 },
			contains: []string{"40% of entries are expired; run the cleanup more frequently"},
		},
		{
			name:     "store errors",
			mutate:   func(s *model.AggregateStats) { s.WindowStoreErrors = 3 },
			contains: []string{"3 cache store errors in the last 24h0m0s; check store health"},
		},
		{
			name: "several rules fire in order",
			mutate: func(s *model.AggregateStats) {
				s.HitRateOverWindow = 0.1
				s.ExpiredEntries = 80
			},
			contains: []string{"warm the cache", "run the cleanup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := healthy
			tt.mutate(&stats)

			recs := Recommend(stats, DefaultThresholds())

			require.NotNil(t, recs)
			require.Len(t, recs, len(tt.contains))
			for i, fragment := range tt.contains {
				assert.Contains(t, recs[i], fragment)
			}
		})
	}
}

func TestRecommend_NoLookupsSkipsHitRateRule(t *testing.T) {
	recs := Recommend(model.AggregateStats{Window: "1h0m0s"}, DefaultThresholds())

	require.Len(t, recs, 1)
	assert.NotContains(t, recs[0], "warm the cache")
}
