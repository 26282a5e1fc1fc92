package service

import (
	"math"
	"time"
)

// BillingPeriod is the month length used to extrapolate observed lookups.
const BillingPeriod = 30 * 24 * time.Hour

// CalculateMonthlySavings estimates the provider spend avoided per month:
// monthlyLookups × hitRate / 1000 × costPer1000. hitRate is clamped to
// [0, 1]; negative lookups or cost yield 0.
//
//	CalculateMonthlySavings(0.8, 1000, 5) == 4.0
func CalculateMonthlySavings(hitRate, monthlyLookups, costPer1000 float64) float64 {
	if monthlyLookups <= 0 || costPer1000 <= 0 || math.IsNaN(hitRate) {
		return 0
	}
	hitRate = math.Max(0, math.Min(1, hitRate))
	return monthlyLookups * hitRate / 1000 * costPer1000
}

// ExtrapolateMonthlyLookups scales the lookups observed over window to a
// BillingPeriod.
func ExtrapolateMonthlyLookups(observed int64, window time.Duration) float64 {
	if observed <= 0 || window <= 0 {
		return 0
	}
	return float64(observed) * float64(BillingPeriod) / float64(window)
}
