package model

import "time"

// MaintenanceReport summarises one maintenance run.
//
// @Description Outcome of a cache maintenance run
type MaintenanceReport struct {
	RunID                   string         `json:"run_id" example:"0b6f9a4e-4a7c-4bd8-8bde-0d5bb0f6e0a1"`
	Action                  string         `json:"action" example:"run"`
	StartedAt               time.Time      `json:"started_at"`
	FinishedAt              time.Time      `json:"finished_at"`
	ExpiredEntriesCleaned   int64          `json:"expired_entries_cleaned" example:"4"`
	Stats                   AggregateStats `json:"stats"`
	Session                 *Performance   `json:"session,omitempty"`
	MonthlyLookupsEstimate  float64        `json:"monthly_lookups_estimate" example:"30000"`
	EstimatedMonthlySavings float64        `json:"estimated_monthly_savings" example:"120"`
	Recommendations         []string       `json:"recommendations"`
	Warmed                  int            `json:"warmed" example:"25"`
	WarmFailures            []WarmFailure  `json:"warm_failures,omitempty"`
	Errors                  []string       `json:"errors,omitempty"`
} // @name MaintenanceReport

// Duration is how long the run took.
func (r *MaintenanceReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
