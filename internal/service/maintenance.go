package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/metrics"
	"github.com/guttosm/geo-cache-service/internal/repository"
	"github.com/rs/zerolog/log"
)

// Maintenance actions.
const (
	ActionRun     = "run"
	ActionCleanup = "cleanup"
	ActionStats   = "stats"
)

// Warmer pre-populates the cache and exposes session counters.
// LookupService satisfies it.
type Warmer interface {
	Warm(ctx context.Context, reqs []model.Request) WarmResult
	GetPerformance() model.Performance
}

// ParseWindow parses a stats window such as "24h", "90m" or "7d". The
// empty string yields 0, which selects the configured window.
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	var (
		d   time.Duration
		err error
	)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		var n int
		n, err = strconv.Atoi(days)
		d = time.Duration(n) * 24 * time.Hour
	} else {
		d, err = time.ParseDuration(s)
	}
	if err != nil || d <= 0 {
		return 0, model.InvalidRequestf("invalid stats window %q", s)
	}
	return d, nil
}

// Maintainer runs on-demand maintenance. MaintenanceJob implements it.
type Maintainer interface {
	RunMaintenance(ctx context.Context) (*model.MaintenanceReport, error)
	Cleanup(ctx context.Context) (*model.MaintenanceReport, error)
	Stats(ctx context.Context, window time.Duration) (*model.MaintenanceReport, error)
}

// MaintenanceConfig holds the maintenance job settings.
type MaintenanceConfig struct {
	// StatsWindow is the usage window for hit rate and savings.
	StatsWindow time.Duration
	// CostPer1000 is the provider price used for the savings estimate.
	CostPer1000 float64
	Thresholds  Thresholds
	// WarmLimit bounds the requests warmed per run; 0 disables warming.
	WarmLimit int
}

// DefaultMaintenanceConfig returns the production defaults.
func DefaultMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		StatsWindow: 24 * time.Hour,
		CostPer1000: 5.0,
		Thresholds:  DefaultThresholds(),
		WarmLimit:   100,
	}
}

// MaintenanceJob sweeps expired entries, reports statistics and savings,
// and warms hot routes. Runs never overlap within one process.
type MaintenanceJob struct {
	store   repository.CacheStore
	warmer  Warmer
	source  WarmSource
	cfg     MaintenanceConfig
	running atomic.Bool
	now     func() time.Time
}

// NewMaintenanceJob creates a job. warmer and source may be nil, which
// disables warming.
func NewMaintenanceJob(store repository.CacheStore, warmer Warmer, source WarmSource, cfg MaintenanceConfig) *MaintenanceJob {
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = DefaultMaintenanceConfig().StatsWindow
	}
	return &MaintenanceJob{
		store:  store,
		warmer: warmer,
		source: source,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Running reports whether a run is in progress.
func (j *MaintenanceJob) Running() bool {
	return j.running.Load()
}

func (j *MaintenanceJob) begin(action string) (*model.MaintenanceReport, error) {
	if !j.running.CompareAndSwap(false, true) {
		metrics.RecordMaintenance(action, "skipped", 0)
		return nil, model.ErrMaintenanceInProgress
	}
	return &model.MaintenanceReport{
		RunID:           uuid.NewString(),
		Action:          action,
		StartedAt:       j.now().UTC(),
		Recommendations: []string{},
	}, nil
}

func (j *MaintenanceJob) finish(report *model.MaintenanceReport) {
	j.running.Store(false)
	report.FinishedAt = j.now().UTC()

	result := "success"
	if len(report.Errors) > 0 || len(report.WarmFailures) > 0 {
		result = "partial"
	}
	metrics.RecordMaintenance(report.Action, result, report.ExpiredEntriesCleaned)

	log.Info().
		Str("run_id", report.RunID).
		Str("action", report.Action).
		Int64("expired_cleaned", report.ExpiredEntriesCleaned).
		Int("warmed", report.Warmed).
		Int("warm_failures", len(report.WarmFailures)).
		Int("errors", len(report.Errors)).
		Dur("duration", report.Duration()).
		Msg("Cache maintenance finished")
}

// ping fails the run only when the store cannot be reached at all.
func (j *MaintenanceJob) ping(ctx context.Context, action string) error {
	if err := j.store.Ping(ctx); err != nil {
		j.running.Store(false)
		metrics.RecordMaintenance(action, "error", 0)
		log.Error().Err(err).Str("action", action).Msg("Cache store unreachable, maintenance aborted")
		return fmt.Errorf("maintenance %s: %w", action, model.NewStoreError(repository.OpPing, err))
	}
	return nil
}

// RunMaintenance performs a full run: sweep, statistics, savings,
// recommendations and warming. Partial failures are listed in the report;
// an error is returned only when the store is unreachable or a run is
// already in progress.
func (j *MaintenanceJob) RunMaintenance(ctx context.Context) (*model.MaintenanceReport, error) {
	report, err := j.begin(ActionRun)
	if err != nil {
		return nil, err
	}
	if err := j.ping(ctx, ActionRun); err != nil {
		return nil, err
	}
	defer j.finish(report)

	j.sweep(ctx, report)
	j.collectStats(ctx, report)
	j.warm(ctx, report)
	if j.warmer != nil {
		perf := j.warmer.GetPerformance()
		report.Session = &perf
	}
	return report, nil
}

// Cleanup only removes expired entries.
func (j *MaintenanceJob) Cleanup(ctx context.Context) (*model.MaintenanceReport, error) {
	report, err := j.begin(ActionCleanup)
	if err != nil {
		return nil, err
	}
	if err := j.ping(ctx, ActionCleanup); err != nil {
		return nil, err
	}
	defer j.finish(report)

	j.sweep(ctx, report)
	return report, nil
}

// Stats reports aggregate statistics, savings and recommendations without
// modifying the store. It does not take the run guard.
func (j *MaintenanceJob) Stats(ctx context.Context, window time.Duration) (*model.MaintenanceReport, error) {
	if window <= 0 {
		window = j.cfg.StatsWindow
	}
	report := &model.MaintenanceReport{
		RunID:           uuid.NewString(),
		Action:          ActionStats,
		StartedAt:       j.now().UTC(),
		Recommendations: []string{},
	}
	stats, err := j.store.AggregateStats(ctx, window, j.now())
	if err != nil {
		return nil, fmt.Errorf("maintenance stats: %w", err)
	}
	j.applyStats(report, stats, window, 0)
	if j.warmer != nil {
		perf := j.warmer.GetPerformance()
		report.Session = &perf
	}
	report.FinishedAt = j.now().UTC()
	return report, nil
}

func (j *MaintenanceJob) sweep(ctx context.Context, report *model.MaintenanceReport) {
	cleaned, err := j.store.DeleteExpired(ctx, j.now())
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("delete expired: %v", err))
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("Expired entry sweep failed")
		return
	}
	report.ExpiredEntriesCleaned = cleaned
}

func (j *MaintenanceJob) collectStats(ctx context.Context, report *model.MaintenanceReport) {
	stats, err := j.store.AggregateStats(ctx, j.cfg.StatsWindow, j.now())
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("aggregate stats: %v", err))
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("Aggregate stats failed")
		return
	}
	j.applyStats(report, stats, j.cfg.StatsWindow, report.ExpiredEntriesCleaned)
}

// applyStats fills the statistics part of report. swept is the number of
// entries the same run just deleted; they count as expired when judging the
// sweep frequency, since the stats were read after the sweep.
func (j *MaintenanceJob) applyStats(report *model.MaintenanceReport, stats model.AggregateStats, window time.Duration, swept int64) {
	report.Stats = stats
	report.MonthlyLookupsEstimate = ExtrapolateMonthlyLookups(stats.WindowLookups(), window)
	report.EstimatedMonthlySavings = CalculateMonthlySavings(stats.HitRateOverWindow, report.MonthlyLookupsEstimate, j.cfg.CostPer1000)

	judged := stats
	judged.TotalEntries += swept
	judged.ExpiredEntries += swept
	report.Recommendations = Recommend(judged, j.cfg.Thresholds)

	metrics.UpdateCacheMetrics(stats.TotalEntries, stats.ExpiredEntries, stats.HitRateOverWindow)
	metrics.EstimatedMonthlySavings.Set(report.EstimatedMonthlySavings)
}

func (j *MaintenanceJob) warm(ctx context.Context, report *model.MaintenanceReport) {
	if j.warmer == nil || j.source == nil || j.cfg.WarmLimit <= 0 {
		return
	}
	reqs, err := j.source.Routes(ctx, j.cfg.WarmLimit)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("warm source: %v", err))
		log.Warn().Err(err).Str("source", j.source.Name()).Msg("Warm source failed")
	}
	if len(reqs) == 0 {
		return
	}

	result := j.warmer.Warm(ctx, reqs)
	report.Warmed = result.Warmed
	report.WarmFailures = result.Failures
	if err := result.Err(); err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("Cache warming incomplete")
	}
}
