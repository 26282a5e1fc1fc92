// Command maintenance runs one cache maintenance action against the
// configured store and prints the report.
//
//	maintenance [flags] run|cleanup|stats
//
// It reads the same environment configuration as the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/guttosm/geo-cache-service/config"
	"github.com/guttosm/geo-cache-service/internal/app"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/logger"
	"github.com/guttosm/geo-cache-service/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

// openFunc builds the maintainer for a configuration and returns a cleanup.
type openFunc func(ctx context.Context, cfg config.Config) (service.Maintainer, func(), error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], config.Load(), os.Stdout, os.Stderr, openMaintainer); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			stop()
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, args []string, cfg config.Config, stdout, stderr io.Writer, open openFunc) error {
	var (
		window  string
		asJSON  bool
		timeout time.Duration
	)
	flagSet := pflag.NewFlagSet("maintenance", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&window, "window", "", "usage window for statistics, e.g. 24h, 90m or 7d (default: MAINTENANCE_STATS_WINDOW)")
	flagSet.BoolVar(&asJSON, "json", false, "print the report as JSON")
	flagSet.DurationVar(&timeout, "timeout", cfg.Maintenance.Timeout, "bound on the whole action")
	flagSet.Usage = func() { printHelp(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return fmt.Errorf("expected exactly one action, got %d", flagSet.NArg())
	}
	action := strings.ToLower(flagSet.Arg(0))

	statsWindow, err := service.ParseWindow(window)
	if err != nil {
		return err
	}
	if statsWindow > 0 {
		cfg.Maintenance.StatsWindow = statsWindow
	}

	logger.InitWithWriter(cfg.Log.Level, cfg.Log.Pretty, stderr)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	maintainer, cleanup, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var report *model.MaintenanceReport
	switch action {
	case service.ActionRun:
		report, err = maintainer.RunMaintenance(ctx)
	case service.ActionCleanup:
		report, err = maintainer.Cleanup(ctx)
	case service.ActionStats:
		report, err = maintainer.Stats(ctx, statsWindow)
	default:
		return fmt.Errorf("unknown action %q (want run, cleanup or stats)", action)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(stdout, report)
	}
	if len(report.Errors) > 0 {
		return fmt.Errorf("%s finished with %d error(s)", action, len(report.Errors))
	}
	return nil
}

// openMaintainer wires the store, provider chains and maintenance job the
// same way the server does, without the HTTP surface or the scheduler.
func openMaintainer(ctx context.Context, cfg config.Config) (service.Maintainer, func(), error) {
	providers, err := app.InitializeProviders(cfg.Providers)
	if err != nil {
		return nil, nil, err
	}
	store, err := app.InitializeStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	services := app.InitializeServices(cfg, store.Store, providers)

	cleanup := func() {
		services.Usage.Stop()
		if err := store.Store.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to close cache store")
		}
	}
	return services.Maintenance, cleanup, nil
}

func printReport(w io.Writer, r *model.MaintenanceReport) {
	fmt.Fprintf(w, "action:           %s (%s)\n", r.Action, r.RunID)
	fmt.Fprintf(w, "duration:         %s\n", r.Duration().Round(time.Millisecond))
	if r.Action != service.ActionStats {
		fmt.Fprintf(w, "expired cleaned:  %d\n", r.ExpiredEntriesCleaned)
	}
	if r.Action != service.ActionCleanup {
		s := r.Stats
		fmt.Fprintf(w, "entries:          %d (%d expired)\n", s.TotalEntries, s.ExpiredEntries)
		fmt.Fprintf(w, "storage:          %d bytes\n", s.StorageSizeBytes)
		fmt.Fprintf(w, "window:           %s, %d hits / %d misses, hit rate %.1f%%\n",
			s.Window, s.WindowHits, s.WindowMisses, s.HitRateOverWindow*100)
		fmt.Fprintf(w, "monthly lookups:  %.0f\n", r.MonthlyLookupsEstimate)
		fmt.Fprintf(w, "monthly savings:  $%.2f\n", r.EstimatedMonthlySavings)
	}
	if r.Action == service.ActionRun {
		fmt.Fprintf(w, "warmed:           %d (%d failed)\n", r.Warmed, len(r.WarmFailures))
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(w, "recommendation:   %s\n", rec)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error:            %s\n", e)
	}
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `Run cache maintenance against the configured store.

Usage:
  maintenance [flags] run|cleanup|stats

Actions:
  run      sweep expired entries, report statistics and savings, warm hot routes
  cleanup  sweep expired entries only
  stats    report statistics without modifying the store

Flags:
%s`, flagSet.FlagUsages())
}
