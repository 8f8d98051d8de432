// Command jobrunner executes one recalibration job synchronously and
// exits. It exists for cron-style deployments and for operators who want a
// dry run before letting the scheduled jobs touch the bias records.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"shiftcast/internal/config"
	"shiftcast/internal/correction"
	"shiftcast/internal/infrastructure"
	"shiftcast/internal/jobs"
	"shiftcast/internal/services"
	"shiftcast/internal/store"
	"shiftcast/internal/store/memory"
	"shiftcast/internal/store/postgres"
	"shiftcast/pkg/contracts/domain"
)

func main() {
	os.Exit(run())
}

// run holds the real main body so deferred cleanup still fires before the
// process exits with a status code.
func run() int {
	jobName := flag.String("job", "all", "job to run: bias_decay, pacing_refresh, accuracy_refresh, or all")
	venue := flag.String("venue", "", "restrict the run to one venue ID")
	dryRun := flag.Bool("dry-run", false, "compute and log changes without writing them")
	flag.Parse()

	kinds, err := resolveKinds(*jobName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", slog.String("error", err.Error()))
		return 1
	}
	defer infrastructure.CloseLogFile()
	logger = logger.With(slog.String("component", "jobrunner"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open stores", slog.String("error", err.Error()))
		return 1
	}
	defer cleanup()

	runner, err := buildRunner(cfg, stores, *dryRun, logger)
	if err != nil {
		logger.Error("failed to build runner", slog.String("error", err.Error()))
		return 1
	}

	exitCode := 0
	for _, kind := range kinds {
		record, err := runner.RunSync(ctx, kind, *venue)
		if err != nil {
			logger.Error("job failed",
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()))
			exitCode = 1
			continue
		}
		logger.Info("job finished",
			slog.String("kind", string(kind)),
			slog.String("job_id", record.ID),
			slog.String("status", string(record.Status)),
			slog.Int("venues_processed", record.VenuesProcessed),
			slog.Int("venues_skipped", record.VenuesSkipped),
			slog.Int("venues_failed", record.VenuesFailed),
			slog.String("message", record.Message))
		if record.Status == domain.JobStatusFailed || record.VenuesFailed > 0 {
			exitCode = 1
		}
	}
	return exitCode
}

func resolveKinds(name string) ([]domain.JobKind, error) {
	if name == "all" {
		return []domain.JobKind{
			domain.JobKindBiasDecay,
			domain.JobKindPacingRefresh,
			domain.JobKindAccuracyRefresh,
		}, nil
	}
	kind := domain.JobKind(name)
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown job %q", name)
	}
	return []domain.JobKind{kind}, nil
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Stores, func(), error) {
	if cfg.UseMemoryStores() {
		logger.Warn("no database configured, using in-memory stores")
		return memory.NewStores(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return store.Stores{}, nil, fmt.Errorf("connect to database: %w", err)
	}
	return postgres.NewStores(pool), pool.Close, nil
}

func buildRunner(cfg *config.Config, stores store.Stores, dryRun bool, logger *slog.Logger) (*jobs.Runner, error) {
	corrector, err := correction.NewCorrector(cfg.Correction.Params(), logger)
	if err != nil {
		return nil, fmt.Errorf("build corrector: %w", err)
	}
	forecasts := services.NewForecastService(stores, corrector, logger)

	runner := jobs.NewRunner(jobs.RunnerConfig{Workers: 1}, stores.Audit, nil, logger, nil)
	runner.Register(
		jobs.NewDecayJob(stores, jobs.DecayConfig{
			Params:  cfg.Correction.DecayParams(),
			Cadence: cfg.Jobs.DecayInterval,
			DryRun:  dryRun,
		}, logger, nil),
		jobs.NewPacingRefreshJob(stores, jobs.PacingConfig{
			Params:       cfg.Correction.Params(),
			LookbackDays: cfg.Correction.LookbackDays,
			MinSamples:   cfg.Correction.MinSamples,
			Concurrency:  cfg.Jobs.VenueConcurrency,
			DryRun:       dryRun,
		}, logger),
		jobs.NewAccuracyRefreshJob(stores, forecasts, jobs.AccuracyConfig{
			LookbackDays: cfg.Correction.LookbackDays,
			MinSamples:   cfg.Correction.MinSamples,
			Concurrency:  cfg.Jobs.VenueConcurrency,
			DryRun:       dryRun,
		}, logger, nil),
	)
	return runner, nil
}
