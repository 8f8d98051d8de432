package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftcast/internal/config"
	"shiftcast/internal/correction"
	apierrors "shiftcast/internal/errors"
	"shiftcast/internal/exporter"
	"shiftcast/internal/infrastructure"
	"shiftcast/internal/jobs"
	custommw "shiftcast/internal/middleware"
	"shiftcast/internal/services"
	"shiftcast/internal/store"
	"shiftcast/internal/store/memory"
	"shiftcast/internal/store/postgres"
	handlers "shiftcast/internal/transport/http"
	ws "shiftcast/internal/websocket"
	"shiftcast/pkg/contracts/domain"
)

// runnerStopTimeout bounds how long shutdown waits for in-flight jobs.
const runnerStopTimeout = 30 * time.Second

// Application wires configuration, stores, services, transport, and the
// background job system into one runnable server.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Router    *chi.Mux
	Server    *http.Server
	Stores    store.Stores
	Pool      *pgxpool.Pool
	Hub       *ws.Hub
	Runner    *jobs.Runner
	Scheduler *jobs.Scheduler
	OTel      *infrastructure.OTelProviders
	Metrics   *infrastructure.BusinessMetrics

	ForecastService *services.ForecastService
	AdminService    *services.AdminService
	HealthService   *services.HealthService
}

// NewApplication builds a fully wired application from the layered
// configuration. Nothing is listening yet; Start or Run does that.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", cfg.Server.Port))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize metrics: %w", err)
	}

	a := &Application{
		Config: cfg,
		Logger: logger,
		OTel:   otelProviders,
	}

	if otelProviders.Meter != nil {
		metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
		if err != nil {
			logger.Warn("business metrics unavailable", slog.String("error", err.Error()))
		} else {
			a.Metrics = metrics
		}
	}

	if err := a.initStores(ctx); err != nil {
		return nil, err
	}
	if err := a.initServices(); err != nil {
		return nil, err
	}
	a.setupRouter()
	a.createServer()

	return a, nil
}

// initStores selects the storage backend. An empty DSN means in-memory
// stores, which lose everything on restart and are meant for development.
func (a *Application) initStores(ctx context.Context) error {
	if a.Config.UseMemoryStores() {
		a.Logger.Warn("no database configured, using in-memory stores")
		a.Stores = memory.NewStores()
		return nil
	}

	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:             a.Config.Database.DSN,
		MaxConns:        a.Config.Database.MaxConns,
		MinConns:        a.Config.Database.MinConns,
		MaxConnLifetime: a.Config.Database.MaxConnLifetime,
		ConnectTimeout:  a.Config.Database.ConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	a.Pool = pool
	a.Stores = postgres.NewStores(pool)
	a.Logger.Info("database connected", slog.Int("max_conns", int(a.Config.Database.MaxConns)))
	return nil
}

// initServices builds the correction pipeline, the job system, and the
// service layer on top of the stores.
func (a *Application) initServices() error {
	corrector, err := correction.NewCorrector(a.Config.Correction.Params(), a.Logger)
	if err != nil {
		return fmt.Errorf("build corrector: %w", err)
	}

	a.Hub = ws.NewHub(a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger)

	a.Runner = jobs.NewRunner(jobs.RunnerConfig{
		Workers:    a.Config.Jobs.Workers,
		QueueSize:  a.Config.Jobs.QueueSize,
		JobTimeout: a.Config.Jobs.JobTimeout,
	}, a.Stores.Audit, a.Hub, a.Logger, a.Metrics)

	a.ForecastService = services.NewForecastService(a.Stores, corrector, a.Logger)

	a.Runner.Register(
		jobs.NewDecayJob(a.Stores, jobs.DecayConfig{
			Params:  a.Config.Correction.DecayParams(),
			Cadence: a.Config.Jobs.DecayInterval,
		}, a.Logger, a.Metrics),
		jobs.NewPacingRefreshJob(a.Stores, jobs.PacingConfig{
			Params:       a.Config.Correction.Params(),
			LookbackDays: a.Config.Correction.LookbackDays,
			MinSamples:   a.Config.Correction.MinSamples,
			Concurrency:  a.Config.Jobs.VenueConcurrency,
		}, a.Logger),
		jobs.NewAccuracyRefreshJob(a.Stores, a.ForecastService, jobs.AccuracyConfig{
			LookbackDays: a.Config.Correction.LookbackDays,
			MinSamples:   a.Config.Correction.MinSamples,
			Concurrency:  a.Config.Jobs.VenueConcurrency,
		}, a.Logger, a.Metrics),
	)

	a.AdminService = services.NewAdminService(a.Stores, a.Runner, a.Logger)

	var pinger store.Pinger
	if a.Pool != nil {
		pinger = a.Pool
	}
	a.HealthService = services.NewHealthService(config.AppVersion, a.Stores, pinger, a.Logger)

	a.Scheduler = jobs.NewScheduler(a.Runner, []jobs.Entry{
		{Kind: domain.JobKindBiasDecay, Interval: a.Config.Jobs.DecayInterval},
		{Kind: domain.JobKindPacingRefresh, Interval: a.Config.Jobs.PacingRefreshInterval},
		{Kind: domain.JobKindAccuracyRefresh, Interval: a.Config.Jobs.AccuracyRefreshInterval},
	}, a.Logger)

	return nil
}

// setupRouter configures the HTTP router. The websocket feed, probes, and
// metrics endpoint sit outside the middleware group: the upgrade needs the
// raw ResponseWriter, and poll endpoints should not spam the request log.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Get(config.HealthEndpoint, healthHandler.Liveness)
	r.Get(config.ReadinessEndpoint, healthHandler.Readiness)

	r.Handle(config.WebSocketEndpoint, a.Hub)

	if a.OTel != nil && a.OTel.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTel.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(custommw.NewMetricsMiddleware(a.Metrics).Handler)
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.Logger))
		r.Use(custommw.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(custommw.CORS(a.corsConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		if a.Config.Server.RequestTimeout > 0 {
			r.Use(custommw.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		}

		exp := exporter.NewForecastExporter(a.Config.Intake.ExportDir)
		forecastHandler := handlers.NewForecastHandler(a.ForecastService, exp, errorHandler, a.Logger)
		adminHandler := handlers.NewAdminHandler(a.AdminService, a.Hub, errorHandler, a.Logger)

		r.Route(config.APIBasePath, func(r chi.Router) {
			r.Use(custommw.ContentTypeValidator("application/json", "multipart/form-data"))
			r.Mount("/venues", forecastHandler.Routes())
			r.With(custommw.AuditLog(a.Logger)).Mount("/admin", adminHandler.Routes())
		})
	})

	a.Router = r
}

func (a *Application) corsConfig() custommw.CORSConfig {
	return custommw.CORSConfig{
		AllowedOrigins:   a.Config.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start launches the hub, the job system, and the HTTP listener. A listener
// failure cancels the shared context so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Hub.Start()
	a.Runner.Start(ctx)
	a.Scheduler.Start(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", a.Server.Addr),
		slog.Bool("memory_stores", a.Config.UseMemoryStores()))
	return nil
}

// Stop drains the application: listener first so no new work arrives, then
// the job system, then the connections. Call only after Start.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "server shutdown", slog.String("error", err.Error()))
	}

	a.Scheduler.Wait()
	if err := a.Runner.Stop(runnerStopTimeout); err != nil {
		a.Logger.ErrorContext(ctx, "job runner shutdown", slog.String("error", err.Error()))
	}
	a.Hub.Stop()

	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.OTel != nil {
		if err := a.OTel.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "metrics shutdown", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return infrastructure.CloseLogFile()
}

// Run starts the application and blocks until an interrupt or a fatal
// server error, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.Info("signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}
	cancel()

	return a.Stop(context.Background())
}
