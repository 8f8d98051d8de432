// Command intake consumes the vendor forecast, reservation snapshot, and
// POS actuals streams from Kafka and persists them through the store layer.
// It runs separately from the API server so a slow broker never stalls
// forecast reads.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"shiftcast/internal/config"
	"shiftcast/internal/infrastructure"
	"shiftcast/internal/intake"
	"shiftcast/internal/store"
	"shiftcast/internal/store/memory"
	"shiftcast/internal/store/postgres"
)

func main() {
	metricsAddr := flag.String("metrics-addr", ":9091", "listen address for the Prometheus metrics endpoint")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()
	logger = logger.With(slog.String("component", "intake"))

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Error("no kafka brokers configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open stores", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	handler := intake.NewStoreHandler(stores, logger)

	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: promhttp.Handler()}
	go func() {
		logger.Info("metrics listening", slog.String("address", *metricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for _, topic := range intake.Topics(cfg.Kafka) {
		reader := intake.NewKafkaReader(cfg.Kafka, topic)
		proc := intake.NewProcessor(reader, handler, intake.WithLogger(logger))

		wg.Add(1)
		go func(topic string, r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			logger.Info("consumer started",
				slog.String("topic", topic),
				slog.String("group", cfg.Kafka.GroupID))
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped",
					slog.String("topic", topic),
					slog.String("error", err.Error()))
			}
		}(topic, reader)
	}

	<-stop
	logger.Info("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", slog.String("error", err.Error()))
	}

	wg.Wait()
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
		return store.Stores{}, nil, err
	}
	return postgres.NewStores(pool), pool.Close, nil
}
