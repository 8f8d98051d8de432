package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"

	"shiftcast/internal/config"
)

const (
	ServiceName = "shiftcast"
	MeterName   = "shiftcast"
)

// OTelConfig holds OpenTelemetry configuration. ShiftCast runs a
// metrics-only pipeline; the Prometheus handler is mounted on the main
// HTTP router.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: config.AppVersion,
		Environment:    env,
		MetricExporter: "prometheus",
		EnableMetrics:  true,
	}
}

// InitializeOTel initializes the OpenTelemetry metrics pipeline.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx := context.Background()

	providers := &OTelProviders{
		Logger: logger,
	}

	if !cfg.EnableMetrics || cfg.MetricExporter == "none" {
		return providers, nil
	}

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		otel.SetMeterProvider(mp)

	default:
		return nil, fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	logger.InfoContext(ctx, "Metrics initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.String("exporter", cfg.MetricExporter))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	// HTTP metrics
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	// Correction pipeline metrics
	correctionRunsTotal, err := meter.Int64Counter(
		"correction_runs_total",
		metric.WithDescription("Total number of forecast correction runs"),
	)
	if err != nil {
		return nil, err
	}

	correctionDuration, err := meter.Float64Histogram(
		"correction_run_duration_seconds",
		metric.WithDescription("Forecast correction run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	correctionRowsTotal, err := meter.Int64Counter(
		"correction_rows_total",
		metric.WithDescription("Total number of corrected forecast rows produced"),
	)
	if err != nil {
		return nil, err
	}

	correctionRowsSkipped, err := meter.Int64Counter(
		"correction_rows_skipped_total",
		metric.WithDescription("Total number of malformed forecast rows skipped"),
	)
	if err != nil {
		return nil, err
	}

	// Job metrics
	jobExecutionsTotal, err := meter.Int64Counter(
		"job_executions_total",
		metric.WithDescription("Total number of background job executions"),
	)
	if err != nil {
		return nil, err
	}

	jobDuration, err := meter.Float64Histogram(
		"job_duration_seconds",
		metric.WithDescription("Background job duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	jobActiveJobs, err := meter.Int64UpDownCounter(
		"job_active_jobs",
		metric.WithDescription("Number of background jobs currently running"),
	)
	if err != nil {
		return nil, err
	}

	jobVenuesProcessed, err := meter.Int64Counter(
		"job_venues_processed_total",
		metric.WithDescription("Total number of venues processed by background jobs"),
	)
	if err != nil {
		return nil, err
	}

	jobVenuesSkipped, err := meter.Int64Counter(
		"job_venues_skipped_total",
		metric.WithDescription("Total number of venues skipped by background jobs"),
	)
	if err != nil {
		return nil, err
	}

	jobVenuesFailed, err := meter.Int64Counter(
		"job_venues_failed_total",
		metric.WithDescription("Total number of venues that failed in background jobs"),
	)
	if err != nil {
		return nil, err
	}

	// Bias record metrics
	biasOffsetsZeroed, err := meter.Int64Counter(
		"bias_offsets_zeroed_total",
		metric.WithDescription("Total number of day-type offsets snapped to zero by decay"),
	)
	if err != nil {
		return nil, err
	}

	staleBiasDetected, err := meter.Int64Counter(
		"bias_stale_records_total",
		metric.WithDescription("Total number of stale active bias record detections"),
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,

		CorrectionRunsTotal:   correctionRunsTotal,
		CorrectionDuration:    correctionDuration,
		CorrectionRowsTotal:   correctionRowsTotal,
		CorrectionRowsSkipped: correctionRowsSkipped,

		JobExecutionsTotal: jobExecutionsTotal,
		JobDuration:        jobDuration,
		JobActiveJobs:      jobActiveJobs,
		JobVenuesProcessed: jobVenuesProcessed,
		JobVenuesSkipped:   jobVenuesSkipped,
		JobVenuesFailed:    jobVenuesFailed,

		BiasOffsetsZeroed: biasOffsetsZeroed,
		StaleBiasDetected: staleBiasDetected,
	}, nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Correction pipeline metrics
	CorrectionRunsTotal   metric.Int64Counter
	CorrectionDuration    metric.Float64Histogram
	CorrectionRowsTotal   metric.Int64Counter
	CorrectionRowsSkipped metric.Int64Counter

	// Job metrics
	JobExecutionsTotal metric.Int64Counter
	JobDuration        metric.Float64Histogram
	JobActiveJobs      metric.Int64UpDownCounter
	JobVenuesProcessed metric.Int64Counter
	JobVenuesSkipped   metric.Int64Counter
	JobVenuesFailed    metric.Int64Counter

	// Bias record metrics
	BiasOffsetsZeroed metric.Int64Counter
	StaleBiasDetected metric.Int64Counter
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("meter provider shutdown: %w", err)
		}
	}

	if p.Logger != nil {
		p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	}
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// RecordJobMetrics records metrics for one background job execution
func RecordJobMetrics(ctx context.Context, metrics *BusinessMetrics, kind string, duration time.Duration, success bool, processed, skipped, failed int) {
	if metrics == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("job.kind", kind),
		attribute.String("status", status),
	}

	metrics.JobExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.JobDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	kindAttr := metric.WithAttributes(attribute.String("job.kind", kind))
	if processed > 0 {
		metrics.JobVenuesProcessed.Add(ctx, int64(processed), kindAttr)
	}
	if skipped > 0 {
		metrics.JobVenuesSkipped.Add(ctx, int64(skipped), kindAttr)
	}
	if failed > 0 {
		metrics.JobVenuesFailed.Add(ctx, int64(failed), kindAttr)
	}
}

// RecordCorrectionMetrics records metrics for one forecast correction run
func RecordCorrectionMetrics(ctx context.Context, metrics *BusinessMetrics, venueID string, duration time.Duration, rows, skipped int) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("venue.id", venueID))
	metrics.CorrectionRunsTotal.Add(ctx, 1, attrs)
	metrics.CorrectionDuration.Record(ctx, duration.Seconds(), attrs)
	if rows > 0 {
		metrics.CorrectionRowsTotal.Add(ctx, int64(rows), attrs)
	}
	if skipped > 0 {
		metrics.CorrectionRowsSkipped.Add(ctx, int64(skipped), attrs)
	}
}

// RecordActiveJobChange records changes in the running job count
func RecordActiveJobChange(ctx context.Context, metrics *BusinessMetrics, delta int64, kind string) {
	if metrics == nil {
		return
	}

	metrics.JobActiveJobs.Add(ctx, delta, metric.WithAttributes(attribute.String("job.kind", kind)))
}

// RecordStaleBias records the detection of a stale active bias record
func RecordStaleBias(ctx context.Context, metrics *BusinessMetrics, venueID string) {
	if metrics == nil {
		return
	}

	metrics.StaleBiasDetected.Add(ctx, 1, metric.WithAttributes(attribute.String("venue.id", venueID)))
}

// RecordOffsetsZeroed records day-type offsets snapped to zero during decay
func RecordOffsetsZeroed(ctx context.Context, metrics *BusinessMetrics, count int) {
	if metrics == nil || count <= 0 {
		return
	}

	metrics.BiasOffsetsZeroed.Add(ctx, int64(count))
}
