package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"shiftcast/internal/store"
)

// staleAfter is the age past which enrichment data is reported as stale.
// Baselines and stats refresh weekly; twice the cadence marks a missed run.
const staleAfter = 14 * 24 * time.Hour

// pingTimeout bounds the readiness probe's store round trip.
const pingTimeout = 5 * time.Second

// HealthService answers the liveness and readiness probes and summarizes
// how fresh the enrichment data is.
type HealthService struct {
	version   string
	stores    store.Stores
	pinger    store.Pinger
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a health service. pinger is nil when the process
// runs on the in-memory stores; readiness then skips the connectivity probe.
func NewHealthService(version string, stores store.Stores, pinger store.Pinger, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		stores:    stores,
		pinger:    pinger,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// ComponentStatus is one dependency's view in a health response.
type ComponentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthStatus is the health endpoint response body.
type HealthStatus struct {
	Status        string                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds float64                    `json:"uptime_seconds"`
	GoVersion     string                     `json:"go_version,omitempty"`
	Components    map[string]ComponentStatus `json:"components,omitempty"`
}

// Liveness reports that the process is up. It never fails.
func (s *HealthService) Liveness(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:        "ok",
		Timestamp:     time.Now().UTC(),
		Version:       s.version,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		GoVersion:     runtime.Version(),
	}
}

// Readiness reports whether the service can do useful work: the store
// answers a ping and the enrichment data is summarized. Enrichment staleness
// degrades the status but does not fail readiness; the pipeline serves
// neutral corrections without it.
func (s *HealthService) Readiness(ctx context.Context) (HealthStatus, bool) {
	status := HealthStatus{
		Status:        "ok",
		Timestamp:     time.Now().UTC(),
		Version:       s.version,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Components:    make(map[string]ComponentStatus, 2),
	}
	ready := true

	if s.pinger == nil {
		status.Components["store"] = ComponentStatus{Status: "ok", Message: "in-memory store"}
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := s.pinger.Ping(pingCtx)
		cancel()
		if err != nil {
			s.logger.ErrorContext(ctx, "readiness ping failed", slog.String("error", err.Error()))
			status.Components["store"] = ComponentStatus{Status: "unhealthy", Message: err.Error()}
			status.Status = "unhealthy"
			ready = false
		} else {
			status.Components["store"] = ComponentStatus{Status: "ok"}
		}
	}

	fresh, err := s.Freshness(ctx)
	switch {
	case err != nil:
		status.Components["enrichment"] = ComponentStatus{Status: "unknown", Message: err.Error()}
	case fresh.Stale():
		status.Components["enrichment"] = ComponentStatus{Status: "degraded", Message: fresh.Summary()}
		if status.Status == "ok" {
			status.Status = "degraded"
		}
	default:
		status.Components["enrichment"] = ComponentStatus{Status: "ok", Message: fresh.Summary()}
	}

	return status, ready
}

// FreshnessEntry describes the newest refresh timestamp seen across venues
// for one enrichment kind.
type FreshnessEntry struct {
	Count     int        `json:"count"`
	NewestAt  *time.Time `json:"newest_at,omitempty"`
	NewestAge string     `json:"newest_age,omitempty"`
}

// EnrichmentFreshness summarizes the ages of the pacing baselines and
// accuracy stats across all venues.
type EnrichmentFreshness struct {
	Venues    int            `json:"venues"`
	Baselines FreshnessEntry `json:"pacing_baselines"`
	Accuracy  FreshnessEntry `json:"accuracy_stats"`
}

// Stale reports whether either enrichment kind exists but has not refreshed
// within the stale window.
func (f EnrichmentFreshness) Stale() bool {
	now := time.Now()
	for _, e := range []FreshnessEntry{f.Baselines, f.Accuracy} {
		if e.NewestAt != nil && now.Sub(*e.NewestAt) > staleAfter {
			return true
		}
	}
	return false
}

// Summary renders a one-line human summary, such as
// "baselines refreshed 3 hours ago, accuracy stats refreshed 2 days ago".
func (f EnrichmentFreshness) Summary() string {
	baselines := "no baselines"
	if f.Baselines.NewestAt != nil {
		baselines = "baselines refreshed " + humanize.Time(*f.Baselines.NewestAt)
	}
	accuracy := "no accuracy stats"
	if f.Accuracy.NewestAt != nil {
		accuracy = "accuracy stats refreshed " + humanize.Time(*f.Accuracy.NewestAt)
	}
	return baselines + ", " + accuracy
}

// Freshness walks the venue registry and reports the newest baseline and
// accuracy refresh timestamps.
func (s *HealthService) Freshness(ctx context.Context) (EnrichmentFreshness, error) {
	venues, err := s.stores.Venues.ListVenues(ctx)
	if err != nil {
		return EnrichmentFreshness{}, err
	}

	out := EnrichmentFreshness{Venues: len(venues)}
	for _, venue := range venues {
		baselines, err := s.stores.Pacing.ListBaselines(ctx, venue.VenueID)
		if err != nil {
			return EnrichmentFreshness{}, err
		}
		for _, b := range baselines {
			out.Baselines.observe(b.ComputedAt)
		}

		stats, err := s.stores.Accuracy.ListStats(ctx, venue.VenueID)
		if err != nil {
			return EnrichmentFreshness{}, err
		}
		for _, st := range stats {
			out.Accuracy.observe(st.ComputedAt)
		}
	}

	out.Baselines.finish()
	out.Accuracy.finish()
	return out, nil
}

func (e *FreshnessEntry) observe(at time.Time) {
	e.Count++
	if e.NewestAt == nil || at.After(*e.NewestAt) {
		t := at
		e.NewestAt = &t
	}
}

func (e *FreshnessEntry) finish() {
	if e.NewestAt != nil {
		e.NewestAge = humanize.Time(*e.NewestAt)
	}
}
