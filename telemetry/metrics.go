// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	AlertsAdded      prometheus.Counter
	AlertsRemoved    prometheus.Counter
	Announcements    prometheus.Counter
	ChecksTotal      *prometheus.CounterVec // result=live|offline|went_live|untracked|transport|parse|store|...
	ChatCommands     *prometheus.CounterVec // command, outcome
	ProviderRequests *prometheus.CounterVec // endpoint, status

	// Histograms (seconds)
	ProviderDuration  *prometheus.HistogramVec
	PollCycleDuration prometheus.Observer

	// Gauges
	RegistryChannels      prometheus.Gauge
	RegistrySubscriptions prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		AlertsAdded = promauto.NewCounter(prometheus.CounterOpts{Name: "alerts_added_total", Help: "Number of alert subscriptions created"})
		AlertsRemoved = promauto.NewCounter(prometheus.CounterOpts{Name: "alerts_removed_total", Help: "Number of alert subscriptions removed"})
		Announcements = promauto.NewCounter(prometheus.CounterOpts{Name: "alerts_announcements_total", Help: "Number of go-live announcements produced"})
		ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "alerts_checks_total", Help: "Channel status checks by result"}, []string{"result"})
		ChatCommands = promauto.NewCounterVec(prometheus.CounterOpts{Name: "alerts_chat_commands_total", Help: "Chat commands handled by command and outcome"}, []string{"command", "outcome"})
		ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "twitch_api_requests_total", Help: "Twitch API requests by endpoint and status"}, []string{"endpoint", "status"})
		ProviderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "twitch_api_request_duration_seconds", Help: "Twitch API request duration seconds", Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10}}, []string{"endpoint"})
		PollCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "alerts_poll_cycle_duration_seconds", Help: "Duration of one poll cycle over all tracked channels", Buckets: prometheus.DefBuckets})
		RegistryChannels = promauto.NewGauge(prometheus.GaugeOpts{Name: "alerts_registry_channels", Help: "Channels currently tracked in memory"})
		RegistrySubscriptions = promauto.NewGauge(prometheus.GaugeOpts{Name: "alerts_registry_subscriptions", Help: "Subscriptions currently tracked in memory"})
	})
}

// The helpers below are no-ops until Init has run, so packages can be used in
// tests without registering collectors.

func IncAlertsAdded() {
	if AlertsAdded != nil {
		AlertsAdded.Inc()
	}
}

func IncAlertsRemoved() {
	if AlertsRemoved != nil {
		AlertsRemoved.Inc()
	}
}

func IncAnnouncements() {
	if Announcements != nil {
		Announcements.Inc()
	}
}

// RecordCheck counts one status check by result label.
func RecordCheck(result string) {
	if ChecksTotal != nil {
		ChecksTotal.WithLabelValues(result).Inc()
	}
}

// RecordChatCommand counts one handled chat command.
func RecordChatCommand(command, outcome string) {
	if ChatCommands != nil {
		ChatCommands.WithLabelValues(command, outcome).Inc()
	}
}

// ObserveProviderRequest records one Twitch API call.
func ObserveProviderRequest(endpoint, status string, d time.Duration) {
	if ProviderRequests != nil {
		ProviderRequests.WithLabelValues(endpoint, status).Inc()
	}
	if ProviderDuration != nil {
		ProviderDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	}
}

// ObservePollCycle records the duration of one poll cycle.
func ObservePollCycle(d time.Duration) {
	if PollCycleDuration != nil {
		PollCycleDuration.Observe(d.Seconds())
	}
}

// SetRegistrySize records the in-memory registry size.
func SetRegistrySize(channels, subscriptions int) {
	if RegistryChannels != nil {
		RegistryChannels.Set(float64(channels))
	}
	if RegistrySubscriptions != nil {
		RegistrySubscriptions.Set(float64(subscriptions))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
