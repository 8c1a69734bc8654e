package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHelpersBeforeInit(t *testing.T) {
	// Must not panic while collectors are nil.
	if AlertsAdded != nil {
		t.Skip("metrics already initialized by another test")
	}
	IncAlertsAdded()
	IncAlertsRemoved()
	IncAnnouncements()
	RecordCheck("live")
	RecordChatCommand("alerts", "listed")
	ObserveProviderRequest("streams", "200", time.Millisecond)
	ObservePollCycle(time.Millisecond)
	SetRegistrySize(1, 2)
}

func TestMetricsInit(t *testing.T) {
	Init()
	Init() // idempotent

	before := testutil.ToFloat64(AlertsAdded)
	IncAlertsAdded()
	if got := testutil.ToFloat64(AlertsAdded); got != before+1 {
		t.Errorf("alerts_added_total = %v, want %v", got, before+1)
	}

	RecordCheck("went_live")
	if got := testutil.ToFloat64(ChecksTotal.WithLabelValues("went_live")); got < 1 {
		t.Errorf("alerts_checks_total{result=went_live} = %v, want >= 1", got)
	}

	RecordChatCommand("addalert", "added")
	if got := testutil.ToFloat64(ChatCommands.WithLabelValues("addalert", "added")); got < 1 {
		t.Errorf("alerts_chat_commands_total = %v, want >= 1", got)
	}

	ObserveProviderRequest("users", "200", 20*time.Millisecond)
	if got := testutil.ToFloat64(ProviderRequests.WithLabelValues("users", "200")); got < 1 {
		t.Errorf("twitch_api_requests_total = %v, want >= 1", got)
	}

	SetRegistrySize(3, 7)
	if got := testutil.ToFloat64(RegistryChannels); got != 3 {
		t.Errorf("alerts_registry_channels = %v, want 3", got)
	}
	if got := testutil.ToFloat64(RegistrySubscriptions); got != 7 {
		t.Errorf("alerts_registry_subscriptions = %v, want 7", got)
	}
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation(empty) = %q", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation = %q, want abc-123", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}

func TestStartSpanWithoutTracing(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test", "op", HTTPAttrs("GET", "/status")...)
	defer span.End()
	if ctx == nil {
		t.Fatal("nil context")
	}
	RecordError(span, nil)
	SetSpanHTTPStatus(span, 500)
	if IsTracingEnabled() {
		t.Error("tracing should be disabled without OTEL_EXPORTER_OTLP_ENDPOINT")
	}
}
