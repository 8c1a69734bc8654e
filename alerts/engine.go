package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/live-alerts/telemetry"
	"github.com/onnwee/live-alerts/twitchapi"
)

const tracerName = "alerts"

// Engine runs the alert commands against a Registry, a Store and a Provider.
type Engine struct {
	registry *Registry
	store    Store
	provider Provider

	// Prefix is the chat command prefix used in help messages.
	Prefix string

	locks channelLocks
}

// NewEngine wires an engine. The registry is shared, not owned.
func NewEngine(reg *Registry, store Store, provider Provider) *Engine {
	return &Engine{registry: reg, store: store, provider: provider, Prefix: "!"}
}

// Registry exposes the engine's registry for read-only consumers (status page, poller).
func (e *Engine) Registry() *Registry { return e.registry }

// AddAlert subscribes the requester to channel in its current target.
func (e *Engine) AddAlert(ctx context.Context, req Requester, channel string) (Result, error) {
	if channel == "" {
		return Result{Outcome: OutcomeNoop}, nil
	}
	if !twitchapi.ValidLogin(channel) {
		return channelNotFound(channel), nil
	}
	ctx, span := telemetry.StartSpan(ctx, tracerName, "alerts.add", attribute.String("channel", channel))
	defer span.End()

	unlock := e.locks.lock(channel)
	defer unlock()

	if _, _, err := e.registry.EnsureLoaded(ctx); err != nil {
		telemetry.RecordError(span, err)
		return Result{}, err
	}
	exists, err := e.provider.ChannelExists(ctx, channel)
	if err != nil {
		telemetry.RecordError(span, err)
		return Result{}, err
	}
	if !exists {
		return channelNotFound(channel), nil
	}
	sub := req.subscription(channel)
	if e.registry.Contains(sub) {
		return alreadySubscribed(channel), nil
	}
	if err := e.store.Insert(ctx, sub); err != nil {
		err = &StoreError{Op: "insert", Err: err}
		telemetry.RecordError(span, err)
		return Result{}, err
	}
	e.registry.Upsert(sub)
	telemetry.IncAlertsAdded()
	slog.Info("alert added", slog.String("channel", channel), slog.String("subscriber", req.SubscriberID), slog.String("target", req.TargetID), slog.String("component", "alerts"))
	return added(channel), nil
}

// RemoveAlert drops the requester's subscription to channel in its current target.
func (e *Engine) RemoveAlert(ctx context.Context, req Requester, channel string) (Result, error) {
	if channel == "" {
		return Result{Outcome: OutcomeNoop}, nil
	}
	ctx, span := telemetry.StartSpan(ctx, tracerName, "alerts.remove", attribute.String("channel", channel))
	defer span.End()

	unlock := e.locks.lock(channel)
	defer unlock()

	if _, _, err := e.registry.EnsureLoaded(ctx); err != nil {
		telemetry.RecordError(span, err)
		return Result{}, err
	}
	sub := req.subscription(channel)
	idx := e.registry.Find(sub)
	if idx < 0 {
		return notSubscribed(channel), nil
	}
	if err := e.store.Delete(ctx, sub); err != nil {
		err = &StoreError{Op: "delete", Err: err}
		telemetry.RecordError(span, err)
		return Result{}, err
	}
	if err := e.registry.RemoveAt(channel, idx); err != nil {
		return Result{}, err
	}
	telemetry.IncAlertsRemoved()
	slog.Info("alert removed", slog.String("channel", channel), slog.String("subscriber", req.SubscriberID), slog.String("target", req.TargetID), slog.String("component", "alerts"))
	return removed(channel), nil
}

// ListAlerts lists the channels the requester follows in its current target.
func (e *Engine) ListAlerts(ctx context.Context, req Requester) (Result, error) {
	if _, _, err := e.registry.EnsureLoaded(ctx); err != nil {
		return Result{}, err
	}
	names := e.registry.ChannelsFor(req.SubscriberID, req.TargetID)
	if len(names) == 0 {
		return Result{Outcome: OutcomeNoAlerts, Message: NoAlertsHelp(e.Prefix)}, nil
	}
	return Result{Outcome: OutcomeListed, Message: strings.Join(names, ", ")}, nil
}

// LoadAlerts populates the registry from the store if it is empty.
func (e *Engine) LoadAlerts(ctx context.Context) (Result, error) {
	res, n, err := e.registry.EnsureLoaded(ctx)
	if err != nil {
		return Result{}, err
	}
	switch res {
	case LoadEmpty:
		return Result{Outcome: OutcomeNoAlerts, Message: "No alerts."}, nil
	case LoadPopulated:
		return Result{Outcome: OutcomeLoaded, Message: fmt.Sprintf("Loaded %d alerts.", n)}, nil
	default:
		return Result{Outcome: OutcomeNoop, Message: "Alerts already loaded."}, nil
	}
}

// CheckAlert asks Twitch whether channel is live and compares the answer with
// the cached flag. It returns an announcement only on an offline -> online
// transition; every other case returns nil.
func (e *Engine) CheckAlert(ctx context.Context, channel string) (*Announcement, error) {
	if channel == "" {
		return nil, nil
	}
	ctx, span := telemetry.StartSpan(ctx, tracerName, "alerts.check", attribute.String("channel", channel))
	defer span.End()

	unlock := e.locks.lock(channel)
	defer unlock()

	if _, _, err := e.registry.EnsureLoaded(ctx); err != nil {
		telemetry.RecordError(span, err)
		telemetry.RecordCheck(ErrorKind(err))
		return nil, err
	}
	wasLive, tracked := e.registry.Live(channel)
	if !tracked {
		telemetry.RecordCheck("untracked")
		return nil, nil
	}
	stream, err := e.provider.GetStream(ctx, channel)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.RecordCheck(ErrorKind(err))
		return nil, err
	}
	if stream == nil {
		e.registry.SetLive(channel, false)
		if wasLive {
			slog.Debug("channel went offline", slog.String("channel", channel), slog.String("component", "alerts"))
		}
		telemetry.RecordCheck("offline")
		return nil, nil
	}
	if wasLive {
		telemetry.RecordCheck("live")
		return nil, nil
	}
	a := &Announcement{
		Channel: channel,
		Message: FormatAnnouncement(stream),
		Targets: groupByTarget(e.registry.Subscriptions(channel)),
	}
	e.registry.SetLive(channel, true)
	telemetry.RecordCheck("went_live")
	telemetry.IncAnnouncements()
	slog.Info("channel came online", slog.String("channel", channel), slog.Int("targets", len(a.Targets)), slog.String("component", "alerts"))
	return a, nil
}

// channelLocks hands out one mutex per channel name. Entries are never
// removed; the set is bounded by the channels ever touched.
type channelLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *channelLocks) lock(channel string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	m, ok := l.m[channel]
	if !ok {
		m = &sync.Mutex{}
		l.m[channel] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
