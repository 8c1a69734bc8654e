package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/live-alerts/telemetry"
)

// PollerConfig controls StartPoller. Zero values fall back to 60s and 4.
type PollerConfig struct {
	Interval    time.Duration
	Concurrency int
}

// StartPoller checks every tracked channel on each tick until ctx is done.
// The first cycle runs immediately.
func StartPoller(ctx context.Context, e *Engine, a Announcer, cfg PollerConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	slog.Info("alert poller started", slog.Duration("interval", cfg.Interval), slog.Int("concurrency", cfg.Concurrency), slog.String("component", "alerts_poller"))
	for {
		if ctx.Err() != nil {
			return
		}
		PollOnce(telemetry.WithCorrelation(ctx, uuid.NewString()), e, a, cfg.Concurrency)
		select {
		case <-ctx.Done():
			slog.Info("alert poller stopped", slog.String("component", "alerts_poller"))
			return
		case <-ticker.C:
		}
	}
}

// PollOnce runs one check cycle and returns the number of announcements
// handed to a. Failures on one channel do not affect the others.
func PollOnce(ctx context.Context, e *Engine, a Announcer, concurrency int) int {
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "alerts_poller"))
	start := time.Now()
	defer func() { telemetry.ObservePollCycle(time.Since(start)) }()

	if _, _, err := e.registry.EnsureLoaded(ctx); err != nil {
		log.Warn("registry load failed", slog.Any("err", err))
		return 0
	}
	channels := e.registry.Channels()
	if len(channels) == 0 {
		log.Debug("no channels to check")
		return 0
	}

	results := make([]*Announcement, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, ch := range channels {
		g.Go(func() error {
			ann, err := e.CheckAlert(gctx, ch)
			if err != nil {
				log.Warn("channel check failed", slog.String("channel", ch), slog.String("kind", ErrorKind(err)), slog.Any("err", err))
				return nil
			}
			results[i] = ann
			return nil
		})
	}
	_ = g.Wait()

	sent := 0
	for _, ann := range results {
		if ann == nil {
			continue
		}
		if err := a.Announce(ctx, *ann); err != nil {
			log.Error("announce failed", slog.String("channel", ann.Channel), slog.Any("err", err))
			continue
		}
		sent++
	}
	log.Debug("poll cycle complete", slog.Int("channels", len(channels)), slog.Int("announcements", sent), slog.Duration("took", time.Since(start)))
	return sent
}
