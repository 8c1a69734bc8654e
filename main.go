// Command live-alerts runs the Twitch go-live alert bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs migrations.
//   - Joins the configured Twitch chat rooms and serves the alert commands.
//   - Polls every tracked channel and announces offline to online transitions.
//   - Exposes an HTTP server with /healthz, /readyz, /status, /metrics and admin triggers.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/live-alerts/alerts"
	"github.com/onnwee/live-alerts/chat"
	"github.com/onnwee/live-alerts/config"
	"github.com/onnwee/live-alerts/db"
	"github.com/onnwee/live-alerts/server"
	"github.com/onnwee/live-alerts/telemetry"
	"github.com/onnwee/live-alerts/twitchapi"
)

var version = "dev"

// logAnnouncer is used when chat is not configured.
type logAnnouncer struct{}

func (logAnnouncer) Announce(_ context.Context, a alerts.Announcement) error {
	for _, t := range a.Targets {
		slog.Info("announcement", slog.String("channel", a.Channel), slog.String("target", t.TargetID), slog.Any("subscribers", t.Subscribers), slog.String("message", a.Message), slog.String("component", "announcer"))
	}
	return nil
}

func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))
}

func main() {
	// local dev convenience only; production relies on real env
	_ = godotenv.Load(".env")
	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdown, err := telemetry.InitTracing("live-alerts", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Versioned migrations first; the embedded schema covers setups without a migrations dir.
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, falling back to embedded schema", slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	helix := &twitchapi.HelixClient{
		AppTokenSource: &twitchapi.TokenSource{
			ClientID:     cfg.TwitchClientID,
			ClientSecret: cfg.TwitchClientSecret,
			TokenURL:     cfg.TwitchTokenURL,
			HTTPClient:   httpClient,
		},
		ClientID:   cfg.TwitchClientID,
		BaseURL:    cfg.TwitchAPIBaseURL,
		HTTPClient: httpClient,
	}
	store := &db.SubscriptionStore{DB: database}
	registry := alerts.NewRegistry(store)
	defer registry.Close()
	engine := alerts.NewEngine(registry, store, helix)
	engine.Prefix = cfg.CommandPrefix

	var announcer alerts.Announcer = logAnnouncer{}
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Warn("chat bot disabled", slog.Any("err", err), slog.String("component", "chat"))
	} else {
		bot := chat.NewBot(cfg, engine)
		announcer = bot
		go func() {
			if err := bot.Run(ctx); err != nil {
				slog.Error("chat bot exited with error", slog.Any("err", err), slog.String("component", "chat"))
			}
		}()
	}

	if err := cfg.ValidateHelixReady(); err != nil {
		slog.Warn("alert poller disabled", slog.Any("err", err), slog.String("component", "alerts_poller"))
	} else {
		go alerts.StartPoller(ctx, engine, announcer, alerts.PollerConfig{
			Interval:    cfg.PollInterval,
			Concurrency: cfg.PollConcurrency,
		})
	}

	go func() {
		if err := server.Start(ctx, server.NewMux(ctx, database, engine, announcer), cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}
