package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/live-alerts/alerts"
	"github.com/onnwee/live-alerts/telemetry"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db        *sql.DB
	engine    *alerts.Engine
	announcer alerts.Announcer
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(db *sql.DB, engine *alerts.Engine, announcer alerts.Announcer) *Handlers {
	return &Handlers{db: db, engine: engine, announcer: announcer}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports ready once the database answers and the alerts table exists.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.db.PingContext(r.Context()) }},
		{"schema", func() error {
			var one int
			err := h.db.QueryRowContext(r.Context(), "SELECT 1 FROM alerts LIMIT 1").Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusResponse struct {
	Channels      int                   `json:"channels"`
	Subscriptions int                   `json:"subscriptions"`
	Entries       []alerts.ChannelState `json:"entries"`
}

// HandleStatus returns the in-memory registry. It does not trigger a load.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap := h.engine.Registry().Snapshot()
	resp := statusResponse{Channels: len(snap), Entries: snap}
	for _, e := range snap {
		resp.Subscriptions += len(e.Subscriptions)
	}
	if channel := strings.ToLower(r.URL.Query().Get("channel")); channel != "" {
		resp.Entries = []alerts.ChannelState{}
		for _, e := range snap {
			if e.Channel == channel {
				resp.Entries = append(resp.Entries, e)
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleAdminAlertsLoad populates the registry from the database when it is empty.
func (h *Handlers) HandleAdminAlertsLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	res, err := h.engine.LoadAlerts(r.Context())
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("admin load failed", slog.Any("err", err), slog.String("component", "http"))
		writeError(w, http.StatusInternalServerError, "load failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": res.Outcome.String(), "message": res.Message})
}

type checkResponse struct {
	Channel      string               `json:"channel"`
	Announced    bool                 `json:"announced"`
	Delivered    bool                 `json:"delivered"`
	Announcement *alerts.Announcement `json:"announcement,omitempty"`
}

// HandleAdminAlertsCheck runs one status check for ?channel= and delivers any
// resulting announcement.
func (h *Handlers) HandleAdminAlertsCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	channel := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("channel")))
	if channel == "" {
		writeError(w, http.StatusBadRequest, "channel is required")
		return
	}
	log := telemetry.LoggerWithCorr(r.Context()).With(slog.String("channel", channel), slog.String("component", "http"))
	ann, err := h.engine.CheckAlert(r.Context(), channel)
	if err != nil {
		log.Error("admin check failed", slog.String("kind", alerts.ErrorKind(err)), slog.Any("err", err))
		status := http.StatusBadGateway
		if alerts.ErrorKind(err) == "store" {
			status = http.StatusInternalServerError
		}
		writeError(w, status, "check failed: "+alerts.ErrorKind(err))
		return
	}
	resp := checkResponse{Channel: channel, Announced: ann != nil, Announcement: ann}
	if ann != nil && h.announcer != nil {
		if err := h.announcer.Announce(r.Context(), *ann); err != nil {
			log.Error("announce failed", slog.Any("err", err))
		} else {
			resp.Delivered = true
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
