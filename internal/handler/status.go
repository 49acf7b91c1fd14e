package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angeloszaimis/collab-sync/internal/healthcheck"
)

const Version = "1.0.0"

type banner struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// Root answers WebSocket upgrades on "/" with ws and everything else with
// the service banner.
func Root(ws http.Handler, logger *slog.Logger) http.HandlerFunc {
	body := banner{
		Status:    "online",
		Message:   "Collaborative Editor API",
		Version:   Version,
		Endpoints: []string{"/ws", "/api/analytics", "/healthz", "/metrics"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			ws.ServeHTTP(w, r)
			return
		}
		writeJSON(w, logger, http.StatusOK, body)
	}
}

type healthResponse struct {
	Status       string                       `json:"status"`
	Dependencies map[string]healthcheck.State `json:"dependencies"`
	CheckedAt    time.Time                    `json:"checkedAt"`
}

// Health reports the last probe result of every dependency. It answers 503
// while any dependency is down.
func Health(monitor *healthcheck.Monitor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:       "ok",
			Dependencies: monitor.Status(),
			CheckedAt:    time.Now().UTC(),
		}
		status := http.StatusOK
		if !monitor.Healthy() {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, logger, status, resp)
	}
}
