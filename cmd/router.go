package main

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/collab-sync/internal/handler"
	"github.com/angeloszaimis/collab-sync/internal/healthcheck"
	"github.com/angeloszaimis/collab-sync/internal/metrics"
)

type routes struct {
	websocket *handler.WebSocket
	analytics *handler.Analytics
	health    *healthcheck.Monitor
	collector *metrics.Collector
	state     map[string]metrics.StateFunc
}

func setupRouter(rt routes, log *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = handler.NotFound(log)
	r.Use(handler.Logging(log), handler.CORS)

	r.Handle("/ws", rt.websocket).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handler.Health(rt.health, log)).Methods(http.MethodGet)
	r.HandleFunc("/metrics", rt.collector.Handler(rt.state)).Methods(http.MethodGet)

	api := r.PathPrefix("/api/analytics").Subrouter()
	api.Use(rt.analytics.Authenticate)
	api.HandleFunc("/visualization/{documentId}", rt.analytics.Visualization).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/summary/{documentId}", rt.analytics.Summary).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/", handler.Root(rt.websocket, log)).Methods(http.MethodGet)

	return r
}
