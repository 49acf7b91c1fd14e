package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angeloszaimis/collab-sync/config"
	"github.com/angeloszaimis/collab-sync/internal/analytics"
	"github.com/angeloszaimis/collab-sync/internal/auth"
	"github.com/angeloszaimis/collab-sync/internal/circuitbreaker"
	"github.com/angeloszaimis/collab-sync/internal/docstore"
	"github.com/angeloszaimis/collab-sync/internal/fanout"
	"github.com/angeloszaimis/collab-sync/internal/handler"
	"github.com/angeloszaimis/collab-sync/internal/healthcheck"
	"github.com/angeloszaimis/collab-sync/internal/httpserver"
	"github.com/angeloszaimis/collab-sync/internal/metrics"
	"github.com/angeloszaimis/collab-sync/internal/registry"
	"github.com/angeloszaimis/collab-sync/internal/relay"
	"github.com/angeloszaimis/collab-sync/internal/router"
	"github.com/angeloszaimis/collab-sync/internal/transport"
	"github.com/angeloszaimis/collab-sync/pkg/logger"
)

const relayRetryDelay = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	secret, err := resolveSecret(cfg, log)
	if err != nil {
		log.Error("Failed to resolve auth secret", slog.Any("err", err))
		os.Exit(1)
	}

	monitor := healthcheck.NewMonitor()
	healthInterval := config.Duration(cfg.HealthCheck.Interval)

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open document store", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeStore()
	if pg, ok := store.(*docstore.Postgres); ok {
		go monitor.Run(ctx, healthcheck.Probe{Name: "postgres", Ping: pg.Ping}, healthInterval, log)
	}

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	reg := registry.New()
	agg := analytics.NewAggregator()

	fanOpts := []fanout.Option{fanout.WithCollector(collector)}
	var redisRelay *relay.Redis
	if cfg.RelayEnabled() {
		var client *redis.Client
		redisRelay, client = newRelay(cfg, log)
		defer client.Close()

		breaker := circuitbreaker.New(cfg.Relay.FailureThreshold, config.Duration(cfg.Relay.ResetTimeout))
		fanOpts = append(fanOpts, fanout.WithRelay(redisRelay, breaker))
		go monitor.Run(ctx, healthcheck.Probe{Name: "redis", Ping: redisRelay.Ping}, healthInterval, log)
	}
	fan := fanout.New(reg, log, fanOpts...)
	if redisRelay != nil {
		go runRelay(ctx, redisRelay, fan, log)
	}

	rt := router.New(reg, agg, fan, log, router.WithCollector(collector))

	routes := routes{
		websocket: handler.NewWebSocket(ctx, rt, transportOptions(cfg), cfg.WebSocket.AllowedOrigins, collector, log),
		analytics: handler.NewAnalytics(agg, store, auth.NewVerifier(secret), log),
		health:    monitor,
		collector: collector,
		state: map[string]metrics.StateFunc{
			"registry":  func() any { return reg.Stats() },
			"documents": func() any { return agg.Documents() },
		},
	}

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(routes, log),
		httpserver.WithReadHeaderTimeout(10*time.Second),
		httpserver.WithShutdownTimeout(10*time.Second))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Server listening",
			slog.String("address", cfg.Server.Address),
			slog.Bool("relay", cfg.RelayEnabled()))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// resolveSecret returns the configured token secret. Outside production an
// empty secret is replaced with a random one so the service still starts;
// tokens signed elsewhere will then be rejected.
func resolveSecret(cfg *config.Config, log *slog.Logger) (string, error) {
	if cfg.Auth.Secret != "" {
		return cfg.Auth.Secret, nil
	}
	if cfg.Server.Environment == config.EnvProd {
		return "", fmt.Errorf("auth.secret is required in %s", config.EnvProd)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate auth secret: %w", err)
	}
	log.Warn("No auth secret configured, generated an ephemeral one")
	return hex.EncodeToString(buf), nil
}

// openStore connects to Postgres when a DSN is configured and falls back to an
// in-memory store seeded from config otherwise.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (docstore.Store, func(), error) {
	if cfg.DocumentStore.DSN == "" {
		mem := docstore.NewMemory()
		for _, doc := range cfg.DocumentStore.Documents {
			mem.Put(doc.ID, doc.Title)
		}
		log.Warn("No document store configured, using in-memory store; "+
			"visualization requests for documents not listed in document_store.documents return 404",
			slog.Int("documents", len(cfg.DocumentStore.Documents)))
		return mem, func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pg, err := docstore.Connect(connectCtx, cfg.DocumentStore.DSN, cfg.DocumentStore.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Connected to document store")
	return pg, pg.Close, nil
}

func newRelay(cfg *config.Config, log *slog.Logger) (*relay.Redis, *redis.Client) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Relay.RedisAddress})
	origin := uuid.NewString()

	log.Info("Cross-instance relay enabled",
		slog.String("redis", cfg.Relay.RedisAddress),
		slog.String("origin", origin))
	return relay.NewRedis(client, cfg.Relay.ChannelPrefix, origin, log), client
}

// runRelay keeps the relay subscription alive until ctx is done.
func runRelay(ctx context.Context, r *relay.Redis, fan *fanout.Fanout, log *slog.Logger) {
	deliver := func(documentID string, payload []byte) {
		fan.DeliverRemote(documentID, payload)
	}

	for {
		err := r.Run(ctx, deliver)
		if ctx.Err() != nil {
			return
		}
		log.Warn("Relay subscription ended, retrying",
			slog.Any("err", err),
			slog.Duration("delay", relayRetryDelay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(relayRetryDelay):
		}
	}
}

func transportOptions(cfg *config.Config) transport.Options {
	return transport.Options{
		ReadLimit:    cfg.WebSocket.ReadLimit,
		WriteTimeout: config.Duration(cfg.WebSocket.WriteTimeout),
		PingInterval: config.Duration(cfg.WebSocket.PingInterval),
	}
}
