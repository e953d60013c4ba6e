package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"piazza/cache"
	"piazza/config"
	"piazza/database"
	"piazza/engagement"
	"piazza/events"
	"piazza/handlers"
	"piazza/observability"
	"piazza/routes"
	"piazza/store"
	"piazza/store/mongostore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("❌ Invalid configuration", "error", err)
		os.Exit(1)
	}
	initLogger(cfg)
	slog.Info("🚀 Starting Piazza API...", "env", cfg.Env, "store", cfg.Store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== TRACING =====
	if cfg.OtelEndpoint != "" {
		tp, err := observability.InitTracer(ctx, cfg.OtelEndpoint, "piazza", cfg.Env)
		if err != nil {
			slog.Warn("⚠️ Tracing disabled", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	// ===== STORAGE =====
	var (
		posts store.PostStore
		users store.UserStore
	)
	switch cfg.Store {
	case config.StoreMemory:
		mem := store.NewMemoryStore()
		posts, users = mem, mem
		slog.Info("💾 Using in-memory store")
	default:
		slog.Info("🔌 Connecting to MongoDB...")
		client, err := database.ConnectMongo(ctx, cfg.MongoURI, 3)
		if err != nil {
			slog.Error("❌ Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer database.DisconnectMongo(client)

		mongoStore := mongostore.New(client.Database(cfg.MongoDB))
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			slog.Error("❌ Failed to create MongoDB indexes", "error", err)
			os.Exit(1)
		}
		posts, users = mongoStore, mongoStore
		slog.Info("✅ MongoDB connected successfully", "db", cfg.MongoDB)
	}

	// ===== METRICS =====
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	opts := []engagement.Option{
		engagement.WithTaxonomy(cfg.Topics),
		engagement.WithDefaultExpiration(cfg.PostExpiration),
		engagement.WithMetrics(metrics),
		engagement.WithLogger(slog.Default()),
	}

	// ===== MOST ACTIVE CACHE =====
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = database.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Warn("⚠️ Redis unavailable, shared most active cache disabled", "error", err)
			rdb = nil
		} else {
			defer rdb.Close()
			slog.Info("✅ Redis connected", "addr", cfg.RedisAddr)
		}
	}
	opts = append(opts, engagement.WithCache(newActivityCache(cfg, rdb)))

	// ===== EVENTS =====
	if cfg.NatsURL != "" {
		nc, err := database.ConnectNATS(cfg.NatsURL)
		if err != nil {
			slog.Warn("⚠️ NATS unavailable, events disabled", "error", err)
		} else {
			defer nc.Drain()
			opts = append(opts, engagement.WithPublisher(events.NewNatsPublisher(nc)))
			slog.Info("✅ NATS connected", "url", cfg.NatsURL)
		}
	}

	engine := engagement.NewEngine(posts, opts...)

	// ===== EXPIRY SWEEPER =====
	if cfg.SweepInterval > 0 {
		sweeper := engagement.NewSweeper(engine, cfg.SweepInterval)
		if err := sweeper.Start(ctx); err != nil {
			slog.Error("❌ Failed to start expiry sweeper", "error", err)
			os.Exit(1)
		}
		defer sweeper.Stop()
	}

	// ===== GIN MODE =====
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// ===== ROUTER =====
	router := routes.SetupRouter(routes.Options{
		Handler: handlers.New(engine, users, handlers.AuthConfig{
			Secret:   []byte(cfg.JWTSecret),
			TokenTTL: cfg.TokenTTL,
		}),
		JWTSecret:   []byte(cfg.JWTSecret),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      slog.Default(),
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("🌐 Server running", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// ===== GRACEFUL SHUTDOWN =====
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		slog.Error("❌ Server error", "error", err)
	}

	slog.Info("🛑 Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("❌ Forced shutdown", "error", err)
	}

	slog.Info("👋 Server stopped gracefully")
}

// newActivityCache prefers Redis. Without it a process-local cache is only
// used with the in-memory store, since other instances sharing MongoDB never
// see this process's invalidations.
func newActivityCache(cfg config.Config, rdb *redis.Client) engagement.ActivityCache {
	switch {
	case rdb != nil:
		return cache.NewRedisCache(rdb, cfg.MostActiveTTL)
	case cfg.Store == config.StoreMemory:
		return cache.NewMemoryCache(cfg.MostActiveTTL)
	default:
		return cache.Nop{}
	}
}

func initLogger(cfg config.Config) {
	var handler slog.Handler
	if cfg.IsLocal() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}
