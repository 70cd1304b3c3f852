package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/tombola/config"
	"github.com/mossy-p/tombola/internal/admin"
	"github.com/mossy-p/tombola/internal/engine"
	"github.com/mossy-p/tombola/internal/gateway"
	"github.com/mossy-p/tombola/internal/handlers"
	"github.com/mossy-p/tombola/internal/logger"
	"github.com/mossy-p/tombola/internal/metrics"
	"github.com/mossy-p/tombola/internal/redis"
	"github.com/mossy-p/tombola/internal/room"
	"github.com/mossy-p/tombola/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: !cfg.IsProduction(),
	})

	os.Exit(exitCode(log, run(cfg, log)))
}

// exitCode logs err and flushes log; main exits with the result.
func exitCode(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("server stopped", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	return code
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	manager := admin.NewManager(store, admin.Options{
		SuperAdmins: cfg.Admin.SuperAdmins,
		JWTSecret:   cfg.JWTSecret,
		SessionTTL:  cfg.SessionTTL,
	}, log.Named("admin"))
	if err := manager.Seed(ctx, cfg.Admin.SeedCodes); err != nil {
		return err
	}
	if len(cfg.Admin.SuperAdmins) == 0 {
		log.Warn("SUPER_ADMINS is empty, admin codes can only be seeded through ADMIN_CODES")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	limiter := security.NewRateLimitManager(log.Named("limiter"))
	defer limiter.Stop()

	hub := gateway.NewHub(m, log.Named("gateway"))

	defaults := room.DefaultSettings()
	defaults.AutoExtractInterval = cfg.Game.AutoExtractInterval
	defaults.MaxPlayers = cfg.Game.MaxPlayers
	rooms := room.NewRegistry(manager, hub, room.Options{
		AdminGracePeriod:  cfg.Game.AdminGracePeriod,
		InactivityTimeout: cfg.Game.InactivityTimeout,
		Defaults:          defaults,
	}, m, log.Named("rooms"))
	defer rooms.Shutdown()

	eng := engine.New(rooms, hub, limiter, engine.Options{
		ChatRate:  cfg.Chat.Rate,
		ChatBurst: cfg.Chat.Burst,
	}, m, log.Named("engine"))

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.Deps{
		AllowedOrigins: cfg.AllowedOrigins,
		Admin:          manager,
		Rooms:          rooms,
		Socket:         handlers.NewSocket(hub, eng, log.Named("ws")),
		Limiter:        limiter,
		Metrics:        m,
		Log:            log,
		RequestLog:     !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting tombola server", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return rooms.RunReaper(ctx, cfg.Game.ReapInterval)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore picks the Redis-backed admin store when enabled, otherwise the
// in-memory one.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (admin.Store, func(), error) {
	if !cfg.Redis.Enabled {
		log.Info("admin codes kept in memory")
		return admin.NewMemoryStore(), func() {}, nil
	}

	client, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Redis connection established", zap.String("host", cfg.Redis.Host))
	return admin.NewRedisStore(client), func() { client.Close() }, nil
}
