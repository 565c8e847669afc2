package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/school-erp/superadmin/internal/auth"
	"github.com/school-erp/superadmin/internal/config"
	"github.com/school-erp/superadmin/internal/handler"
	"github.com/school-erp/superadmin/internal/platform"
	"github.com/school-erp/superadmin/internal/query"
	"github.com/school-erp/superadmin/internal/relay"
	"github.com/school-erp/superadmin/internal/server"
	"github.com/school-erp/superadmin/internal/session"
	"github.com/school-erp/superadmin/internal/view"
	"github.com/school-erp/superadmin/pkg/api"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	var store query.Store
	var sweep *query.Sweeper

	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		rs, err := query.NewRedis(ctx, cfg.RedisURL, cfg.CacheRetention)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rs.Close()
		store = rs
		logger.Info("using Redis query cache")
	} else {
		mem := query.NewMemory()
		store = mem
		sweep = query.NewSweeper(logger, mem, cfg.SweepInterval, cfg.CacheRetention)
		logger.Info("using in-memory query cache (no REDIS_URL set)")
	}

	client := api.NewClient(cfg.APIURL)
	client.HTTPClient.Timeout = cfg.HTTPTimeout
	logger.Info("platform backend", "url", cfg.APIURL, "env", cfg.Env)

	cache := query.New(logger, store, cfg.QueryStaleTime)
	svc := platform.NewService(logger, client, cache)
	sessions := session.NewResolver(logger, client, cache.WithStaleTime(cfg.SessionStaleTime))

	rl := relay.New(cfg.CookieName, cfg.CookieMaxAge, cfg.Production())
	gate := auth.NewGate(logger, rl, sessions, svc)
	throttle := auth.NewThrottle(cfg.LoginRatePerMinute, cfg.LoginBurst)

	views, err := view.New(logger)
	if err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	h := handler.New(logger, views, gate, client, svc, cache, throttle)
	srv := server.New(logger, gate, h)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	if sweep != nil {
		go sweep.Run(bgCtx)
		logger.Info("cache sweeper started", "interval", cfg.SweepInterval, "retention", cfg.CacheRetention)
	}
	go throttle.Run(bgCtx, cfg.SweepInterval, 10*time.Minute)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTPTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting panel server", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	logger.Info("server stopped")
}
