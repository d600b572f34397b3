package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pingdeck/pingdeck/internal/config"
	"github.com/pingdeck/pingdeck/internal/httpapi"
	apimw "github.com/pingdeck/pingdeck/internal/httpapi/middleware"
	"github.com/pingdeck/pingdeck/internal/logging"
	"github.com/pingdeck/pingdeck/internal/probe"
	"github.com/pingdeck/pingdeck/internal/repo"
	"github.com/pingdeck/pingdeck/internal/repo/memory"
	"github.com/pingdeck/pingdeck/internal/repo/postgres"
	"github.com/pingdeck/pingdeck/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogDir, os.Getenv("DEBUG") != "")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		endpoints repo.EndpointStore
		results   repo.ResultStore
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_connect", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("postgres_schema", zap.Error(err))
		}
		endpoints, results = pg, pg
		logger.Info("store_postgres")
	} else {
		mem := memory.New()
		endpoints, results = mem, mem
		logger.Info("store_memory")
	}

	checker := probe.NewDispatcher(cfg.PingTimeout, cfg.DNSResolver)
	hub := httpapi.NewHub(logger.Named("ws"), cfg.AllowedOrigins)
	hub.Results = results

	api := httpapi.NewServer(logger.Named("api"), endpoints, results, checker, cfg.PingTimeout)
	api.Hub = hub
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		api.AdminUser = cfg.AdminUsername
		api.AdminPass = cfg.AdminPassword
		api.Sessions = apimw.NewSessionStore(cfg.SessionTTL)
	} else {
		logger.Warn("admin_credentials_unset_mutating_routes_open")
	}

	pinger := scheduler.NewPinger(
		logger.Named("pinger"),
		endpoints, results, checker,
		cfg.PingInterval, cfg.PingTimeout, cfg.PingConcurrency,
	)
	pinger.Publisher = hub
	go pinger.Run(ctx)

	pruner := scheduler.NewPruner(
		logger.Named("pruner"),
		results,
		time.Duration(cfg.RetentionDays)*24*time.Hour,
	)
	go pruner.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.Router(cfg.AllowedOrigins, cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("api_serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
