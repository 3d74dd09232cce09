package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/remedyops/findings-api/internal/config"
	"github.com/remedyops/findings-api/internal/infra/dynamo"
	httpinfra "github.com/remedyops/findings-api/internal/infra/http"
	"github.com/remedyops/findings-api/internal/infra/jobs"
	"github.com/remedyops/findings-api/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	ddb, err := dynamo.NewClient(ctx, cfg.AWS.Region, cfg.AWS.EndpointURL)
	if err != nil {
		log.Error("failed to create dynamodb client", "error", err)
		return 1
	}
	repos := NewRepositories(ddb, cfg, log)
	log.Info("repositories initialized")

	jobClient, err := jobs.NewClient(jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		log.Error("failed to initialize job client", "error", err)
		return 1
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			log.Warn("failed to close job client", "error", err)
		}
	}()

	services, err := NewServices(ctx, cfg, repos, jobClient, log)
	if err != nil {
		log.Error("failed to initialize services", "error", err)
		return 1
	}
	log.Info("services initialized")

	handlers := NewHandlers(services, log)
	router := httpinfra.NewRouter(cfg, services.Auth, handlers, log)
	server := httpinfra.NewServer(cfg, router, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "host", cfg.Server.Host, "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown cleanly", "error", err)
		return 1
	}
	return 0
}
