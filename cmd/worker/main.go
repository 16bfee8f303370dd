package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	temporalclient "go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"

	"github.com/efebarandurmaz/sherpa/internal/config"
	"github.com/efebarandurmaz/sherpa/internal/observability"
	"github.com/efebarandurmaz/sherpa/internal/pipeline"
	"github.com/efebarandurmaz/sherpa/internal/server"
	temporalmod "github.com/efebarandurmaz/sherpa/internal/temporal"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(os.Stderr, observability.LogConfig{
		Verbosity: cfg.Log.Verbosity,
		JSON:      cfg.Log.JSON,
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, cfg.Tracing.Observability())
	if err != nil {
		return err
	}
	inst, err := observability.NewInstruments(nil)
	if err != nil {
		return err
	}

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Config:  cfg,
		Logger:  logger,
		Options: []pipeline.Option{pipeline.WithInstruments(inst)},
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		c.Close()
		return err
	}

	health := server.NewHealth(version)
	health.Register("temporal", server.TemporalChecker(c))
	health.Register("config", server.StaticChecker(map[string]string{
		"task_queue": cfg.Temporal.TaskQueue,
		"embedder":   cfg.Embedder.Provider,
		"store":      cfg.Store.Backend,
	}))

	shutdown := server.NewShutdown(server.DefaultShutdownTimeout, logger)
	healthCtx, stopHealth := context.WithCancel(context.Background())
	shutdown.Register(server.HealthHook(health, stopHealth))
	shutdown.Register(server.WorkerHook(w.Stop))
	shutdown.Register(server.TracingHook(tp.Shutdown))
	shutdown.Register(server.CloserHook("temporal-client", func() error {
		c.Close()
		return nil
	}))

	if addr := cfg.Temporal.HealthAddr; addr != "" {
		go func() {
			if err := health.Serve(healthCtx, addr); err != nil {
				logger.Error("health server", "addr", addr, "error", err)
			}
		}()
	}
	health.SetReady(true)
	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue, "namespace", cfg.Temporal.Namespace, "health_addr", cfg.Temporal.HealthAddr)

	shutdown.RunOnDone(ctx)
	<-shutdown.Done()
	if err := shutdown.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("shutdown incomplete", "error", err)
	}
	logger.Info("worker stopped")
	return nil
}
