package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/joho/godotenv"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/rodneyosodo/starfish/coordinator"
	"github.com/rodneyosodo/starfish/coordinator/api"
	"github.com/rodneyosodo/starfish/coordinator/middleware"
	"github.com/rodneyosodo/starfish/pkg/artifact"
	"github.com/rodneyosodo/starfish/pkg/storage"
)

const (
	svcName = "coordinator"
	pathEnv = ".env"
)

type envConfig struct {
	LogLevel     string        `env:"COORDINATOR_LOG_LEVEL"     envDefault:"info"`
	Host         string        `env:"COORDINATOR_HOST"          envDefault:"localhost"`
	Port         string        `env:"COORDINATOR_PORT"          envDefault:"7070"`
	ArtifactsDir string        `env:"COORDINATOR_ARTIFACTS_DIR" envDefault:"artifacts"`
	StopTimeout  time.Duration `env:"COORDINATOR_STOP_TIMEOUT"  envDefault:"5s"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	artifacts, err := artifact.NewFSStore(cfg.ArtifactsDir)
	if err != nil {
		logger.Error("failed to initialize artifact store", slog.String("error", err.Error()))

		return
	}

	svc := coordinator.NewService(storage.NewInMemoryStorage(), artifacts, logger)
	svc = middleware.Logging(logger, svc)
	counter := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "starfish",
		Subsystem: svcName,
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, []string{"method"})
	latency := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace: "starfish",
		Subsystem: svcName,
		Name:      "request_latency_microseconds",
		Help:      "Total duration of requests in microseconds.",
	}, []string{"method"})
	svc = middleware.Metrics(counter, latency, svc)

	server := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: api.MakeHandler(svc, logger),
	}

	g.Go(func() error {
		logger.Info(svcName+" service started", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}

		return nil
	})

	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
		case <-ctx.Done():
			return nil
		}
		logger.Info(svcName + " service shutting down")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.StopTimeout)
		defer stopCancel()

		return server.Shutdown(stopCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}
