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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/aniket-work/autonomous-agri-nexus/internal/app"
	"github.com/aniket-work/autonomous-agri-nexus/internal/config"
	"github.com/aniket-work/autonomous-agri-nexus/internal/httpapi"
	"github.com/aniket-work/autonomous-agri-nexus/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pipeline, err := app.Build(ctx, cfg, logger, reg)
	if err != nil {
		logger.Fatal("build pipeline", zap.Error(err))
	}
	defer pipeline.Close()

	handler := httpapi.NewRouter(cfg, httpapi.Dependencies{
		Cycles:   pipeline.Orchestrator,
		Crops:    pipeline.Crops,
		Logger:   logger,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddress(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.CycleTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening",
			zap.String("addr", cfg.ListenAddress()),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
