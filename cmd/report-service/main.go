package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"roof-report-service/internal/bootstrap"
	"roof-report-service/internal/common/camunda"
	"roof-report-service/internal/common/config"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/server"
	generatereport "roof-report-service/internal/workers/reports/generate-report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting report service...", zap.String("environment", cfg.App.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, log, bootstrap.DefaultOptions())
	if err != nil {
		zapLog.Fatal("pipeline wiring failed", zap.Error(err))
	}
	zapLog.Info("Report pipeline initialized")

	var (
		zeebeClient *camunda.Client
		jobWorker   worker.JobWorker
	)
	if cfg.Camunda.Enabled {
		err = bootstrap.RetryWithBackoff(ctx, func() error {
			var err error
			zeebeClient, err = camunda.NewClient(ctx, cfg.Camunda)
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		wcfg := config.GetWorkerConfig(cfg, generatereport.ConfigKey)
		handler := generatereport.NewHandler(app.Orchestrator, config.GetDuration(wcfg.Timeout), log)
		jobWorker = camunda.StartWorker(zeebeClient.GetClient(), generatereport.TaskType, wcfg, handler, log)
	}

	checks := app.Checks()
	if zeebeClient != nil {
		checks["zeebe"] = zeebeClient.HealthCheck
	}

	srv := server.New(server.Config{
		Address:       cfg.Server.Address,
		ReadTimeout:   config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout:  config.GetDuration(cfg.Server.WriteTimeout),
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		AllowedOrigin: cfg.Server.AllowedOrigin,
	}, server.Dependencies{
		Generator: app.Orchestrator,
		Images:    app.Images,
		Presence:  app.Presence(),
		Checks:    checks,
		Logger:    log,
	})
	httpServer := srv.HTTPServer()

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if jobWorker != nil {
		jobWorker.Close()
		jobWorker.AwaitClose()
	}
	if zeebeClient != nil {
		if err := zeebeClient.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := app.Close(shutdownCtx); err != nil {
		zapLog.Error("Error releasing resources", zap.Error(err))
	}

	zapLog.Info("Report service stopped gracefully")
}
