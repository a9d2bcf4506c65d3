// Package bootstrap wires the report pipeline from configuration. The service binary and the
// operator CLI share it.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"roof-report-service/internal/common/aws"
	"roof-report-service/internal/common/cloudinary"
	"roof-report-service/internal/common/config"
	"roof-report-service/internal/common/database"
	"roof-report-service/internal/common/ghl"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/common/observability"
	"roof-report-service/internal/common/pdfmonkey"
	"roof-report-service/internal/server"
	generatereport "roof-report-service/internal/workers/reports/generate-report"
	notifyhomeowner "roof-report-service/internal/workers/reports/notify-homeowner"
	renderdocument "roof-report-service/internal/workers/reports/render-document"
	uploadphotos "roof-report-service/internal/workers/reports/upload-photos"
)

// Options tunes how hard Build tries to reach backing stores.
type Options struct {
	ConnectRetries int
	RetryDelay     time.Duration
}

func DefaultOptions() Options {
	return Options{ConnectRetries: 10, RetryDelay: 2 * time.Second}
}

// App holds the wired pipeline and every resource that must be released on shutdown.
type App struct {
	Config        *config.Config
	Logger        logger.Logger
	Orchestrator  *generatereport.Orchestrator
	Images        *cloudinary.Client
	Redis         *database.RedisClient
	Postgres      *database.PostgresClient
	Tracing       *observability.TracerProvider
	Observability *observability.Observability
}

// Build connects the optional stores and assembles the pipeline stages.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	app := &App{Config: cfg, Logger: log}

	if cfg.Database.Redis.Enabled {
		client, err := connect(ctx, func() (*database.RedisClient, error) {
			return database.NewRedis(cfg.Database.Redis)
		}, opts, log, "Redis connection")
		if err != nil {
			return nil, err
		}
		app.Redis = client
		log.Info("Redis connected successfully", nil)
	}

	var ledger generatereport.Ledger
	if cfg.Database.Postgres.Enabled {
		client, err := connect(ctx, func() (*database.PostgresClient, error) {
			return database.NewPostgres(cfg.Database.Postgres)
		}, opts, log, "PostgreSQL connection")
		if err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
		app.Postgres = client
		pgLedger := generatereport.NewPostgresLedger(app.Postgres.DB)
		if err := pgLedger.EnsureSchema(ctx); err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
		ledger = pgLedger
		log.Info("PostgreSQL connected successfully", nil)
	}

	tracer := observability.NoopTracer()
	if cfg.Observability.Tracing.Enabled {
		app.Tracing = observability.NewTracerProvider(cfg.Observability.Tracing.SampleRatio)
		tracer = app.Tracing.Tracer()
	}
	app.Observability = observability.New(cfg.App.Name, log)

	orchestrator, err := app.buildPipeline(ctx, tracer, ledger)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	app.Orchestrator = orchestrator
	return app, nil
}

func (a *App) buildPipeline(ctx context.Context, tracer trace.Tracer, ledger generatereport.Ledger) (*generatereport.Orchestrator, error) {
	cfg := a.Config
	integrations := cfg.Integrations

	var cache redis.Cmdable
	if a.Redis != nil {
		cache = a.Redis.Cmdable()
	}

	a.Images = cloudinary.NewClient(
		integrations.Cloudinary.CloudName,
		integrations.Cloudinary.UploadPreset,
		integrations.Cloudinary.BaseURL,
		config.GetDuration(integrations.Cloudinary.Timeout),
	)
	if !a.Images.Configured() {
		a.Logger.Warn("image host is not configured, photo uploads will fail", nil)
	}

	uploadCfg := uploadphotos.DefaultConfig()
	uploadCfg.Concurrency = cfg.Pipeline.PhotoUploadConcurrency
	uploadCfg.CacheTTL = config.GetDuration(cfg.Database.Redis.PhotoCacheTTL)
	if err := uploadCfg.Validate(); err != nil {
		return nil, fmt.Errorf("upload-photos config: %w", err)
	}
	uploader := uploadphotos.NewService(uploadphotos.ServiceDependencies{
		ImageHost: a.Images,
		Cache:     cache,
		Logger:    a.Logger,
	}, uploadCfg)

	renderCfg := &renderdocument.Config{
		TemplateID:   integrations.PDFMonkey.TemplateID,
		PollInterval: config.GetDuration(integrations.PDFMonkey.PollInterval),
		MaxAttempts:  integrations.PDFMonkey.PollMaxAttempts,
	}
	if err := renderCfg.Validate(); err != nil {
		return nil, fmt.Errorf("render-document config: %w", err)
	}
	documents := pdfmonkey.NewClient(
		integrations.PDFMonkey.APIKey,
		integrations.PDFMonkey.BaseURL,
		config.GetDuration(integrations.PDFMonkey.Timeout),
	)
	renderDeps := renderdocument.ServiceDependencies{Documents: documents, Logger: a.Logger}

	notifier, err := a.buildNotifier(ctx)
	if err != nil {
		return nil, err
	}

	genCfg := generatereport.DefaultConfig()
	genCfg.Timeout = config.GetDuration(cfg.Pipeline.Timeout)
	genCfg.ReportIDAttempts = cfg.Pipeline.ReportIDAttempts
	genCfg.ReportIDTTL = config.GetDuration(cfg.Database.Redis.ReportIDTTL)
	if genCfg.Timeout <= renderCfg.Ceiling() {
		a.Logger.Warn("pipeline timeout does not cover the render poll ceiling", map[string]interface{}{
			"timeout_ms": genCfg.Timeout.Milliseconds(),
			"ceiling_ms": renderCfg.Ceiling().Milliseconds(),
		})
	}

	return generatereport.NewOrchestrator(generatereport.ServiceDependencies{
		Photos:        uploader,
		Renderer:      renderdocument.NewClient(renderDeps, renderCfg),
		Poller:        renderdocument.NewPoller(renderDeps, renderCfg),
		Notifier:      notifier,
		ReportIDs:     generatereport.NewReportIDs(cache, genCfg, a.Logger),
		Ledger:        ledger,
		Tracer:        tracer,
		Observability: a.Observability,
		Logger:        a.Logger,
	}, genCfg)
}

func (a *App) buildNotifier(ctx context.Context) (generatereport.Notifier, error) {
	cfg := a.Config
	integrations := cfg.Integrations

	notifyCfg := &notifyhomeowner.Config{
		Provider:   cfg.Notifications.Provider,
		IssuerCopy: cfg.Notifications.IssuerCopy.Enabled,
		FromEmail:  integrations.AWS.SES.FromEmail,
	}
	deps := notifyhomeowner.ServiceDependencies{Logger: a.Logger}

	switch notifyCfg.Provider {
	case notifyhomeowner.ProviderGHL:
		deps.Contacts = ghl.NewClient(
			integrations.GHL.APIKey,
			integrations.GHL.LocationID,
			integrations.GHL.BaseURL,
			integrations.GHL.APIVersion,
			config.GetDuration(integrations.GHL.Timeout),
		)
	case notifyhomeowner.ProviderSNS:
		sms, err := aws.NewSNSClient(ctx, integrations.AWS.Region, integrations.AWS.SNS.DefaultSMSSenderID)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		deps.SMS = sms
	}

	if notifyCfg.IssuerCopy {
		email, err := aws.NewSESClient(ctx, integrations.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		deps.Email = email
	}

	svc, err := notifyhomeowner.NewService(deps, notifyCfg)
	if err != nil {
		return nil, fmt.Errorf("notify-homeowner: %w", err)
	}
	return svc, nil
}

// Presence reports which integrations are configured, for diagnostics.
func (a *App) Presence() server.Presence {
	integrations := a.Config.Integrations
	return server.Presence{
		CloudName:        a.Images.CloudName(),
		HasCloudName:     a.Images.CloudName() != "",
		HasUploadPreset:  a.Images.UploadPreset() != "",
		HasRenderAPIKey:  integrations.PDFMonkey.APIKey != "",
		HasTemplateID:    integrations.PDFMonkey.TemplateID != "",
		HasContactAPIKey: integrations.GHL.APIKey != "",
		HasLocationID:    integrations.GHL.LocationID != "",
	}
}

// Checks returns readiness checks for the connected stores.
func (a *App) Checks() map[string]server.Check {
	checks := map[string]server.Check{}
	if a.Redis != nil {
		checks["redis"] = a.Redis.Ping
	}
	if a.Postgres != nil {
		checks["postgres"] = a.Postgres.Ping
	}
	return checks
}

// Close releases every resource Build acquired.
func (a *App) Close(ctx context.Context) error {
	var merr *multierror.Error
	if a.Tracing != nil {
		if err := a.Tracing.Shutdown(ctx); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("tracing: %w", err))
		}
	}
	if err := a.Observability.Shutdown(ctx); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("metrics: %w", err))
	}
	if a.Postgres != nil {
		if err := a.Postgres.Close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("postgres: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("redis: %w", err))
		}
	}
	return merr.ErrorOrNil()
}

// store is a connection handle that must be released when it never becomes usable.
type store interface {
	Ping(ctx context.Context) error
	Close() error
}

// connect opens and pings a store under RetryWithBackoff. Every handle from a failed attempt is
// closed, so only the returned one stays open.
func connect[T store](ctx context.Context, open func() (T, error), opts Options, log logger.Logger, name string) (T, error) {
	var conn T
	err := RetryWithBackoff(ctx, func() error {
		candidate, err := open()
		if err != nil {
			return err
		}
		if err := candidate.Ping(ctx); err != nil {
			if closeErr := candidate.Close(); closeErr != nil {
				log.Warn(name+": closing failed attempt", map[string]interface{}{"error": closeErr.Error()})
			}
			return err
		}
		conn = candidate
		return nil
	}, opts.ConnectRetries, opts.RetryDelay, log, name)
	return conn, err
}

// RetryWithBackoff runs operation until it succeeds, doubling the delay after each failure.
func RetryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
