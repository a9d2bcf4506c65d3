// internal/workers/reports/generate-report/service.go
package generatereport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"roof-report-service/internal/common/errors"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/common/metrics"
	"roof-report-service/internal/common/observability"
	"roof-report-service/internal/common/validation"
	"roof-report-service/internal/models"
)

// Orchestrator runs one submission through upload, render, poll and notify, and always
// produces a PipelineOutcome.
type Orchestrator struct {
	config   *Config
	photos   PhotoUploader
	renderer RenderClient
	poller   RenderPoller
	notifier Notifier
	ids      IDSource
	ledger   Ledger
	tracer   trace.Tracer
	obs      *observability.Observability
	logger   logger.Logger
	now      func() time.Time
}

func NewOrchestrator(deps ServiceDependencies, config *Config) (*Orchestrator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if deps.Photos == nil || deps.Renderer == nil || deps.Poller == nil {
		return nil, fmt.Errorf("photo uploader, render client and render poller are required")
	}

	o := &Orchestrator{
		config:   config,
		photos:   deps.Photos,
		renderer: deps.Renderer,
		poller:   deps.Poller,
		notifier: deps.Notifier,
		ids:      deps.ReportIDs,
		ledger:   deps.Ledger,
		tracer:   deps.Tracer,
		obs:      deps.Observability,
		logger:   deps.Logger.WithFields(map[string]interface{}{"component": "report-orchestrator"}),
		now:      time.Now,
	}
	if o.ids == nil {
		o.ids = NewReportIDs(nil, config, deps.Logger)
	}
	if o.tracer == nil {
		o.tracer = observability.NoopTracer()
	}
	return o, nil
}

// run tracks one pipeline execution.
type run struct {
	stage      Stage
	stageStart time.Time
	outcome    *models.PipelineOutcome
}

func (o *Orchestrator) advance(r *run, next Stage) {
	if !r.stage.CanTransitionTo(next) {
		panic(fmt.Sprintf("illegal pipeline transition %s -> %s", r.stage, next))
	}
	now := o.now()
	metrics.ReportStageDuration.WithLabelValues(string(r.stage)).Observe(now.Sub(r.stageStart).Seconds())
	r.stage = next
	r.stageStart = now
}

// GenerateJSON validates and decodes a raw submission, then generates the report. A malformed
// submission fails the run with INVALID_SUBMISSION.
func (o *Orchestrator) GenerateJSON(ctx context.Context, raw []byte, source string) *models.PipelineOutcome {
	result, err := validation.ValidateSubmission(raw)
	if err != nil {
		return o.reject(ctx, source, errors.NewInvalidSubmissionError(err.Error()))
	}
	if !result.Valid {
		return o.reject(ctx, source, errors.NewInvalidSubmissionError(strings.Join(result.GetErrorMessages(), "; ")))
	}

	var sub models.InspectionSubmission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return o.reject(ctx, source, errors.NewInvalidSubmissionError(err.Error()))
	}
	return o.Generate(ctx, &sub, source)
}

// Generate runs the pipeline. Stage failures are recorded as degradations and the run continues;
// only a missing submission or an unexpected panic yields success=false.
func (o *Orchestrator) Generate(ctx context.Context, sub *models.InspectionSubmission, source string) (outcome *models.PipelineOutcome) {
	if sub == nil {
		return o.reject(ctx, source, errors.NewInvalidSubmissionError("submission is required"))
	}

	start := o.now()
	outcome = &models.PipelineOutcome{StartedAt: start}
	r := &run{stage: StageInitializing, stageStart: start, outcome: outcome}

	metrics.PipelinesActive.Inc()
	defer metrics.PipelinesActive.Dec()

	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	ctx, span := o.tracer.Start(ctx, "report.generate", trace.WithAttributes(attribute.String("report.source", source)))

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("report pipeline panicked", map[string]interface{}{
				"reportId": outcome.ReportID,
				"stage":    string(r.stage),
				"panic":    fmt.Sprint(rec),
			})
			fail(outcome, errors.NewUnhandledError(fmt.Errorf("%v", rec)))
			r.stage = StageFailed
		}
		o.finish(ctx, outcome, source)

		var spanErr error
		if outcome.Fatal != nil {
			spanErr = outcome.Fatal
		}
		observability.EndSpan(span, spanErr,
			attribute.String("report.id", outcome.ReportID),
			attribute.String("report.status", outcome.Status()),
			attribute.Int("report.photos_uploaded", outcome.PhotosUploaded),
		)
	}()

	outcome.ReportID = o.ids.Next(ctx)
	log := o.logger.WithFields(map[string]interface{}{"reportId": outcome.ReportID, "source": source})
	log.Info("report pipeline started", map[string]interface{}{
		"photos":       len(sub.Photos),
		"notification": sub.WantsNotification(),
	})
	if sub.Condition != "" && !sub.Condition.IsValid() {
		log.Warn("unknown condition rating, rendering as fair", map[string]interface{}{"condition": string(sub.Condition)})
	}
	if sub.Recommendation != "" && !sub.Recommendation.IsValid() {
		log.Warn("unknown recommendation", map[string]interface{}{"recommendation": string(sub.Recommendation)})
	}

	o.advance(r, StageUploadingPhotos)
	uploaded, fatal := o.uploadPhotos(ctx, sub, outcome)
	if fatal != nil {
		log.Error("photo upload stage failed", map[string]interface{}{"error": fatal.Details})
		fail(outcome, fatal)
		o.advance(r, StageFailed)
		return outcome
	}

	o.advance(r, StageBuildingPayload)
	payload := BuildPayload(sub, outcome.ReportID, uploaded, o.now())

	o.advance(r, StageRendering)
	jobID := o.submit(ctx, payload, outcome)
	if jobID == "" {
		o.advance(r, StageDone)
		return o.complete(log, outcome)
	}

	o.advance(r, StagePolling)
	if !o.await(ctx, jobID, outcome) {
		o.advance(r, StageDone)
		return o.complete(log, outcome)
	}

	o.advance(r, StageNotifying)
	o.notify(ctx, sub, outcome)

	o.advance(r, StageDone)
	return o.complete(log, outcome)
}

// uploadPhotos degrades the outcome for every skipped photo and returns the first fatal failure,
// if any.
func (o *Orchestrator) uploadPhotos(ctx context.Context, sub *models.InspectionSubmission, outcome *models.PipelineOutcome) ([]models.UploadedPhoto, *errors.StandardError) {
	ctx, span := o.tracer.Start(ctx, "report.upload_photos")
	batch := o.photos.UploadAll(ctx, sub.Photos)
	outcome.PhotosSubmitted = len(sub.Photos)
	outcome.PhotosUploaded = len(batch.Photos)

	var fatal *errors.StandardError
	for _, failure := range batch.Failures {
		if failure.IsFatal() {
			if fatal == nil {
				fatal = failure
			}
			continue
		}
		outcome.Degrade(failure)
	}

	var spanErr error
	if fatal != nil {
		spanErr = fatal
	}
	observability.EndSpan(span, spanErr,
		attribute.Int("photos.submitted", outcome.PhotosSubmitted),
		attribute.Int("photos.uploaded", outcome.PhotosUploaded),
	)
	return batch.Photos, fatal
}

func (o *Orchestrator) submit(ctx context.Context, payload *models.RenderPayload, outcome *models.PipelineOutcome) string {
	ctx, span := o.tracer.Start(ctx, "report.render_submit")
	res := o.renderer.Submit(ctx, payload)
	if res.Failed() {
		outcome.Degrade(res.Err)
		observability.EndSpan(span, res.Err)
		return ""
	}
	observability.EndSpan(span, nil, attribute.String("render.job_id", res.Value))
	return res.Value
}

func (o *Orchestrator) await(ctx context.Context, jobID string, outcome *models.PipelineOutcome) bool {
	ctx, span := o.tracer.Start(ctx, "report.render_poll", trace.WithAttributes(attribute.String("render.job_id", jobID)))
	res := o.poller.Await(ctx, jobID)
	if res.Failed() {
		outcome.Degrade(res.Err)
		observability.EndSpan(span, res.Err)
		return false
	}
	url := res.Value.ArtifactURL
	outcome.ArtifactURL = &url
	observability.EndSpan(span, nil)
	return true
}

func (o *Orchestrator) notify(ctx context.Context, sub *models.InspectionSubmission, outcome *models.PipelineOutcome) {
	if o.notifier == nil || !sub.WantsNotification() || !outcome.HasArtifact() {
		return
	}

	ctx, span := o.tracer.Start(ctx, "report.notify")
	delivery := o.notifier.Notify(ctx, models.NotificationRequest{
		ReportID:     outcome.ReportID,
		Phone:        sub.HomeownerPhone,
		CustomerName: sub.CustomerName,
		CompanyName:  CompanyName(sub),
		CompanyEmail: sub.Issuer().CompanyEmail,
		ArtifactURL:  *outcome.ArtifactURL,
	})
	outcome.NotificationSent = delivery.Sent()

	var spanErr error
	if delivery.Err != nil {
		outcome.Degrade(delivery.Err)
		spanErr = delivery.Err
	}
	observability.EndSpan(span, spanErr, attribute.Bool("notification.sent", outcome.NotificationSent))
}

func (o *Orchestrator) complete(log logger.Logger, outcome *models.PipelineOutcome) *models.PipelineOutcome {
	outcome.Success = true
	log.Info("report pipeline finished", map[string]interface{}{
		"status":           outcome.Status(),
		"hasArtifact":      outcome.HasArtifact(),
		"photosUploaded":   outcome.PhotosUploaded,
		"photosSubmitted":  outcome.PhotosSubmitted,
		"notificationSent": outcome.NotificationSent,
		"degradations":     errors.Codes(outcome.Degradations),
	})
	return outcome
}

// reject builds the outcome for a run that never started.
func (o *Orchestrator) reject(ctx context.Context, source string, stdErr *errors.StandardError) *models.PipelineOutcome {
	now := o.now()
	outcome := &models.PipelineOutcome{StartedAt: now}
	fail(outcome, stdErr)
	o.logger.Warn("report submission rejected", map[string]interface{}{
		"source":  source,
		"details": stdErr.Details,
	})
	o.finish(ctx, outcome, source)
	return outcome
}

// finish records metrics and the ledger row. It runs for every outcome, fatal ones included.
func (o *Orchestrator) finish(ctx context.Context, outcome *models.PipelineOutcome, source string) {
	outcome.FinishedAt = o.now()
	status := outcome.Status()
	elapsed := outcome.FinishedAt.Sub(outcome.StartedAt)

	metrics.ReportRuns.WithLabelValues(status, source).Inc()
	o.obs.RecordReportGenerated(ctx, status, outcome.PhotosUploaded)
	o.obs.RecordReportDuration(ctx, elapsed, status)

	if o.ledger == nil {
		return
	}
	// the run's own deadline may already be spent
	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.ledger.Record(ledgerCtx, models.NewReportRun(outcome, source)); err != nil {
		stdErr := errors.NewLedgerWriteFailedError(err)
		o.logger.Error("report ledger write failed", map[string]interface{}{
			"reportId":  outcome.ReportID,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
	}
}

func fail(outcome *models.PipelineOutcome, stdErr *errors.StandardError) {
	outcome.Success = false
	outcome.Fatal = stdErr
	outcome.Error = ErrorText(stdErr)
}

// ErrorText is the caller-facing message for a fatal error.
func ErrorText(stdErr *errors.StandardError) string {
	if stdErr.Details == "" || stdErr.Details == stdErr.Message {
		return stdErr.Message
	}
	return stdErr.Message + ": " + stdErr.Details
}
