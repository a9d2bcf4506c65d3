// internal/workers/reports/generate-report/handler.go
package generatereport

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"roof-report-service/internal/common/errors"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/common/metrics"
	"roof-report-service/internal/common/validation"
	"roof-report-service/internal/models"
)

const (
	TaskType  = "report.generate"
	ConfigKey = "generate-report"

	SourceHTTP  = "http"
	SourceZeebe = "zeebe"
	SourceCLI   = "cli"
)

// Generator is satisfied by *Orchestrator.
type Generator interface {
	Generate(ctx context.Context, sub *models.InspectionSubmission, source string) *models.PipelineOutcome
}

// Handler runs the report pipeline for process-engine jobs.
type Handler struct {
	generator  Generator
	timeout    time.Duration
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(generator Generator, timeout time.Duration, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		generator:  generator,
		timeout:    timeout,
		errHandler: errors.NewErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	outcome := h.generator.Generate(ctx, input.Submission, SourceZeebe)
	if outcome.Fatal != nil {
		h.failJob(client, job, outcome.Fatal)
		return
	}

	h.completeJob(client, job, NewOutput(outcome))
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	raw := []byte(job.Variables)

	var envelope struct {
		Submission json.RawMessage `json:"submission"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.NewInvalidSubmissionError("failed to parse job variables: " + err.Error())
	}
	if nested := bytes.TrimSpace(envelope.Submission); bytes.HasPrefix(nested, []byte("{")) {
		raw = nested
	}

	result, err := validation.ValidateSubmission(raw)
	if err != nil {
		return nil, errors.NewInvalidSubmissionError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidSubmissionError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var sub models.InspectionSubmission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, errors.NewInvalidSubmissionError(err.Error())
	}
	return &Input{Submission: &sub}, nil
}

// NewOutput maps a successful outcome to process variables.
func NewOutput(outcome *models.PipelineOutcome) *Output {
	return &Output{
		ReportGenerated:  outcome.HasArtifact(),
		ReportID:         outcome.ReportID,
		PdfURL:           outcome.ArtifactURL,
		PhotosUploaded:   outcome.PhotosUploaded,
		NotificationSent: outcome.NotificationSent,
		Degradations:     errors.Codes(outcome.Degradations),
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":         job.Key,
		"reportId":       output.ReportID,
		"photosUploaded": output.PhotosUploaded,
	})
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := errors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errHandler.HandleJobError(context.Background(), client, job, stdErr)
}
