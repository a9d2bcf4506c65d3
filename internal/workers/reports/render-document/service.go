// internal/workers/reports/render-document/service.go
package renderdocument

import (
	"context"
	stderrors "errors"
	"fmt"

	"roof-report-service/internal/common/errors"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/common/metrics"
	"roof-report-service/internal/common/poll"
	"roof-report-service/internal/models"
)

var ErrMissingDownloadURL = stderrors.New("render succeeded without a download url")

// Client submits render jobs. It does not wait for them.
type Client struct {
	config    *Config
	documents DocumentService
	logger    logger.Logger
}

func NewClient(deps ServiceDependencies, config *Config) *Client {
	return &Client{
		config:    config,
		documents: deps.Documents,
		logger:    deps.Logger.WithFields(map[string]interface{}{"component": "render-client"}),
	}
}

// Submit queues payload for rendering and returns the job id.
func (c *Client) Submit(ctx context.Context, payload *models.RenderPayload) models.Result[string] {
	doc, err := c.documents.CreateDocument(ctx, c.config.TemplateID, payload)
	if err != nil {
		c.logger.Warn("render submission failed", map[string]interface{}{
			"reportId": payload.ReportID,
			"error":    err.Error(),
		})
		return models.Fail[string](errors.NewRenderSubmitFailedError(err))
	}
	if doc == nil || doc.ID == "" {
		return models.Fail[string](errors.NewRenderSubmitFailedError(fmt.Errorf("render service returned no job id")))
	}

	c.logger.Info("render job submitted", map[string]interface{}{
		"reportId": payload.ReportID,
		"jobId":    doc.ID,
	})
	return models.Ok(doc.ID)
}

// Poller waits for a render job to reach a terminal status.
type Poller struct {
	config    *Config
	documents DocumentService
	logger    logger.Logger
}

func NewPoller(deps ServiceDependencies, config *Config) *Poller {
	return &Poller{
		config:    config,
		documents: deps.Documents,
		logger:    deps.Logger.WithFields(map[string]interface{}{"component": "render-poller"}),
	}
}

// Await checks the job every PollInterval, up to MaxAttempts times. A failed query is retried on
// the next tick; only a terminal status or the budget ends the loop.
func (p *Poller) Await(ctx context.Context, jobID string) models.Result[models.RenderJob] {
	var failureCause string

	check := func(ctx context.Context, attempt int) (models.RenderJob, poll.Verdict, error) {
		doc, err := p.documents.GetDocument(ctx, jobID)
		if err != nil {
			p.logger.Debug("render status check failed", map[string]interface{}{
				"jobId":   jobID,
				"attempt": attempt,
				"error":   err.Error(),
			})
			return models.RenderJob{}, poll.Continue, err
		}

		job := models.RenderJob{ID: jobID, Status: models.RenderStatus(doc.Status), ArtifactURL: doc.DownloadURL}
		switch job.Status {
		case models.RenderSuccess:
			if job.ArtifactURL == "" {
				return job, poll.Abort, ErrMissingDownloadURL
			}
			return job, poll.Done, nil
		case models.RenderFailure:
			failureCause = doc.FailureCause
			return job, poll.Abort, fmt.Errorf("render job %s failed: %s", jobID, doc.FailureCause)
		default:
			return job, poll.Continue, nil
		}
	}

	res := poll.Until(ctx, check, p.config.PollInterval, p.config.MaxAttempts)
	metrics.RenderPollAttempts.WithLabelValues(res.Outcome.String()).Observe(float64(res.Attempts))

	fields := map[string]interface{}{
		"jobId":    jobID,
		"attempts": res.Attempts,
		"outcome":  res.Outcome.String(),
	}

	switch res.Outcome {
	case poll.Succeeded:
		p.logger.Info("render job finished", fields)
		return models.Ok(res.Value)
	case poll.Failed:
		if res.Err != nil {
			fields["error"] = res.Err.Error()
		}
		p.logger.Warn("render job failed", fields)
		stdErr := errors.NewRenderFailedError(jobID).WithMetadata("attempts", res.Attempts)
		if failureCause != "" {
			stdErr.WithMetadata("failureCause", failureCause)
		}
		return models.Fail[models.RenderJob](stdErr)
	default:
		if res.Err != nil {
			fields["lastError"] = res.Err.Error()
		}
		p.logger.Warn("render job timed out", fields)
		return models.Fail[models.RenderJob](errors.NewRenderTimeoutError(jobID, res.Attempts))
	}
}
