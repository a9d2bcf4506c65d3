// internal/workers/reports/generate-report/models.go
package generatereport

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/common/observability"
	"roof-report-service/internal/models"
	notifyhomeowner "roof-report-service/internal/workers/reports/notify-homeowner"
	renderdocument "roof-report-service/internal/workers/reports/render-document"
	uploadphotos "roof-report-service/internal/workers/reports/upload-photos"
)

type PhotoUploader interface {
	UploadAll(ctx context.Context, photos []models.Photo) uploadphotos.Batch
}

type RenderClient interface {
	Submit(ctx context.Context, payload *models.RenderPayload) models.Result[string]
}

type RenderPoller interface {
	Await(ctx context.Context, jobID string) models.Result[models.RenderJob]
}

type Notifier interface {
	Notify(ctx context.Context, req models.NotificationRequest) notifyhomeowner.Delivery
}

// IDSource hands out report identifiers.
type IDSource interface {
	Next(ctx context.Context) string
}

// Ledger persists one audit row per run.
type Ledger interface {
	Record(ctx context.Context, run *models.ReportRun) error
}

type ServiceDependencies struct {
	Photos   PhotoUploader
	Renderer RenderClient
	Poller   RenderPoller
	Notifier Notifier // nil disables notifications

	ReportIDs     IDSource // defaults to unreserved random ids
	Ledger        Ledger   // optional
	Tracer        trace.Tracer
	Observability *observability.Observability
	Logger        logger.Logger
}

// Compile-time checks that the stage services satisfy the orchestrator's ports.
var (
	_ PhotoUploader = (*uploadphotos.Service)(nil)
	_ RenderClient  = (*renderdocument.Client)(nil)
	_ RenderPoller  = (*renderdocument.Poller)(nil)
	_ Notifier      = (*notifyhomeowner.Service)(nil)
)

// Input is the process variable set carried by a generate-report job. The submission may be
// nested under "submission" or spread across the top-level variables.
type Input struct {
	Submission *models.InspectionSubmission
}

// Output is written back to the process instance.
type Output struct {
	ReportGenerated  bool     `json:"reportGenerated"`
	ReportID         string   `json:"reportId"`
	PdfURL           *string  `json:"pdfUrl"`
	PhotosUploaded   int      `json:"photosUploaded"`
	NotificationSent bool     `json:"notificationSent"`
	Degradations     []string `json:"reportDegradations"`
}
