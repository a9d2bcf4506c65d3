// internal/workers/reports/render-document/models.go
package renderdocument

import (
	"context"

	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/common/pdfmonkey"
)

// DocumentService is the asynchronous rendering backend.
type DocumentService interface {
	CreateDocument(ctx context.Context, templateID string, payload interface{}) (*pdfmonkey.Document, error)
	GetDocument(ctx context.Context, id string) (*pdfmonkey.Document, error)
}

type ServiceDependencies struct {
	Documents DocumentService
	Logger    logger.Logger
}
