// internal/workers/reports/upload-photos/models.go
package uploadphotos

import (
	"context"

	"github.com/redis/go-redis/v9"

	"roof-report-service/internal/common/errors"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/models"
)

// ImageHost stores one inline image and returns its public URL.
type ImageHost interface {
	Upload(ctx context.Context, file string) (string, error)
}

type ServiceDependencies struct {
	ImageHost ImageHost
	Cache     redis.Cmdable // optional
	Logger    logger.Logger
}

// Batch is the result of uploading a submission's photos. Photos keeps the successful uploads in
// submission order; Failures holds one UPLOAD_FAILED per skipped photo, or UNHANDLED_ERROR when an
// upload panicked.
type Batch struct {
	Photos   []models.UploadedPhoto
	Failures []*errors.StandardError
}
