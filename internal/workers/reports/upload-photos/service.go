// internal/workers/reports/upload-photos/service.go
package uploadphotos

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"roof-report-service/internal/common/errors"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/common/metrics"
	"roof-report-service/internal/models"
)

var (
	ErrEmptyPayload   = stderrors.New("photo has no image payload")
	ErrNotInlineImage = stderrors.New("photo payload is not an inline image")
)

const inlineImagePrefix = "data:image/"

type Service struct {
	config *Config
	host   ImageHost
	cache  redis.Cmdable
	logger logger.Logger
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	return &Service{
		config: config,
		host:   deps.ImageHost,
		cache:  deps.Cache,
		logger: deps.Logger.WithFields(map[string]interface{}{"component": "upload-photos"}),
	}
}

// UploadAll uploads photos with at most Config.Concurrency in flight. A failed photo is skipped
// and never affects the others. A panic while uploading is recovered into an UNHANDLED_ERROR
// failure, which callers must treat as fatal.
func (s *Service) UploadAll(ctx context.Context, photos []models.Photo) Batch {
	results := make([]models.Result[models.UploadedPhoto], len(photos))

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for i, photo := range photos {
		i, photo := i, photo
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = s.panicked(i+1, rec)
				}
			}()
			results[i] = s.Upload(ctx, i+1, photo)
			return nil
		})
	}
	_ = g.Wait()

	var batch Batch
	for _, res := range results {
		if res.Failed() {
			batch.Failures = append(batch.Failures, res.Err)
			continue
		}
		batch.Photos = append(batch.Photos, res.Value)
	}

	s.logger.Info("photo batch finished", map[string]interface{}{
		"submitted": len(photos),
		"uploaded":  len(batch.Photos),
		"skipped":   len(batch.Failures),
	})
	return batch
}

// Upload hosts one photo. position is 1-indexed and names the photo when it has no caption.
func (s *Service) Upload(ctx context.Context, position int, photo models.Photo) models.Result[models.UploadedPhoto] {
	caption := photo.Caption
	if caption == "" {
		caption = fmt.Sprintf("Photo %d", position)
	}

	payload := strings.TrimSpace(photo.Preview)
	if err := checkPayload(payload); err != nil {
		return s.fail(position, err)
	}

	key := s.cacheKey(payload)
	if url, ok := s.cached(ctx, key); ok {
		metrics.PhotoUploads.WithLabelValues("cached").Inc()
		return models.Ok(models.UploadedPhoto{URL: url, Caption: caption})
	}

	url, err := s.host.Upload(ctx, payload)
	if err != nil {
		return s.fail(position, err)
	}

	metrics.PhotoUploads.WithLabelValues("uploaded").Inc()
	s.remember(ctx, key, url)
	return models.Ok(models.UploadedPhoto{URL: url, Caption: caption})
}

func (s *Service) fail(position int, err error) models.Result[models.UploadedPhoto] {
	metrics.PhotoUploads.WithLabelValues("failed").Inc()
	s.logger.Warn("photo upload failed, skipping", map[string]interface{}{
		"position": position,
		"error":    err.Error(),
	})
	return models.Fail[models.UploadedPhoto](errors.NewUploadFailedError(position, err))
}

// panicked converts a recovered panic from an upload goroutine into a fatal result. It runs
// off the caller's goroutine, so the caller's own recover never sees it.
func (s *Service) panicked(position int, rec interface{}) models.Result[models.UploadedPhoto] {
	metrics.PhotoUploads.WithLabelValues("failed").Inc()
	s.logger.Error("photo upload panicked", map[string]interface{}{
		"position": position,
		"panic":    fmt.Sprint(rec),
	})
	return models.Fail[models.UploadedPhoto](errors.NewUnhandledError(fmt.Errorf("photo %d upload panicked: %v", position, rec)))
}

func checkPayload(payload string) error {
	if payload == "" {
		return ErrEmptyPayload
	}
	if !strings.HasPrefix(payload, inlineImagePrefix) {
		return ErrNotInlineImage
	}
	return nil
}

func (s *Service) cacheKey(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return s.config.CacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (s *Service) cached(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	url, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			s.logger.Warn("photo cache read failed", map[string]interface{}{
				"error": errors.NewCacheUnavailableError(err).Details,
			})
		}
		return "", false
	}
	return url, url != ""
}

func (s *Service) remember(ctx context.Context, key, url string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, url, s.config.CacheTTL).Err(); err != nil {
		s.logger.Warn("photo cache write failed", map[string]interface{}{
			"error": errors.NewCacheUnavailableError(err).Details,
		})
	}
}
