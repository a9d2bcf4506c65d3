package uploadphotos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	stderrors "roof-report-service/internal/common/errors"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/models"
)

// ==========================
// Test Helpers
// ==========================

type MockImageHost struct {
	mock.Mock
}

func (m *MockImageHost) Upload(ctx context.Context, file string) (string, error) {
	args := m.Called(ctx, file)
	return args.String(0), args.Error(1)
}

// scriptedHost fails any payload containing "fail" and records every call.
type scriptedHost struct {
	mu    sync.Mutex
	calls []string
	delay func(file string) time.Duration
}

func (h *scriptedHost) Upload(ctx context.Context, file string) (string, error) {
	h.mu.Lock()
	h.calls = append(h.calls, file)
	h.mu.Unlock()

	if h.delay != nil {
		time.Sleep(h.delay(file))
	}
	if strings.Contains(file, "fail") {
		return "", errors.New("upload rejected")
	}
	return "https://img.example/" + file[strings.LastIndex(file, ",")+1:], nil
}

func photo(tag string) models.Photo {
	return models.Photo{Preview: "data:image/png;base64," + tag}
}

// panickingHost panics on payloads containing "boom", like a client with a nil map.
type panickingHost struct{ scriptedHost }

func (h *panickingHost) Upload(ctx context.Context, file string) (string, error) {
	if strings.Contains(file, "boom") {
		var broken map[string]int
		broken[file]++
	}
	return h.scriptedHost.Upload(ctx, file)
}

func newTestService(t *testing.T, host ImageHost, cfg *Config) *Service {
	return NewService(ServiceDependencies{
		ImageHost: host,
		Logger:    logger.NewTestLogger(t),
	}, cfg)
}

// ==========================
// Batch Tests
// ==========================

func TestUploadAll_CountNeverExceedsSuccesses(t *testing.T) {
	for size := 0; size <= 6; size++ {
		for mask := 0; mask < 1<<size; mask++ {
			photos := make([]models.Photo, size)
			wantURLs := []string{}
			for i := 0; i < size; i++ {
				if mask&(1<<i) != 0 {
					photos[i] = photo(fmt.Sprintf("ok%d", i))
					wantURLs = append(wantURLs, fmt.Sprintf("https://img.example/ok%d", i))
				} else {
					photos[i] = photo(fmt.Sprintf("fail%d", i))
				}
			}

			host := &scriptedHost{}
			batch := newTestService(t, host, nil).UploadAll(context.Background(), photos)

			gotURLs := []string{}
			for _, p := range batch.Photos {
				gotURLs = append(gotURLs, p.URL)
			}
			assert.Equal(t, wantURLs, gotURLs, "size=%d mask=%b", size, mask)
			assert.Len(t, batch.Failures, size-len(wantURLs))
			assert.Len(t, host.calls, size)
		}
	}
}

func TestUploadAll_PreservesOrderAndCaptions(t *testing.T) {
	photos := []models.Photo{
		{Preview: "data:image/png;base64,a", Caption: "Front slope"},
		photo("fail"),
		photo("c"),
	}

	batch := newTestService(t, &scriptedHost{}, nil).UploadAll(context.Background(), photos)

	require.Len(t, batch.Photos, 2)
	assert.Equal(t, models.UploadedPhoto{URL: "https://img.example/a", Caption: "Front slope"}, batch.Photos[0])
	assert.Equal(t, models.UploadedPhoto{URL: "https://img.example/c", Caption: "Photo 3"}, batch.Photos[1])

	require.Len(t, batch.Failures, 1)
	assert.Equal(t, stderrors.ErrCodeUploadFailed, batch.Failures[0].Code)
	assert.Equal(t, 2, batch.Failures[0].Metadata["position"])
}

func TestUploadAll_ConcurrentKeepsSubmissionOrder(t *testing.T) {
	host := &scriptedHost{
		delay: func(file string) time.Duration {
			// later photos finish first
			switch {
			case strings.HasSuffix(file, "p1"):
				return 30 * time.Millisecond
			case strings.HasSuffix(file, "p2"):
				return 15 * time.Millisecond
			default:
				return 0
			}
		},
	}
	cfg := DefaultConfig()
	cfg.Concurrency = 3

	batch := newTestService(t, host, cfg).UploadAll(context.Background(), []models.Photo{photo("p1"), photo("p2"), photo("p3")})

	require.Len(t, batch.Photos, 3)
	assert.Equal(t, "https://img.example/p1", batch.Photos[0].URL)
	assert.Equal(t, "https://img.example/p2", batch.Photos[1].URL)
	assert.Equal(t, "https://img.example/p3", batch.Photos[2].URL)
}

// ==========================
// Single Upload Tests
// ==========================

func TestUploadAll_PanicBecomesUnhandledFailure(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Concurrency = concurrency
			svc := newTestService(t, &panickingHost{}, cfg)

			var batch Batch
			require.NotPanics(t, func() {
				batch = svc.UploadAll(context.Background(), []models.Photo{photo("a"), photo("boom"), photo("fail")})
			})

			require.Len(t, batch.Photos, 1)
			assert.Equal(t, "https://img.example/a", batch.Photos[0].URL)
			require.Len(t, batch.Failures, 2)
			assert.Equal(t, stderrors.ErrCodeUnhandled, batch.Failures[0].Code)
			assert.True(t, batch.Failures[0].IsFatal())
			assert.Contains(t, batch.Failures[0].Message, "photo 2 upload panicked")
			assert.Equal(t, stderrors.ErrCodeUploadFailed, batch.Failures[1].Code)
			assert.False(t, batch.Failures[1].IsFatal())
		})
	}
}

func TestUpload_RejectsBadPayloadWithoutCallingHost(t *testing.T) {
	tests := []struct {
		name    string
		preview string
		wantErr error
	}{
		{name: "empty", preview: "", wantErr: ErrEmptyPayload},
		{name: "whitespace", preview: "   ", wantErr: ErrEmptyPayload},
		{name: "remote url", preview: "https://example.com/a.png", wantErr: ErrNotInlineImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := new(MockImageHost)
			res := newTestService(t, host, nil).Upload(context.Background(), 1, models.Photo{Preview: tt.preview})

			require.True(t, res.Failed())
			assert.Equal(t, stderrors.ErrCodeUploadFailed, res.Err.Code)
			assert.Contains(t, res.Err.Details, tt.wantErr.Error())
			host.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
		})
	}
}

func TestUpload_HostError(t *testing.T) {
	host := new(MockImageHost)
	host.On("Upload", mock.Anything, "data:image/png;base64,x").Return("", errors.New("cloudinary response missing secure_url"))

	res := newTestService(t, host, nil).Upload(context.Background(), 4, photo("x"))

	require.True(t, res.Failed())
	assert.Contains(t, res.Err.Details, "photo 4")
	host.AssertExpectations(t)
}

// ==========================
// Cache Tests
// ==========================

func TestUpload_CacheMissThenWrite(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	host := new(MockImageHost)
	host.On("Upload", mock.Anything, "data:image/png;base64,x").Return("https://img.example/x", nil)

	cfg := DefaultConfig()
	svc := NewService(ServiceDependencies{ImageHost: host, Cache: redisClient, Logger: logger.NewTestLogger(t)}, cfg)
	key := svc.cacheKey("data:image/png;base64,x")

	redisMock.ExpectGet(key).RedisNil()
	redisMock.ExpectSet(key, "https://img.example/x", cfg.CacheTTL).SetVal("OK")

	res := svc.Upload(context.Background(), 1, photo("x"))

	require.False(t, res.Failed())
	assert.Equal(t, "https://img.example/x", res.Value.URL)
	host.AssertExpectations(t)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestUpload_CacheHitSkipsHost(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	host := new(MockImageHost)

	svc := NewService(ServiceDependencies{ImageHost: host, Cache: redisClient, Logger: logger.NewTestLogger(t)}, nil)
	key := svc.cacheKey("data:image/png;base64,x")
	redisMock.ExpectGet(key).SetVal("https://img.example/cached")

	res := svc.Upload(context.Background(), 2, photo("x"))

	require.False(t, res.Failed())
	assert.Equal(t, models.UploadedPhoto{URL: "https://img.example/cached", Caption: "Photo 2"}, res.Value)
	host.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestUpload_CacheErrorsAreNotFatal(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	host := new(MockImageHost)
	host.On("Upload", mock.Anything, mock.Anything).Return("https://img.example/x", nil)

	cfg := DefaultConfig()
	svc := NewService(ServiceDependencies{ImageHost: host, Cache: redisClient, Logger: logger.NewTestLogger(t)}, cfg)
	key := svc.cacheKey("data:image/png;base64,x")
	redisMock.ExpectGet(key).SetErr(errors.New("connection refused"))
	redisMock.ExpectSet(key, "https://img.example/x", cfg.CacheTTL).SetErr(errors.New("connection refused"))

	res := svc.Upload(context.Background(), 1, photo("x"))

	require.False(t, res.Failed())
	assert.Equal(t, "https://img.example/x", res.Value.URL)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{Concurrency: 0}).Validate())
	assert.Error(t, (&Config{Concurrency: 1, CacheTTL: -time.Second}).Validate())
}
