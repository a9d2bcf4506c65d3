// internal/workers/reports/generate-report/reportid.go
package generatereport

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"roof-report-service/internal/common/logger"
)

// NewReportID formats INS-<year>-<n> with n drawn from [1000, 9999].
func NewReportID(now time.Time, intn func(int) int) string {
	return fmt.Sprintf("INS-%d-%d", now.Year(), 1000+intn(9000))
}

// ReportIDs generates report ids and, with a cache configured, reserves each one so concurrent
// runs in the same year do not hand out the same id.
type ReportIDs struct {
	cache    redis.Cmdable
	prefix   string
	ttl      time.Duration
	attempts int
	logger   logger.Logger
	now      func() time.Time
	intn     func(int) int
}

func NewReportIDs(cache redis.Cmdable, config *Config, log logger.Logger) *ReportIDs {
	if config == nil {
		config = DefaultConfig()
	}
	return &ReportIDs{
		cache:    cache,
		prefix:   config.ReportIDPrefix,
		ttl:      config.ReportIDTTL,
		attempts: config.ReportIDAttempts,
		logger:   log.WithFields(map[string]interface{}{"component": "report-ids"}),
		now:      time.Now,
		intn:     rand.IntN,
	}
}

// Next returns a fresh id. Reservation is best effort: if the cache is down or every candidate
// is taken, the last candidate is used unreserved.
func (g *ReportIDs) Next(ctx context.Context) string {
	candidate := NewReportID(g.now(), g.intn)
	if g.cache == nil {
		return candidate
	}

	for attempt := 1; attempt <= g.attempts; attempt++ {
		if attempt > 1 {
			candidate = NewReportID(g.now(), g.intn)
		}
		ok, err := g.cache.SetNX(ctx, g.prefix+candidate, 1, g.ttl).Result()
		if err != nil {
			g.logger.Warn("report id reservation unavailable", map[string]interface{}{
				"reportId": candidate,
				"error":    err.Error(),
			})
			return candidate
		}
		if ok {
			return candidate
		}
		g.logger.Debug("report id already taken", map[string]interface{}{
			"reportId": candidate,
			"attempt":  attempt,
		})
	}

	g.logger.Warn("report id space congested, using unreserved id", map[string]interface{}{
		"reportId": candidate,
		"attempts": g.attempts,
	})
	return candidate
}
