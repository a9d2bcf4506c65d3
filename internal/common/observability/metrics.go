// internal/common/observability/metrics.go
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"roof-report-service/internal/common/logger"
)

// Observability records report outcomes through the OpenTelemetry meter, exported to the
// default Prometheus registry.
type Observability struct {
	meterProvider  *metric.MeterProvider
	meter          otelmetric.Meter
	reportCounter  otelmetric.Int64Counter
	reportDuration otelmetric.Float64Histogram
	photoCounter   otelmetric.Int64Counter
}

func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter, otel metrics disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return newWithProvider(provider, serviceName)
}

// NewWithReader builds an Observability on a caller-supplied reader, used by tests.
func NewWithReader(reader metric.Reader, serviceName string) *Observability {
	return newWithProvider(metric.NewMeterProvider(metric.WithReader(reader)), serviceName)
}

func newWithProvider(provider *metric.MeterProvider, serviceName string) *Observability {
	meter := provider.Meter(serviceName)

	reportCounter, _ := meter.Int64Counter(
		"reports.generated",
		otelmetric.WithDescription("Number of report pipeline runs"),
	)

	reportDuration, _ := meter.Float64Histogram(
		"reports.duration",
		otelmetric.WithDescription("Report pipeline duration"),
		otelmetric.WithUnit("ms"),
	)

	photoCounter, _ := meter.Int64Counter(
		"reports.photos_uploaded",
		otelmetric.WithDescription("Photos hosted for generated reports"),
	)

	return &Observability{
		meterProvider:  provider,
		meter:          meter,
		reportCounter:  reportCounter,
		reportDuration: reportDuration,
		photoCounter:   photoCounter,
	}
}

func (o *Observability) RecordReportGenerated(ctx context.Context, status string, photos int) {
	if o == nil || o.reportCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("status", status))
	o.reportCounter.Add(ctx, 1, attrs)
	if o.photoCounter != nil && photos > 0 {
		o.photoCounter.Add(ctx, int64(photos), attrs)
	}
}

func (o *Observability) RecordReportDuration(ctx context.Context, duration time.Duration, status string) {
	if o == nil || o.reportDuration == nil {
		return
	}
	o.reportDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
