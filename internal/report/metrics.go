package report

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the report engine's OpenTelemetry instruments.
type Metrics struct {
	generated     metric.Int64Counter
	failed        metric.Int64Counter
	artifactBytes metric.Int64Counter
}

// NewMetrics registers the engine's counters on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("clinicore/report")

	generated, err := meter.Int64Counter("reports_generated_total",
		metric.WithDescription("Reports that reached the completed state"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("reports_failed_total",
		metric.WithDescription("Reports that reached the failed state"))
	if err != nil {
		return nil, err
	}
	artifactBytes, err := meter.Int64Counter("report_artifact_bytes_total",
		metric.WithDescription("Bytes of rendered report artifacts stored"))
	if err != nil {
		return nil, err
	}

	return &Metrics{generated: generated, failed: failed, artifactBytes: artifactBytes}, nil
}

func (m *Metrics) recordCompleted(ctx context.Context, category, format string, size int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("format", format),
	)
	m.generated.Add(ctx, 1, attrs)
	m.artifactBytes.Add(ctx, size, attrs)
}

func (m *Metrics) recordFailed(ctx context.Context, category, format string) {
	if m == nil {
		return
	}
	m.failed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("format", format),
	))
}
