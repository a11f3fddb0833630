package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/whisperjob/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	Interval       time.Duration
}

// InitMeter initializes the global meter provider. The caller shuts it down
// on exit.
func InitMeter(ctx context.Context, cfg *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the job pipeline instruments.
type Metrics struct {
	jobTotal          metric.Int64Counter
	jobDuration       metric.Float64Histogram
	jobActive         metric.Int64UpDownCounter
	stageDuration     metric.Float64Histogram
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	errorTotal        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.jobTotal, err = meter.Int64Counter("job.total",
		metric.WithDescription("Jobs processed, by outcome and error code")); err != nil {
		return nil, fmt.Errorf("creating job.total counter: %w", err)
	}
	if m.jobDuration, err = meter.Float64Histogram("job.duration",
		metric.WithDescription("End-to-end job duration"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating job.duration histogram: %w", err)
	}
	if m.jobActive, err = meter.Int64UpDownCounter("job.active",
		metric.WithDescription("Jobs currently in flight")); err != nil {
		return nil, fmt.Errorf("creating job.active counter: %w", err)
	}
	if m.stageDuration, err = meter.Float64Histogram("stage.duration",
		metric.WithDescription("Duration of each pipeline stage"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating stage.duration histogram: %w", err)
	}
	if m.operationTotal, err = meter.Int64Counter("operation.total",
		metric.WithDescription("Backend operations, by provider and status")); err != nil {
		return nil, fmt.Errorf("creating operation.total counter: %w", err)
	}
	if m.operationDuration, err = meter.Float64Histogram("operation.duration",
		metric.WithDescription("Duration of backend operations"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating operation.duration histogram: %w", err)
	}
	if m.errorTotal, err = meter.Int64Counter("error.total",
		metric.WithDescription("Errors by type and component")); err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}
	return &m, nil
}

// RecordJobStart increments the in-flight job count.
func (m *Metrics) RecordJobStart(ctx context.Context) {
	m.jobActive.Add(ctx, 1)
}

// RecordJobEnd decrements in-flight jobs and records the outcome. code is
// empty for successful jobs.
func (m *Metrics) RecordJobEnd(ctx context.Context, status, code string, duration time.Duration) {
	m.jobActive.Add(ctx, -1)
	m.jobTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("code", code),
	))
	m.jobDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordOperation records a backend operation.
func (m *Metrics) RecordOperation(ctx context.Context, component, operation, status string, duration time.Duration) {
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("operation", operation),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
