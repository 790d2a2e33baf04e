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

	"github.com/kbukum/pipekit/logger"
)

// MeterConfig configures metric export over OTLP/HTTP. The fields match
// TracerConfig, plus the push interval.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	// Interval between exports. Zero uses the SDK default of one minute.
	Interval time.Duration
}

// DefaultMeterConfig mirrors DefaultTracerConfig with a 15s interval.
func DefaultMeterConfig(serviceName string) MeterConfig {
	t := DefaultTracerConfig(serviceName)
	return MeterConfig{
		ServiceName:    t.ServiceName,
		ServiceVersion: t.ServiceVersion,
		Environment:    t.Environment,
		Endpoint:       t.Endpoint,
		Insecure:       t.Insecure,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a periodic OTLP meter provider as the global one.
// Callers own the returned provider's Shutdown.
func InitMeter(ctx context.Context, cfg *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := serviceResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
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

	logger.Info("Meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the OpenTelemetry instruments for pipeline runs and nodes.
type Metrics struct {
	runTotal      metric.Int64Counter
	runDuration   metric.Float64Histogram
	runActive     metric.Int64UpDownCounter
	nodeTotal     metric.Int64Counter
	nodeDuration  metric.Float64Histogram
	tuplesEmitted metric.Int64Counter
	errorTotal    metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runTotal, err := meter.Int64Counter("pipekit.run.total",
		metric.WithDescription("Total number of pipeline runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipekit.run.total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("pipekit.run.duration",
		metric.WithDescription("Duration of pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipekit.run.duration histogram: %w", err)
	}

	runActive, err := meter.Int64UpDownCounter("pipekit.run.active",
		metric.WithDescription("Number of runs in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipekit.run.active gauge: %w", err)
	}

	nodeTotal, err := meter.Int64Counter("pipekit.node.total",
		metric.WithDescription("Total number of node invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipekit.node.total counter: %w", err)
	}

	nodeDuration, err := meter.Float64Histogram("pipekit.node.duration",
		metric.WithDescription("Duration of node invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipekit.node.duration histogram: %w", err)
	}

	tuplesEmitted, err := meter.Int64Counter("pipekit.tuples.emitted",
		metric.WithDescription("Tuples written to output channels"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipekit.tuples.emitted counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("pipekit.error.total",
		metric.WithDescription("Total errors by type and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipekit.error.total counter: %w", err)
	}

	return &Metrics{
		runTotal:      runTotal,
		runDuration:   runDuration,
		runActive:     runActive,
		nodeTotal:     nodeTotal,
		nodeDuration:  nodeDuration,
		tuplesEmitted: tuplesEmitted,
		errorTotal:    errorTotal,
	}, nil
}

// RecordRunStart increments the in-flight run count.
func (m *Metrics) RecordRunStart(ctx context.Context) {
	m.runActive.Add(ctx, 1)
}

// RecordRunEnd decrements in-flight runs and records the finished run.
func (m *Metrics) RecordRunEnd(ctx context.Context, status string, duration time.Duration) {
	m.runActive.Add(ctx, -1)
	m.runTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.runDuration.Record(ctx, duration.Seconds())
}

// RecordNode records one node invocation.
func (m *Metrics) RecordNode(ctx context.Context, node, status string, duration time.Duration) {
	m.nodeTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", node),
		attribute.String("status", status),
	))
	m.nodeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("node", node),
	))
}

// RecordTuples adds n to the emitted tuple count of node.
func (m *Metrics) RecordTuples(ctx context.Context, node string, n int64) {
	m.tuplesEmitted.Add(ctx, n, metric.WithAttributes(attribute.String("node", node)))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
