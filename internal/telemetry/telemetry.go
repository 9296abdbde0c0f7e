// Package telemetry provides OpenTelemetry instrumentation for the OpenStack checks.
package telemetry

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/config"
)

const instrumentation = "openstack-service-checks"

// Provider wraps OTEL tracer and meter providers.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	registry       *promclient.Registry

	checkDuration metric.Float64Histogram
	enumerated    metric.Int64Counter
	entries       metric.Int64Counter
	checkErrors   metric.Int64Counter
}

// NewProvider creates a new telemetry provider. Metrics are always
// collected into a private Prometheus registry (see Gatherer); spans and
// OTLP metric export need an endpoint.
func NewProvider(ctx context.Context, cfg config.OTELConfig) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p := &Provider{}

	if err := p.setupTracing(ctx, cfg, res); err != nil {
		return nil, err
	}

	if err := p.setupMetrics(ctx, cfg, res); err != nil {
		if p.tracerProvider != nil {
			_ = p.tracerProvider.Shutdown(ctx)
		}
		return nil, err
	}

	if err := p.initMetrics(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Provider) setupTracing(ctx context.Context, cfg config.OTELConfig, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}

	if cfg.Traces.Enabled && cfg.Endpoint != "" {
		exp, err := createTraceExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Traces.SampleRate))
		opts = append(opts, sdktrace.WithBatcher(exp), sdktrace.WithSampler(sampler))
	}

	p.tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(p.tracerProvider)
	p.tracer = p.tracerProvider.Tracer(instrumentation)

	return nil
}

// setupMetrics wires a pull reader for the textfile and, with an
// endpoint, a periodic OTLP push reader.
func (p *Provider) setupMetrics(ctx context.Context, cfg config.OTELConfig, res *resource.Resource) error {
	p.registry = promclient.NewRegistry()
	promExporter, err := prometheus.New(
		prometheus.WithRegisterer(p.registry),
		prometheus.WithoutTargetInfo(),
	)
	if err != nil {
		return fmt.Errorf("create prometheus exporter: %w", err)
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	}

	if cfg.Metrics.Enabled && cfg.Endpoint != "" {
		exp, err := createMetricExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.meterProvider)
	p.meter = p.meterProvider.Meter(instrumentation)

	return nil
}

func createTraceExporter(ctx context.Context, cfg config.OTELConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func createMetricExporter(ctx context.Context, cfg config.OTELConfig) (sdkmetric.Exporter, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func (p *Provider) initMetrics() error {
	var err error

	p.checkDuration, err = p.meter.Float64Histogram(
		"openstack_check_duration_seconds",
		metric.WithDescription("Duration of resource checks"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create check_duration: %w", err)
	}

	p.enumerated, err = p.meter.Int64Counter(
		"openstack_check_resources_enumerated_total",
		metric.WithDescription("Total resources listed from the cloud"),
	)
	if err != nil {
		return fmt.Errorf("create resources_enumerated: %w", err)
	}

	p.entries, err = p.meter.Int64Counter(
		"openstack_check_entries_total",
		metric.WithDescription("Classified check entries by category"),
	)
	if err != nil {
		return fmt.Errorf("create check_entries: %w", err)
	}

	p.checkErrors, err = p.meter.Int64Counter(
		"openstack_check_errors_total",
		metric.WithDescription("Total check errors"),
	)
	if err != nil {
		return fmt.Errorf("create check_errors: %w", err)
	}

	return nil
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	return p.meter
}

// Gatherer exposes the OTEL instruments in Prometheus form.
func (p *Provider) Gatherer() promclient.Gatherer {
	return p.registry
}

// StartSpan starts a new span.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name)
}

// RecordCheck records one finished check: its duration, how many
// resources were listed, and the per-category entry counts.
func (p *Provider) RecordCheck(ctx context.Context, kind string, d time.Duration, enumerated int, counts map[string]int) {
	kindAttr := attribute.String("kind", kind)
	p.checkDuration.Record(ctx, d.Seconds(), metric.WithAttributes(kindAttr))
	p.enumerated.Add(ctx, int64(enumerated), metric.WithAttributes(kindAttr))
	for category, n := range counts {
		p.entries.Add(ctx, int64(n), metric.WithAttributes(
			kindAttr,
			attribute.String("category", category),
		))
	}
}

// RecordError records a failed check.
func (p *Provider) RecordError(ctx context.Context, kind string) {
	p.checkErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// Shutdown flushes and shuts down the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer: %w", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown meter: %w", err)
		}
	}
	return nil
}
