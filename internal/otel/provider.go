// Package otel builds the OpenTelemetry log pipeline: a pretty-printed copy
// in the local log file and, optionally, an OTLP/HTTP collector.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName is used when Config.ServiceName is empty.
const DefaultServiceName = "skirmish"

// ErrNoSink is returned when telemetry is enabled with neither a log
// writer nor a collector endpoint.
var ErrNoSink = errors.New("otel: enabled without a log writer or endpoint")

type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	BatchTimeout   time.Duration

	// LogWriter receives every record as indented JSON.
	LogWriter io.Writer
	// Endpoint is a host:port of an OTLP/HTTP collector.
	Endpoint string
	Insecure bool
}

// Provider owns the SDK logger provider. A disabled Provider is valid and
// all its methods are no-ops.
type Provider struct {
	enabled bool
	service string
	logs    *sdklog.LoggerProvider
}

func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}

	ctx := context.Background()
	exporters, err := buildExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	attrs := []resource.Option{resource.WithAttributes(semconv.ServiceName(cfg.ServiceName))}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(cfg.ServiceVersion)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, exp := range exporters {
		opts = append(opts, sdklog.WithProcessor(
			sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout))))
	}

	return &Provider{
		enabled: true,
		service: cfg.ServiceName,
		logs:    sdklog.NewLoggerProvider(opts...),
	}, nil
}

func buildExporters(ctx context.Context, cfg Config) ([]sdklog.Exporter, error) {
	var out []sdklog.Exporter
	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("otel file exporter: %w", err)
		}
		out = append(out, exp)
	}
	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otel otlp exporter: %w", err)
		}
		out = append(out, exp)
	}
	if len(out) == 0 {
		return nil, ErrNoSink
	}
	return out, nil
}

// LoggerProvider feeds the otelslog bridge. It is nil when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Meter returns a named meter from the global provider, or a no-op meter
// when disabled.
func (p *Provider) Meter(name string) metric.Meter {
	if !p.enabled {
		return noop.Meter{}
	}
	return otel.Meter(name)
}

func (p *Provider) ServiceName() string { return p.service }

func (p *Provider) Enabled() bool { return p.enabled }

// Flush exports buffered records. The session calls it when a wave clears.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.ForceFlush(ctx); err != nil {
		return fmt.Errorf("otel flush: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel shutdown: %w", err)
	}
	return nil
}
