// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package trace

import (
	"context"
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace/noop"
)

type Conf struct {
	Enabled bool `mapstructure:"enabled"`
	// ExporterType: otlp-grpc, otlp-http or none
	ExporterType string            `mapstructure:"exporterType"`
	Endpoint     string            `mapstructure:"endpoint"`
	ServiceName  string            `mapstructure:"serviceName"`
	Insecure     bool              `mapstructure:"insecure"`
	Headers      map[string]string `mapstructure:"headers"`
	// SampleRatio 采样率, 0 表示全部采样
	SampleRatio        float64       `mapstructure:"sampleRatio"`
	BatchTimeout       time.Duration `mapstructure:"batchTimeout"`
	ExportTimeout      time.Duration `mapstructure:"exportTimeout"`
	MaxExportBatchSize int           `mapstructure:"maxExportBatchSize"`
}

func (c *Conf) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "gatekeeper"
	}
	if c.ExporterType == "" {
		c.ExporterType = "none"
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 5 * time.Second
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = 30 * time.Second
	}
	if c.MaxExportBatchSize <= 0 {
		c.MaxExportBatchSize = 512
	}
}

// Init installs the global tracer provider and returns its shutdown hook.
// A disabled config installs a noop provider.
func Init(conf Conf) (func(context.Context) error, error) {
	conf.SetDefaults()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !conf.Enabled || conf.ExporterType == "none" {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Debugw("tracing disabled, using noop tracer")
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(conf.ServiceName),
			semconv.ServiceVersionKey.String(version.GetVersion().Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	exporter, err := newExporter(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if conf.SampleRatio > 0 && conf.SampleRatio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(conf.SampleRatio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(conf.BatchTimeout),
			sdktrace.WithExportTimeout(conf.ExportTimeout),
			sdktrace.WithMaxExportBatchSize(conf.MaxExportBatchSize),
		),
	)
	otel.SetTracerProvider(tp)

	log.Infow("tracing initialized",
		"exporter", conf.ExporterType,
		"endpoint", conf.Endpoint,
		"service", conf.ServiceName,
	)
	return tp.Shutdown, nil
}

func newExporter(conf Conf) (sdktrace.SpanExporter, error) {
	switch conf.ExporterType {
	case "otlp-grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(conf.Endpoint)}
		if conf.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(conf.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(conf.Headers))
		}
		return otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	case "otlp-http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(conf.Endpoint)}
		if conf.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(conf.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(conf.Headers))
		}
		return otlptrace.New(context.Background(), otlptracehttp.NewClient(opts...))
	}
	return nil, fmt.Errorf("unsupported exporter type: %s", conf.ExporterType)
}
