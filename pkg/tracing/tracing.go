// Copyright 2018 The Kura Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tracing builds the OpenTelemetry trace provider spans are recorded
// with. Spans are exported as JSON lines by the stdout exporter, to standard
// output, standard error or a file.
//
// The provider is returned to the caller rather than installed globally; pass
// it to fusetrace.NewWithProvider.
package tracing

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config describes the provider to build. The zero value, apart from
// Enabled, matches DefaultConfig.
type Config struct {
	// Enabled turns span export on. A disabled provider is still usable;
	// spans are recorded but go nowhere.
	Enabled bool `koanf:"enabled"`

	// Output is "stdout", "stderr" or a file path spans are appended to.
	Output string `koanf:"output"`

	// Pretty indents the exported JSON.
	Pretty bool `koanf:"pretty"`

	// Batch exports spans in batches rather than as each one ends.
	Batch bool `koanf:"batch"`

	ServiceName    string `koanf:"servicename"`
	ServiceVersion string `koanf:"serviceversion"`
}

// DefaultConfig returns the configuration used absent any other: synchronous
// export to stdout as service "tracefs".
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Output:         "stdout",
		ServiceName:    "tracefs",
		ServiceVersion: "dev",
	}
}

type options struct {
	writer   io.Writer
	exporter sdktrace.SpanExporter
}

// Option configures NewProvider.
type Option func(*options)

// WithWriter overrides Config.Output with w.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithExporter replaces the stdout exporter with exp.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exp }
}

// NewProvider returns a trace provider built from cfg, and the function that
// flushes and shuts it down.
func NewProvider(ctx context.Context, cfg Config, opts ...Option) (*sdktrace.TracerProvider, func(context.Context) error, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Enabled {
		tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
		return tp, tp.Shutdown, nil
	}

	exp, closer := o.exporter, io.Closer(nil)
	if exp == nil {
		w := o.writer
		if w == nil {
			w, closer, err = openOutput(cfg.Output)
			if err != nil {
				return nil, nil, err
			}
		}
		eopts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
		if cfg.Pretty {
			eopts = append(eopts, stdouttrace.WithPrettyPrint())
		}
		if exp, err = stdouttrace.New(eopts...); err != nil {
			if closer != nil {
				closer.Close()
			}
			return nil, nil, errors.Wrap(err, "creating span exporter")
		}
	}

	var sp sdktrace.SpanProcessor
	if cfg.Batch {
		sp = sdktrace.NewBatchSpanProcessor(exp)
	} else {
		sp = sdktrace.NewSimpleSpanProcessor(exp)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sp),
		sdktrace.WithResource(res),
	)

	shutdown := func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if closer != nil {
			err = errors.CombineErrors(err, closer.Close())
		}
		return err
	}
	return tp, shutdown, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = DefaultConfig().ServiceName
	}
	attrs := []attribute.KeyValue{
		attribute.String("service.name", name),
		attribute.String("service.instance.id", uuid.NewString()),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, errors.Wrap(err, "creating trace resource")
	}
	return res, nil
}

// openOutput returns the writer named by output. The closer is nil for the
// standard streams.
func openOutput(output string) (io.Writer, io.Closer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}
	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening trace output %s", output)
	}
	return f, f, nil
}
