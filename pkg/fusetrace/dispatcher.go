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

// Package fusetrace wraps a fuse.FileSystem so that every operation it serves
// is recorded as an OpenTelemetry span.
//
// A Dispatcher forwards each operation to the wrapped file system with the
// same arguments and the same reply channel, inside a span named after the
// verb ("lookup", "read", "batch_forget", ...). Every verb is traced, with no
// exceptions. The span ends when the wrapped call returns, however it
// returns; replies are never inspected. Spans carry no attributes.
//
// The context handed to the wrapped file system carries the operation's span,
// so spans it starts nest beneath it.
//
//      tp := sdktrace.NewTracerProvider(...)
//      fs := fusetrace.NewWithProvider(inner, tp)
//      srv := bridge.New(fs, ...)
package fusetrace

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kurafs/tracefs/pkg/fuse"
)

// TracerName is the instrumentation name of tracers derived by
// NewWithProvider.
const TracerName = "github.com/kurafs/tracefs/pkg/fusetrace"

// Dispatcher is a fuse.FileSystem that traces every operation of the file
// system it wraps. It holds no mutable state and is safe for concurrent use
// if the wrapped file system is.
type Dispatcher struct {
	fs     fuse.FileSystem
	tracer trace.Tracer
}

var _ fuse.FileSystem = (*Dispatcher)(nil)

// New returns a Dispatcher over fs recording spans with tracer. A nil tracer
// records nothing.
func New(fs fuse.FileSystem, tracer trace.Tracer) *Dispatcher {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(TracerName)
	}
	return &Dispatcher{fs: fs, tracer: tracer}
}

// NewWithProvider returns a Dispatcher over fs recording spans with a tracer
// named TracerName obtained from tp.
func NewWithProvider(fs fuse.FileSystem, tp trace.TracerProvider) *Dispatcher {
	if tp == nil {
		return New(fs, nil)
	}
	return New(fs, tp.Tracer(TracerName))
}

// Unwrap returns the wrapped file system.
func (d *Dispatcher) Unwrap() fuse.FileSystem {
	return d.fs
}

// trace runs fn within a span named after op. The span ends when fn returns,
// or while a panic raised by fn unwinds through here.
func (d *Dispatcher) trace(ctx context.Context, op fuse.Op, fn func(ctx context.Context)) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := d.tracer.Start(ctx, op.String())
	defer span.End()

	fn(ctx)
}
