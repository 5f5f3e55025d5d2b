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

package tracing_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kurafs/tracefs/pkg/tracing"
)

func TestStdoutExport(t *testing.T) {
	for _, batch := range []bool{false, true} {
		var buf bytes.Buffer
		cfg := tracing.DefaultConfig()
		cfg.Batch = batch
		cfg.ServiceName = "boltfs"
		tp, shutdown, err := tracing.NewProvider(context.Background(), cfg, tracing.WithWriter(&buf))
		require.NoError(t, err)

		_, span := tp.Tracer("test").Start(context.Background(), "lookup")
		span.End()
		require.NoError(t, shutdown(context.Background()))

		out := buf.String()
		assert.Contains(t, out, `"Name":"lookup"`, "batch=%t", batch)
		assert.Contains(t, out, `"Value":"boltfs"`)
		assert.Contains(t, out, "service.instance.id")
		assert.Equal(t, 1, strings.Count(out, "\n"), "expected one JSON line, got %q", out)
	}
}

func TestDisabled(t *testing.T) {
	var buf bytes.Buffer
	cfg := tracing.DefaultConfig()
	cfg.Enabled = false
	tp, shutdown, err := tracing.NewProvider(context.Background(), cfg, tracing.WithWriter(&buf))
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "read")
	span.End()
	require.NoError(t, shutdown(context.Background()))
	assert.Empty(t, buf.String())
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.json")
	cfg := tracing.DefaultConfig()
	cfg.Output = path
	cfg.Pretty = true

	for _, name := range []string{"open", "release"} {
		tp, shutdown, err := tracing.NewProvider(context.Background(), cfg)
		require.NoError(t, err)
		_, span := tp.Tracer("test").Start(context.Background(), name)
		span.End()
		require.NoError(t, shutdown(context.Background()))
	}

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	// Appended, not truncated.
	assert.Contains(t, string(b), `"Name": "open"`)
	assert.Contains(t, string(b), `"Name": "release"`)
}

func TestBadOutput(t *testing.T) {
	cfg := tracing.DefaultConfig()
	cfg.Output = filepath.Join(t.TempDir(), "missing", "spans.json")
	_, _, err := tracing.NewProvider(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening trace output")
}

func TestResource(t *testing.T) {
	sr := tracetest.NewInMemoryExporter()
	cfg := tracing.Config{Enabled: true, ServiceVersion: "1.2.3"}
	tp, shutdown, err := tracing.NewProvider(context.Background(), cfg, tracing.WithExporter(sr))
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "statfs")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := sr.GetSpans()
	require.Len(t, spans, 1)
	attrs := spans[0].Resource.Set()
	name, _ := attrs.Value(attribute.Key("service.name"))
	version, _ := attrs.Value(attribute.Key("service.version"))
	assert.Equal(t, "tracefs", name.AsString())
	assert.Equal(t, "1.2.3", version.AsString())
	require.NoError(t, shutdown(context.Background()))
}
