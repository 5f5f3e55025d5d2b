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

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurafs/tracefs/pkg/config"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestDefaults(t *testing.T) {
	cfg, err := config.NewLoader(config.WithOverrides(map[string]interface{}{"db": "a.db"})).Load()
	require.NoError(t, err)

	want := config.Default()
	want.DB = "a.db"
	assert.Equal(t, want, cfg)
	assert.True(t, cfg.Mount.ReadOnly)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "stdout", cfg.Tracing.Output)
}

func TestPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracefs.yaml")
	writeConfig(t, path, `
db: file.db
mount:
  fsname: fromfile
  subtype: fromfile
tracing:
  output: stderr
  servicename: fromfile
log:
  mode: warn
`)
	t.Setenv("TRACEFS_MOUNT_SUBTYPE", "fromenv")
	t.Setenv("TRACEFS_TRACING_SERVICENAME", "fromenv")
	t.Setenv("TRACEFS_TRACING_BATCH", "true")

	cfg, err := config.NewLoader(
		config.WithConfigFile(path),
		config.WithOverrides(map[string]interface{}{"tracing.servicename": "fromflag"}),
	).Load()
	require.NoError(t, err)

	assert.Equal(t, "file.db", cfg.DB)
	assert.Equal(t, "fromfile", cfg.Mount.FSName)
	assert.Equal(t, "fromenv", cfg.Mount.Subtype)
	assert.Equal(t, "fromflag", cfg.Tracing.ServiceName)
	assert.Equal(t, "stderr", cfg.Tracing.Output)
	assert.True(t, cfg.Tracing.Batch)
	assert.Equal(t, "warn", cfg.Log.Mode)
	// Untouched defaults survive.
	assert.True(t, cfg.Mount.AutoUnmount)
}

func TestEnvPrefix(t *testing.T) {
	t.Setenv("OTHER_DB", "env.db")
	cfg, err := config.NewLoader(config.WithEnvPrefix("OTHER_")).Load()
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DB)
}

func TestInvalid(t *testing.T) {
	_, err := config.NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database given")

	_, err = config.NewLoader(config.WithOverrides(map[string]interface{}{
		"db": "a.db", "log.mode": "chatty",
	})).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.mode")

	_, err = config.NewLoader(config.WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))).Load()
	require.Error(t, err)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracefs.yaml")
	writeConfig(t, path, "db: a.db\nlog:\n  mode: info\n")

	l := config.NewLoader(config.WithConfigFile(path))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan config.Config, 16)
	require.NoError(t, l.Watch(ctx, func(cfg config.Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	}))

	writeConfig(t, path, "db: a.db\nlog:\n  mode: debug\n")
	timeout := time.After(10 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Log.Mode == "debug" {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatchWithoutFile(t *testing.T) {
	err := config.NewLoader().Watch(context.Background(), func(config.Config, error) {})
	require.Error(t, err)
}
