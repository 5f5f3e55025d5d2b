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

// Package config loads tracefs configuration from defaults, a YAML file, the
// environment and command-line overrides, in increasing order of precedence.
//
// Keys are dot-separated and contain no underscores, so that environment
// variables map onto them directly: TRACEFS_MOUNT_READONLY sets
// mount.readonly.
//
//      db: /var/lib/app.db
//      mount:
//        readonly: true
//        fsname: tracefs
//        subtype: boltfs
//        autounmount: true
//      tracing:
//        enabled: true
//        output: /var/log/tracefs/spans.json
//        batch: true
//        servicename: tracefs
//      log:
//        dir: /var/log/tracefs
//        mode: info
//      metrics:
//        addr: localhost:9464
package config

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kurafs/tracefs/pkg/bridge"
	"github.com/kurafs/tracefs/pkg/log"
	"github.com/kurafs/tracefs/pkg/tracing"
)

// DefaultEnvPrefix is the prefix of environment variables read by default.
const DefaultEnvPrefix = "TRACEFS_"

// Config is the complete tracefs configuration.
type Config struct {
	// DB is the path of the bolt database to serve.
	DB      string             `koanf:"db"`
	Mount   bridge.MountConfig `koanf:"mount"`
	Tracing tracing.Config     `koanf:"tracing"`
	Log     LogConfig          `koanf:"log"`
	Metrics MetricsConfig      `koanf:"metrics"`
}

type LogConfig struct {
	// Dir, if set, is where rotating log files are written.
	Dir            string `koanf:"dir"`
	Mode           string `koanf:"mode"`
	SuppressStderr bool   `koanf:"suppressstderr"`
}

type MetricsConfig struct {
	// Addr, if set, is where Prometheus metrics are served, at /metrics.
	Addr string `koanf:"addr"`
}

// Default returns the configuration used absent any other.
func Default() Config {
	return Config{
		Mount: bridge.MountConfig{
			ReadOnly:    true,
			FSName:      "tracefs",
			Subtype:     "boltfs",
			AutoUnmount: true,
		},
		Tracing: tracing.DefaultConfig(),
		Log:     LogConfig{Mode: "info"},
	}
}

// Validate reports the first invalid setting in c.
func (c Config) Validate() error {
	if c.DB == "" {
		return errors.New("no database given")
	}
	if _, err := log.ParseMode(c.Log.Mode); err != nil {
		return errors.Wrap(err, "log.mode")
	}
	if c.Tracing.Enabled && c.Tracing.Output == "" {
		return errors.New("tracing.output is empty")
	}
	return nil
}

// Loader loads a Config. It may be used again to reload.
type Loader struct {
	envPrefix string
	filePath  string
	overrides map[string]interface{}
}

// Option configures a Loader.
type Option func(*Loader)

// WithConfigFile sets the YAML file to read. Without it only defaults, the
// environment and overrides are used.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithOverrides sets values that take precedence over every other source,
// keyed like the YAML file ("mount.readonly"). Command-line flags are passed
// this way.
func WithOverrides(m map[string]interface{}) Option {
	return func(l *Loader) { l.overrides = m }
}

// NewLoader returns a Loader configured by opts.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every source afresh and returns the merged, validated result.
func (l *Loader) Load() (Config, error) {
	k := koanf.New(".")
	if l.filePath != "" {
		if err := k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return Config{}, errors.Wrapf(err, "loading config file %s", l.filePath)
		}
	}

	// TRACEFS_MOUNT_READONLY -> mount.readonly
	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}
	if err := k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return Config{}, errors.Wrap(err, "loading environment")
	}

	if len(l.overrides) > 0 {
		if err := k.Load(mapProvider(l.overrides), nil); err != nil {
			return Config{}, errors.Wrap(err, "loading overrides")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// Watch calls fn with a freshly loaded config, or the error loading it, each
// time the config file changes, until ctx is done. It is an error to watch a
// Loader without a config file.
func (l *Loader) Watch(ctx context.Context, fn func(Config, error)) error {
	if l.filePath == "" {
		return errors.New("no config file to watch")
	}
	f := file.Provider(l.filePath)
	err := f.Watch(func(_ interface{}, err error) {
		if err != nil {
			fn(Config{}, errors.Wrap(err, "watching config file"))
			return
		}
		fn(l.Load())
	})
	if err != nil {
		return errors.Wrapf(err, "watching %s", l.filePath)
	}
	go func() {
		<-ctx.Done()
		_ = f.Unwatch()
	}()
	return nil
}

// mapProvider is a koanf.Provider over a map of dotted keys.
type mapProvider map[string]interface{}

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for k, v := range m {
		setPath(out, strings.Split(k, "."), v)
	}
	return out, nil
}

func setPath(m map[string]interface{}, path []string, v interface{}) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}
