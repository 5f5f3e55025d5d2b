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

package fuseserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	bazilfuse "bazil.org/fuse"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/kurafs/tracefs/pkg/boltfs"
	"github.com/kurafs/tracefs/pkg/bridge"
	"github.com/kurafs/tracefs/pkg/cli"
	"github.com/kurafs/tracefs/pkg/config"
	"github.com/kurafs/tracefs/pkg/fuse"
	"github.com/kurafs/tracefs/pkg/fusetrace"
	"github.com/kurafs/tracefs/pkg/log"
	"github.com/kurafs/tracefs/pkg/tracing"
)

var FuseServerCmd = &cli.Command{
	Run:       fuseServerCmdRun,
	UsageLine: "fuse-server [-config file] [-db path] [-unmount] [tracing flags] [logger flags] <mount-point>",
	Short:     "mount a bolt database read-only, tracing every filesystem operation",
	Long: `
Mounts the bolt database given by -db (or the config file) at the mount point.
Buckets become directories and keys become read-only files. Every operation
the kernel sends is traced as one span named after the operation, exported as
JSON to -trace-out.

Settings are read from defaults, then the YAML file given by -config, then
TRACEFS_* environment variables, then flags. With -watch-config the log mode
follows edits to the config file.

The file system is unmounted on SIGINT or SIGTERM. -unmount unmounts a mount
point left behind by a crashed server.
    `,
}

func fuseServerCmdRun(cmd *cli.Command, args []string) error {
	var (
		configFlag      string
		watchConfigFlag bool
		unmountFlag     bool

		logFilterFlag      logFilter
		backtracePointFlag backtracePoints
	)

	cmd.FlagSet.StringVar(&configFlag, "config", "",
		"YAML config file")
	cmd.FlagSet.BoolVar(&watchConfigFlag, "watch-config", false,
		"Reload the log mode when the config file changes")
	cmd.FlagSet.BoolVar(&unmountFlag, "unmount", false,
		"Unmount filesystem at specified directory")
	cmd.FlagSet.String("db", "",
		"Bolt database to serve")
	cmd.FlagSet.String("trace-out", "",
		`Where spans are written: "stdout", "stderr" or a file`)
	cmd.FlagSet.String("service-name", "",
		"Service name recorded on every span")
	cmd.FlagSet.Bool("no-trace", false,
		"Disable span export")
	cmd.FlagSet.String("metrics-addr", "",
		"Serve Prometheus metrics at /metrics on this address [host:port]")
	cmd.FlagSet.String("log-dir", "",
		"Write log files to the specified directory")
	cmd.FlagSet.Bool("suppress-stderr", false,
		"Suppress standard error logging")
	cmd.FlagSet.String("log-mode", "",
		"Log mode for logs emitted globally (info|debug|warn|error|disabled, can be overridden using -log-filter)")
	cmd.FlagSet.Var(&logFilterFlag, "log-filter",
		"Comma-separated list of pattern:level settings for file-filtered logging")
	cmd.FlagSet.Var(&backtracePointFlag, "log-backtrace-at",
		"Comma-separated list of filename:N settings to emit backtraces")

	if err := cmd.FlagSet.Parse(args); err != nil {
		return cli.CmdParseError(err)
	}

	if cmd.FlagSet.NArg() > 1 {
		return cli.CmdParseError(errors.Newf("unrecognized arguments: %v", cmd.FlagSet.Args()[1:]))
	}
	if cmd.FlagSet.NArg() == 0 {
		return cli.CmdParseError(errors.New("unspecified mount-point"))
	}
	mountPoint := cmd.FlagSet.Arg(0)

	if unmountFlag {
		return bridge.Unmount(mountPoint)
	}

	opts := []config.Option{config.WithOverrides(overrides(&cmd.FlagSet))}
	if configFlag != "" {
		opts = append(opts, config.WithConfigFile(configFlag))
	}
	loader := config.NewLoader(opts...)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	for _, flm := range logFilterFlag {
		log.SetFileLogMode(flm.fname, flm.fmode)
	}
	for _, tp := range backtracePointFlag {
		log.SetTracePoint(tp)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchConfigFlag {
		if err := loader.Watch(ctx, func(cfg config.Config, err error) {
			if err != nil {
				logger.Warnf("ignoring config change: %v", err)
				return
			}
			applyLogMode(logger, cfg.Log.Mode)
		}); err != nil {
			logger.Warnf("not watching config: %v", err)
		}
	}

	wait, shutdown, err := Start(logger, cfg, mountPoint)
	if err != nil {
		logger.Error(err)
		return err
	}

	go func() {
		<-ctx.Done()
		shutdown()
	}()

	err = wait()
	shutdown()
	if err != nil {
		logger.Error(err)
	}
	return err
}

// newLogger builds the logger described by cfg and sets the global log mode.
// The returned closer closes the log files, if any.
func newLogger(cfg config.LogConfig) (*log.Logger, io.Closer, error) {
	var (
		writer io.Writer = io.Discard
		closer io.Closer = io.NopCloser(nil)
	)
	if cfg.Dir != "" {
		rw, err := log.LogRotationWriter(cfg.Dir, 50<<20 /* 50 MiB */)
		if err != nil {
			return nil, nil, err
		}
		writer, closer = rw, rw
	}
	if !cfg.SuppressStderr {
		writer = log.MultiWriter(writer, os.Stderr)
	}
	writer = log.SynchronizedWriter(writer)
	logf := log.Ldate | log.Ltime | log.Lmicroseconds | log.Llongfile | log.LUTC | log.Lmode
	logger := log.New(log.Writer(writer), log.Flags(logf), log.SkipBasePath(sourceRoot()))

	applyLogMode(logger, cfg.Mode)
	return logger, closer, nil
}

func applyLogMode(logger *log.Logger, mode string) {
	m, err := log.ParseMode(mode)
	if err != nil {
		logger.Warn(err)
		return
	}
	if m != log.GetGlobalLogMode() {
		log.SetGlobalLogMode(m)
		logger.Infof("log mode set to %v", m)
	}
}

// sourceRoot is the root of the source tree this binary was built from.
func sourceRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	return filepath.Join(filepath.Dir(file), "..", "..")
}

// Start serves the database in cfg at mountpoint. wait blocks until serving
// stops, returning why; shutdown unmounts and releases everything Start
// acquired. shutdown may be called more than once.
func Start(logger *log.Logger, cfg config.Config, mountpoint string) (wait func() error, shutdown func(), err error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		if err != nil {
			cancel()
		}
	}()

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logger.Warnf("tracing: %v", err)
	}))
	debug := func(msg interface{}) { logger.Debug(msg) }
	fuse.Debug = debug
	if log.GetGlobalLogMode()&log.DebugMode != 0 {
		bazilfuse.Debug = debug
	}

	tp, shutdownTracing, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return nil, nil, err
	}

	fs, err := boltfs.Open(cfg.DB, boltfs.WithLogger(logger.WithTags("db", filepath.Base(cfg.DB))))
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	server := bridge.New(
		fusetrace.NewWithProvider(fs, tp),
		bridge.WithLogger(logger.WithTags("mount", mountpoint)),
		bridge.WithRegisterer(reg),
		bridge.WithMountConfig(cfg.Mount),
	)

	var wg sync.WaitGroup

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		lis, err := net.Listen("tcp", cfg.Metrics.Addr)
		if err != nil {
			_ = fs.Close()
			_ = shutdownTracing(ctx)
			return nil, nil, errors.Wrap(err, "listening for metrics")
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Handler: mux}

		wg.Add(1)
		go func() {
			defer wg.Done()

			logger.Infof("serving metrics on %s", lis.Addr())
			if err := metricsServer.Serve(lis); err != nil && err != http.ErrServerClosed {
				logger.Errorf("metrics server error: %v", err)
			}
		}()
	}

	var serveErr error
	served := make(chan struct{})
	go func() {
		defer close(served)
		serveErr = server.Serve(ctx, mountpoint)
	}()

	var once sync.Once
	shutdown = func() {
		once.Do(func() {
			cancel()
			<-served
			if metricsServer != nil {
				_ = metricsServer.Shutdown(context.Background())
			}
			wg.Wait()
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Errorf("flushing spans: %v", err)
			}
			if err := fs.Close(); err != nil {
				logger.Error(err)
			}
		})
	}
	wait = func() error {
		<-served
		return serveErr
	}
	return wait, shutdown, nil
}
