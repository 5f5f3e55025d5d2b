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

// Package log implements leveled execution logs. The library provides hooks
// such that the following top-level usage is made possible:
//
//     $ tracefs fuse-server -help
//       -log-dir string
//             Write log files in this directory.
//       -suppress-stderr
//             Suppress standard error logging.
//       -log-mode (info|debug|warn|error)
//             Log level for logs emitted (global, can be overridden using -log-filter).
//       -log-filter value
//             Comma-separated list of pattern:level settings for file-filtered logging.
//       -log-backtrace-at value
//             Comma-separated list of filename:N settings, when any logging statement at
//             the specified locations are executed, a stack trace will be emitted.
//
//     $ tracefs fuse-server -log-mode info \
//                           -log-dir /path/to/dir \
//                           -log-filter serve.go:debug \
//                           -log-backtrace-at serve.go:42
//
// Modes, file filters and tracepoints are process-wide and may be changed
// while running; the config watcher does so on reload.
//
// Basic example:
//
//      import "github.com/kurafs/tracefs/pkg/log"
//
//      logger := log.New()
//      logger.Info("hello, world")
//
// Tags
//
// A logger can carry tags, printed between the header and the message. They
// come from WithTags, or from a context annotated with logtags.AddTag:
//
//      logger = logger.WithTags("mount", "/mnt/db")
//      ctx = logtags.AddTag(ctx, "req", 42)
//      logger.WithContext(ctx).Info("lookup")
//      // I181012 10:02:03.000001 bridge.go:88] [mount=/mnt/db,req=42] lookup
//
// Writers
//
// The logger can be configured to output to rotating logs, log with specific
// formatted headers, etc. using variadic options during initialization:
//
//      files, err := log.LogRotationWriter("/logs", 50 << 20 /* 50 MiB */)
//      writer := log.SynchronizedWriter(log.MultiWriter(os.Stderr, files))
//      logf := log.Lmode | log.Ldate | log.Ltime | log.Llongfile
//
//      logger := log.New(log.Writer(writer), log.Flags(logf))
package log
