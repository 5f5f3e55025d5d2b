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

package log

import "io"

type option func(*Logger)

// Writer sets the io.Writer logs are written to. It is used as is; wrap it
// with SynchronizedWriter if the logger is shared across goroutines.
func Writer(w io.Writer) option {
	return func(l *Logger) {
		l.w = w
	}
}

// Flags sets the header format, see Flag.
func Flags(flag Flag) option {
	return func(l *Logger) {
		l.flag = flag
	}
}

// SkipBasePath strips path from file names printed under Llongfile, so that
// they read relative to the project root.
func SkipBasePath(path string) option {
	return func(l *Logger) {
		l.basePath = path
	}
}

// Tags sets the initial tags of the logger, as WithTags does.
func Tags(kvs ...interface{}) option {
	return func(l *Logger) {
		*l = *l.WithTags(kvs...)
	}
}

// Flag determines the header prefixed to every line.
type Flag int

// These flags define which text to prefix to each log entry generated by the
// Logger. Bits are or'ed together to control what's printed.
const (
	Ldate         Flag = 1 << iota // the date in the local time zone: 180419
	Ltime                          // the time in the local time zone: 01:23:23
	Lmicroseconds                  // microsecond resolution: 01:23:23.123123, assumes Ltime
	Llongfile                      // full file name and line number: /a/b/c/d.go:23
	Lshortfile                     // final file name element and line number: d.go:23, overrides Llongfile
	LUTC                           // if Ldate or Ltime is set, use UTC rather than the local time zone
	Lmode                          // the mode of the statement: I, W, E, F or D

	LstdFlags = Lmode | Ldate | Ltime | Lmicroseconds | Lshortfile
)
