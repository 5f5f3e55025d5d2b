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

// Portions of this code originated in the standard library 'log' package.

package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/cockroachdb/logtags"
)

// Logger is the concrete logger type. It writes out logs to the specified
// io.Writer, with the header format determined by the flags set. A Logger may
// carry tags, printed after the header of every line it writes.
type Logger struct {
	w        io.Writer // Where logs are written to
	flag     Flag      // Flag set determining log headers. See options.go
	basePath string    // Base path of the consumer's repository, optional
	tags     *logtags.Buffer
}

const newline string = "\n"

// exit is swapped out in tests.
var exit = os.Exit

// configure sets up the default options for the Logger, these include a
// synchronized os.Stderr writer, an empty basepath (Llongfile will
// consequently print out the fully specified path) and LstdFlags, which
// produces logs with the following header format:
//
//   Myymmdd hh:mm:ss.micros filename:ln] [tags] message
//   I180419 06:33:04.606396 fname.go:42] [req=0x2a] message
func configure(l *Logger) {
	l.w = DefaultWriter()
	l.flag = LstdFlags
	l.basePath = ""
}

// New returns a new Logger, configured with the provided options, if any.
func New(options ...option) *Logger {
	l := &Logger{}
	configure(l)

	// Overrides.
	for _, option := range options {
		option(l)
	}
	return l
}

// Discarder returns a Logger configured to discard all writes.
func Discarder() *Logger {
	return New(Writer(io.Discard))
}

// WithTags returns a copy of the logger with the given key/value pairs added
// to its tags. A trailing key without a value is added as a bare tag.
func (l *Logger) WithTags(kvs ...interface{}) *Logger {
	nl := *l
	for i := 0; i < len(kvs); i += 2 {
		key := fmt.Sprint(kvs[i])
		var value interface{}
		if i+1 < len(kvs) {
			value = kvs[i+1]
		}
		if nl.tags == nil {
			nl.tags = logtags.SingleTagBuffer(key, value)
		} else {
			nl.tags = nl.tags.Add(key, value)
		}
	}
	return &nl
}

// WithContext returns a copy of the logger that also prints the tags attached
// to ctx with logtags.AddTag.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	ctxTags := logtags.FromContext(ctx)
	if ctxTags == nil {
		return l
	}
	nl := *l
	if nl.tags == nil {
		nl.tags = ctxTags
	} else {
		nl.tags = nl.tags.Merge(ctxTags)
	}
	return &nl
}

// Info logs to the INFO log. Arguments are handled in the manner of
// fmt.Println; a newline is appended at the end.
func (l *Logger) Info(v ...interface{}) {
	l.log(InfoMode, fmt.Sprintln(v...))
}

// Infof logs to the INFO log. Arguments are handled in the manner of
// fmt.Printf; a newline is appended at the end.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.log(InfoMode, fmt.Sprintf(format+newline, v...))
}

// Warn logs to the WARN log. Arguments are handled in the manner of
// fmt.Println; a newline is appended at the end.
func (l *Logger) Warn(v ...interface{}) {
	l.log(WarnMode, fmt.Sprintln(v...))
}

// Warnf logs to the WARN log. Arguments are handled in the manner of
// fmt.Printf; a newline is appended at the end.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.log(WarnMode, fmt.Sprintf(format+newline, v...))
}

// Error logs to the ERROR log. Arguments are handled in the manner of
// fmt.Println; a newline is appended at the end.
func (l *Logger) Error(v ...interface{}) {
	l.log(ErrorMode, fmt.Sprintln(v...))
}

// Errorf logs to the ERROR log. Arguments are handled in the manner of
// fmt.Printf; a newline is appended at the end.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.log(ErrorMode, fmt.Sprintf(format+newline, v...))
}

// Fatal logs to the FATAL log, including a stack trace of all running
// goroutines, then calls os.Exit(255). Arguments are handled in the manner
// of fmt.Println.
func (l *Logger) Fatal(v ...interface{}) {
	l.log(FatalMode, fmt.Sprintln(v...))
	l.w.Write(allStacks())
	exit(255)
}

// Fatalf is like Fatal, with arguments handled in the manner of fmt.Printf.
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.log(FatalMode, fmt.Sprintf(format+newline, v...))
	l.w.Write(allStacks())
	exit(255)
}

// Debug logs to the DEBUG log. Arguments are handled in the manner of
// fmt.Println; a newline is appended at the end.
func (l *Logger) Debug(v ...interface{}) {
	l.log(DebugMode, fmt.Sprintln(v...))
}

// Debugf logs to the DEBUG log. Arguments are handled in the manner of
// fmt.Printf; a newline is appended at the end.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.log(DebugMode, fmt.Sprintf(format+newline, v...))
}

// Logger.log is only to be called from
// Logger.{Info,Warn,Error,Fatal,Debug}{,f}. We use a depth of two to retrieve
// the caller immediately preceding it.
func (l *Logger) log(lmode Mode, data string) {
	// Tracepoints and file modes are keyed by base name, so files sharing a
	// name across packages share settings.
	file, line := caller(2)
	bfile := filepath.Base(file)

	if GetTracePoint(fmt.Sprintf("%s:%d", bfile, line)) {
		// Skip logger.log, and the invoking public wrapper
		// Logger.{Info,Warn,Error,Fatal,Debug}{,f}
		l.w.Write(stacktrace(2))
	}
	if !enabled(bfile, lmode) {
		return
	}

	var buf bytes.Buffer
	buf.Write(l.header(lmode, time.Now(), file, line))
	if l.tags != nil {
		buf.WriteByte('[')
		for i, t := range l.tags.Get() {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(t.Key())
			if t.Value() != nil {
				buf.WriteByte('=')
				buf.WriteString(t.ValueStr())
			}
		}
		buf.WriteString("] ")
	}
	buf.WriteString(data)
	l.w.Write(buf.Bytes())
}

// enabled reports whether a statement of mode lmode in file bfile is to be
// written. A file mode, if set, overrides the global one; fatal statements
// are never filtered.
func enabled(bfile string, lmode Mode) bool {
	if lmode&FatalMode != DisabledMode {
		return true
	}
	if fmode, ok := GetFileLogMode(bfile); ok {
		return fmode&lmode != DisabledMode
	}
	return GetGlobalLogMode()&lmode != DisabledMode
}

// header, given the local log mode, time stamp, file name (fully qualified)
// and line number, formats the log header as per Logger.flag and returns the
// corresponding byte array. It also factors in the configured base path, if
// any, so that if Llongfile is specified, the base path prefix is truncated.
func (l *Logger) header(lmode Mode, t time.Time, file string, line int) []byte {
	var b []byte
	if l.flag&Lmode != 0 {
		b = append(b, lmode.byte())
	}
	if l.flag&LUTC != 0 {
		t = t.UTC()
	}
	if l.flag&(Ldate|Ltime|Lmicroseconds) != 0 {
		datef := l.flag&Ldate != 0
		timef := l.flag&(Ltime|Lmicroseconds) != 0
		if datef {
			year, month, day := t.Date()
			if year < 2000 {
				year = 2000
			}
			itoa(&b, year-2000, 2)
			itoa(&b, int(month), 2)
			itoa(&b, day, 2)
		}
		if datef && timef {
			b = append(b, ' ')
		}
		if timef {
			hour, min, sec := t.Clock()
			itoa(&b, hour, 2)
			b = append(b, ':')
			itoa(&b, min, 2)
			b = append(b, ':')
			itoa(&b, sec, 2)
			if l.flag&Lmicroseconds != 0 {
				b = append(b, '.')
				itoa(&b, t.Nanosecond()/1e3, 6)
			}
		}
	}

	b = append(b, ' ')

	if l.flag&(Lshortfile|Llongfile) != 0 {
		if l.basePath != "" {
			if rel, err := filepath.Rel(l.basePath, file); err == nil && !filepath.IsAbs(rel) && rel[0] != '.' {
				file = rel
			}
		}
		if l.flag&Lshortfile != 0 {
			file = filepath.Base(file)
		}
		b = append(b, file...)
		b = append(b, ':')
		itoa(&b, line, -1)
		b = append(b, "] "...)
	}
	return b
}

// Cheap integer to fixed-width decimal ASCII. Give a negative width to avoid
// zero-padding.
func itoa(buf *[]byte, i int, wid int) {
	// Assemble decimal in reverse order.
	var b [20]byte
	bp := len(b) - 1
	for i >= 10 || wid > 1 {
		wid--
		q := i / 10
		b[bp] = byte('0' + i - q*10)
		bp--
		i = q
	}
	// i < 10
	b[bp] = byte('0' + i)
	*buf = append(*buf, b[bp:]...)
}

// stacktrace returns the stack trace for the current goroutine, skipping the
// skip function frames immediately preceding the caller (the caller itself
// included when skip is one). The "goroutine N [running]:" line is kept.
func stacktrace(skip int) []byte {
	skip *= 2 // Each frame is two lines: the function, then its file:line.
	skip += 2 // For debug.Stack()
	skip += 2 // For this function, log.stacktrace()

	bs := bytes.Split(debug.Stack(), []byte("\n"))
	if 1+skip > len(bs) {
		return bs[0]
	}
	bs = append(bs[:1], bs[1+skip:]...)
	return bytes.Join(bs, []byte("\n"))
}

// allStacks returns the stack traces of all running goroutines.
func allStacks() []byte {
	buf := make([]byte, 1<<16)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return buf[:n]
		}
		buf = make([]byte, 2*len(buf))
	}
}

// caller returns the file and line number of the call site depth frames
// above the function calling caller; caller(0) is the call to caller itself.
func caller(depth int) (file string, line int) {
	// +1 to account for call to caller itself.
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		file = "[???]"
		line = -1
	}
	return file, line
}
