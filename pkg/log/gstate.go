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

import (
	"sync"
	"sync/atomic"
)

// cowMap is a map read without locks. Writers serialize on mu and swap in a
// modified copy.
type cowMap[K comparable, V any] struct {
	mu sync.Mutex
	m  atomic.Pointer[map[K]V]
}

func (c *cowMap[K, V]) get(k K) (v V, ok bool) {
	m := c.m.Load()
	if m == nil {
		return v, false
	}
	v, ok = (*m)[k]
	return v, ok
}

func (c *cowMap[K, V]) update(fn func(m map[K]V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mb := make(map[K]V)
	if ma := c.m.Load(); ma != nil {
		for k, v := range *ma {
			mb[k] = v
		}
	}
	fn(mb)
	c.m.Store(&mb)
}

var gstate struct {
	gmode       atomic.Int64
	tracePoints cowMap[string, struct{}] // fname.go:line
	fileModes   cowMap[string, Mode]     // fname.go
}

func init() {
	gstate.gmode.Store(int64(DefaultMode))
}

// SetGlobalLogMode sets the global log mode to the one specified. Logging
// outside what's included in the mode is thereby suppressed.
func SetGlobalLogMode(m Mode) {
	gstate.gmode.Store(int64(m))
}

// GetGlobalLogMode gets the currently set global log mode.
func GetGlobalLogMode() Mode {
	return Mode(gstate.gmode.Load())
}

// SetTracePoint enables the provided tracepoint. A tracepoint is of the form
// filename.go:line-number (compiles to [\w]+.go:[\d]+) corresponding to the
// position of a logging statement that once enabled, emits a backtrace when
// the logging statement is executed. The specified tracepoint is agnostic to
// the mode, i.e. Logger.{Info|Warn|Error|Fatal|Debug}{,f}, used at the line.
func SetTracePoint(tp string) {
	gstate.tracePoints.update(func(m map[string]struct{}) { m[tp] = struct{}{} })
}

// ResetTracePoint resets the provided tracepoint so that backtraces are no
// longer emitted when the specified logging statement is executed.
func ResetTracePoint(tp string) {
	gstate.tracePoints.update(func(m map[string]struct{}) { delete(m, tp) })
}

// GetTracePoint checks if the corresponding tracepoint is enabled.
func GetTracePoint(tp string) (tpenabled bool) {
	_, ok := gstate.tracePoints.get(tp)
	return ok
}

// SetFileLogMode sets the log mode for the provided filename. Subsequent
// logging statements within the file get filtered accordingly.
func SetFileLogMode(fname string, m Mode) {
	gstate.fileModes.update(func(fm map[string]Mode) { fm[fname] = m })
}

// GetFileLogMode gets the log mode for the specified file.
func GetFileLogMode(fname string) (m Mode, ok bool) {
	return gstate.fileModes.get(fname)
}

// ResetFileLogMode resets the log mode for the provided filename. Subsequent
// logging statements within the file get filtered as per the global log mode.
func ResetFileLogMode(fname string) {
	gstate.fileModes.update(func(fm map[string]Mode) { delete(fm, fname) })
}
