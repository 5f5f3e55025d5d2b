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
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/cockroachdb/logtags"
)

func expectMatch(t *testing.T, regex string, b []byte) {
	t.Helper()
	match, err := regexp.Match(regex, b)
	if err != nil {
		t.Fatal(err)
	}
	if !match {
		t.Errorf("expected pattern: %q, got: %q", regex, b)
	}
}

func TestSetGetTracePoint(t *testing.T) {
	tp := fmt.Sprintf("%s:%d", "t.go", 42)
	if GetTracePoint(tp) {
		t.Errorf("didn't expect tracepoint %s to be enabled", tp)
	}
	SetTracePoint(tp)
	if !GetTracePoint(tp) {
		t.Errorf("expected tracepoint %s to be enabled", tp)
	}
	ResetTracePoint(tp)
	if GetTracePoint(tp) {
		t.Errorf("expected tracepoint %s to be reset", tp)
	}
}

func TestInfoLog(t *testing.T) {
	SetGlobalLogMode(InfoMode)
	defer SetGlobalLogMode(DefaultMode)

	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer))

	logger.Info("info")
	expectMatch(t, `^I\d{6} \d\d:\d\d:\d\d\.\d{6} log_test.go:\d+\] info\n$`, buffer.Bytes())
	buffer.Reset()

	logger.Infof("%t %d %s", true, 1, "infof")
	expectMatch(t, `^I.*\] true 1 infof`, buffer.Bytes())
	buffer.Reset()

	logger.Warn("warn")
	if buffer.Len() != 0 {
		t.Errorf("expected warn to be filtered, got %q", buffer.String())
	}
}

func TestDebugModeEnableDisable(t *testing.T) {
	SetGlobalLogMode(InfoMode)
	defer SetGlobalLogMode(DefaultMode)

	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer))

	logger.Debug("debug")
	logger.Debugf("%t %d %s", true, 1, "debugf")
	expectMatch(t, "^$", buffer.Bytes())

	SetGlobalLogMode(DebugMode)
	logger.Debug("debug")
	expectMatch(t, `^D.*\] debug`, buffer.Bytes())
}

func TestFileLogModeOverridesGlobal(t *testing.T) {
	SetGlobalLogMode(DisabledMode)
	defer SetGlobalLogMode(DefaultMode)
	SetFileLogMode("log_test.go", WarnMode)
	defer ResetFileLogMode("log_test.go")

	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer))

	logger.Info("info")
	logger.Warn("warn")
	expectMatch(t, `^W.*\] warn\n$`, buffer.Bytes())

	ResetFileLogMode("log_test.go")
	buffer.Reset()
	logger.Error("error")
	if buffer.Len() != 0 {
		t.Errorf("expected error to be filtered, got %q", buffer.String())
	}
}

func TestFlags(t *testing.T) {
	buffer := new(bytes.Buffer)
	New(Writer(buffer), Flags(Lmode)).Info("bare")
	if got, want := buffer.String(), "I bare\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	buffer.Reset()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	New(Writer(buffer), Flags(Llongfile), SkipBasePath(filepath.Dir(wd))).Info("long")
	expectMatch(t, `^ log/log_test.go:\d+\] long\n$`, buffer.Bytes())
}

func TestTags(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer), Flags(Lmode), Tags("mount", "/mnt"))

	logger.WithTags("op", "lookup", "traced").Info("hello")
	if got, want := buffer.String(), "I [mount=/mnt,op=lookup,traced] hello\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// The parent is left as it was.
	buffer.Reset()
	logger.Info("hello")
	if got, want := buffer.String(), "I [mount=/mnt] hello\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	buffer.Reset()
	ctx := logtags.AddTag(context.Background(), "req", 42)
	logger.WithContext(ctx).Info("hello")
	if got, want := buffer.String(), "I [mount=/mnt,req=42] hello\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if New().WithContext(context.Background()).tags != nil {
		t.Error("expected an untagged context to add no tags")
	}
}

func TestParseMode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Mode
	}{
		{"info", DefaultMode},
		{"WARN", WarnMode | ErrorMode},
		{"error", ErrorMode},
		{"debug", DefaultMode | DebugMode},
		{"disabled", DisabledMode},
	} {
		got, err := ParseMode(tc.in)
		if err != nil {
			t.Errorf("ParseMode(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := ParseMode("verbose"); err == nil || !strings.Contains(err.Error(), `"verbose"`) {
		t.Errorf("expected an error naming the mode, got %v", err)
	}
	if got := (WarnMode | DebugMode).String(); got != "W|D" {
		t.Errorf("got %q", got)
	}
}

func TestFatalDumpsAllGoroutines(t *testing.T) {
	var code int
	exit = func(c int) { code = c }
	defer func() { exit = os.Exit }()

	buffer := new(bytes.Buffer)
	New(Writer(buffer)).Fatalf("giving up: %d", 7)

	if code != 255 {
		t.Errorf("expected exit code 255, got %d", code)
	}
	expectMatch(t, `(?s)^F.*\] giving up: 7\ngoroutine \d+ \[running\]:`, buffer.Bytes())
}

func TestLogRotationWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := LogRotationWriter(dir, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for _, s := range []string{"0123", "4567", "89"} {
		if _, err := w.Write([]byte(s)); err != nil {
			t.Fatal(err)
		}
	}

	files, err := filepath.Glob(filepath.Join(dir, program+".*.log*"))
	if err != nil {
		t.Fatal(err)
	}
	var logs int
	for _, f := range files {
		if filepath.Base(f) != program+".log" {
			logs++
		}
	}
	if logs != 2 {
		t.Errorf("expected 2 log files, got %d: %v", logs, files)
	}

	latest, err := os.ReadFile(filepath.Join(dir, program+".log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(latest) != "89" {
		t.Errorf("expected symlink to the latest file, read %q", latest)
	}
}

func TestEnableTracePoint(t *testing.T) {
	SetGlobalLogMode(DisabledMode)
	defer SetGlobalLogMode(DefaultMode)

	// This test depends on the exact difference in line numbers between the
	// call to caller and the logger.Info execution below.
	file, line := caller(0)
	tp := fmt.Sprintf("%s:%d", filepath.Base(file), line+7)
	SetTracePoint(tp)
	defer ResetTracePoint(tp)

	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer))
	logger.Info()
	if buffer.Len() == 0 {
		t.Fatal("expected stack trace to be populated, found empty buffer instead")
	}

	first, err := buffer.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	expectMatch(t, `^goroutine \d+ \[running\]:`, []byte(first))

	second, err := buffer.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	expectMatch(t, `^github.com/kurafs/tracefs/pkg/log.TestEnableTracePoint`, []byte(second))
}
