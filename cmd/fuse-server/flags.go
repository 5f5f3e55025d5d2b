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
	"flag"
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/kurafs/tracefs/pkg/log"
)

type fileLogMode struct {
	fname string
	fmode log.Mode
}

type logFilter []fileLogMode

func (l logFilter) String() string {
	var parts []string
	for _, f := range l {
		parts = append(parts, fmt.Sprintf("%s:%s", f.fname, f.fmode))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

var fileNameRegex = regexp.MustCompile(`^[\w\-]+\.go$`)

func (l *logFilter) Set(value string) error {
	for _, f := range strings.Split(value, ",") {
		f := strings.Split(f, ":")
		if len(f) != 2 {
			return errors.Newf("improperly formatted filter: %s, expected fname.go:mode", f)
		}

		fname, mode := f[0], f[1]
		if !fileNameRegex.MatchString(fname) {
			return errors.Newf("expected filename %q to match %s", fname, fileNameRegex)
		}
		fmode, err := log.ParseMode(mode)
		if err != nil {
			return err
		}
		*l = append(*l, fileLogMode{fname: fname, fmode: fmode})
	}
	return nil
}

type backtracePoints []string

func (l *backtracePoints) String() string {
	return fmt.Sprint(*l)
}

var lineNumberRegex = regexp.MustCompile(`^\d+$`)

func (l *backtracePoints) Set(value string) error {
	for _, f := range strings.Split(value, ",") {
		f := strings.Split(f, ":")
		if len(f) != 2 {
			return errors.Newf("improperly formatted backtrace point: %s, expected fname.go:line", f)
		}

		fname, lnumber := f[0], f[1]
		if !fileNameRegex.MatchString(fname) {
			return errors.Newf("expected filename %q to match %s", fname, fileNameRegex)
		}
		if !lineNumberRegex.MatchString(lnumber) {
			return errors.Newf("expected line number %q to match %s", lnumber, lineNumberRegex)
		}
		*l = append(*l, fmt.Sprintf("%s:%s", fname, lnumber))
	}
	return nil
}

// flagKeys maps the flags that mirror a config setting to its key.
var flagKeys = map[string]string{
	"db":              "db",
	"trace-out":       "tracing.output",
	"service-name":    "tracing.servicename",
	"no-trace":        "tracing.enabled",
	"metrics-addr":    "metrics.addr",
	"log-dir":         "log.dir",
	"log-mode":        "log.mode",
	"suppress-stderr": "log.suppressstderr",
}

// overrides returns the config settings given on the command line. Only
// flags that were set are included, so that unset flags leave the config
// file and environment alone.
func overrides(fs *flag.FlagSet) map[string]interface{} {
	m := make(map[string]interface{})
	fs.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		v := f.Value.(flag.Getter).Get()
		if f.Name == "no-trace" {
			v = !v.(bool)
		}
		m[key] = v
	})
	return m
}
