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
	"strings"

	"github.com/cockroachdb/errors"
)

// Mode is a set of log levels. Statements are written if their level is in
// the active mode: the file's, if one was set with SetFileLogMode, else the
// global one.
type Mode int

const (
	InfoMode Mode = 1 << iota
	WarnMode
	ErrorMode
	FatalMode
	DebugMode

	// The zero-value of DisableMode can also be used to check if modes
	// intersect, i.e.  (lmode&gmode) != DisabledMode checks if the local
	// logger mode is filtered through by the global mode.
	DisabledMode = 0
	DefaultMode  = InfoMode | WarnMode | ErrorMode
)

// ParseMode returns the mode named by s: one of info, warn, error, debug or
// disabled. Every named level includes those more severe than it.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "info":
		return InfoMode | WarnMode | ErrorMode, nil
	case "warn":
		return WarnMode | ErrorMode, nil
	case "error":
		return ErrorMode, nil
	case "debug":
		return InfoMode | WarnMode | ErrorMode | DebugMode, nil
	case "disabled":
		return DisabledMode, nil
	}
	return DisabledMode, errors.Newf("unrecognized mode: %q", s)
}

func (m Mode) String() string {
	var levels []string
	for _, l := range []Mode{InfoMode, WarnMode, ErrorMode, FatalMode, DebugMode} {
		if m&l != 0 {
			levels = append(levels, string(l.byte()))
		}
	}
	if len(levels) == 0 {
		return "disabled"
	}
	return strings.Join(levels, "|")
}

func (m Mode) byte() byte {
	switch m {
	case InfoMode:
		return 'I'
	case WarnMode:
		return 'W'
	case ErrorMode:
		return 'E'
	case FatalMode:
		return 'F'
	case DebugMode:
		return 'D'
	default:
		return '?'
	}
}
