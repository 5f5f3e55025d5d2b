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

// Portions of this code originated in the github.com/golang/glog package.

package log

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	program  = "?"
	hostname = "?"
	username = "?"
	pid      = -1
)

func init() {
	program = filepath.Base(os.Args[0])

	if host, err := os.Hostname(); err == nil {
		hostname = host
	}
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	pid = os.Getpid()
}

// DefaultWriter returns a default os.Stderr writer that is safe for concurrent use.
func DefaultWriter() io.Writer {
	return SynchronizedWriter(os.Stderr)
}

// LogRotationWriter returns an io.WriteCloser that writes to rotating files
// in dirname, starting a new file once the current one would grow past
// sizeThreshold bytes. Within the directory a symlink <program>.log points at
// the most recent file.
//
// A single write larger than the threshold goes to a file of its own; it is
// the only case a file exceeds the limit.
func LogRotationWriter(dirname string, sizeThreshold int) (io.WriteCloser, error) {
	if err := os.MkdirAll(dirname, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating log directory %s", dirname)
	}
	return &logRotationWriter{
		dirname:       dirname,
		symlink:       fmt.Sprintf("%s.log", program),
		sizeThreshold: sizeThreshold,
	}, nil
}

// SynchronizedWriter wraps an io.Writer with a mutex for concurrent access.
func SynchronizedWriter(w io.Writer) io.Writer {
	return &synchronizedWriter{w: w}
}

// MultiWriter multiplexes writes to multiple io.Writers.
func MultiWriter(w io.Writer, ws ...io.Writer) io.Writer {
	return &multiWriter{ws: append([]io.Writer{w}, ws...)}
}

// generateLogFilename generates a name for a log file of the form
// <program>.<host>.<user>.<year>-<month>-<day>.<hour>:<minute>:<second>.<millisecond>.<pid>.log
// An example: tracefs.devbox.alice.2018-04-10.22:43:54.717.7989.log
func generateLogFilename(t time.Time) (fname string) {
	return fmt.Sprintf("%s.%s.%s.%s.%d.log",
		program, hostname, username,
		t.Format("2006-01-02.15:04:05.000"), pid,
	)
}

type logRotationWriter struct {
	dirname, symlink string
	sizeThreshold    int

	mu          sync.Mutex
	currentFile *os.File
	currentSize int
	// Rotations within the same millisecond get a suffix.
	lastName string
	dup      int
}

func (r *logRotationWriter) Write(b []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentFile == nil || (r.currentSize > 0 && r.currentSize+len(b) > r.sizeThreshold) {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err = r.currentFile.Write(b)
	r.currentSize += n
	return n, err
}

func (r *logRotationWriter) rotate() error {
	fname := generateLogFilename(time.Now())
	if fname == r.lastName {
		r.dup++
		fname = fmt.Sprintf("%s.%d", r.lastName, r.dup)
	} else {
		r.lastName, r.dup = fname, 0
	}

	f, err := os.Create(filepath.Join(r.dirname, fname))
	if err != nil {
		return errors.Wrap(err, "rotating log file")
	}
	if r.currentFile != nil {
		r.currentFile.Close()
	}
	r.currentFile, r.currentSize = f, 0

	// Best effort.
	_ = os.Remove(filepath.Join(r.dirname, r.symlink))
	_ = os.Symlink(fname, filepath.Join(r.dirname, r.symlink))
	return nil
}

func (r *logRotationWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentFile == nil {
		return nil
	}
	err := r.currentFile.Close()
	r.currentFile = nil
	return err
}

type synchronizedWriter struct {
	sync.Mutex
	w io.Writer
}

func (s *synchronizedWriter) Write(b []byte) (n int, err error) {
	s.Lock()
	n, err = s.w.Write(b)
	s.Unlock()
	return n, err
}

type multiWriter struct {
	ws []io.Writer
}

// We do a best effort write on all the writers, but return (n, err)
// conservatively. i.e. we return the smallest n across all the writers, and
// the last non-nil error, if any.
func (m *multiWriter) Write(b []byte) (n int, err error) {
	n = len(b) // Optimistic estimation.
	for _, w := range m.ws {
		nbytes, er := w.Write(b)
		if nbytes < n {
			n = nbytes
		}
		if er != nil {
			err = er
		}
	}
	return n, err
}
