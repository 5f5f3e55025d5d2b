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

package fuse

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// An ErrorNumber is an error with a specific error number.
//
// Operations may pass an error value that implements ErrorNumber to
// RespondError to control what specific error number (errno) to return.
type ErrorNumber interface {
	// Errno returns the the error number (errno) for this error.
	Errno() Errno
}

const (
	// ENOSYS indicates that the call is not supported.
	ENOSYS = Errno(unix.ENOSYS)

	// ESTALE is used to respond to violations of the protocol, such as a
	// handle or node the file system no longer knows about.
	ESTALE = Errno(unix.ESTALE)

	// EINTR indicates request was interrupted by the kernel.
	EINTR = Errno(unix.EINTR)

	// EROFS is returned by read-only file systems for any mutation.
	EROFS = Errno(unix.EROFS)

	EEXIST    = Errno(unix.EEXIST)
	ENOTSUP   = Errno(unix.ENOTSUP)
	ERANGE    = Errno(unix.ERANGE)
	EIO       = Errno(unix.EIO)
	ENOENT    = Errno(unix.ENOENT)
	EPERM     = Errno(unix.EPERM)
	EACCES    = Errno(unix.EACCES)
	EINVAL    = Errno(unix.EINVAL)
	EBADF     = Errno(unix.EBADF)
	EISDIR    = Errno(unix.EISDIR)
	ENOTDIR   = Errno(unix.ENOTDIR)
	ENOTEMPTY = Errno(unix.ENOTEMPTY)
)

// DefaultErrno is the errno used when error returned does not
// implement ErrorNumber.
const DefaultErrno = EIO

var errnoNames = map[Errno]string{
	ENOSYS:    "ENOSYS",
	ESTALE:    "ESTALE",
	ENOENT:    "ENOENT",
	EIO:       "EIO",
	EPERM:     "EPERM",
	EINTR:     "EINTR",
	EEXIST:    "EEXIST",
	EROFS:     "EROFS",
	ENOTSUP:   "ENOTSUP",
	ERANGE:    "ERANGE",
	EACCES:    "EACCES",
	EINVAL:    "EINVAL",
	EBADF:     "EBADF",
	EISDIR:    "EISDIR",
	ENOTDIR:   "ENOTDIR",
	ENOTEMPTY: "ENOTEMPTY",
	ENOATTR:   "ENOATTR",
}

// Errno implements Error and ErrorNumber using a unix.Errno. It is also the
// error payload of every Reply.
type Errno unix.Errno

var _ = ErrorNumber(Errno(0))
var _ = error(Errno(0))
var _ = Response(Errno(0))

func (e Errno) Errno() Errno {
	return e
}

func (e Errno) String() string {
	return unix.Errno(e).Error()
}

func (e Errno) Error() string {
	return unix.Errno(e).Error()
}

func (Errno) response() {}

// ErrnoName returns the short non-numeric identifier for this errno.
// For example, "EIO".
func (e Errno) ErrnoName() string {
	s := errnoNames[e]
	if s == "" {
		s = fmt.Sprint(uint64(e))
	}
	return s
}

func (e Errno) MarshalText() ([]byte, error) {
	s := e.ErrnoName()
	return []byte(s), nil
}

// ToErrno maps err to the errno sent to the kernel. Wrapped ErrorNumbers and
// unix.Errnos are honoured; anything else is DefaultErrno. A nil error maps
// to zero.
func ToErrno(err error) Errno {
	if err == nil {
		return 0
	}
	var en ErrorNumber
	if errors.As(err, &en) {
		return en.Errno()
	}
	var ue unix.Errno
	if errors.As(err, &ue) {
		return Errno(ue)
	}
	return DefaultErrno
}
