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
	"sync/atomic"
	"time"
)

// A Response is the payload carried by a reply: one of the success payloads
// below, or an Errno.
type Response interface {
	response()
}

// A Sender transmits replies. Reply guarantees Send is called at most once
// per Reply.
type Sender interface {
	Send(id RequestID, resp Response)
}

// A Monitor is told about writes to an already answered Reply. Senders may
// implement it.
type Monitor interface {
	DoubleReply(id RequestID, resp Response)
}

// A Reply is the write-once reply channel handed to every operation. Exactly
// one of Respond or RespondError must be called, once.
type Reply[T Response] struct {
	id     RequestID
	sender Sender
	done   atomic.Bool
}

// NewReply returns a Reply for request id that sends through s.
func NewReply[T Response](id RequestID, s Sender) *Reply[T] {
	return &Reply[T]{id: id, sender: s}
}

// ID returns the request the reply answers.
func (r *Reply[T]) ID() RequestID {
	return r.id
}

// Respond answers the request with a success payload.
func (r *Reply[T]) Respond(resp T) {
	r.send(resp)
}

// RespondError answers the request with an error. See ToErrno for how err
// maps to the errno sent; a nil err is sent as DefaultErrno.
func (r *Reply[T]) RespondError(err error) {
	errno := ToErrno(err)
	if errno == 0 {
		errno = DefaultErrno
	}
	r.send(errno)
}

// Replied reports whether the reply has been written.
func (r *Reply[T]) Replied() bool {
	return r.done.Load()
}

func (r *Reply[T]) send(resp Response) {
	if !r.done.CompareAndSwap(false, true) {
		Debug(bugDoubleReply{ID: r.id, Response: resp})
		if m, ok := r.sender.(Monitor); ok {
			m.DoubleReply(r.id, resp)
		}
		return
	}
	r.sender.Send(r.id, resp)
}

type (
	EntryReply         = Reply[Entry]
	AttrReply          = Reply[AttrOut]
	DataReply          = Reply[Data]
	EmptyReply         = Reply[Empty]
	OpenReply          = Reply[Opened]
	WriteReply         = Reply[Written]
	StatfsReply        = Reply[Statfs]
	CreateReply        = Reply[Created]
	LockReply          = Reply[Lock]
	BmapReply          = Reply[Bmap]
	IoctlReply         = Reply[Ioctl]
	PollReply          = Reply[Poll]
	LseekReply         = Reply[Lseek]
	XattrReply         = Reply[Xattr]
	DirectoryReply     = Reply[Directory]
	DirectoryPlusReply = Reply[DirectoryPlus]
	XTimesReply        = Reply[XTimes]
)

// An Entry is the reply to lookup, mknod, mkdir, symlink and link.
type Entry struct {
	Node       NodeID
	Generation uint64
	EntryValid time.Duration // how long the name lookup can be cached
	Attr       Attr
}

func (e Entry) String() string {
	return fmt.Sprintf("node=%v gen=%d entry_valid=%v attr={%v}", e.Node, e.Generation, e.EntryValid, e.Attr)
}

// An AttrOut is the reply to getattr and setattr.
type AttrOut struct {
	Attr Attr
}

// Data is the reply to read and readlink.
type Data []byte

// Empty is the reply to operations that only succeed or fail.
type Empty struct{}

// OpenResponseFlags are the FOPEN_* flags of an open reply.
type OpenResponseFlags uint32

const (
	OpenDirectIO    OpenResponseFlags = 1 << 0 // bypass page cache for this open file
	OpenKeepCache   OpenResponseFlags = 1 << 1 // don't invalidate the data cache on open
	OpenNonSeekable OpenResponseFlags = 1 << 2 // mark the file as non-seekable
)

// Opened is the reply to open and opendir.
type Opened struct {
	Handle HandleID
	Flags  OpenResponseFlags
}

// Written is the reply to write and copy_file_range.
type Written struct {
	Size uint32
}

// Statfs is the reply to statfs.
type Statfs struct {
	Blocks  uint64 // Total data blocks in file system.
	Bfree   uint64 // Free blocks in file system.
	Bavail  uint64 // Free blocks in file system if you're not root.
	Files   uint64 // Total files in file system.
	Ffree   uint64 // Free files in file system.
	Bsize   uint32 // Block size
	Namelen uint32 // Maximum file name length?
	Frsize  uint32 // Fragment size, smallest addressable data size in the file system.
}

// Created is the reply to create.
type Created struct {
	Entry  Entry
	Opened Opened
}

// A Lock is the reply to getlk.
type Lock struct {
	Start uint64
	End   uint64
	Type  uint32
	Pid   uint32
}

// Bmap is the reply to bmap.
type Bmap struct {
	Block uint64
}

// Ioctl is the reply to ioctl.
type Ioctl struct {
	Result int32
	Data   []byte
}

// Poll is the reply to poll.
type Poll struct {
	Revents uint32
}

// Lseek is the reply to lseek.
type Lseek struct {
	Offset int64
}

// Xattr is the reply to getxattr and listxattr. When the request's size is
// zero only Size is meaningful; otherwise Data holds the value (or the
// NUL-separated names).
type Xattr struct {
	Size uint32
	Data []byte
}

// Directory is the reply to readdir. Entries start at the requested offset;
// each carries the cookie of the entry following it.
type Directory struct {
	Entries []Dirent
}

// DirectoryPlus is the reply to readdirplus.
type DirectoryPlus struct {
	Entries []DirentPlus
}

// XTimes is the reply to getxtimes.
type XTimes struct {
	Bkuptime time.Time
	Crtime   time.Time
}

func (Entry) response()         {}
func (AttrOut) response()       {}
func (Data) response()          {}
func (Empty) response()         {}
func (Opened) response()        {}
func (Written) response()       {}
func (Statfs) response()        {}
func (Created) response()       {}
func (Lock) response()          {}
func (Bmap) response()          {}
func (Ioctl) response()         {}
func (Poll) response()          {}
func (Lseek) response()         {}
func (Xattr) response()         {}
func (Directory) response()     {}
func (DirectoryPlus) response() {}
func (XTimes) response()        {}
