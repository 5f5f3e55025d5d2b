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
	"context"
	"os"
	"time"
)

// FileSystem is the operation protocol. Every reply-bearing method must write
// its reply exactly once; forget, batch_forget and destroy have no reply.
//
// Multiple goroutines may call methods simultaneously; implementations are
// responsible for appropriate synchronization. Methods must not hold on to
// req, nor to []byte arguments, past the reply.
type FileSystem interface {
	// Init is called once, before any other operation. The file system may
	// adjust cfg; see KernelConfig. A non-nil error aborts the mount.
	Init(ctx context.Context, req *Request, cfg *KernelConfig) error

	// Destroy is called once, when the file system is unmounted.
	Destroy(ctx context.Context)

	Lookup(ctx context.Context, req *Request, parent NodeID, name string, reply *EntryReply)

	// Forget drops nlookup references to ino accumulated by entry replies.
	Forget(ctx context.Context, req *Request, ino NodeID, nlookup uint64)
	BatchForget(ctx context.Context, req *Request, nodes []ForgetOne)

	// Getattr may be about an open file, in which case fh is non-nil.
	Getattr(ctx context.Context, req *Request, ino NodeID, fh *HandleID, reply *AttrReply)
	Setattr(ctx context.Context, req *Request, ino NodeID, in *SetattrIn, reply *AttrReply)
	Readlink(ctx context.Context, req *Request, ino NodeID, reply *DataReply)
	Mknod(ctx context.Context, req *Request, parent NodeID, name string, mode, umask os.FileMode, rdev uint32, reply *EntryReply)
	Mkdir(ctx context.Context, req *Request, parent NodeID, name string, mode, umask os.FileMode, reply *EntryReply)
	Unlink(ctx context.Context, req *Request, parent NodeID, name string, reply *EmptyReply)
	Rmdir(ctx context.Context, req *Request, parent NodeID, name string, reply *EmptyReply)
	Symlink(ctx context.Context, req *Request, parent NodeID, name, target string, reply *EntryReply)
	Rename(ctx context.Context, req *Request, parent NodeID, name string, newParent NodeID, newName string, flags uint32, reply *EmptyReply)
	Link(ctx context.Context, req *Request, ino, newParent NodeID, newName string, reply *EntryReply)

	// Open flags are the open(2) flags, O_CREAT, O_EXCL and O_NOCTTY aside.
	Open(ctx context.Context, req *Request, ino NodeID, flags uint32, reply *OpenReply)
	Read(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset int64, size uint32, flags uint32, lockOwner uint64, reply *DataReply)
	Write(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset int64, data []byte, writeFlags, flags uint32, lockOwner uint64, reply *WriteReply)
	Flush(ctx context.Context, req *Request, ino NodeID, fh HandleID, lockOwner uint64, reply *EmptyReply)
	Release(ctx context.Context, req *Request, ino NodeID, fh HandleID, flags uint32, lockOwner uint64, flush bool, reply *EmptyReply)
	Fsync(ctx context.Context, req *Request, ino NodeID, fh HandleID, datasync bool, reply *EmptyReply)

	Opendir(ctx context.Context, req *Request, ino NodeID, flags uint32, reply *OpenReply)

	// Readdir replies with entries starting at offset, a cookie previously
	// handed out in Dirent.Offset (zero for the start of the directory).
	Readdir(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset int64, reply *DirectoryReply)
	Readdirplus(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset int64, reply *DirectoryPlusReply)
	Releasedir(ctx context.Context, req *Request, ino NodeID, fh HandleID, flags uint32, reply *EmptyReply)
	Fsyncdir(ctx context.Context, req *Request, ino NodeID, fh HandleID, datasync bool, reply *EmptyReply)
	Statfs(ctx context.Context, req *Request, ino NodeID, reply *StatfsReply)

	Setxattr(ctx context.Context, req *Request, ino NodeID, name string, value []byte, flags, position uint32, reply *EmptyReply)

	// Getxattr and Listxattr with a zero size ask only for the size of the
	// value; a value that doesn't fit in size is ERANGE.
	Getxattr(ctx context.Context, req *Request, ino NodeID, name string, size uint32, reply *XattrReply)
	Listxattr(ctx context.Context, req *Request, ino NodeID, size uint32, reply *XattrReply)
	Removexattr(ctx context.Context, req *Request, ino NodeID, name string, reply *EmptyReply)

	Access(ctx context.Context, req *Request, ino NodeID, mask uint32, reply *EmptyReply)
	Create(ctx context.Context, req *Request, parent NodeID, name string, mode, umask os.FileMode, flags uint32, reply *CreateReply)
	Getlk(ctx context.Context, req *Request, ino NodeID, fh HandleID, lockOwner uint64, lk FileLock, reply *LockReply)
	Setlk(ctx context.Context, req *Request, ino NodeID, fh HandleID, lockOwner uint64, lk FileLock, sleep bool, reply *EmptyReply)
	Bmap(ctx context.Context, req *Request, ino NodeID, blocksize uint32, idx uint64, reply *BmapReply)
	Ioctl(ctx context.Context, req *Request, ino NodeID, fh HandleID, flags, cmd uint32, in []byte, outSize uint32, reply *IoctlReply)
	Poll(ctx context.Context, req *Request, ino NodeID, fh HandleID, kh uint64, events, flags uint32, reply *PollReply)
	Fallocate(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset, length int64, mode uint32, reply *EmptyReply)
	Lseek(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset int64, whence int, reply *LseekReply)
	CopyFileRange(ctx context.Context, req *Request, inoIn NodeID, fhIn HandleID, offsetIn int64, inoOut NodeID, fhOut HandleID, offsetOut int64, length uint64, flags uint32, reply *WriteReply)

	// Host-conditional, only called once enabled through KernelConfig.
	Setvolname(ctx context.Context, req *Request, name string, reply *EmptyReply)
	Exchange(ctx context.Context, req *Request, parent NodeID, name string, newParent NodeID, newName string, options uint64, reply *EmptyReply)
	Getxtimes(ctx context.Context, req *Request, ino NodeID, reply *XTimesReply)
}

// A ForgetOne is one node of a batch_forget.
type ForgetOne struct {
	Node    NodeID
	Nlookup uint64
}

// TimeOrNow is a setattr timestamp; Now asks for the current time.
type TimeOrNow struct {
	Time time.Time
	Now  bool
}

// SetattrIn holds the attributes a setattr changes. Nil fields are left
// alone.
type SetattrIn struct {
	Mode     *os.FileMode
	Uid      *uint32
	Gid      *uint32
	Size     *uint64
	Atime    *TimeOrNow
	Mtime    *TimeOrNow
	Ctime    *time.Time
	Handle   *HandleID
	Crtime   *time.Time
	Chgtime  *time.Time
	Bkuptime *time.Time
	Flags    *uint32
}

// A FileLock describes a POSIX record lock.
type FileLock struct {
	Start uint64
	End   uint64
	Type  uint32
	Pid   uint32
}

// NotImplemented answers ENOSYS to every operation with a reply, and ignores
// the rest. Embed it to implement only part of FileSystem.
type NotImplemented struct{}

var _ FileSystem = NotImplemented{}

func (NotImplemented) Init(ctx context.Context, req *Request, cfg *KernelConfig) error {
	return nil
}

func (NotImplemented) Destroy(ctx context.Context) {}

func (NotImplemented) Lookup(ctx context.Context, req *Request, parent NodeID, name string, reply *EntryReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Forget(ctx context.Context, req *Request, ino NodeID, nlookup uint64) {}

func (NotImplemented) BatchForget(ctx context.Context, req *Request, nodes []ForgetOne) {}

func (NotImplemented) Getattr(ctx context.Context, req *Request, ino NodeID, fh *HandleID, reply *AttrReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Setattr(ctx context.Context, req *Request, ino NodeID, in *SetattrIn, reply *AttrReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Readlink(ctx context.Context, req *Request, ino NodeID, reply *DataReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Mknod(ctx context.Context, req *Request, parent NodeID, name string, mode, umask os.FileMode, rdev uint32, reply *EntryReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Mkdir(ctx context.Context, req *Request, parent NodeID, name string, mode, umask os.FileMode, reply *EntryReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Unlink(ctx context.Context, req *Request, parent NodeID, name string, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Rmdir(ctx context.Context, req *Request, parent NodeID, name string, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Symlink(ctx context.Context, req *Request, parent NodeID, name, target string, reply *EntryReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Rename(ctx context.Context, req *Request, parent NodeID, name string, newParent NodeID, newName string, flags uint32, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Link(ctx context.Context, req *Request, ino, newParent NodeID, newName string, reply *EntryReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Open(ctx context.Context, req *Request, ino NodeID, flags uint32, reply *OpenReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Read(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset int64, size uint32, flags uint32, lockOwner uint64, reply *DataReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Write(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset int64, data []byte, writeFlags, flags uint32, lockOwner uint64, reply *WriteReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Flush(ctx context.Context, req *Request, ino NodeID, fh HandleID, lockOwner uint64, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Release(ctx context.Context, req *Request, ino NodeID, fh HandleID, flags uint32, lockOwner uint64, flush bool, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Fsync(ctx context.Context, req *Request, ino NodeID, fh HandleID, datasync bool, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Opendir(ctx context.Context, req *Request, ino NodeID, flags uint32, reply *OpenReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Readdir(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset int64, reply *DirectoryReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Readdirplus(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset int64, reply *DirectoryPlusReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Releasedir(ctx context.Context, req *Request, ino NodeID, fh HandleID, flags uint32, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Fsyncdir(ctx context.Context, req *Request, ino NodeID, fh HandleID, datasync bool, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Statfs(ctx context.Context, req *Request, ino NodeID, reply *StatfsReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Setxattr(ctx context.Context, req *Request, ino NodeID, name string, value []byte, flags, position uint32, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Getxattr(ctx context.Context, req *Request, ino NodeID, name string, size uint32, reply *XattrReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Listxattr(ctx context.Context, req *Request, ino NodeID, size uint32, reply *XattrReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Removexattr(ctx context.Context, req *Request, ino NodeID, name string, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Access(ctx context.Context, req *Request, ino NodeID, mask uint32, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Create(ctx context.Context, req *Request, parent NodeID, name string, mode, umask os.FileMode, flags uint32, reply *CreateReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Getlk(ctx context.Context, req *Request, ino NodeID, fh HandleID, lockOwner uint64, lk FileLock, reply *LockReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Setlk(ctx context.Context, req *Request, ino NodeID, fh HandleID, lockOwner uint64, lk FileLock, sleep bool, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Bmap(ctx context.Context, req *Request, ino NodeID, blocksize uint32, idx uint64, reply *BmapReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Ioctl(ctx context.Context, req *Request, ino NodeID, fh HandleID, flags, cmd uint32, in []byte, outSize uint32, reply *IoctlReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Poll(ctx context.Context, req *Request, ino NodeID, fh HandleID, kh uint64, events, flags uint32, reply *PollReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Fallocate(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset, length int64, mode uint32, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Lseek(ctx context.Context, req *Request, ino NodeID, fh HandleID, offset int64, whence int, reply *LseekReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) CopyFileRange(ctx context.Context, req *Request, inoIn NodeID, fhIn HandleID, offsetIn int64, inoOut NodeID, fhOut HandleID, offsetOut int64, length uint64, flags uint32, reply *WriteReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Setvolname(ctx context.Context, req *Request, name string, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Exchange(ctx context.Context, req *Request, parent NodeID, name string, newParent NodeID, newName string, options uint64, reply *EmptyReply) {
	reply.RespondError(ENOSYS)
}

func (NotImplemented) Getxtimes(ctx context.Context, req *Request, ino NodeID, reply *XTimesReply) {
	reply.RespondError(ENOSYS)
}
