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

package fusetest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/kurafs/tracefs/pkg/fuse"
)

// A Call is one operation received by an EchoFS.
type Call struct {
	Ctx  context.Context
	Op   fuse.Op
	Req  *fuse.Request
	Args []interface{}
}

// EchoFS implements every operation by recording the call and replying with
// a payload computed from the arguments alone, so two EchoFS given the same
// calls give the same replies.
type EchoFS struct {
	// Hook, if set, runs on every call before the reply is written. It may
	// panic, block or start spans of its own.
	Hook func(ctx context.Context, op fuse.Op)

	mu    sync.Mutex
	calls []Call
	errs  map[fuse.Op]fuse.Errno
}

var _ fuse.FileSystem = (*EchoFS)(nil)

// Fail makes every later call to op answer errno.
func (e *EchoFS) Fail(op fuse.Op, errno fuse.Errno) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.errs == nil {
		e.errs = make(map[fuse.Op]fuse.Errno)
	}
	e.errs[op] = errno
}

// Calls returns the calls received so far.
func (e *EchoFS) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

type errorResponder interface {
	RespondError(error)
}

// call records the call, runs the hook and answers with the configured
// error, if any. It reports whether the reply has been written.
func (e *EchoFS) call(ctx context.Context, op fuse.Op, req *fuse.Request, reply errorResponder, args ...interface{}) bool {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Ctx: ctx, Op: op, Req: req, Args: args})
	errno, failed := e.errs[op]
	hook := e.Hook
	e.mu.Unlock()

	if hook != nil {
		hook(ctx, op)
	}
	if failed && reply != nil {
		reply.RespondError(errno)
		return true
	}
	return false
}

func entry(node fuse.NodeID, name string) fuse.Entry {
	return fuse.Entry{
		Node:       node,
		Generation: 1,
		Attr:       fuse.Attr{Inode: uint64(node), Size: uint64(len(name)), Mode: 0444, Nlink: 1},
	}
}

func echo(args ...interface{}) fuse.Data {
	return fuse.Data(fmt.Sprint(args...))
}

func (e *EchoFS) Init(ctx context.Context, req *fuse.Request, cfg *fuse.KernelConfig) error {
	e.call(ctx, fuse.OpInit, req, nil, cfg)
	e.mu.Lock()
	defer e.mu.Unlock()
	if errno, ok := e.errs[fuse.OpInit]; ok {
		return errno
	}
	return nil
}

func (e *EchoFS) Destroy(ctx context.Context) {
	e.call(ctx, fuse.OpDestroy, nil, nil)
}

func (e *EchoFS) Lookup(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, reply *fuse.EntryReply) {
	if e.call(ctx, fuse.OpLookup, req, reply, parent, name) {
		return
	}
	reply.Respond(entry(parent+1, name))
}

func (e *EchoFS) Forget(ctx context.Context, req *fuse.Request, ino fuse.NodeID, nlookup uint64) {
	e.call(ctx, fuse.OpForget, req, nil, ino, nlookup)
}

func (e *EchoFS) BatchForget(ctx context.Context, req *fuse.Request, nodes []fuse.ForgetOne) {
	e.call(ctx, fuse.OpBatchForget, req, nil, nodes)
}

func (e *EchoFS) Getattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh *fuse.HandleID, reply *fuse.AttrReply) {
	if e.call(ctx, fuse.OpGetattr, req, reply, ino, fh) {
		return
	}
	reply.Respond(fuse.AttrOut{Attr: entry(ino, "").Attr})
}

func (e *EchoFS) Setattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, in *fuse.SetattrIn, reply *fuse.AttrReply) {
	if e.call(ctx, fuse.OpSetattr, req, reply, ino, in) {
		return
	}
	attr := entry(ino, "").Attr
	if in != nil && in.Size != nil {
		attr.Size = *in.Size
	}
	reply.Respond(fuse.AttrOut{Attr: attr})
}

func (e *EchoFS) Readlink(ctx context.Context, req *fuse.Request, ino fuse.NodeID, reply *fuse.DataReply) {
	if e.call(ctx, fuse.OpReadlink, req, reply, ino) {
		return
	}
	reply.Respond(echo("link-", ino))
}

func (e *EchoFS) Mknod(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, mode, umask os.FileMode, rdev uint32, reply *fuse.EntryReply) {
	if e.call(ctx, fuse.OpMknod, req, reply, parent, name, mode, umask, rdev) {
		return
	}
	reply.Respond(entry(parent+2, name))
}

func (e *EchoFS) Mkdir(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, mode, umask os.FileMode, reply *fuse.EntryReply) {
	if e.call(ctx, fuse.OpMkdir, req, reply, parent, name, mode, umask) {
		return
	}
	reply.Respond(entry(parent+3, name))
}

func (e *EchoFS) Unlink(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpUnlink, req, reply, parent, name) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Rmdir(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpRmdir, req, reply, parent, name) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Symlink(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name, target string, reply *fuse.EntryReply) {
	if e.call(ctx, fuse.OpSymlink, req, reply, parent, name, target) {
		return
	}
	reply.Respond(entry(parent+4, target))
}

func (e *EchoFS) Rename(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, newParent fuse.NodeID, newName string, flags uint32, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpRename, req, reply, parent, name, newParent, newName, flags) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Link(ctx context.Context, req *fuse.Request, ino, newParent fuse.NodeID, newName string, reply *fuse.EntryReply) {
	if e.call(ctx, fuse.OpLink, req, reply, ino, newParent, newName) {
		return
	}
	reply.Respond(entry(ino, newName))
}

func (e *EchoFS) Open(ctx context.Context, req *fuse.Request, ino fuse.NodeID, flags uint32, reply *fuse.OpenReply) {
	if e.call(ctx, fuse.OpOpen, req, reply, ino, flags) {
		return
	}
	reply.Respond(fuse.Opened{Handle: fuse.HandleID(ino) * 10})
}

func (e *EchoFS) Read(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, size uint32, flags uint32, lockOwner uint64, reply *fuse.DataReply) {
	if e.call(ctx, fuse.OpRead, req, reply, ino, fh, offset, size, flags, lockOwner) {
		return
	}
	reply.Respond(echo(ino, ":", fh, ":", offset, ":", size))
}

func (e *EchoFS) Write(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, data []byte, writeFlags, flags uint32, lockOwner uint64, reply *fuse.WriteReply) {
	if e.call(ctx, fuse.OpWrite, req, reply, ino, fh, offset, data, writeFlags, flags, lockOwner) {
		return
	}
	reply.Respond(fuse.Written{Size: uint32(len(data))})
}

func (e *EchoFS) Flush(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, lockOwner uint64, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpFlush, req, reply, ino, fh, lockOwner) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Release(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, flags uint32, lockOwner uint64, flush bool, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpRelease, req, reply, ino, fh, flags, lockOwner, flush) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Fsync(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, datasync bool, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpFsync, req, reply, ino, fh, datasync) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Opendir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, flags uint32, reply *fuse.OpenReply) {
	if e.call(ctx, fuse.OpOpendir, req, reply, ino, flags) {
		return
	}
	reply.Respond(fuse.Opened{Handle: fuse.HandleID(ino)*10 + 1})
}

func (e *EchoFS) Readdir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, reply *fuse.DirectoryReply) {
	if e.call(ctx, fuse.OpReaddir, req, reply, ino, fh, offset) {
		return
	}
	reply.Respond(fuse.Directory{Entries: []fuse.Dirent{
		{Inode: uint64(ino), Offset: uint64(offset) + 1, Type: fuse.DT_Dir, Name: "."},
	}})
}

func (e *EchoFS) Readdirplus(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, reply *fuse.DirectoryPlusReply) {
	if e.call(ctx, fuse.OpReaddirplus, req, reply, ino, fh, offset) {
		return
	}
	reply.Respond(fuse.DirectoryPlus{Entries: []fuse.DirentPlus{{
		Dirent: fuse.Dirent{Inode: uint64(ino), Offset: uint64(offset) + 1, Type: fuse.DT_Dir, Name: "."},
		Entry:  entry(ino, "."),
	}}})
}

func (e *EchoFS) Releasedir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, flags uint32, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpReleasedir, req, reply, ino, fh, flags) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Fsyncdir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, datasync bool, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpFsyncdir, req, reply, ino, fh, datasync) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Statfs(ctx context.Context, req *fuse.Request, ino fuse.NodeID, reply *fuse.StatfsReply) {
	if e.call(ctx, fuse.OpStatfs, req, reply, ino) {
		return
	}
	reply.Respond(fuse.Statfs{Blocks: uint64(ino), Bsize: 4096, Namelen: 255})
}

func (e *EchoFS) Setxattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, name string, value []byte, flags, position uint32, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpSetxattr, req, reply, ino, name, value, flags, position) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Getxattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, name string, size uint32, reply *fuse.XattrReply) {
	if e.call(ctx, fuse.OpGetxattr, req, reply, ino, name, size) {
		return
	}
	value := []byte(name)
	if size == 0 {
		reply.Respond(fuse.Xattr{Size: uint32(len(value))})
		return
	}
	reply.Respond(fuse.Xattr{Data: value})
}

func (e *EchoFS) Listxattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, size uint32, reply *fuse.XattrReply) {
	if e.call(ctx, fuse.OpListxattr, req, reply, ino, size) {
		return
	}
	reply.Respond(fuse.Xattr{Size: size})
}

func (e *EchoFS) Removexattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, name string, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpRemovexattr, req, reply, ino, name) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Access(ctx context.Context, req *fuse.Request, ino fuse.NodeID, mask uint32, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpAccess, req, reply, ino, mask) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Create(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, mode, umask os.FileMode, flags uint32, reply *fuse.CreateReply) {
	if e.call(ctx, fuse.OpCreate, req, reply, parent, name, mode, umask, flags) {
		return
	}
	reply.Respond(fuse.Created{Entry: entry(parent+5, name), Opened: fuse.Opened{Handle: fuse.HandleID(parent) + 5}})
}

func (e *EchoFS) Getlk(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, lockOwner uint64, lk fuse.FileLock, reply *fuse.LockReply) {
	if e.call(ctx, fuse.OpGetlk, req, reply, ino, fh, lockOwner, lk) {
		return
	}
	reply.Respond(fuse.Lock(lk))
}

func (e *EchoFS) Setlk(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, lockOwner uint64, lk fuse.FileLock, sleep bool, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpSetlk, req, reply, ino, fh, lockOwner, lk, sleep) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Bmap(ctx context.Context, req *fuse.Request, ino fuse.NodeID, blocksize uint32, idx uint64, reply *fuse.BmapReply) {
	if e.call(ctx, fuse.OpBmap, req, reply, ino, blocksize, idx) {
		return
	}
	reply.Respond(fuse.Bmap{Block: idx * uint64(blocksize)})
}

func (e *EchoFS) Ioctl(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, flags, cmd uint32, in []byte, outSize uint32, reply *fuse.IoctlReply) {
	if e.call(ctx, fuse.OpIoctl, req, reply, ino, fh, flags, cmd, in, outSize) {
		return
	}
	reply.Respond(fuse.Ioctl{Result: int32(cmd), Data: echo(in)})
}

func (e *EchoFS) Poll(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, kh uint64, events, flags uint32, reply *fuse.PollReply) {
	if e.call(ctx, fuse.OpPoll, req, reply, ino, fh, kh, events, flags) {
		return
	}
	reply.Respond(fuse.Poll{Revents: events})
}

func (e *EchoFS) Fallocate(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset, length int64, mode uint32, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpFallocate, req, reply, ino, fh, offset, length, mode) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Lseek(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, whence int, reply *fuse.LseekReply) {
	if e.call(ctx, fuse.OpLseek, req, reply, ino, fh, offset, whence) {
		return
	}
	reply.Respond(fuse.Lseek{Offset: offset + int64(whence)})
}

func (e *EchoFS) CopyFileRange(ctx context.Context, req *fuse.Request, inoIn fuse.NodeID, fhIn fuse.HandleID, offsetIn int64, inoOut fuse.NodeID, fhOut fuse.HandleID, offsetOut int64, length uint64, flags uint32, reply *fuse.WriteReply) {
	if e.call(ctx, fuse.OpCopyFileRange, req, reply, inoIn, fhIn, offsetIn, inoOut, fhOut, offsetOut, length, flags) {
		return
	}
	reply.Respond(fuse.Written{Size: uint32(length)})
}

func (e *EchoFS) Setvolname(ctx context.Context, req *fuse.Request, name string, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpSetvolname, req, reply, name) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Exchange(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, newParent fuse.NodeID, newName string, options uint64, reply *fuse.EmptyReply) {
	if e.call(ctx, fuse.OpExchange, req, reply, parent, name, newParent, newName, options) {
		return
	}
	reply.Respond(fuse.Empty{})
}

func (e *EchoFS) Getxtimes(ctx context.Context, req *fuse.Request, ino fuse.NodeID, reply *fuse.XTimesReply) {
	if e.call(ctx, fuse.OpGetxtimes, req, reply, ino) {
		return
	}
	reply.Respond(fuse.XTimes{})
}
