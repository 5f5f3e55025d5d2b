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

package fusetrace

import (
	"context"
	"os"

	"github.com/kurafs/tracefs/pkg/fuse"
)

// One method per verb, each a single call through trace.

func (d *Dispatcher) Init(ctx context.Context, req *fuse.Request, cfg *fuse.KernelConfig) (err error) {
	d.trace(ctx, fuse.OpInit, func(ctx context.Context) {
		err = d.fs.Init(ctx, req, cfg)
	})
	return err
}

func (d *Dispatcher) Destroy(ctx context.Context) {
	d.trace(ctx, fuse.OpDestroy, func(ctx context.Context) {
		d.fs.Destroy(ctx)
	})
}

func (d *Dispatcher) Lookup(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, reply *fuse.EntryReply) {
	d.trace(ctx, fuse.OpLookup, func(ctx context.Context) {
		d.fs.Lookup(ctx, req, parent, name, reply)
	})
}

func (d *Dispatcher) Forget(ctx context.Context, req *fuse.Request, ino fuse.NodeID, nlookup uint64) {
	d.trace(ctx, fuse.OpForget, func(ctx context.Context) {
		d.fs.Forget(ctx, req, ino, nlookup)
	})
}

func (d *Dispatcher) BatchForget(ctx context.Context, req *fuse.Request, nodes []fuse.ForgetOne) {
	d.trace(ctx, fuse.OpBatchForget, func(ctx context.Context) {
		d.fs.BatchForget(ctx, req, nodes)
	})
}

func (d *Dispatcher) Getattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh *fuse.HandleID, reply *fuse.AttrReply) {
	d.trace(ctx, fuse.OpGetattr, func(ctx context.Context) {
		d.fs.Getattr(ctx, req, ino, fh, reply)
	})
}

func (d *Dispatcher) Setattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, in *fuse.SetattrIn, reply *fuse.AttrReply) {
	d.trace(ctx, fuse.OpSetattr, func(ctx context.Context) {
		d.fs.Setattr(ctx, req, ino, in, reply)
	})
}

func (d *Dispatcher) Readlink(ctx context.Context, req *fuse.Request, ino fuse.NodeID, reply *fuse.DataReply) {
	d.trace(ctx, fuse.OpReadlink, func(ctx context.Context) {
		d.fs.Readlink(ctx, req, ino, reply)
	})
}

func (d *Dispatcher) Mknod(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, mode, umask os.FileMode, rdev uint32, reply *fuse.EntryReply) {
	d.trace(ctx, fuse.OpMknod, func(ctx context.Context) {
		d.fs.Mknod(ctx, req, parent, name, mode, umask, rdev, reply)
	})
}

func (d *Dispatcher) Mkdir(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, mode, umask os.FileMode, reply *fuse.EntryReply) {
	d.trace(ctx, fuse.OpMkdir, func(ctx context.Context) {
		d.fs.Mkdir(ctx, req, parent, name, mode, umask, reply)
	})
}

func (d *Dispatcher) Unlink(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpUnlink, func(ctx context.Context) {
		d.fs.Unlink(ctx, req, parent, name, reply)
	})
}

func (d *Dispatcher) Rmdir(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpRmdir, func(ctx context.Context) {
		d.fs.Rmdir(ctx, req, parent, name, reply)
	})
}

func (d *Dispatcher) Symlink(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name, target string, reply *fuse.EntryReply) {
	d.trace(ctx, fuse.OpSymlink, func(ctx context.Context) {
		d.fs.Symlink(ctx, req, parent, name, target, reply)
	})
}

func (d *Dispatcher) Rename(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, newParent fuse.NodeID, newName string, flags uint32, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpRename, func(ctx context.Context) {
		d.fs.Rename(ctx, req, parent, name, newParent, newName, flags, reply)
	})
}

func (d *Dispatcher) Link(ctx context.Context, req *fuse.Request, ino, newParent fuse.NodeID, newName string, reply *fuse.EntryReply) {
	d.trace(ctx, fuse.OpLink, func(ctx context.Context) {
		d.fs.Link(ctx, req, ino, newParent, newName, reply)
	})
}

func (d *Dispatcher) Open(ctx context.Context, req *fuse.Request, ino fuse.NodeID, flags uint32, reply *fuse.OpenReply) {
	d.trace(ctx, fuse.OpOpen, func(ctx context.Context) {
		d.fs.Open(ctx, req, ino, flags, reply)
	})
}

func (d *Dispatcher) Read(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, size uint32, flags uint32, lockOwner uint64, reply *fuse.DataReply) {
	d.trace(ctx, fuse.OpRead, func(ctx context.Context) {
		d.fs.Read(ctx, req, ino, fh, offset, size, flags, lockOwner, reply)
	})
}

func (d *Dispatcher) Write(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, data []byte, writeFlags, flags uint32, lockOwner uint64, reply *fuse.WriteReply) {
	d.trace(ctx, fuse.OpWrite, func(ctx context.Context) {
		d.fs.Write(ctx, req, ino, fh, offset, data, writeFlags, flags, lockOwner, reply)
	})
}

func (d *Dispatcher) Flush(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, lockOwner uint64, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpFlush, func(ctx context.Context) {
		d.fs.Flush(ctx, req, ino, fh, lockOwner, reply)
	})
}

func (d *Dispatcher) Release(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, flags uint32, lockOwner uint64, flush bool, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpRelease, func(ctx context.Context) {
		d.fs.Release(ctx, req, ino, fh, flags, lockOwner, flush, reply)
	})
}

func (d *Dispatcher) Fsync(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, datasync bool, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpFsync, func(ctx context.Context) {
		d.fs.Fsync(ctx, req, ino, fh, datasync, reply)
	})
}

func (d *Dispatcher) Opendir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, flags uint32, reply *fuse.OpenReply) {
	d.trace(ctx, fuse.OpOpendir, func(ctx context.Context) {
		d.fs.Opendir(ctx, req, ino, flags, reply)
	})
}

func (d *Dispatcher) Readdir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, reply *fuse.DirectoryReply) {
	d.trace(ctx, fuse.OpReaddir, func(ctx context.Context) {
		d.fs.Readdir(ctx, req, ino, fh, offset, reply)
	})
}

func (d *Dispatcher) Readdirplus(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, reply *fuse.DirectoryPlusReply) {
	d.trace(ctx, fuse.OpReaddirplus, func(ctx context.Context) {
		d.fs.Readdirplus(ctx, req, ino, fh, offset, reply)
	})
}

func (d *Dispatcher) Releasedir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, flags uint32, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpReleasedir, func(ctx context.Context) {
		d.fs.Releasedir(ctx, req, ino, fh, flags, reply)
	})
}

func (d *Dispatcher) Fsyncdir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, datasync bool, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpFsyncdir, func(ctx context.Context) {
		d.fs.Fsyncdir(ctx, req, ino, fh, datasync, reply)
	})
}

func (d *Dispatcher) Statfs(ctx context.Context, req *fuse.Request, ino fuse.NodeID, reply *fuse.StatfsReply) {
	d.trace(ctx, fuse.OpStatfs, func(ctx context.Context) {
		d.fs.Statfs(ctx, req, ino, reply)
	})
}

func (d *Dispatcher) Setxattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, name string, value []byte, flags, position uint32, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpSetxattr, func(ctx context.Context) {
		d.fs.Setxattr(ctx, req, ino, name, value, flags, position, reply)
	})
}

func (d *Dispatcher) Getxattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, name string, size uint32, reply *fuse.XattrReply) {
	d.trace(ctx, fuse.OpGetxattr, func(ctx context.Context) {
		d.fs.Getxattr(ctx, req, ino, name, size, reply)
	})
}

func (d *Dispatcher) Listxattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, size uint32, reply *fuse.XattrReply) {
	d.trace(ctx, fuse.OpListxattr, func(ctx context.Context) {
		d.fs.Listxattr(ctx, req, ino, size, reply)
	})
}

func (d *Dispatcher) Removexattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, name string, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpRemovexattr, func(ctx context.Context) {
		d.fs.Removexattr(ctx, req, ino, name, reply)
	})
}

func (d *Dispatcher) Access(ctx context.Context, req *fuse.Request, ino fuse.NodeID, mask uint32, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpAccess, func(ctx context.Context) {
		d.fs.Access(ctx, req, ino, mask, reply)
	})
}

func (d *Dispatcher) Create(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, mode, umask os.FileMode, flags uint32, reply *fuse.CreateReply) {
	d.trace(ctx, fuse.OpCreate, func(ctx context.Context) {
		d.fs.Create(ctx, req, parent, name, mode, umask, flags, reply)
	})
}

func (d *Dispatcher) Getlk(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, lockOwner uint64, lk fuse.FileLock, reply *fuse.LockReply) {
	d.trace(ctx, fuse.OpGetlk, func(ctx context.Context) {
		d.fs.Getlk(ctx, req, ino, fh, lockOwner, lk, reply)
	})
}

func (d *Dispatcher) Setlk(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, lockOwner uint64, lk fuse.FileLock, sleep bool, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpSetlk, func(ctx context.Context) {
		d.fs.Setlk(ctx, req, ino, fh, lockOwner, lk, sleep, reply)
	})
}

func (d *Dispatcher) Bmap(ctx context.Context, req *fuse.Request, ino fuse.NodeID, blocksize uint32, idx uint64, reply *fuse.BmapReply) {
	d.trace(ctx, fuse.OpBmap, func(ctx context.Context) {
		d.fs.Bmap(ctx, req, ino, blocksize, idx, reply)
	})
}

func (d *Dispatcher) Ioctl(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, flags, cmd uint32, in []byte, outSize uint32, reply *fuse.IoctlReply) {
	d.trace(ctx, fuse.OpIoctl, func(ctx context.Context) {
		d.fs.Ioctl(ctx, req, ino, fh, flags, cmd, in, outSize, reply)
	})
}

func (d *Dispatcher) Poll(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, kh uint64, events, flags uint32, reply *fuse.PollReply) {
	d.trace(ctx, fuse.OpPoll, func(ctx context.Context) {
		d.fs.Poll(ctx, req, ino, fh, kh, events, flags, reply)
	})
}

func (d *Dispatcher) Fallocate(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset, length int64, mode uint32, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpFallocate, func(ctx context.Context) {
		d.fs.Fallocate(ctx, req, ino, fh, offset, length, mode, reply)
	})
}

func (d *Dispatcher) Lseek(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, whence int, reply *fuse.LseekReply) {
	d.trace(ctx, fuse.OpLseek, func(ctx context.Context) {
		d.fs.Lseek(ctx, req, ino, fh, offset, whence, reply)
	})
}

func (d *Dispatcher) CopyFileRange(ctx context.Context, req *fuse.Request, inoIn fuse.NodeID, fhIn fuse.HandleID, offsetIn int64, inoOut fuse.NodeID, fhOut fuse.HandleID, offsetOut int64, length uint64, flags uint32, reply *fuse.WriteReply) {
	d.trace(ctx, fuse.OpCopyFileRange, func(ctx context.Context) {
		d.fs.CopyFileRange(ctx, req, inoIn, fhIn, offsetIn, inoOut, fhOut, offsetOut, length, flags, reply)
	})
}

func (d *Dispatcher) Setvolname(ctx context.Context, req *fuse.Request, name string, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpSetvolname, func(ctx context.Context) {
		d.fs.Setvolname(ctx, req, name, reply)
	})
}

func (d *Dispatcher) Exchange(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, newParent fuse.NodeID, newName string, options uint64, reply *fuse.EmptyReply) {
	d.trace(ctx, fuse.OpExchange, func(ctx context.Context) {
		d.fs.Exchange(ctx, req, parent, name, newParent, newName, options, reply)
	})
}

func (d *Dispatcher) Getxtimes(ctx context.Context, req *fuse.Request, ino fuse.NodeID, reply *fuse.XTimesReply) {
	d.trace(ctx, fuse.OpGetxtimes, func(ctx context.Context) {
		d.fs.Getxtimes(ctx, req, ino, reply)
	})
}
