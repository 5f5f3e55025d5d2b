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

package fusetrace_test

import (
	"context"
	"os"

	"github.com/kurafs/tracefs/pkg/fuse"
	"github.com/kurafs/tracefs/pkg/fuse/fusetest"
)

// An invocation calls one verb on fs with fixed arguments, answering into
// rec, and returns the request it used.
type invocation func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request

func call[T fuse.Response](rec *fusetest.Recorder, fn func(req *fuse.Request, reply *fuse.Reply[T])) *fuse.Request {
	req := rec.NewRequest()
	fn(req, fusetest.NewReply[T](rec, req))
	return req
}

// invocations returns an invocation for every verb.
func invocations() map[fuse.Op]invocation {
	fh := fuse.HandleID(7)
	size := uint64(99)
	mode := os.FileMode(0640)
	setattr := &fuse.SetattrIn{Size: &size, Mode: &mode, Atime: &fuse.TimeOrNow{Now: true}}
	lk := fuse.FileLock{Start: 1, End: 9, Type: 1, Pid: 77}

	return map[fuse.Op]invocation{
		fuse.OpInit: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			req := rec.NewRequest()
			_ = fs.Init(ctx, req, fuse.NewKernelConfig(fuse.Protocol{Major: 7, Minor: 12}, fuse.InitAsyncRead, 0))
			return req
		},
		fuse.OpDestroy: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			fs.Destroy(ctx)
			return rec.NewRequest()
		},
		fuse.OpLookup: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EntryReply) { fs.Lookup(ctx, req, 1, "README", reply) })
		},
		fuse.OpForget: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			req := rec.NewRequest()
			fs.Forget(ctx, req, 42, 3)
			return req
		},
		fuse.OpBatchForget: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			req := rec.NewRequest()
			fs.BatchForget(ctx, req, []fuse.ForgetOne{{Node: 42, Nlookup: 1}, {Node: 43, Nlookup: 2}})
			return req
		},
		fuse.OpGetattr: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.AttrReply) { fs.Getattr(ctx, req, 42, &fh, reply) })
		},
		fuse.OpSetattr: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.AttrReply) { fs.Setattr(ctx, req, 42, setattr, reply) })
		},
		fuse.OpReadlink: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.DataReply) { fs.Readlink(ctx, req, 42, reply) })
		},
		fuse.OpMknod: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EntryReply) {
				fs.Mknod(ctx, req, 1, "fifo", os.ModeNamedPipe|0600, 022, 0, reply)
			})
		},
		fuse.OpMkdir: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EntryReply) { fs.Mkdir(ctx, req, 1, "dir", 0755, 022, reply) })
		},
		fuse.OpUnlink: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Unlink(ctx, req, 1, "file", reply) })
		},
		fuse.OpRmdir: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Rmdir(ctx, req, 1, "dir", reply) })
		},
		fuse.OpSymlink: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EntryReply) { fs.Symlink(ctx, req, 1, "ln", "../target", reply) })
		},
		fuse.OpRename: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Rename(ctx, req, 1, "a", 2, "b", 0, reply) })
		},
		fuse.OpLink: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EntryReply) { fs.Link(ctx, req, 42, 2, "hard", reply) })
		},
		fuse.OpOpen: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.OpenReply) { fs.Open(ctx, req, 42, uint32(os.O_RDONLY), reply) })
		},
		fuse.OpRead: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.DataReply) { fs.Read(ctx, req, 42, fh, 0, 4096, 0, 0, reply) })
		},
		fuse.OpWrite: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.WriteReply) {
				fs.Write(ctx, req, 42, fh, 512, []byte("hello"), 0, uint32(os.O_WRONLY), 11, reply)
			})
		},
		fuse.OpFlush: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Flush(ctx, req, 42, fh, 11, reply) })
		},
		fuse.OpRelease: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Release(ctx, req, 42, fh, 0, 11, true, reply) })
		},
		fuse.OpFsync: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Fsync(ctx, req, 42, fh, true, reply) })
		},
		fuse.OpOpendir: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.OpenReply) { fs.Opendir(ctx, req, 1, 0, reply) })
		},
		fuse.OpReaddir: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.DirectoryReply) { fs.Readdir(ctx, req, 1, fh, 3, reply) })
		},
		fuse.OpReaddirplus: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.DirectoryPlusReply) { fs.Readdirplus(ctx, req, 1, fh, 3, reply) })
		},
		fuse.OpReleasedir: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Releasedir(ctx, req, 1, fh, 0, reply) })
		},
		fuse.OpFsyncdir: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Fsyncdir(ctx, req, 1, fh, false, reply) })
		},
		fuse.OpStatfs: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.StatfsReply) { fs.Statfs(ctx, req, 1, reply) })
		},
		fuse.OpSetxattr: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) {
				fs.Setxattr(ctx, req, 42, "user.k", []byte("v"), 0, 0, reply)
			})
		},
		fuse.OpGetxattr: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.XattrReply) { fs.Getxattr(ctx, req, 42, "user.k", 64, reply) })
		},
		fuse.OpListxattr: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.XattrReply) { fs.Listxattr(ctx, req, 42, 0, reply) })
		},
		fuse.OpRemovexattr: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Removexattr(ctx, req, 42, "user.k", reply) })
		},
		fuse.OpAccess: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Access(ctx, req, 42, 4, reply) })
		},
		fuse.OpCreate: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.CreateReply) {
				fs.Create(ctx, req, 1, "new", 0644, 022, uint32(os.O_RDWR|os.O_CREATE), reply)
			})
		},
		fuse.OpGetlk: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.LockReply) { fs.Getlk(ctx, req, 42, fh, 11, lk, reply) })
		},
		fuse.OpSetlk: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Setlk(ctx, req, 42, fh, 11, lk, true, reply) })
		},
		fuse.OpBmap: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.BmapReply) { fs.Bmap(ctx, req, 42, 512, 3, reply) })
		},
		fuse.OpIoctl: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.IoctlReply) {
				fs.Ioctl(ctx, req, 42, fh, 0, 0x5401, []byte{1, 2}, 16, reply)
			})
		},
		fuse.OpPoll: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.PollReply) { fs.Poll(ctx, req, 42, fh, 5, 1, 0, reply) })
		},
		fuse.OpFallocate: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Fallocate(ctx, req, 42, fh, 0, 1<<20, 0, reply) })
		},
		fuse.OpLseek: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.LseekReply) { fs.Lseek(ctx, req, 42, fh, 100, 3, reply) })
		},
		fuse.OpCopyFileRange: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.WriteReply) {
				fs.CopyFileRange(ctx, req, 42, fh, 0, 43, fh+1, 10, 4096, 0, reply)
			})
		},
		fuse.OpSetvolname: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Setvolname(ctx, req, "vol", reply) })
		},
		fuse.OpExchange: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.EmptyReply) { fs.Exchange(ctx, req, 1, "a", 2, "b", 0, reply) })
		},
		fuse.OpGetxtimes: func(ctx context.Context, fs fuse.FileSystem, rec *fusetest.Recorder) *fuse.Request {
			return call(rec, func(req *fuse.Request, reply *fuse.XTimesReply) { fs.Getxtimes(ctx, req, 42, reply) })
		},
	}
}
