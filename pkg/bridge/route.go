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

package bridge

import (
	"context"

	bazilfuse "bazil.org/fuse"

	"github.com/kurafs/tracefs/pkg/fuse"
)

// route decodes r into a call on the file system. Every request is answered
// through c, either by the file system or, for requests the file system does
// not answer (forget, destroy) or cannot be routed, by route itself.
func (s *Server) route(ctx context.Context, r bazilfuse.Request, c *call) {
	hdr := r.Hdr()
	req := &fuse.Request{ID: c.id, Uid: hdr.Uid, Gid: hdr.Gid, Pid: hdr.Pid}
	ino := fuse.NodeID(hdr.Node)

	switch r := r.(type) {
	case *bazilfuse.LookupRequest:
		s.fs.Lookup(ctx, req, ino, r.Name, newReply[fuse.Entry](c, fuse.OpLookup))

	case *bazilfuse.ForgetRequest:
		c.name = fuse.OpForget.String()
		s.fs.Forget(ctx, req, ino, r.N)
		c.Send(c.id, fuse.Empty{})

	case *bazilfuse.DestroyRequest:
		c.name = fuse.OpDestroy.String()
		s.destroy(ctx)
		c.Send(c.id, fuse.Empty{})

	case *bazilfuse.GetattrRequest:
		var fh *fuse.HandleID
		if r.Flags&bazilfuse.GetattrFh != 0 {
			h := fuse.HandleID(r.Handle)
			fh = &h
		}
		s.fs.Getattr(ctx, req, ino, fh, newReply[fuse.AttrOut](c, fuse.OpGetattr))

	case *bazilfuse.SetattrRequest:
		s.fs.Setattr(ctx, req, ino, setattrIn(r), newReply[fuse.AttrOut](c, fuse.OpSetattr))

	case *bazilfuse.ReadlinkRequest:
		s.fs.Readlink(ctx, req, ino, newReply[fuse.Data](c, fuse.OpReadlink))

	case *bazilfuse.MknodRequest:
		s.fs.Mknod(ctx, req, ino, r.Name, r.Mode, r.Umask, r.Rdev, newReply[fuse.Entry](c, fuse.OpMknod))

	case *bazilfuse.MkdirRequest:
		s.fs.Mkdir(ctx, req, ino, r.Name, r.Mode, r.Umask, newReply[fuse.Entry](c, fuse.OpMkdir))

	case *bazilfuse.RemoveRequest:
		if r.Dir {
			s.fs.Rmdir(ctx, req, ino, r.Name, newReply[fuse.Empty](c, fuse.OpRmdir))
		} else {
			s.fs.Unlink(ctx, req, ino, r.Name, newReply[fuse.Empty](c, fuse.OpUnlink))
		}

	case *bazilfuse.SymlinkRequest:
		s.fs.Symlink(ctx, req, ino, r.NewName, r.Target, newReply[fuse.Entry](c, fuse.OpSymlink))

	case *bazilfuse.RenameRequest:
		s.fs.Rename(ctx, req, ino, r.OldName, fuse.NodeID(r.NewDir), r.NewName, 0, newReply[fuse.Empty](c, fuse.OpRename))

	case *bazilfuse.LinkRequest:
		s.fs.Link(ctx, req, fuse.NodeID(r.OldNode), ino, r.NewName, newReply[fuse.Entry](c, fuse.OpLink))

	case *bazilfuse.OpenRequest:
		if r.Dir {
			s.fs.Opendir(ctx, req, ino, uint32(r.Flags), newReply[fuse.Opened](c, fuse.OpOpendir))
		} else {
			s.fs.Open(ctx, req, ino, uint32(r.Flags), newReply[fuse.Opened](c, fuse.OpOpen))
		}

	case *bazilfuse.ReadRequest:
		fh := fuse.HandleID(r.Handle)
		if r.Dir {
			s.fs.Readdir(ctx, req, ino, fh, r.Offset, newReply[fuse.Directory](c, fuse.OpReaddir))
		} else {
			s.fs.Read(ctx, req, ino, fh, r.Offset, uint32(r.Size), uint32(r.FileFlags), r.LockOwner, newReply[fuse.Data](c, fuse.OpRead))
		}

	case *bazilfuse.WriteRequest:
		s.fs.Write(ctx, req, ino, fuse.HandleID(r.Handle), r.Offset, r.Data, uint32(r.Flags), uint32(r.FileFlags), r.LockOwner,
			newReply[fuse.Written](c, fuse.OpWrite))

	case *bazilfuse.FlushRequest:
		s.fs.Flush(ctx, req, ino, fuse.HandleID(r.Handle), r.LockOwner, newReply[fuse.Empty](c, fuse.OpFlush))

	case *bazilfuse.ReleaseRequest:
		fh := fuse.HandleID(r.Handle)
		if r.Dir {
			s.fs.Releasedir(ctx, req, ino, fh, uint32(r.Flags), newReply[fuse.Empty](c, fuse.OpReleasedir))
		} else {
			flush := r.ReleaseFlags&bazilfuse.ReleaseFlush != 0
			s.fs.Release(ctx, req, ino, fh, uint32(r.Flags), uint64(r.LockOwner), flush, newReply[fuse.Empty](c, fuse.OpRelease))
		}

	case *bazilfuse.FsyncRequest:
		fh := fuse.HandleID(r.Handle)
		// FUSE_FSYNC_FDATASYNC
		datasync := r.Flags&1 != 0
		if r.Dir {
			s.fs.Fsyncdir(ctx, req, ino, fh, datasync, newReply[fuse.Empty](c, fuse.OpFsyncdir))
		} else {
			s.fs.Fsync(ctx, req, ino, fh, datasync, newReply[fuse.Empty](c, fuse.OpFsync))
		}

	case *bazilfuse.StatfsRequest:
		s.fs.Statfs(ctx, req, ino, newReply[fuse.Statfs](c, fuse.OpStatfs))

	case *bazilfuse.SetxattrRequest:
		s.fs.Setxattr(ctx, req, ino, r.Name, r.Xattr, r.Flags, r.Position, newReply[fuse.Empty](c, fuse.OpSetxattr))

	case *bazilfuse.GetxattrRequest:
		s.fs.Getxattr(ctx, req, ino, r.Name, r.Size, newReply[fuse.Xattr](c, fuse.OpGetxattr))

	case *bazilfuse.ListxattrRequest:
		s.fs.Listxattr(ctx, req, ino, r.Size, newReply[fuse.Xattr](c, fuse.OpListxattr))

	case *bazilfuse.RemovexattrRequest:
		s.fs.Removexattr(ctx, req, ino, r.Name, newReply[fuse.Empty](c, fuse.OpRemovexattr))

	case *bazilfuse.AccessRequest:
		s.fs.Access(ctx, req, ino, r.Mask, newReply[fuse.Empty](c, fuse.OpAccess))

	case *bazilfuse.CreateRequest:
		s.fs.Create(ctx, req, ino, r.Name, r.Mode, r.Umask, uint32(r.Flags), newReply[fuse.Created](c, fuse.OpCreate))

	case *bazilfuse.ExchangeDataRequest:
		c.name = fuse.OpExchange.String()
		if !s.kcfg.Routed(fuse.OpExchange) {
			c.Send(c.id, fuse.ENOSYS)
			return
		}
		s.fs.Exchange(ctx, req, fuse.NodeID(r.OldDir), r.OldName, fuse.NodeID(r.NewDir), r.NewName, 0,
			newReply[fuse.Empty](c, fuse.OpExchange))

	default:
		c.logger.Debugf("unsupported request %v", r)
		c.Send(c.id, fuse.ENOSYS)
	}
}

func setattrIn(r *bazilfuse.SetattrRequest) *fuse.SetattrIn {
	in := &fuse.SetattrIn{}
	v := r.Valid
	if v.Mode() {
		mode := r.Mode
		in.Mode = &mode
	}
	if v.Uid() {
		uid := r.Uid
		in.Uid = &uid
	}
	if v.Gid() {
		gid := r.Gid
		in.Gid = &gid
	}
	if v.Size() {
		size := r.Size
		in.Size = &size
	}
	if v.Atime() || v.AtimeNow() {
		in.Atime = &fuse.TimeOrNow{Time: r.Atime, Now: v.AtimeNow()}
	}
	if v.Mtime() || v.MtimeNow() {
		in.Mtime = &fuse.TimeOrNow{Time: r.Mtime, Now: v.MtimeNow()}
	}
	if v.Handle() {
		fh := fuse.HandleID(r.Handle)
		in.Handle = &fh
	}

	// OS X only.
	if v.Crtime() {
		t := r.Crtime
		in.Crtime = &t
	}
	if v.Chgtime() {
		t := r.Chgtime
		in.Chgtime = &t
	}
	if v.Bkuptime() {
		t := r.Bkuptime
		in.Bkuptime = &t
	}
	if v.Flags() {
		flags := r.Flags
		in.Flags = &flags
	}
	return in
}

// RoutedOps returns the operations the bridge calls on the file system it
// serves. Init is called at mount rather than on a kernel request; exchange
// is only routed once enabled.
func RoutedOps() fuse.OpSet {
	var s fuse.OpSet
	for _, op := range []fuse.Op{
		fuse.OpInit, fuse.OpDestroy, fuse.OpLookup, fuse.OpForget,
		fuse.OpGetattr, fuse.OpSetattr, fuse.OpReadlink, fuse.OpMknod,
		fuse.OpMkdir, fuse.OpUnlink, fuse.OpRmdir, fuse.OpSymlink,
		fuse.OpRename, fuse.OpLink, fuse.OpOpen, fuse.OpRead,
		fuse.OpWrite, fuse.OpFlush, fuse.OpRelease, fuse.OpFsync,
		fuse.OpOpendir, fuse.OpReaddir, fuse.OpReleasedir, fuse.OpFsyncdir,
		fuse.OpStatfs, fuse.OpSetxattr, fuse.OpGetxattr, fuse.OpListxattr,
		fuse.OpRemovexattr, fuse.OpAccess, fuse.OpCreate, fuse.OpExchange,
	} {
		s = s.With(op)
	}
	return s
}
