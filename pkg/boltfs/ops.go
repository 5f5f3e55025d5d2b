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

package boltfs

import (
	"context"
	"os"

	"github.com/boltdb/bolt"
	"golang.org/x/sys/unix"

	"github.com/kurafs/tracefs/pkg/fuse"
)

// lookupNode returns the node for ino. fs.mu must be held.
func (fs *FS) lookupNode(ino fuse.NodeID) (*node, error) {
	n, ok := fs.byID[ino]
	if !ok {
		return nil, fuse.ESTALE
	}
	return n, nil
}

func (fs *FS) Lookup(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, reply *fuse.EntryReply) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p, err := fs.lookupNode(parent)
	if err != nil {
		reply.RespondError(err)
		return
	}
	if !p.dir {
		reply.RespondError(fuse.ENOTDIR)
		return
	}
	if !validName(name) {
		reply.RespondError(fuse.ENOENT)
		return
	}

	path := childPath(p, name)
	var (
		dir  bool
		size int
		ok   bool
	)
	if err := fs.db.View(func(tx *bolt.Tx) error {
		dir, size, ok = stat(tx, path)
		return nil
	}); err != nil {
		reply.RespondError(err)
		return
	}
	if !ok {
		reply.RespondError(fuse.ENOENT)
		return
	}

	n := fs.node(path, dir)
	n.lookups++
	reply.Respond(fuse.Entry{
		Node:       n.id,
		EntryValid: entryValid,
		Attr:       fs.attr(n, size),
	})
}

func (fs *FS) Forget(ctx context.Context, req *fuse.Request, ino fuse.NodeID, nlookup uint64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.forget(ino, nlookup)
}

func (fs *FS) BatchForget(ctx context.Context, req *fuse.Request, nodes []fuse.ForgetOne) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, f := range nodes {
		fs.forget(f.Node, f.Nlookup)
	}
}

func (fs *FS) Getattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh *fuse.HandleID, reply *fuse.AttrReply) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.lookupNode(ino)
	if err != nil {
		reply.RespondError(err)
		return
	}
	if fh != nil {
		if h, ok := fs.handles[*fh]; ok && !n.dir {
			reply.Respond(fuse.AttrOut{Attr: fs.attr(n, len(h.data))})
			return
		}
	}

	var size int
	var ok bool
	if err := fs.db.View(func(tx *bolt.Tx) error {
		_, size, ok = stat(tx, n.path)
		return nil
	}); err != nil {
		reply.RespondError(err)
		return
	}
	if !ok {
		reply.RespondError(fuse.ESTALE)
		return
	}
	reply.Respond(fuse.AttrOut{Attr: fs.attr(n, size)})
}

func (fs *FS) Readlink(ctx context.Context, req *fuse.Request, ino fuse.NodeID, reply *fuse.DataReply) {
	reply.RespondError(fuse.EINVAL)
}

func (fs *FS) Open(ctx context.Context, req *fuse.Request, ino fuse.NodeID, flags uint32, reply *fuse.OpenReply) {
	if flags&unix.O_ACCMODE != unix.O_RDONLY {
		reply.RespondError(fuse.EROFS)
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.lookupNode(ino)
	if err != nil {
		reply.RespondError(err)
		return
	}
	if n.dir {
		reply.RespondError(fuse.EISDIR)
		return
	}

	var data []byte
	var ok bool
	if err := fs.db.View(func(tx *bolt.Tx) error {
		data, ok = value(tx, n.path)
		return nil
	}); err != nil {
		reply.RespondError(err)
		return
	}
	if !ok {
		reply.RespondError(fuse.ESTALE)
		return
	}
	fh := fs.open(&handle{ino: ino, data: data})
	reply.Respond(fuse.Opened{Handle: fh, Flags: fuse.OpenKeepCache})
}

func (fs *FS) Read(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, size uint32, flags uint32, lockOwner uint64, reply *fuse.DataReply) {
	fs.mu.Lock()
	h, ok := fs.handles[fh]
	fs.mu.Unlock()
	if !ok || h.ino != ino || h.entries != nil {
		reply.RespondError(fuse.EBADF)
		return
	}
	if offset < 0 {
		reply.RespondError(fuse.EINVAL)
		return
	}
	if offset >= int64(len(h.data)) {
		reply.Respond(fuse.Data{})
		return
	}
	end := offset + int64(size)
	if end > int64(len(h.data)) {
		end = int64(len(h.data))
	}
	reply.Respond(fuse.Data(h.data[offset:end]))
}

func (fs *FS) Flush(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, lockOwner uint64, reply *fuse.EmptyReply) {
	reply.Respond(fuse.Empty{})
}

func (fs *FS) Release(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, flags uint32, lockOwner uint64, flush bool, reply *fuse.EmptyReply) {
	fs.release(fh)
	reply.Respond(fuse.Empty{})
}

func (fs *FS) Fsync(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, datasync bool, reply *fuse.EmptyReply) {
	reply.Respond(fuse.Empty{})
}

func (fs *FS) Opendir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, flags uint32, reply *fuse.OpenReply) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.lookupNode(ino)
	if err != nil {
		reply.RespondError(err)
		return
	}
	if !n.dir {
		reply.RespondError(fuse.ENOTDIR)
		return
	}

	var names []string
	var dirs []bool
	if err := fs.db.View(func(tx *bolt.Tx) error {
		names, dirs = children(tx, n.path)
		return nil
	}); err != nil {
		reply.RespondError(err)
		return
	}

	parent := n
	if len(n.path) > 0 {
		parent = fs.node(n.path[:len(n.path)-1], true)
	}
	entries := []fuse.Dirent{
		{Inode: uint64(n.id), Type: fuse.DT_Dir, Name: "."},
		{Inode: uint64(parent.id), Type: fuse.DT_Dir, Name: ".."},
	}
	for i, name := range names {
		typ := fuse.DT_File
		if dirs[i] {
			typ = fuse.DT_Dir
		}
		child := fs.node(childPath(n, name), dirs[i])
		entries = append(entries, fuse.Dirent{Inode: uint64(child.id), Type: typ, Name: name})
	}
	for i := range entries {
		entries[i].Offset = uint64(i + 1)
	}

	fh := fs.open(&handle{ino: ino, entries: entries})
	reply.Respond(fuse.Opened{Handle: fh})
}

func (fs *FS) Readdir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, reply *fuse.DirectoryReply) {
	fs.mu.Lock()
	h, ok := fs.handles[fh]
	fs.mu.Unlock()
	if !ok || h.ino != ino || h.entries == nil {
		reply.RespondError(fuse.EBADF)
		return
	}
	if offset < 0 {
		reply.RespondError(fuse.EINVAL)
		return
	}
	if offset >= int64(len(h.entries)) {
		reply.Respond(fuse.Directory{})
		return
	}
	reply.Respond(fuse.Directory{Entries: h.entries[offset:]})
}

func (fs *FS) Releasedir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, flags uint32, reply *fuse.EmptyReply) {
	fs.release(fh)
	reply.Respond(fuse.Empty{})
}

func (fs *FS) Fsyncdir(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, datasync bool, reply *fuse.EmptyReply) {
	reply.Respond(fuse.Empty{})
}

func (fs *FS) release(fh fuse.HandleID) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.handles, fh)
}

func (fs *FS) Statfs(ctx context.Context, req *fuse.Request, ino fuse.NodeID, reply *fuse.StatfsReply) {
	var size int64
	if err := fs.db.View(func(tx *bolt.Tx) error {
		size = tx.Size()
		return nil
	}); err != nil {
		reply.RespondError(err)
		return
	}

	fs.mu.Lock()
	files := fs.byPath.Len()
	fs.mu.Unlock()

	reply.Respond(fuse.Statfs{
		Blocks:  uint64(size) / uint64(fs.pageSize),
		Files:   uint64(files),
		Bsize:   uint32(fs.pageSize),
		Namelen: 255,
		Frsize:  uint32(fs.pageSize),
	})
}

// xattrs returns the extended attributes of ino. fs.mu must be held.
func (fs *FS) xattrs(ino fuse.NodeID) (map[string][]byte, error) {
	n, err := fs.lookupNode(ino)
	if err != nil {
		return nil, err
	}
	if n.id == fuse.RootID {
		return nil, nil
	}
	return map[string][]byte{
		BucketXattr: []byte(pathKey(n.bucketPath())),
	}, nil
}

// sized answers a getxattr or listxattr for value, given the caller's
// buffer size.
func sized(value []byte, size uint32, reply *fuse.XattrReply) {
	switch {
	case size == 0:
		reply.Respond(fuse.Xattr{Size: uint32(len(value))})
	case size < uint32(len(value)):
		reply.RespondError(fuse.ERANGE)
	default:
		reply.Respond(fuse.Xattr{Data: value})
	}
}

func (fs *FS) Getxattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, name string, size uint32, reply *fuse.XattrReply) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	xattrs, err := fs.xattrs(ino)
	if err != nil {
		reply.RespondError(err)
		return
	}
	value, ok := xattrs[name]
	if !ok {
		reply.RespondError(fuse.ENOATTR)
		return
	}
	sized(value, size, reply)
}

func (fs *FS) Listxattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, size uint32, reply *fuse.XattrReply) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	xattrs, err := fs.xattrs(ino)
	if err != nil {
		reply.RespondError(err)
		return
	}
	var list []byte
	if _, ok := xattrs[BucketXattr]; ok {
		list = append(list, BucketXattr...)
		list = append(list, 0)
	}
	sized(list, size, reply)
}

func (fs *FS) Access(ctx context.Context, req *fuse.Request, ino fuse.NodeID, mask uint32, reply *fuse.EmptyReply) {
	fs.mu.Lock()
	n, err := fs.lookupNode(ino)
	fs.mu.Unlock()
	switch {
	case err != nil:
		reply.RespondError(err)
	case mask&unix.W_OK != 0:
		reply.RespondError(fuse.EROFS)
	case mask&unix.X_OK != 0 && !n.dir:
		reply.RespondError(fuse.EACCES)
	default:
		reply.Respond(fuse.Empty{})
	}
}

// The mutating verbs, all refused.

func (fs *FS) Setattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, in *fuse.SetattrIn, reply *fuse.AttrReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Mknod(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, mode, umask os.FileMode, rdev uint32, reply *fuse.EntryReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Mkdir(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, mode, umask os.FileMode, reply *fuse.EntryReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Unlink(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, reply *fuse.EmptyReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Rmdir(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, reply *fuse.EmptyReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Symlink(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name, target string, reply *fuse.EntryReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Rename(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, newParent fuse.NodeID, newName string, flags uint32, reply *fuse.EmptyReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Link(ctx context.Context, req *fuse.Request, ino, newParent fuse.NodeID, newName string, reply *fuse.EntryReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Write(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset int64, data []byte, writeFlags, flags uint32, lockOwner uint64, reply *fuse.WriteReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Create(ctx context.Context, req *fuse.Request, parent fuse.NodeID, name string, mode, umask os.FileMode, flags uint32, reply *fuse.CreateReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Setxattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, name string, value []byte, flags, position uint32, reply *fuse.EmptyReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Removexattr(ctx context.Context, req *fuse.Request, ino fuse.NodeID, name string, reply *fuse.EmptyReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) Fallocate(ctx context.Context, req *fuse.Request, ino fuse.NodeID, fh fuse.HandleID, offset, length int64, mode uint32, reply *fuse.EmptyReply) {
	reply.RespondError(fuse.EROFS)
}

func (fs *FS) CopyFileRange(ctx context.Context, req *fuse.Request, inoIn fuse.NodeID, fhIn fuse.HandleID, offsetIn int64, inoOut fuse.NodeID, fhOut fuse.HandleID, offsetOut int64, length uint64, flags uint32, reply *fuse.WriteReply) {
	reply.RespondError(fuse.EROFS)
}
