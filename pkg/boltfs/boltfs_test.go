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
	"path/filepath"
	"testing"

	"github.com/boltdb/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/kurafs/tracefs/pkg/fuse"
	"github.com/kurafs/tracefs/pkg/fuse/fusetest"
)

// testDB creates
//
//	alpha/a.txt    "hello, world"
//	alpha/bad/name (skipped)
//	alpha/sub/b    "bee"
//	beta/
func testDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		alpha, err := tx.CreateBucket([]byte("alpha"))
		if err != nil {
			return err
		}
		if err := alpha.Put([]byte("a.txt"), []byte("hello, world")); err != nil {
			return err
		}
		if err := alpha.Put([]byte("bad/name"), []byte("x")); err != nil {
			return err
		}
		sub, err := alpha.CreateBucket([]byte("sub"))
		if err != nil {
			return err
		}
		if err := sub.Put([]byte("b"), []byte("bee")); err != nil {
			return err
		}
		_, err = tx.CreateBucket([]byte("beta"))
		return err
	}))
	require.NoError(t, db.Close())
	return path
}

type harness struct {
	t   *testing.T
	fs  *FS
	rec *fusetest.Recorder
}

func newHarness(t *testing.T) *harness {
	fs, err := Open(testDB(t))
	require.NoError(t, err)
	h := &harness{t: t, fs: fs, rec: fusetest.NewRecorder()}
	t.Cleanup(func() {
		assert.Empty(t, h.rec.Violations())
		assert.NoError(t, fs.Close())
	})
	return h
}

// do runs fn with a fresh request and returns the reply it wrote.
func do[T fuse.Response](h *harness, fn func(ctx context.Context, req *fuse.Request, reply *fuse.Reply[T])) fuse.Response {
	h.t.Helper()
	req := h.rec.NewRequest()
	fn(context.Background(), req, fusetest.NewReply[T](h.rec, req))
	resp, ok := h.rec.Reply(req.ID)
	require.True(h.t, ok, "no reply")
	return resp
}

func (h *harness) lookup(parent fuse.NodeID, name string) fuse.Response {
	return do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.EntryReply) {
		h.fs.Lookup(ctx, req, parent, name, reply)
	})
}

func (h *harness) entry(parent fuse.NodeID, name string) fuse.Entry {
	h.t.Helper()
	resp := h.lookup(parent, name)
	require.IsType(h.t, fuse.Entry{}, resp)
	return resp.(fuse.Entry)
}

func (h *harness) getattr(ino fuse.NodeID) fuse.Response {
	return do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.AttrReply) {
		h.fs.Getattr(ctx, req, ino, nil, reply)
	})
}

func (h *harness) open(ino fuse.NodeID, flags uint32) fuse.Response {
	return do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.OpenReply) {
		h.fs.Open(ctx, req, ino, flags, reply)
	})
}

func (h *harness) read(ino fuse.NodeID, fh fuse.HandleID, offset int64, size uint32) fuse.Response {
	return do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.DataReply) {
		h.fs.Read(ctx, req, ino, fh, offset, size, 0, 0, reply)
	})
}

func (h *harness) opendir(ino fuse.NodeID) fuse.HandleID {
	h.t.Helper()
	resp := do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.OpenReply) {
		h.fs.Opendir(ctx, req, ino, 0, reply)
	})
	require.IsType(h.t, fuse.Opened{}, resp)
	return resp.(fuse.Opened).Handle
}

func (h *harness) readdir(ino fuse.NodeID, fh fuse.HandleID, offset int64) []string {
	h.t.Helper()
	resp := do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.DirectoryReply) {
		h.fs.Readdir(ctx, req, ino, fh, offset, reply)
	})
	require.IsType(h.t, fuse.Directory{}, resp)
	var names []string
	for _, e := range resp.(fuse.Directory).Entries {
		names = append(names, e.Name)
	}
	return names
}

func (h *harness) getxattr(ino fuse.NodeID, name string, size uint32) fuse.Response {
	return do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.XattrReply) {
		h.fs.Getxattr(ctx, req, ino, name, size, reply)
	})
}

func (h *harness) listxattr(ino fuse.NodeID, size uint32) fuse.Response {
	return do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.XattrReply) {
		h.fs.Listxattr(ctx, req, ino, size, reply)
	})
}

func (h *harness) access(ino fuse.NodeID, mask uint32) fuse.Response {
	return do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.EmptyReply) {
		h.fs.Access(ctx, req, ino, mask, reply)
	})
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	h := newHarness(t)

	alpha := h.entry(fuse.RootID, "alpha")
	assert.Equal(t, os.ModeDir|0555, alpha.Attr.Mode)
	assert.Equal(t, uint32(2), alpha.Attr.Nlink)
	assert.Equal(t, uint64(alpha.Node), alpha.Attr.Inode)
	assert.Equal(t, fuse.NodeID(2), alpha.Node)

	file := h.entry(alpha.Node, "a.txt")
	assert.Equal(t, os.FileMode(0444), file.Attr.Mode)
	assert.Equal(t, uint64(len("hello, world")), file.Attr.Size)
	assert.Equal(t, uint32(os.Getuid()), file.Attr.Uid)
	assert.Equal(t, uint32(os.Getgid()), file.Attr.Gid)

	sub := h.entry(alpha.Node, "sub")
	assert.True(t, sub.Attr.Mode.IsDir())
	b := h.entry(sub.Node, "b")
	assert.Equal(t, uint64(3), b.Attr.Size)

	again := h.entry(fuse.RootID, "alpha")
	assert.Equal(t, alpha.Node, again.Node)

	assert.Equal(t, fuse.ENOENT, h.lookup(fuse.RootID, "gamma"))
	assert.Equal(t, fuse.ENOENT, h.lookup(fuse.RootID, ""))
	assert.Equal(t, fuse.ENOENT, h.lookup(alpha.Node, "bad/name"))
	assert.Equal(t, fuse.ENOTDIR, h.lookup(file.Node, "x"))
	assert.Equal(t, fuse.ESTALE, h.lookup(999, "x"))

	// Top-level keys are not buckets and are not shown.
	assert.Equal(t, fuse.ENOENT, h.lookup(fuse.RootID, "a.txt"))
}

func TestGetattr(t *testing.T) {
	h := newHarness(t)

	root := h.getattr(fuse.RootID)
	require.IsType(t, fuse.AttrOut{}, root)
	assert.True(t, root.(fuse.AttrOut).Attr.Mode.IsDir())

	alpha := h.entry(fuse.RootID, "alpha")
	file := h.entry(alpha.Node, "a.txt")
	attr := h.getattr(file.Node)
	require.IsType(t, fuse.AttrOut{}, attr)
	assert.Equal(t, file.Attr, attr.(fuse.AttrOut).Attr)

	assert.Equal(t, fuse.ESTALE, h.getattr(999))
}

func TestRead(t *testing.T) {
	h := newHarness(t)
	alpha := h.entry(fuse.RootID, "alpha")
	file := h.entry(alpha.Node, "a.txt")

	resp := h.open(file.Node, unix.O_RDONLY)
	require.IsType(t, fuse.Opened{}, resp)
	fh := resp.(fuse.Opened).Handle

	assert.Equal(t, fuse.Data("hello, world"), h.read(file.Node, fh, 0, 4096))
	assert.Equal(t, fuse.Data("world"), h.read(file.Node, fh, 7, 100))
	assert.Equal(t, fuse.Data("hel"), h.read(file.Node, fh, 0, 3))
	assert.Equal(t, fuse.Data{}, h.read(file.Node, fh, 50, 10))
	assert.Equal(t, fuse.EINVAL, h.read(file.Node, fh, -1, 10))

	do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.EmptyReply) {
		h.fs.Release(ctx, req, file.Node, fh, 0, 0, false, reply)
	})
	assert.Equal(t, fuse.EBADF, h.read(file.Node, fh, 0, 10))

	assert.Equal(t, fuse.EROFS, h.open(file.Node, unix.O_WRONLY))
	assert.Equal(t, fuse.EROFS, h.open(file.Node, unix.O_RDWR))
	assert.Equal(t, fuse.EISDIR, h.open(alpha.Node, unix.O_RDONLY))
}

func TestReaddir(t *testing.T) {
	h := newHarness(t)

	fh := h.opendir(fuse.RootID)
	assert.Equal(t, []string{".", "..", "alpha", "beta"}, h.readdir(fuse.RootID, fh, 0))
	assert.Equal(t, []string{"beta"}, h.readdir(fuse.RootID, fh, 3))
	assert.Empty(t, h.readdir(fuse.RootID, fh, 4))
	assert.Empty(t, h.readdir(fuse.RootID, fh, 100))

	alpha := h.entry(fuse.RootID, "alpha")
	afh := h.opendir(alpha.Node)
	assert.Equal(t, []string{".", "..", "a.txt", "sub"}, h.readdir(alpha.Node, afh, 0))

	do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.EmptyReply) {
		h.fs.Releasedir(ctx, req, alpha.Node, afh, 0, reply)
	})
	resp := do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.DirectoryReply) {
		h.fs.Readdir(ctx, req, alpha.Node, afh, 0, reply)
	})
	assert.Equal(t, fuse.EBADF, resp)

	file := h.entry(alpha.Node, "a.txt")
	resp = do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.OpenReply) {
		h.fs.Opendir(ctx, req, file.Node, 0, reply)
	})
	assert.Equal(t, fuse.ENOTDIR, resp)
}

func TestReaddirInodes(t *testing.T) {
	h := newHarness(t)

	fh := h.opendir(fuse.RootID)
	resp := do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.DirectoryReply) {
		h.fs.Readdir(ctx, req, fuse.RootID, fh, 0, reply)
	})
	entries := resp.(fuse.Directory).Entries
	require.Len(t, entries, 4)
	for i, e := range entries {
		assert.Equal(t, uint64(i+1), e.Offset)
		assert.Equal(t, fuse.DT_Dir, e.Type)
	}
	assert.Equal(t, uint64(fuse.RootID), entries[0].Inode)
	assert.Equal(t, uint64(fuse.RootID), entries[1].Inode)

	alpha := h.entry(fuse.RootID, "alpha")
	assert.Equal(t, uint64(alpha.Node), entries[2].Inode)
}

func TestXattr(t *testing.T) {
	h := newHarness(t)
	alpha := h.entry(fuse.RootID, "alpha")
	file := h.entry(alpha.Node, "a.txt")
	sub := h.entry(alpha.Node, "sub")
	b := h.entry(sub.Node, "b")

	assert.Equal(t, fuse.Xattr{Size: 5}, h.getxattr(file.Node, BucketXattr, 0))
	assert.Equal(t, fuse.Xattr{Data: []byte("alpha")}, h.getxattr(file.Node, BucketXattr, 64))
	assert.Equal(t, fuse.ERANGE, h.getxattr(file.Node, BucketXattr, 2))
	assert.Equal(t, fuse.Xattr{Data: []byte("alpha/sub")}, h.getxattr(b.Node, BucketXattr, 64))
	assert.Equal(t, fuse.Xattr{Data: []byte("alpha/sub")}, h.getxattr(sub.Node, BucketXattr, 64))
	assert.Equal(t, fuse.ENOATTR, h.getxattr(file.Node, "user.other", 64))
	assert.Equal(t, fuse.ENOATTR, h.getxattr(fuse.RootID, BucketXattr, 64))

	list := BucketXattr + "\x00"
	assert.Equal(t, fuse.Xattr{Size: uint32(len(list))}, h.listxattr(file.Node, 0))
	assert.Equal(t, fuse.Xattr{Data: []byte(list)}, h.listxattr(file.Node, 256))
	assert.Equal(t, fuse.ERANGE, h.listxattr(file.Node, 3))
	assert.Equal(t, fuse.Xattr{Size: 0}, h.listxattr(fuse.RootID, 0))
}

func TestReadOnly(t *testing.T) {
	h := newHarness(t)
	alpha := h.entry(fuse.RootID, "alpha")
	file := h.entry(alpha.Node, "a.txt")
	ctx := context.Background()

	empty := []func(req *fuse.Request, reply *fuse.EmptyReply){
		func(req *fuse.Request, reply *fuse.EmptyReply) { h.fs.Unlink(ctx, req, alpha.Node, "a.txt", reply) },
		func(req *fuse.Request, reply *fuse.EmptyReply) { h.fs.Rmdir(ctx, req, fuse.RootID, "beta", reply) },
		func(req *fuse.Request, reply *fuse.EmptyReply) {
			h.fs.Rename(ctx, req, alpha.Node, "a.txt", alpha.Node, "b.txt", 0, reply)
		},
		func(req *fuse.Request, reply *fuse.EmptyReply) {
			h.fs.Setxattr(ctx, req, file.Node, "user.x", []byte("y"), 0, 0, reply)
		},
		func(req *fuse.Request, reply *fuse.EmptyReply) { h.fs.Removexattr(ctx, req, file.Node, BucketXattr, reply) },
		func(req *fuse.Request, reply *fuse.EmptyReply) { h.fs.Fallocate(ctx, req, file.Node, 1, 0, 10, 0, reply) },
	}
	for _, fn := range empty {
		req := h.rec.NewRequest()
		fn(req, fusetest.NewReply[fuse.Empty](h.rec, req))
		resp, _ := h.rec.Reply(req.ID)
		assert.Equal(t, fuse.EROFS, resp)
	}

	entry := []func(req *fuse.Request, reply *fuse.EntryReply){
		func(req *fuse.Request, reply *fuse.EntryReply) { h.fs.Mkdir(ctx, req, fuse.RootID, "d", 0755, 0, reply) },
		func(req *fuse.Request, reply *fuse.EntryReply) { h.fs.Mknod(ctx, req, alpha.Node, "n", 0644, 0, 0, reply) },
		func(req *fuse.Request, reply *fuse.EntryReply) { h.fs.Symlink(ctx, req, alpha.Node, "l", "a.txt", reply) },
		func(req *fuse.Request, reply *fuse.EntryReply) { h.fs.Link(ctx, req, file.Node, alpha.Node, "h", reply) },
	}
	for _, fn := range entry {
		req := h.rec.NewRequest()
		fn(req, fusetest.NewReply[fuse.Entry](h.rec, req))
		resp, _ := h.rec.Reply(req.ID)
		assert.Equal(t, fuse.EROFS, resp)
	}

	assert.Equal(t, fuse.EROFS, do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.AttrReply) {
		size := uint64(0)
		h.fs.Setattr(ctx, req, file.Node, &fuse.SetattrIn{Size: &size}, reply)
	}))
	assert.Equal(t, fuse.EROFS, do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.WriteReply) {
		h.fs.Write(ctx, req, file.Node, 1, 0, []byte("x"), 0, 0, 0, reply)
	}))
	assert.Equal(t, fuse.EROFS, do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.WriteReply) {
		h.fs.CopyFileRange(ctx, req, file.Node, 1, 0, file.Node, 2, 0, 1, 0, reply)
	}))
	assert.Equal(t, fuse.EROFS, do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.CreateReply) {
		h.fs.Create(ctx, req, alpha.Node, "c", 0644, 0, unix.O_WRONLY, reply)
	}))

	assert.Equal(t, fuse.Empty{}, h.access(file.Node, unix.R_OK))
	assert.Equal(t, fuse.EROFS, h.access(file.Node, unix.W_OK))
	assert.Equal(t, fuse.EACCES, h.access(file.Node, unix.X_OK))
	assert.Equal(t, fuse.Empty{}, h.access(alpha.Node, unix.R_OK|unix.X_OK))
	assert.Equal(t, fuse.ESTALE, h.access(999, unix.R_OK))

	assert.Equal(t, fuse.EINVAL, do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.DataReply) {
		h.fs.Readlink(ctx, req, file.Node, reply)
	}))
}

func TestForget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	alpha := h.entry(fuse.RootID, "alpha")
	h.entry(fuse.RootID, "alpha")

	h.fs.Forget(ctx, h.rec.NewRequest(), alpha.Node, 1)
	assert.IsType(t, fuse.AttrOut{}, h.getattr(alpha.Node))

	h.fs.Forget(ctx, h.rec.NewRequest(), alpha.Node, 1)
	assert.Equal(t, fuse.ESTALE, h.getattr(alpha.Node))

	// A later lookup allocates a new node.
	again := h.entry(fuse.RootID, "alpha")
	assert.NotEqual(t, alpha.Node, again.Node)

	beta := h.entry(fuse.RootID, "beta")
	h.fs.BatchForget(ctx, h.rec.NewRequest(), []fuse.ForgetOne{
		{Node: again.Node, Nlookup: 1},
		{Node: beta.Node, Nlookup: 1},
		{Node: fuse.RootID, Nlookup: 10},
		{Node: 999, Nlookup: 1},
	})
	assert.Equal(t, fuse.ESTALE, h.getattr(again.Node))
	assert.Equal(t, fuse.ESTALE, h.getattr(beta.Node))
	assert.IsType(t, fuse.AttrOut{}, h.getattr(fuse.RootID))
}

func TestStatfs(t *testing.T) {
	h := newHarness(t)
	h.entry(fuse.RootID, "alpha")

	resp := do(h, func(ctx context.Context, req *fuse.Request, reply *fuse.StatfsReply) {
		h.fs.Statfs(ctx, req, fuse.RootID, reply)
	})
	require.IsType(t, fuse.Statfs{}, resp)
	st := resp.(fuse.Statfs)
	assert.Equal(t, uint32(os.Getpagesize()), st.Bsize)
	assert.Equal(t, st.Bsize, st.Frsize)
	assert.NotZero(t, st.Blocks)
	assert.Equal(t, uint64(2), st.Files)
	assert.Zero(t, st.Bfree)
	assert.Zero(t, st.Bavail)
	assert.Zero(t, st.Ffree)
}

func TestInit(t *testing.T) {
	h := newHarness(t)
	cfg := fuse.NewKernelConfig(fuse.Protocol{Major: 7, Minor: 12}, fuse.InitAsyncRead, 0)
	require.NoError(t, h.fs.Init(context.Background(), &fuse.Request{}, cfg))
	assert.Equal(t, fuse.InitAsyncRead, cfg.Requested())
	h.fs.Destroy(context.Background())
}
