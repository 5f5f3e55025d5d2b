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

// Package boltfs serves a bolt database as a read-only file system. Buckets
// are directories and keys are files holding their values.
package boltfs

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/cockroachdb/errors"
	"github.com/google/btree"

	"github.com/kurafs/tracefs/pkg/fuse"
	"github.com/kurafs/tracefs/pkg/log"
)

const (
	// How long the kernel may cache names and attributes. The database is
	// opened with a shared lock, so it cannot change while mounted.
	entryValid = time.Minute

	// BucketXattr holds the slash-joined bucket path of an entry.
	BucketXattr = "user.bolt.bucket"
)

// FS is a read-only view of a bolt database.
type FS struct {
	fuse.NotImplemented

	db       *bolt.DB
	logger   *log.Logger
	mtime    time.Time
	pageSize int
	uid, gid uint32

	mu      sync.Mutex
	byPath  *btree.BTreeG[*node]
	byID    map[fuse.NodeID]*node
	nextID  fuse.NodeID
	handles map[fuse.HandleID]*handle
	nextFh  fuse.HandleID
}

var _ fuse.FileSystem = (*FS)(nil)

type options struct {
	logger  *log.Logger
	timeout time.Duration
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger the file system logs to.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTimeout bounds how long Open waits for the database lock.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Open opens the bolt database at path read-only.
func Open(path string, opts ...Option) (*FS, error) {
	o := options{timeout: time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Discarder()
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	db, err := bolt.Open(path, 0400, &bolt.Options{ReadOnly: true, Timeout: o.timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "opening database %s", path)
	}

	fs := &FS{
		db:       db,
		logger:   o.logger,
		mtime:    fi.ModTime(),
		pageSize: db.Info().PageSize,
		uid:      uint32(os.Getuid()),
		gid:      uint32(os.Getgid()),
		byPath:   btree.NewG(32, lessPath),
		byID:     make(map[fuse.NodeID]*node),
		nextID:   fuse.RootID + 1,
		handles:  make(map[fuse.HandleID]*handle),
		nextFh:   1,
	}
	root := &node{id: fuse.RootID, dir: true}
	fs.byPath.ReplaceOrInsert(root)
	fs.byID[root.id] = root
	return fs, nil
}

// Close closes the database.
func (fs *FS) Close() error {
	return errors.Wrap(fs.db.Close(), "closing database")
}

func (fs *FS) Init(ctx context.Context, req *fuse.Request, cfg *fuse.KernelConfig) error {
	cfg.Request(fuse.InitAsyncRead)
	fs.logger.Infof("serving %s (page size %d, protocol %v)", fs.db.Path(), fs.pageSize, cfg.Protocol)
	return nil
}

func (fs *FS) Destroy(ctx context.Context) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.logger.Infof("destroyed with %d nodes and %d handles live", len(fs.byID), len(fs.handles))
	fs.handles = make(map[fuse.HandleID]*handle)
}

func (fs *FS) attr(n *node, size int) fuse.Attr {
	a := fuse.Attr{
		Valid:     entryValid,
		Inode:     uint64(n.id),
		Size:      uint64(size),
		Blocks:    (uint64(size) + 511) / 512,
		Atime:     fs.mtime,
		Mtime:     fs.mtime,
		Ctime:     fs.mtime,
		Crtime:    fs.mtime,
		Uid:       fs.uid,
		Gid:       fs.gid,
		BlockSize: uint32(fs.pageSize),
	}
	if n.dir {
		a.Mode = os.ModeDir | 0555
		a.Nlink = 2
	} else {
		a.Mode = 0444
		a.Nlink = 1
	}
	return a
}
