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
	"strings"

	"github.com/boltdb/bolt"

	"github.com/kurafs/tracefs/pkg/fuse"
)

// A node is a bucket or key the kernel holds a reference to.
type node struct {
	id fuse.NodeID
	// Bucket names from the root down, then the key name for files. Empty
	// for the root.
	path    []string
	key     string
	dir     bool
	lookups uint64
}

func lessPath(a, b *node) bool {
	return a.key < b.key
}

func pathKey(path []string) string {
	return strings.Join(path, "/")
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, "/\x00")
}

// bucketPath is the bucket an entry lives in: itself for directories, its
// parent for files.
func (n *node) bucketPath() []string {
	if n.dir {
		return n.path
	}
	return n.path[:len(n.path)-1]
}

// bucket returns the bucket at path, which must not be empty.
func bucket(tx *bolt.Tx, path []string) *bolt.Bucket {
	b := tx.Bucket([]byte(path[0]))
	for _, name := range path[1:] {
		if b == nil {
			return nil
		}
		b = b.Bucket([]byte(name))
	}
	return b
}

// stat reports what path names: a bucket, a key (with the length of its
// value), or nothing.
func stat(tx *bolt.Tx, path []string) (dir bool, size int, ok bool) {
	if len(path) == 0 {
		return true, 0, true
	}
	if len(path) == 1 {
		return true, 0, tx.Bucket([]byte(path[0])) != nil
	}
	parent := bucket(tx, path[:len(path)-1])
	if parent == nil {
		return false, 0, false
	}
	name := []byte(path[len(path)-1])
	if parent.Bucket(name) != nil {
		return true, 0, true
	}
	if v := parent.Get(name); v != nil {
		return false, len(v), true
	}
	return false, 0, false
}

// value returns a copy of the value of the file at path.
func value(tx *bolt.Tx, path []string) ([]byte, bool) {
	parent := bucket(tx, path[:len(path)-1])
	if parent == nil {
		return nil, false
	}
	v := parent.Get([]byte(path[len(path)-1]))
	if v == nil {
		return nil, false
	}
	return append([]byte{}, v...), true
}

// children lists the directory at path in key order, skipping names that
// cannot be file names.
func children(tx *bolt.Tx, path []string) (names []string, dirs []bool) {
	add := func(k []byte, dir bool) {
		if name := string(k); validName(name) {
			names = append(names, name)
			dirs = append(dirs, dir)
		}
	}
	if len(path) == 0 {
		_ = tx.ForEach(func(k []byte, _ *bolt.Bucket) error {
			add(k, true)
			return nil
		})
		return names, dirs
	}
	b := bucket(tx, path)
	if b == nil {
		return nil, nil
	}
	_ = b.ForEach(func(k, v []byte) error {
		add(k, v == nil)
		return nil
	})
	return names, dirs
}

// node returns the node for path, creating it if needed. fs.mu must be held.
func (fs *FS) node(path []string, dir bool) *node {
	key := pathKey(path)
	if n, ok := fs.byPath.Get(&node{key: key}); ok {
		return n
	}
	n := &node{
		id:   fs.nextID,
		path: append([]string(nil), path...),
		key:  key,
		dir:  dir,
	}
	fs.nextID++
	fs.byPath.ReplaceOrInsert(n)
	fs.byID[n.id] = n
	return n
}

// forget drops nlookup references to ino. fs.mu must be held.
func (fs *FS) forget(ino fuse.NodeID, nlookup uint64) {
	n, ok := fs.byID[ino]
	if !ok || ino == fuse.RootID {
		return
	}
	if nlookup >= n.lookups {
		fs.byPath.Delete(n)
		delete(fs.byID, ino)
		return
	}
	n.lookups -= nlookup
}

func childPath(parent *node, name string) []string {
	path := make([]string, 0, len(parent.path)+1)
	path = append(path, parent.path...)
	return append(path, name)
}

// A handle is an open file or directory, snapshotted at open.
type handle struct {
	ino     fuse.NodeID
	data    []byte
	entries []fuse.Dirent
}

// open registers h. fs.mu must be held.
func (fs *FS) open(h *handle) fuse.HandleID {
	fh := fs.nextFh
	fs.nextFh++
	fs.handles[fh] = h
	return fh
}
