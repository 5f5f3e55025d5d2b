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
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// A RequestID identifies an active request.
type RequestID uint64

func (r RequestID) String() string {
	return fmt.Sprintf("%#x", uint64(r))
}

// A NodeID is a number identifying a directory or file.
// It must be unique among IDs returned in entry replies
// that have not yet been forgotten.
type NodeID uint64

func (n NodeID) String() string {
	return fmt.Sprintf("%#x", uint64(n))
}

// A HandleID is a number identifying an open directory or file.
// It only needs to be unique while the directory or file is open.
type HandleID uint64

func (h HandleID) String() string {
	return fmt.Sprintf("%#x", uint64(h))
}

// The RootID identifies the root directory of a file system.
const RootID NodeID = 1

// A Request describes the caller of a single operation. It is owned by the
// goroutine serving the operation and must not be retained past it.
type Request struct {
	ID  RequestID // Unique ID for request.
	Uid uint32    // User ID of process making request.
	Gid uint32    // Group ID of process making request.
	Pid uint32    // Process ID of process making request.
}

func (r *Request) String() string {
	return fmt.Sprintf("ID=%v Uid=%d Gid=%d Pid=%d", r.ID, r.Uid, r.Gid, r.Pid)
}

// An Attr is the metadata for a single file or directory.
type Attr struct {
	Valid time.Duration // how long Attr can be cached

	Inode     uint64      // inode number
	Size      uint64      // size in bytes
	Blocks    uint64      // size in 512-byte units
	Atime     time.Time   // time of last access
	Mtime     time.Time   // time of last modification
	Ctime     time.Time   // time of last inode change
	Crtime    time.Time   // time of creation (OS X only)
	Mode      os.FileMode // file mode
	Nlink     uint32      // number of links (usually 1)
	Uid       uint32      // owner uid
	Gid       uint32      // group gid
	Rdev      uint32      // device numbers
	Flags     uint32      // chflags(2) flags (OS X only)
	BlockSize uint32      // preferred blocksize for filesystem I/O
}

func (a Attr) String() string {
	return fmt.Sprintf("valid=%v ino=%v size=%d mode=%v", a.Valid, a.Inode, a.Size, a.Mode)
}

// A Dirent represents a single directory entry.
type Dirent struct {
	// Inode this entry names.
	Inode uint64

	// Offset is the cookie the kernel passes back to continue reading the
	// directory after this entry.
	Offset uint64

	// Type of the entry, for example DT_File. The zero value (DT_Unknown)
	// means callers will need a Getattr when the type is needed.
	Type DirentType

	// Name of the entry
	Name string
}

// A DirentPlus is a directory entry along with the lookup it implies, as
// returned by readdirplus.
type DirentPlus struct {
	Dirent
	Entry Entry
}

// Type of an entry in a directory listing.
type DirentType uint32

const (
	// The shift by 12 is hardcoded in the FUSE userspace
	// low-level C library, so it's safe here.

	DT_Unknown DirentType = 0
	DT_Socket  DirentType = unix.S_IFSOCK >> 12
	DT_Link    DirentType = unix.S_IFLNK >> 12
	DT_File    DirentType = unix.S_IFREG >> 12
	DT_Block   DirentType = unix.S_IFBLK >> 12
	DT_Dir     DirentType = unix.S_IFDIR >> 12
	DT_Char    DirentType = unix.S_IFCHR >> 12
	DT_FIFO    DirentType = unix.S_IFIFO >> 12
)

func (t DirentType) String() string {
	switch t {
	case DT_Unknown:
		return "unknown"
	case DT_Socket:
		return "socket"
	case DT_Link:
		return "link"
	case DT_File:
		return "file"
	case DT_Block:
		return "block"
	case DT_Dir:
		return "dir"
	case DT_Char:
		return "char"
	case DT_FIFO:
		return "fifo"
	}
	return "invalid"
}

// ino(8) off(8) namelen(4) type(4)
const direntSize = 24

// DirentSize returns the number of bytes AppendDirent uses for an entry with
// the given name.
func DirentSize(name string) int {
	return (direntSize + len(name) + 7) &^ 7
}

// AppendDirent appends the encoded form of a directory entry to data
// and returns the resulting slice.
func AppendDirent(data []byte, dir Dirent) []byte {
	var hdr [direntSize]byte
	binary.NativeEndian.PutUint64(hdr[0:], dir.Inode)
	binary.NativeEndian.PutUint64(hdr[8:], dir.Offset)
	binary.NativeEndian.PutUint32(hdr[16:], uint32(len(dir.Name)))
	binary.NativeEndian.PutUint32(hdr[20:], uint32(dir.Type))
	data = append(data, hdr[:]...)
	data = append(data, dir.Name...)
	if n := direntSize + len(dir.Name); n%8 != 0 {
		var pad [8]byte
		data = append(data, pad[:8-n%8]...)
	}
	return data
}
