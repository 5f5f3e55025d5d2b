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
	"fmt"
	"strings"
)

// An Op is one verb of the filesystem operation protocol.
type Op uint8

const (
	OpInit Op = iota
	OpDestroy
	OpLookup
	OpForget
	OpBatchForget
	OpGetattr
	OpSetattr
	OpReadlink
	OpMknod
	OpMkdir
	OpUnlink
	OpRmdir
	OpSymlink
	OpRename
	OpLink
	OpOpen
	OpRead
	OpWrite
	OpFlush
	OpRelease
	OpFsync
	OpOpendir
	OpReaddir
	OpReaddirplus
	OpReleasedir
	OpFsyncdir
	OpStatfs
	OpSetxattr
	OpGetxattr
	OpListxattr
	OpRemovexattr
	OpAccess
	OpCreate
	OpGetlk
	OpSetlk
	OpBmap
	OpIoctl
	OpPoll
	OpFallocate
	OpLseek
	OpCopyFileRange

	// Host-conditional; see KernelConfig.EnableHostOp.
	OpSetvolname
	OpExchange
	OpGetxtimes

	numOps
)

var opNames = [numOps]string{
	OpInit:          "init",
	OpDestroy:       "destroy",
	OpLookup:        "lookup",
	OpForget:        "forget",
	OpBatchForget:   "batch_forget",
	OpGetattr:       "getattr",
	OpSetattr:       "setattr",
	OpReadlink:      "readlink",
	OpMknod:         "mknod",
	OpMkdir:         "mkdir",
	OpUnlink:        "unlink",
	OpRmdir:         "rmdir",
	OpSymlink:       "symlink",
	OpRename:        "rename",
	OpLink:          "link",
	OpOpen:          "open",
	OpRead:          "read",
	OpWrite:         "write",
	OpFlush:         "flush",
	OpRelease:       "release",
	OpFsync:         "fsync",
	OpOpendir:       "opendir",
	OpReaddir:       "readdir",
	OpReaddirplus:   "readdirplus",
	OpReleasedir:    "releasedir",
	OpFsyncdir:      "fsyncdir",
	OpStatfs:        "statfs",
	OpSetxattr:      "setxattr",
	OpGetxattr:      "getxattr",
	OpListxattr:     "listxattr",
	OpRemovexattr:   "removexattr",
	OpAccess:        "access",
	OpCreate:        "create",
	OpGetlk:         "getlk",
	OpSetlk:         "setlk",
	OpBmap:          "bmap",
	OpIoctl:         "ioctl",
	OpPoll:          "poll",
	OpFallocate:     "fallocate",
	OpLseek:         "lseek",
	OpCopyFileRange: "copy_file_range",
	OpSetvolname:    "setvolname",
	OpExchange:      "exchange",
	OpGetxtimes:     "getxtimes",
}

// String returns the verb's protocol name, e.g. "lookup" or "batch_forget".
func (o Op) String() string {
	if o >= numOps {
		return fmt.Sprintf("op(%d)", uint8(o))
	}
	return opNames[o]
}

// HostConditional reports whether the verb only exists on some hosts.
func (o Op) HostConditional() bool {
	return o == OpSetvolname || o == OpExchange || o == OpGetxtimes
}

// Ops returns every verb of the protocol, in protocol order.
func Ops() []Op {
	ops := make([]Op, numOps)
	for i := range ops {
		ops[i] = Op(i)
	}
	return ops
}

// ParseOp returns the Op with the given protocol name.
func ParseOp(name string) (Op, bool) {
	for i, n := range opNames {
		if n == name {
			return Op(i), true
		}
	}
	return 0, false
}

// An OpSet is a set of verbs.
type OpSet uint64

// With returns s with op added.
func (s OpSet) With(op Op) OpSet {
	return s | 1<<op
}

// Without returns s with op removed.
func (s OpSet) Without(op Op) OpSet {
	return s &^ (1 << op)
}

// Has reports whether op is in s.
func (s OpSet) Has(op Op) bool {
	return s&(1<<op) != 0
}

// Ops returns the members of s in protocol order.
func (s OpSet) Ops() []Op {
	var ops []Op
	for op := Op(0); op < numOps; op++ {
		if s.Has(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

func (s OpSet) String() string {
	var names []string
	for _, op := range s.Ops() {
		names = append(names, op.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}
