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

	"github.com/cockroachdb/errors"
)

// Protocol is a FUSE protocol version number.
type Protocol struct {
	Major uint32
	Minor uint32
}

func (a Protocol) String() string {
	return fmt.Sprintf("%d.%d", a.Major, a.Minor)
}

// LT returns whether a is less than b.
func (a Protocol) LT(b Protocol) bool {
	return a.Major < b.Major ||
		(a.Major == b.Major && a.Minor < b.Minor)
}

// GE returns whether a is greater than or equal to b.
func (a Protocol) GE(b Protocol) bool {
	return a.Major > b.Major ||
		(a.Major == b.Major && a.Minor >= b.Minor)
}

// InitFlags are the capability bits negotiated at init.
type InitFlags uint32

const (
	InitAsyncRead      InitFlags = 1 << 0
	InitPosixLocks     InitFlags = 1 << 1
	InitAtomicTrunc    InitFlags = 1 << 3
	InitExportSupport  InitFlags = 1 << 4
	InitBigWrites      InitFlags = 1 << 5
	InitDontMask       InitFlags = 1 << 6
	InitFlockLocks     InitFlags = 1 << 10
	InitAutoInvalData  InitFlags = 1 << 12
	InitDoReaddirplus  InitFlags = 1 << 13
	InitWritebackCache InitFlags = 1 << 16
)

// MaxWrite is the largest write the protocol allows a file system to ask for.
const MaxWrite = 16 << 20

// A KernelConfig is handed to FileSystem.Init. The file system reads what the
// kernel offered and records what it wants; the bridge applies the result
// when mounting.
type KernelConfig struct {
	Protocol     Protocol
	MaxReadahead uint32
	MaxWrite     uint32

	capable   InitFlags
	requested InitFlags
	hostOps   OpSet
	enabled   OpSet
}

// NewKernelConfig returns the configuration offered for a connection speaking
// proto, supporting the given capabilities and host-conditional operations.
func NewKernelConfig(proto Protocol, capable InitFlags, hostOps OpSet) *KernelConfig {
	return &KernelConfig{
		Protocol:     proto,
		MaxReadahead: 128 << 10,
		MaxWrite:     128 << 10,
		capable:      capable,
		hostOps:      hostOps,
	}
}

// Capable returns the capabilities on offer.
func (c *KernelConfig) Capable() InitFlags {
	return c.capable
}

// Request asks for the given capabilities. Those not on offer are ignored and
// returned.
func (c *KernelConfig) Request(flags InitFlags) (unsupported InitFlags) {
	c.requested |= flags & c.capable
	return flags &^ c.capable
}

// Requested returns the capabilities asked for so far.
func (c *KernelConfig) Requested() InitFlags {
	return c.requested
}

// SetMaxReadahead lowers the readahead limit. It cannot be raised past what
// the kernel offered.
func (c *KernelConfig) SetMaxReadahead(n uint32) error {
	if n > c.MaxReadahead {
		return errors.Newf("max readahead %d exceeds kernel limit %d", n, c.MaxReadahead)
	}
	c.MaxReadahead = n
	return nil
}

// SetMaxWrite sets the largest write the kernel will send.
func (c *KernelConfig) SetMaxWrite(n uint32) error {
	if n == 0 || n > MaxWrite {
		return errors.Newf("max write %d out of range (0, %d]", n, MaxWrite)
	}
	c.MaxWrite = n
	return nil
}

// HostOps returns the host-conditional operations this connection can carry.
func (c *KernelConfig) HostOps() OpSet {
	return c.hostOps
}

// EnableHostOp asks the bridge to route a host-conditional operation to the
// file system. Operations the host doesn't know are refused.
func (c *KernelConfig) EnableHostOp(op Op) error {
	if !op.HostConditional() {
		return errors.Newf("%s is not host-conditional", op)
	}
	if !c.hostOps.Has(op) {
		return errors.Newf("%s is not supported on this host", op)
	}
	c.enabled = c.enabled.With(op)
	return nil
}

// Routed reports whether the bridge should hand op to the file system. All
// operations are, except host-conditional ones that weren't enabled.
func (c *KernelConfig) Routed(op Op) bool {
	if op.HostConditional() {
		return c.enabled.Has(op)
	}
	return true
}
