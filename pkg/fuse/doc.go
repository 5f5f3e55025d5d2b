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

// Package fuse defines the filesystem operation protocol spoken between a
// kernel bridge and the filesystems it serves. It does not talk to the kernel
// itself; see package bridge for that.
//
// Operations
//
// The protocol is a fixed set of verbs, enumerated by Op. A filesystem
// implements every verb as a method on the FileSystem interface, of the
// general form
//
//	Op(ctx context.Context, req *Request, args..., reply *Reply[T])
//
// where args are exactly the parameters the protocol defines for the verb and
// T is the verb's success payload. Embed NotImplemented to answer ENOSYS for
// verbs a filesystem has no use for.
//
// Replies
//
// Every Reply is written exactly once, either with Respond or with
// RespondError. The write may happen before or after the method returns, but
// it must happen; an unanswered request stalls in the kernel. A second write
// is dropped, reported to the Sender if it implements Monitor, and passed to
// Debug.
//
// Errors
//
// The protocol only carries POSIX error numbers. RespondError accepts any
// error; values implementing ErrorNumber (Errno does) control the errno sent,
// everything else is sent as DefaultErrno.
//
// Cancellation
//
// If the kernel interrupts a request, the bridge cancels the request's
// context. Operations that may block should select on ctx.Done() and answer
// EINTR.
//
// Host-conditional verbs
//
// setvolname, exchange and getxtimes only exist on some hosts. Rather than
// compiling them in or out, a filesystem opts in during Init through
// KernelConfig.EnableHostOp, and the bridge only routes the verbs it was asked
// to.
package fuse
