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

// Package fusetest provides test doubles for the fuse operation protocol: a
// Recorder that stands in for the kernel end of reply channels, and an
// EchoFS that answers every operation deterministically from its arguments.
package fusetest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kurafs/tracefs/pkg/fuse"
)

// A Violation is a reply written to an already answered request.
type Violation struct {
	ID       fuse.RequestID
	Response fuse.Response
}

func (v Violation) String() string {
	return fmt.Sprintf("request %v answered twice, second reply %#v", v.ID, v.Response)
}

// Recorder is a fuse.Sender (and fuse.Monitor) that keeps every reply it is
// sent. It is safe for concurrent use.
type Recorder struct {
	nextID atomic.Uint64

	mu         sync.Mutex
	issued     []fuse.RequestID
	replies    map[fuse.RequestID][]fuse.Response
	violations []Violation
}

var _ fuse.Sender = (*Recorder)(nil)
var _ fuse.Monitor = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{replies: make(map[fuse.RequestID][]fuse.Response)}
}

// NewRequest returns a request with a fresh ID, which Missing will expect a
// reply for.
func (r *Recorder) NewRequest() *fuse.Request {
	id := fuse.RequestID(r.nextID.Add(1))
	r.mu.Lock()
	r.issued = append(r.issued, id)
	r.mu.Unlock()
	return &fuse.Request{ID: id, Uid: 1000, Gid: 1000, Pid: 42}
}

// NewReply returns a reply channel for req that records into r.
func NewReply[T fuse.Response](r *Recorder, req *fuse.Request) *fuse.Reply[T] {
	return fuse.NewReply[T](req.ID, r)
}

func (r *Recorder) Send(id fuse.RequestID, resp fuse.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies[id]) > 0 {
		r.violations = append(r.violations, Violation{ID: id, Response: resp})
	}
	r.replies[id] = append(r.replies[id], resp)
}

func (r *Recorder) DoubleReply(id fuse.RequestID, resp fuse.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations = append(r.violations, Violation{ID: id, Response: resp})
}

// Reply returns the reply sent for id, if any.
func (r *Recorder) Reply(id fuse.RequestID) (fuse.Response, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs := r.replies[id]
	if len(rs) == 0 {
		return nil, false
	}
	return rs[0], true
}

// Replies returns every reply sent for id.
func (r *Recorder) Replies(id fuse.RequestID) []fuse.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fuse.Response(nil), r.replies[id]...)
}

// Violations returns the double writes seen so far.
func (r *Recorder) Violations() []Violation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Violation(nil), r.violations...)
}

// Missing returns the requests handed out by NewRequest that were never
// answered, excluding those listed in noReply (forget and friends).
func (r *Recorder) Missing(noReply ...fuse.RequestID) []fuse.RequestID {
	skip := make(map[fuse.RequestID]bool, len(noReply))
	for _, id := range noReply {
		skip[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var missing []fuse.RequestID
	for _, id := range r.issued {
		if !skip[id] && len(r.replies[id]) == 0 {
			missing = append(missing, id)
		}
	}
	return missing
}
