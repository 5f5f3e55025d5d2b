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

// Package bridge serves a fuse.FileSystem to the kernel. It mounts through
// bazil.org/fuse, decodes each kernel request into a call on the file system
// with a write-once reply, and encodes the reply back.
//
// Each request is served on its own goroutine, under a context that is
// cancelled if the kernel interrupts the request. Replies may be written
// after the file system method returns.
//
// bazil decodes a subset of the protocol. Requests it does not decode
// (batch_forget, readdirplus, locks, bmap, ioctl, poll, fallocate, lseek,
// copy_file_range, setvolname, getxtimes) never reach the file system through
// this bridge.
package bridge

import (
	"context"
	"io"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	bazilfuse "bazil.org/fuse"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kurafs/tracefs/pkg/fuse"
	"github.com/kurafs/tracefs/pkg/log"
)

// Server serves one file system on one mount point.
type Server struct {
	fs       fuse.FileSystem
	logger   *log.Logger
	metrics  *metrics
	mountCfg MountConfig

	kcfg *fuse.KernelConfig

	mu      sync.Mutex
	pending map[fuse.RequestID]context.CancelFunc

	destroyOnce sync.Once
	wg          sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger requests are logged to.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRegisterer registers the server's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Server) { s.metrics = newMetrics(reg) }
}

// WithMountConfig sets the options the file system is mounted with.
func WithMountConfig(cfg MountConfig) Option {
	return func(s *Server) { s.mountCfg = cfg }
}

// New returns a Server for fs.
func New(fs fuse.FileSystem, opts ...Option) *Server {
	s := &Server{
		fs:      fs,
		pending: make(map[fuse.RequestID]context.CancelFunc),
		kcfg:    fuse.NewKernelConfig(fuse.Protocol{Major: protoMajor, Minor: protoMinor}, capable, fuse.PlatformHostOps()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discarder()
	}
	if s.metrics == nil {
		s.metrics = newMetrics(nil)
	}
	return s
}

// Serve initializes the file system, mounts it at mountpoint and serves it
// until it is unmounted or ctx is done, in which case Serve unmounts it.
// Destroy is called exactly once before Serve returns, if Init succeeded.
func (s *Server) Serve(ctx context.Context, mountpoint string) error {
	if err := s.fs.Init(ctx, &fuse.Request{}, s.kcfg); err != nil {
		return errors.Wrap(err, "initializing file system")
	}
	defer s.destroy(ctx)

	conn, err := Mount(mountpoint, s.mountCfg, s.kcfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	s.logger.Infof("mounted at %s (host operations %v)", mountpoint, s.kcfg.HostOps())

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Infof("unmounting %s", mountpoint)
			if err := Unmount(mountpoint); err != nil {
				s.logger.Error(err)
			}
		case <-stop:
		}
	}()

	err = s.loop(ctx, conn)
	s.wg.Wait()
	if s.mountCfg.AutoUnmount && ctx.Err() == nil {
		// Usually unmounted already, which is what ended the loop.
		_ = Unmount(mountpoint)
	}
	return err
}

func (s *Server) loop(ctx context.Context, conn *bazilfuse.Conn) error {
	for {
		r, err := conn.ReadRequest()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "reading request")
		}

		if ir, ok := r.(*bazilfuse.InterruptRequest); ok {
			s.interrupt(fuse.RequestID(ir.IntrID))
			ir.Respond()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(ctx, r, func(resp fuse.Response) { respond(r, resp) })
		}()
	}
}

// serve routes r to the file system. send writes the encoded reply.
func (s *Server) serve(ctx context.Context, r bazilfuse.Request, send func(fuse.Response)) {
	hdr := r.Hdr()
	id := fuse.RequestID(hdr.ID)

	ctx, cancel := context.WithCancel(ctx)
	ctx = logtags.AddTag(ctx, "req", id)
	s.track(id, cancel)

	c := &call{
		id:      id,
		name:    "unknown",
		started: time.Now(),
		logger:  s.logger.WithContext(ctx),
		send:    send,
	}
	c.done = func(resp fuse.Response) {
		s.untrack(id)
		cancel()
		s.metrics.inflight.Dec()
		s.metrics.latency.WithLabelValues(c.name).Observe(time.Since(c.started).Seconds())
		if errno, ok := resp.(fuse.Errno); ok {
			s.metrics.errors.WithLabelValues(c.name, errno.ErrnoName()).Inc()
		}
	}
	s.metrics.inflight.Inc()

	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Errorf("panic serving %v: %v\n%s", r, rec, debug.Stack())
			c.abort()
		}
		s.metrics.requests.WithLabelValues(c.name).Inc()
	}()

	s.route(ctx, r, c)
}

func (s *Server) track(id fuse.RequestID, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.pending[id]; dup {
		s.logger.Warnf("duplicate request %v", id)
	}
	s.pending[id] = cancel
}

func (s *Server) untrack(id fuse.RequestID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// interrupt cancels the context of request id, if it is still pending.
func (s *Server) interrupt(id fuse.RequestID) {
	s.mu.Lock()
	cancel, ok := s.pending[id]
	s.mu.Unlock()
	if ok {
		s.logger.Debugf("interrupting %v", id)
		cancel()
	}
}

func (s *Server) destroy(ctx context.Context) {
	s.destroyOnce.Do(func() { s.fs.Destroy(ctx) })
}

// A call is the state of one request between the bridge and the file system.
// It is the fuse.Sender of the request's reply.
type call struct {
	id      fuse.RequestID
	name    string
	started time.Time
	logger  *log.Logger

	reply interface {
		RespondError(error)
		Replied() bool
	}
	sent atomic.Bool
	send func(fuse.Response)
	done func(fuse.Response)
}

var _ fuse.Sender = (*call)(nil)
var _ fuse.Monitor = (*call)(nil)

func (c *call) Send(id fuse.RequestID, resp fuse.Response) {
	if !c.sent.CompareAndSwap(false, true) {
		c.DoubleReply(id, resp)
		return
	}
	c.logger.Debugf("%s -> %v", c.name, resp)
	c.send(resp)
	if c.done != nil {
		c.done(resp)
	}
}

func (c *call) DoubleReply(id fuse.RequestID, resp fuse.Response) {
	c.logger.Warnf("%s answered twice, dropped %v", c.name, resp)
}

// abort answers the request with EIO unless it has been answered already.
func (c *call) abort() {
	if c.sent.Load() {
		return
	}
	if c.reply != nil {
		if !c.reply.Replied() {
			c.reply.RespondError(fuse.EIO)
		}
		return
	}
	c.Send(c.id, fuse.EIO)
}

// newReply returns the reply for c, answering with payloads of type T.
func newReply[T fuse.Response](c *call, op fuse.Op) *fuse.Reply[T] {
	c.name = op.String()
	r := fuse.NewReply[T](c.id, c)
	c.reply = r
	return r
}
