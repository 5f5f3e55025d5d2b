package doc

import "github.com/kurafs/tracefs/pkg/cli"

var ArchitectureCmd = &cli.Command{
	UsageLine: "architecture",
	Short:     "tracefs architecture overview",
	Long: `
tracefs is three layers, each a fuse.FileSystem or a user of one:

    kernel <-> bridge <-> fusetrace.Dispatcher <-> boltfs

The bridge (pkg/bridge) mounts through bazil.org/fuse. It decodes each kernel
request into a call on the file system it serves, on its own goroutine, with
a Reply the callee writes exactly once. Kernel interrupts cancel the call's
context.

The Dispatcher (pkg/fusetrace) forwards every call verbatim to the file
system it wraps, inside a span named after the operation ("lookup", "read",
"batch_forget"). The span ends when the inner call returns, however it
returns. Replies pass through untouched and may be written later.

boltfs (pkg/boltfs) serves a bolt database read-only: buckets are
directories, keys are files. Anything that would modify it answers EROFS.

Spans are exported by the OpenTelemetry SDK as JSON (pkg/tracing). Request
counts, latencies and errors are exported as Prometheus metrics by the bridge.
`,
}
