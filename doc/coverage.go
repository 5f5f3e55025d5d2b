package doc

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/kurafs/tracefs/pkg/bridge"
	"github.com/kurafs/tracefs/pkg/cli"
	"github.com/kurafs/tracefs/pkg/fuse"
)

var CoverageCmd = &cli.Command{
	UsageLine: "coverage",
	Short:     "which filesystem operations are traced and which reach the kernel",
	Long:      coverage(),
}

func coverage() string {
	var buf bytes.Buffer
	buf.WriteString(`
Every operation of the protocol is traced, one span per call. Not every
operation can arrive from the kernel: the bridge only receives what
bazil.org/fuse decodes. Host-conditional operations are also only routed once
the file system enables them during init.

`)
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "    OPERATION\tTRACED\tFROM KERNEL")
	routed := bridge.RoutedOps()
	for _, op := range fuse.Ops() {
		kernel := "no"
		switch {
		case routed.Has(op) && op.HostConditional():
			kernel = "if enabled"
		case routed.Has(op):
			kernel = "yes"
		}
		fmt.Fprintf(w, "    %s\tyes\t%s\n", op, kernel)
	}
	w.Flush()
	return buf.String()
}
