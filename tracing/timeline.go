package tracing

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/mcengine/api"
)

// Timeline keeps every finished command in memory, in completion order.
type Timeline struct {
	spans []Span
}

// Func implements sim.Hook.
func (t *Timeline) Func(ctx sim.HookCtx) {
	if ctx.Pos != api.HookPosKernelComplete {
		return
	}

	cmd, ok := ctx.Item.(*api.Command)
	if !ok {
		return
	}

	t.spans = append(t.spans, spanOf(cmd))
}

// Spans returns the recorded spans.
func (t *Timeline) Spans() []Span {
	return t.spans
}

// Find returns the span of the named kernel.
func (t *Timeline) Find(kernel string) (Span, bool) {
	for _, s := range t.spans {
		if s.Kernel == kernel {
			return s, true
		}
	}

	return Span{}, false
}

// Write renders the timeline as a table.
func (t *Timeline) Write(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Kernel Timeline")
	tw.AppendHeader(table.Row{
		"Kernel", "Slot", "Start (ns)", "End (ns)", "Exec (ns)",
	})

	for _, s := range t.spans {
		tw.AppendRow(table.Row{
			s.Kernel,
			s.Slot,
			fmt.Sprintf("%.0f", nanoseconds(s.Start)),
			fmt.Sprintf("%.0f", nanoseconds(s.End)),
			fmt.Sprintf("%.0f", nanoseconds(s.Duration())),
		})
	}

	tw.Render()
}
