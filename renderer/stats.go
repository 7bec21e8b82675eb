package renderer

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
)

type FrameStats struct {
	// Frames dispatched so far.
	Frames uint32

	// Samples accumulated per pixel.
	Samples uint32

	// Accumulation restarts (camera or scene changes).
	Resets uint32

	// Total wall time and the share spent in trace dispatches.
	RenderTime time.Duration
	TraceTime  time.Duration
}

// Write renders the stats as a table.
func (s FrameStats) Write(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"frames", fmt.Sprint(s.Frames)})
	table.Append([]string{"samples/pixel", fmt.Sprint(s.Samples)})
	table.Append([]string{"resets", fmt.Sprint(s.Resets)})
	table.Append([]string{"render time", s.RenderTime.Truncate(time.Millisecond).String()})
	table.Append([]string{"trace time", s.TraceTime.Truncate(time.Millisecond).String()})
	table.Render()
}
