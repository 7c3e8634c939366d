// ABOUTME: Bubble Tea message types used in the TUI message loop.
// ABOUTME: Each type wraps domain events for the tea.Msg interface (which is interface{}).
package tui

import (
	"time"

	"github.com/2389-research/conjure/pipeline"
	"github.com/2389-research/conjure/runstore"
)

// PipelineEventMsg wraps a pipeline.Event for the Bubble Tea message loop.
type PipelineEventMsg struct {
	Event pipeline.Event
}

// RunResultMsg signals that a generation run has finished executing.
type RunResultMsg struct {
	Record *runstore.RunRecord
	Err    error
}

// TickMsg is sent periodically to update timers and spinners.
type TickMsg struct {
	Time time.Time
}
