// ABOUTME: Bridge connecting the pipeline orchestrator to the Bubble Tea message loop.
// ABOUTME: Provides EventBridge for event injection and tea.Cmd factories for runs and ticks.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/conjure/pipeline"
	"github.com/2389-research/conjure/runstore"
)

// Runner is the orchestrator surface the TUI needs. *pipeline.Orchestrator
// satisfies it; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, callerID string) (*runstore.RunRecord, error)
}

// EventBridge wraps a tea.Program's Send method for injecting pipeline events
// into the Bubble Tea message loop.
type EventBridge struct {
	send func(msg tea.Msg)
}

// NewEventBridge creates an EventBridge that sends messages via the given function.
// Typically called with program.Send as the argument.
func NewEventBridge(send func(msg tea.Msg)) *EventBridge {
	return &EventBridge{send: send}
}

// HandleEvent implements the pipeline.Config.EventHandler signature.
// It wraps the event in a PipelineEventMsg and sends it to the TUI.
func (b *EventBridge) HandleEvent(evt pipeline.Event) {
	b.send(PipelineEventMsg{Event: evt})
}

// RunCmd returns a tea.Cmd that executes one generation run. When the run
// completes (or fails), it sends a RunResultMsg. The context allows
// cancellation when the user quits the TUI.
func RunCmd(ctx context.Context, runner Runner, req pipeline.Request, callerID string) tea.Cmd {
	return func() tea.Msg {
		rec, err := runner.Run(ctx, req, callerID)
		return RunResultMsg{Record: rec, Err: err}
	}
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
// Used for spinner animation and elapsed time refreshes.
func TickCmd(interval time.Duration) tea.Cmd {
	return func() tea.Msg {
		time.Sleep(interval)
		return TickMsg{Time: time.Now()}
	}
}
