// ABOUTME: Tests for the orchestrator-to-TUI event bridge and command factories.
package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/conjure/pipeline"
)

func TestEventBridgeWrapsEvents(t *testing.T) {
	var got []tea.Msg
	bridge := NewEventBridge(func(msg tea.Msg) { got = append(got, msg) })

	bridge.HandleEvent(pipeline.Event{
		Type:  pipeline.EventStageStarted,
		RunID: "run-1",
		Stage: pipeline.StageImageGeneration,
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	msg, ok := got[0].(PipelineEventMsg)
	if !ok {
		t.Fatalf("expected PipelineEventMsg, got %T", got[0])
	}
	if msg.Event.RunID != "run-1" || msg.Event.Stage != pipeline.StageImageGeneration {
		t.Errorf("unexpected event: %+v", msg.Event)
	}
}
