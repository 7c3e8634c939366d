// ABOUTME: Lifecycle event types emitted by the orchestrator during a pipeline run.
// ABOUTME: Events feed the TUI's live log and the CLI's progress output; emission is best-effort.
package pipeline

import "time"

// EventType identifies the kind of pipeline lifecycle event.
type EventType string

const (
	EventPipelineStarted   EventType = "pipeline.started"
	EventPipelineCompleted EventType = "pipeline.completed"
	EventPipelineFailed    EventType = "pipeline.failed"
	EventStageStarted      EventType = "stage.started"
	EventStageCompleted    EventType = "stage.completed"
	EventStageFailed       EventType = "stage.failed"
)

// Event is a single lifecycle event for a run.
type Event struct {
	Type      EventType
	RunID     string
	Stage     Stage
	Data      map[string]any
	Timestamp time.Time
}
