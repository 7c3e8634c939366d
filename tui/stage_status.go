// ABOUTME: StageStatus enumerates the display states of a pipeline stage in the TUI.
package tui

// StageStatus is the display state of one pipeline stage.
type StageStatus int

const (
	StagePending StageStatus = iota
	StageRunning
	StageCompleted
	StageFailed
)
