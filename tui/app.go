// ABOUTME: Inline Bubble Tea model for interactive text-to-3D generation runs.
// ABOUTME: Shows a prompt input, per-stage progress with spinners and timings, and recent run history.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/conjure/pipeline"
	"github.com/2389-research/conjure/runstore"
)

// stageOrder is the fixed display order of pipeline stages.
var stageOrder = []pipeline.Stage{
	pipeline.StagePromptEnhancement,
	pipeline.StageImageGeneration,
	pipeline.StageModelGeneration,
	pipeline.StagePersistence,
}

// stageLabels maps stages to human-readable display names.
var stageLabels = map[pipeline.Stage]string{
	pipeline.StagePromptEnhancement: "Enhance prompt",
	pipeline.StageImageGeneration:   "Generate image",
	pipeline.StageModelGeneration:   "Generate 3D model",
	pipeline.StagePersistence:       "Persist run",
}

// maxHistoryRows limits how many past runs the history section shows.
const maxHistoryRows = 8

// AppModel is an inline (non-alt-screen) Bubble Tea model that accepts a
// prompt, runs the generation pipeline, and streams per-stage progress.
type AppModel struct {
	runner   Runner
	callerID string
	ctx      context.Context

	input   textinput.Model
	history []runstore.RunRecord

	// Per-run state, reset on each submission.
	running   bool
	runPrompt string
	statuses  map[pipeline.Stage]StageStatus
	startedAt map[pipeline.Stage]time.Time
	durations map[pipeline.Stage]time.Duration
	runStart  time.Time
	result    *runstore.RunRecord
	runErr    error

	spinnerIdx int
	width      int
}

// NewAppModel creates an AppModel wired to the given runner. The history
// slice seeds the recent runs section, newest first.
func NewAppModel(ctx context.Context, runner Runner, callerID string, history []runstore.RunRecord) AppModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe the 3D model you want..."
	ti.Focus()

	if ctx == nil {
		ctx = context.Background()
	}

	return AppModel{
		runner:    runner,
		callerID:  callerID,
		ctx:       ctx,
		input:     ti,
		history:   history,
		statuses:  make(map[pipeline.Stage]StageStatus),
		startedAt: make(map[pipeline.Stage]time.Time),
		durations: make(map[pipeline.Stage]time.Duration),
	}
}

// Init implements tea.Model.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, TickCmd(100*time.Millisecond))
}

// Update implements tea.Model. Routes incoming messages to the appropriate handlers.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case PipelineEventMsg:
		return m.handlePipelineEvent(msg)

	case RunResultMsg:
		return m.handleRunResult(msg)

	case TickMsg:
		m.spinnerIdx++
		return m, TickCmd(100 * time.Millisecond)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKeyMsg processes keyboard input. Enter submits the prompt; keys are
// otherwise forwarded to the text input.
func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		if m.running {
			return m, nil
		}
		prompt := strings.TrimSpace(m.input.Value())
		if prompt == "" {
			return m, nil
		}
		return m.startRun(prompt)
	}

	if m.running {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startRun resets per-run state and launches the pipeline command.
func (m AppModel) startRun(prompt string) (tea.Model, tea.Cmd) {
	m.running = true
	m.runPrompt = prompt
	m.result = nil
	m.runErr = nil
	m.runStart = time.Now()
	m.statuses = make(map[pipeline.Stage]StageStatus)
	m.startedAt = make(map[pipeline.Stage]time.Time)
	m.durations = make(map[pipeline.Stage]time.Duration)
	m.input.Blur()

	return m, RunCmd(m.ctx, m.runner, pipeline.Request{Prompt: prompt}, m.callerID)
}

// handlePipelineEvent updates per-stage display state from orchestrator events.
func (m AppModel) handlePipelineEvent(msg PipelineEventMsg) (tea.Model, tea.Cmd) {
	evt := msg.Event

	switch evt.Type {
	case pipeline.EventStageStarted:
		m.statuses[evt.Stage] = StageRunning
		m.startedAt[evt.Stage] = time.Now()

	case pipeline.EventStageCompleted:
		m.statuses[evt.Stage] = StageCompleted
		if start, ok := m.startedAt[evt.Stage]; ok {
			m.durations[evt.Stage] = time.Since(start)
		}

	case pipeline.EventStageFailed:
		m.statuses[evt.Stage] = StageFailed
		if start, ok := m.startedAt[evt.Stage]; ok {
			m.durations[evt.Stage] = time.Since(start)
		}
	}

	return m, nil
}

// handleRunResult stores the outcome, refreshes history, and re-arms the input.
func (m AppModel) handleRunResult(msg RunResultMsg) (tea.Model, tea.Cmd) {
	m.running = false
	m.result = msg.Record
	m.runErr = msg.Err

	if msg.Record != nil {
		m.history = append([]runstore.RunRecord{*msg.Record}, m.history...)
	}

	m.input.Reset()
	m.input.Focus()
	return m, nil
}

// View implements tea.Model. Renders the prompt box, stage progress, the last
// result, and recent history.
func (m AppModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("conjure — text to 3D"))
	b.WriteString("\n\n")

	if m.running {
		b.WriteString(fmt.Sprintf("  %q\n\n", m.runPrompt))
		b.WriteString(m.renderStages())
		b.WriteString("\n")
		b.WriteString(PendingStyle.Render(fmt.Sprintf("  %s elapsed", formatDuration(time.Since(m.runStart)))))
		b.WriteString("\n")
	} else {
		b.WriteString(PromptBoxStyle.Render(m.input.View()))
		b.WriteString("\n")

		if m.runErr != nil {
			b.WriteString(FailedStyle.Render(fmt.Sprintf("  ✗ %v", m.runErr)))
			b.WriteString("\n")
		} else if m.result != nil {
			b.WriteString(m.renderStages())
			b.WriteString(CompletedStyle.Render(fmt.Sprintf("  ✓ run %s", m.result.RunID)))
			b.WriteString("\n")
			b.WriteString(PendingStyle.Render(fmt.Sprintf("    image: %s", m.result.ImagePath)))
			b.WriteString("\n")
			b.WriteString(PendingStyle.Render(fmt.Sprintf("    model: %s", m.result.ModelPath)))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.renderHistory())
	b.WriteString("\n")
	b.WriteString(PendingStyle.Render("  enter: generate · esc: quit"))
	b.WriteString("\n")

	return b.String()
}

// renderStages renders the fixed stage list with status glyphs and timings.
func (m AppModel) renderStages() string {
	var b strings.Builder
	for _, stage := range stageOrder {
		status := m.statuses[stage]
		label := stageLabels[stage]
		style := StyleForStatus(status)

		switch status {
		case StageRunning:
			frame := SpinnerFrames[m.spinnerIdx%len(SpinnerFrames)]
			b.WriteString(style.Render(fmt.Sprintf("  %s %s", frame, label)))
		case StageCompleted:
			b.WriteString(style.Render(fmt.Sprintf("  ✓ %s  %s", label, formatDuration(m.durations[stage]))))
		case StageFailed:
			b.WriteString(style.Render(fmt.Sprintf("  ✗ %s  failed", label)))
		default:
			b.WriteString(style.Render(fmt.Sprintf("    %s", label)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderHistory renders the recent runs section, newest first.
func (m AppModel) renderHistory() string {
	if len(m.history) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(HistoryHeaderStyle.Render("  Recent runs"))
	b.WriteString("\n")

	rows := m.history
	if len(rows) > maxHistoryRows {
		rows = rows[:maxHistoryRows]
	}
	for _, rec := range rows {
		prompt := rec.Prompt
		if len([]rune(prompt)) > 48 {
			prompt = string([]rune(prompt)[:48]) + "..."
		}
		b.WriteString(PendingStyle.Render(fmt.Sprintf("  %s  %s", rec.RunID, prompt)))
		b.WriteString("\n")
	}
	return b.String()
}

// formatDuration formats a duration as a human-readable string like "0.1s" or "2m03s".
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 10 {
		return fmt.Sprintf("%.1fs", secs)
	}
	if secs < 60 {
		return fmt.Sprintf("%.0fs", secs)
	}
	mins := int(secs) / 60
	remainSecs := int(secs) % 60
	return fmt.Sprintf("%dm%02ds", mins, remainSecs)
}
