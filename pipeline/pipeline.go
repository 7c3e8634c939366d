// ABOUTME: Orchestrator that sequences prompt enhancement, image generation, 3D generation, and persistence.
// ABOUTME: Mints a ULID run identity, persists artifacts between stages, and maps every failure to its stage.
package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/2389-research/conjure/gateway"
	"github.com/2389-research/conjure/runstore"
)

// Stage names one of the pipeline steps a run can fail in.
type Stage string

const (
	StagePromptEnhancement Stage = "prompt-enhancement"
	StageImageGeneration   Stage = "image-generation"
	StageModelGeneration   Stage = "model-generation"
	StagePersistence       Stage = "persistence"
)

// SupportedFormats is the set of 3D output formats the pipeline accepts.
var SupportedFormats = map[string]bool{
	"glb": true,
	"obj": true,
	"stl": true,
}

// ErrInvalidRequest wraps request validation failures. These are caller
// errors surfaced before any stage runs, distinct from stage failures.
var ErrInvalidRequest = errors.New("invalid generation request")

// StageError is the uniform failure result of a run: the stage that failed
// and the underlying reason. Run never returns any other error kind for a
// valid request.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Request is a single generation request. Zero values for the numeric
// fields and empty strings for NegativePrompt/Format are filled from the
// orchestrator's configured defaults before validation.
type Request struct {
	Prompt         string
	NegativePrompt string
	Steps          int
	Width          int
	Height         int
	Format         string
}

// Invoker is the gateway surface the orchestrator needs. *gateway.Gateway
// satisfies it; tests substitute fakes.
type Invoker interface {
	Invoke(ctx context.Context, serviceID string, params map[string]any) (*gateway.Payload, error)
}

// Enhancer rewrites a raw prompt. *enhance.Engine satisfies it.
type Enhancer interface {
	Enhance(ctx context.Context, prompt string) string
}

// Saver persists run records. *runstore.Store satisfies it.
type Saver interface {
	SaveRun(rec *runstore.RunRecord) error
}

// Defaults fills unset request fields.
type Defaults struct {
	NegativePrompt string // default "blurry, distorted, low quality"
	Steps          int    // default 25
	Width          int    // default 768
	Height         int    // default 768
	Format         string // default "glb"
}

// Config wires the orchestrator to its services and storage locations.
type Config struct {
	ImageServiceID string
	ModelServiceID string
	ImagesDir      string
	ModelsDir      string
	Defaults       Defaults
	EventHandler   func(Event) // optional lifecycle event callback
}

// Orchestrator runs the three-stage generation pipeline. It holds no per-run
// state; concurrent Run calls are independent.
type Orchestrator struct {
	gateway   Invoker
	enhancer  Enhancer
	store     Saver
	artifacts ArtifactWriter
	cfg       Config
}

// New creates an Orchestrator with defaults applied to the config.
func New(gw Invoker, enhancer Enhancer, store Saver, cfg Config) *Orchestrator {
	if cfg.Defaults.NegativePrompt == "" {
		cfg.Defaults.NegativePrompt = "blurry, distorted, low quality"
	}
	if cfg.Defaults.Steps == 0 {
		cfg.Defaults.Steps = 25
	}
	if cfg.Defaults.Width == 0 {
		cfg.Defaults.Width = 768
	}
	if cfg.Defaults.Height == 0 {
		cfg.Defaults.Height = 768
	}
	if cfg.Defaults.Format == "" {
		cfg.Defaults.Format = "glb"
	}
	return &Orchestrator{
		gateway:   gw,
		enhancer:  enhancer,
		store:     store,
		artifacts: ArtifactWriter{ImagesDir: cfg.ImagesDir, ModelsDir: cfg.ModelsDir},
		cfg:       cfg,
	}
}

// NewRunID mints a globally unique run identity using crypto/rand entropy.
// Every Run call gets a fresh id; identical requests are never deduplicated.
func NewRunID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// normalize fills unset fields from defaults and validates the result.
func (o *Orchestrator) normalize(req Request) (Request, error) {
	if req.NegativePrompt == "" {
		req.NegativePrompt = o.cfg.Defaults.NegativePrompt
	}
	if req.Steps == 0 {
		req.Steps = o.cfg.Defaults.Steps
	}
	if req.Width == 0 {
		req.Width = o.cfg.Defaults.Width
	}
	if req.Height == 0 {
		req.Height = o.cfg.Defaults.Height
	}
	if req.Format == "" {
		req.Format = o.cfg.Defaults.Format
	}

	if req.Prompt == "" {
		return req, fmt.Errorf("%w: prompt must not be empty", ErrInvalidRequest)
	}
	if req.Steps <= 0 {
		return req, fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidRequest, req.Steps)
	}
	if req.Width <= 0 || req.Height <= 0 {
		return req, fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidRequest, req.Width, req.Height)
	}
	if !SupportedFormats[req.Format] {
		return req, fmt.Errorf("%w: unsupported format %q", ErrInvalidRequest, req.Format)
	}
	return req, nil
}

// Run executes the full pipeline for one request and returns the persisted
// run record. On failure it returns a *StageError naming the failing stage;
// no partial record is ever saved for a failed run. Artifacts written
// before the failure are left on disk for debugging.
//
// Run never panics past its boundary: recovered panics become a StageError
// for the stage that was executing.
func (o *Orchestrator) Run(ctx context.Context, req Request, callerID string) (rec *runstore.RunRecord, err error) {
	req, verr := o.normalize(req)
	if verr != nil {
		return nil, verr
	}

	runID := NewRunID()
	stage := StagePromptEnhancement

	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
			o.emit(Event{Type: EventPipelineFailed, RunID: runID, Stage: stage,
				Data: map[string]any{"error": err.Error()}})
		}
	}()

	log.Printf("pipeline started run=%s caller=%s prompt=%q", runID, callerID, req.Prompt)
	o.emit(Event{Type: EventPipelineStarted, RunID: runID, Data: map[string]any{"prompt": req.Prompt}})

	// Stage 1: prompt enhancement. Never fails; the engine's fallback
	// guarantees a non-empty result.
	o.emit(Event{Type: EventStageStarted, RunID: runID, Stage: stage})
	enhanced := o.enhancer.Enhance(ctx, req.Prompt)
	o.emit(Event{Type: EventStageCompleted, RunID: runID, Stage: stage,
		Data: map[string]any{"enhanced_prompt": enhanced}})

	// Stage 2: image generation.
	stage = StageImageGeneration
	o.emit(Event{Type: EventStageStarted, RunID: runID, Stage: stage})
	imagePayload, ierr := o.gateway.Invoke(ctx, o.cfg.ImageServiceID, map[string]any{
		"prompt":          enhanced,
		"negative_prompt": req.NegativePrompt,
		"steps":           req.Steps,
		"width":           req.Width,
		"height":          req.Height,
	})
	if ierr != nil {
		return nil, o.fail(runID, stage, ierr)
	}
	if imagePayload.Empty() {
		return nil, o.fail(runID, stage, errors.New("image service returned no image"))
	}
	o.emit(Event{Type: EventStageCompleted, RunID: runID, Stage: stage,
		Data: map[string]any{"bytes": len(imagePayload.Data)}})

	// Persist the image before invoking the next stage so it survives a
	// 3D-stage failure.
	imagePath, perr := o.artifacts.WriteImage(runID, imagePayload.Data)
	if perr != nil {
		return nil, o.fail(runID, StagePersistence, perr)
	}

	// Stage 3: 3D model generation from the image bytes.
	stage = StageModelGeneration
	o.emit(Event{Type: EventStageStarted, RunID: runID, Stage: stage})
	modelPayload, merr := o.gateway.Invoke(ctx, o.cfg.ModelServiceID, map[string]any{
		"image":  imagePayload.Data,
		"format": req.Format,
	})
	if merr != nil {
		return nil, o.fail(runID, stage, merr)
	}
	if modelPayload.Empty() {
		return nil, o.fail(runID, stage, errors.New("3D service returned no model"))
	}
	o.emit(Event{Type: EventStageCompleted, RunID: runID, Stage: stage,
		Data: map[string]any{"bytes": len(modelPayload.Data)}})

	// Final stage: persist the model artifact and the run record.
	stage = StagePersistence
	modelPath, perr := o.artifacts.WriteModel(runID, req.Format, modelPayload.Data)
	if perr != nil {
		return nil, o.fail(runID, stage, perr)
	}

	record := &runstore.RunRecord{
		RunID:          runID,
		CallerID:       callerID,
		Prompt:         req.Prompt,
		EnhancedPrompt: enhanced,
		ImagePath:      imagePath,
		ModelPath:      modelPath,
		CreatedAt:      time.Now().UTC(),
		Metadata: map[string]any{
			"text_to_image_params": map[string]any{
				"prompt":          enhanced,
				"negative_prompt": req.NegativePrompt,
				"steps":           req.Steps,
				"width":           req.Width,
				"height":          req.Height,
			},
			"image_to_3d_params": map[string]any{
				"format": req.Format,
			},
		},
	}
	if serr := o.store.SaveRun(record); serr != nil {
		return nil, o.fail(runID, stage, serr)
	}

	log.Printf("pipeline completed run=%s image=%s model=%s", runID, imagePath, modelPath)
	o.emit(Event{Type: EventPipelineCompleted, RunID: runID,
		Data: map[string]any{"image_path": imagePath, "model_path": modelPath}})
	return record, nil
}

// fail logs, emits, and wraps a stage failure.
func (o *Orchestrator) fail(runID string, stage Stage, err error) error {
	serr := &StageError{Stage: stage, Err: err}
	log.Printf("pipeline failed run=%s stage=%s err=%v", runID, stage, err)
	o.emit(Event{Type: EventStageFailed, RunID: runID, Stage: stage,
		Data: map[string]any{"error": err.Error()}})
	o.emit(Event{Type: EventPipelineFailed, RunID: runID, Stage: stage,
		Data: map[string]any{"error": serr.Error()}})
	return serr
}

// emit delivers an event to the configured handler, if any.
func (o *Orchestrator) emit(ev Event) {
	if o.cfg.EventHandler == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	o.cfg.EventHandler(ev)
}
