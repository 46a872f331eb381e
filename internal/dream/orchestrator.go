package dream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dreamlog/internal/model"
)

// CaptureOrchestrator coordinates one capture flow from microphone to
// persisted entry:
//
//	idle → capturing → transcribing → structuring → ready_to_save →
//	uploading → saved
//
// failed is reachable from every non-terminal state and cancelled from
// capturing. Text-only entries skip the first two states and enter at
// structuring. The orchestrator never retries on its own; after a failure the
// caller re-invokes the failed step and the orchestrator resumes from the
// artifact it already holds (audio file, raw text, or draft).
type CaptureOrchestrator struct {
	recorder    Recorder
	transcriber Transcriber
	structurer  Structurer
	service     *DreamService
	logger      Logger

	// onState, when set, observes every transition. UI feedback only.
	onState func(model.FlowState)
	// onSaved, when set, fires after a successful save so the presentation
	// layer can invalidate cached listings.
	onSaved func(*model.DreamEntry)

	state     model.FlowState
	lastErr   error
	audioPath string
	duration  time.Duration
	rawText   string
	draft     *model.DreamDraft
	entry     *model.DreamEntry
}

// NewCaptureOrchestrator creates an orchestrator in the idle state.
func NewCaptureOrchestrator(recorder Recorder, transcriber Transcriber, structurer Structurer, service *DreamService, logger Logger) *CaptureOrchestrator {
	return &CaptureOrchestrator{
		recorder:    recorder,
		transcriber: transcriber,
		structurer:  structurer,
		service:     service,
		logger:      logger,
		state:       model.FlowIdle,
	}
}

// OnStateChange registers an observer for flow transitions.
func (o *CaptureOrchestrator) OnStateChange(fn func(model.FlowState)) { o.onState = fn }

// OnSaved registers a hook invoked with the persisted entry after a save.
func (o *CaptureOrchestrator) OnSaved(fn func(*model.DreamEntry)) { o.onSaved = fn }

// State returns the current flow state.
func (o *CaptureOrchestrator) State() model.FlowState { return o.state }

// Err returns the error that moved the flow to failed, if any.
func (o *CaptureOrchestrator) Err() error { return o.lastErr }

// Draft returns the structured draft once the flow has reached ready_to_save.
func (o *CaptureOrchestrator) Draft() *model.DreamDraft { return o.draft }

// Entry returns the persisted entry once the flow has reached saved.
func (o *CaptureOrchestrator) Entry() *model.DreamEntry { return o.entry }

func (o *CaptureOrchestrator) transition(s model.FlowState) {
	o.state = s
	o.logger.Debug("flow state", "state", string(s))
	if o.onState != nil {
		o.onState(s)
	}
}

func (o *CaptureOrchestrator) fail(step string, err error) error {
	o.lastErr = err
	o.transition(model.FlowFailed)
	o.logger.Error("flow step failed", "step", step, "error", err)
	return err
}

// BeginCapture starts the recorder and moves the flow to capturing.
func (o *CaptureOrchestrator) BeginCapture(ctx context.Context) error {
	if o.state != model.FlowIdle {
		return fmt.Errorf("cannot begin capture from state %q", o.state)
	}
	if o.recorder == nil {
		return fmt.Errorf("no recorder configured")
	}
	if err := o.recorder.Start(ctx); err != nil {
		return o.fail("capture", fmt.Errorf("starting recorder: %w", err))
	}
	o.transition(model.FlowCapturing)
	return nil
}

// CancelCapture discards the in-progress recording and ends the flow.
func (o *CaptureOrchestrator) CancelCapture() error {
	if o.state != model.FlowCapturing {
		return fmt.Errorf("cannot cancel from state %q", o.state)
	}
	if err := o.recorder.Cancel(); err != nil {
		return o.fail("cancel", fmt.Errorf("cancelling recorder: %w", err))
	}
	o.transition(model.FlowCancelled)
	return nil
}

// FinishCapture stops the recorder, then transcribes and structures the
// recording, leaving the flow at ready_to_save. After a failure in either
// remote step it may be called again; the finalized audio file is retained
// and Stop is idempotent.
func (o *CaptureOrchestrator) FinishCapture(ctx context.Context) error {
	switch o.state {
	case model.FlowCapturing:
		path, dur, err := o.recorder.Stop()
		if err != nil {
			return o.fail("capture", fmt.Errorf("stopping recorder: %w", err))
		}
		o.audioPath = path
		o.duration = dur
	case model.FlowFailed:
		if o.audioPath == "" {
			return fmt.Errorf("no recording to process")
		}
	default:
		return fmt.Errorf("cannot finish capture from state %q", o.state)
	}

	if err := o.transcribe(ctx); err != nil {
		return err
	}
	return o.structure(ctx)
}

// SubmitText enters the flow at structuring with user-typed text, skipping
// capture and transcription entirely.
func (o *CaptureOrchestrator) SubmitText(ctx context.Context, text string) error {
	if o.state != model.FlowIdle && o.state != model.FlowFailed {
		return fmt.Errorf("cannot submit text from state %q", o.state)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty text", ErrEmptyResult)
	}
	o.rawText = text
	return o.structure(ctx)
}

func (o *CaptureOrchestrator) transcribe(ctx context.Context) error {
	o.transition(model.FlowTranscribing)
	text, err := o.transcriber.Transcribe(ctx, o.audioPath)
	if err != nil {
		return o.fail("transcribe", err)
	}
	o.rawText = text
	return nil
}

// Restructure re-runs the structuring step on the raw text already held, for
// use after a structuring failure.
func (o *CaptureOrchestrator) Restructure(ctx context.Context) error {
	if o.state != model.FlowFailed || o.rawText == "" {
		return fmt.Errorf("no transcript to restructure")
	}
	return o.structure(ctx)
}

func (o *CaptureOrchestrator) structure(ctx context.Context) error {
	o.transition(model.FlowStructuring)
	draft, err := o.structurer.Structure(ctx, o.rawText)
	if err != nil {
		return o.fail("structure", err)
	}
	o.draft = draft
	o.transition(model.FlowReadyToSave)
	return nil
}

// Save uploads the audio artifact (if any) and persists the draft for the
// owner, completing the flow. Safe to re-invoke after a failed save: the
// upload key is deterministic and overwrites.
func (o *CaptureOrchestrator) Save(ctx context.Context, ownerID string) (*model.DreamEntry, error) {
	if o.state != model.FlowReadyToSave && !(o.state == model.FlowFailed && o.draft != nil) {
		return nil, fmt.Errorf("cannot save from state %q", o.state)
	}
	o.transition(model.FlowUploading)

	audioURL, err := o.service.UploadAudio(ctx, o.audioPath, ownerID)
	if err != nil {
		return nil, o.fail("upload", err)
	}

	entry, err := o.service.SaveEntry(ctx, o.draft, ownerID, audioURL, o.duration.Seconds())
	if err != nil {
		return nil, o.fail("save", err)
	}

	o.entry = entry
	o.transition(model.FlowSaved)

	// The uploaded object is now the artifact of record; the local capture
	// file has served its purpose.
	if o.audioPath != "" {
		if err := os.Remove(o.audioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			o.logger.Warn("local recording cleanup failed", "path", o.audioPath, "error", err)
		}
		o.audioPath = ""
	}

	if o.onSaved != nil {
		o.onSaved(entry)
	}
	return entry, nil
}
