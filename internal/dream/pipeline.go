package dream

import (
	"context"
	"time"

	"dreamlog/internal/model"
)

// Transcriber converts a local audio file into raw text via a remote
// speech-to-text service. Implementations do not retry; the caller decides
// whether a failure is worth a fresh invocation.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Structurer turns a raw transcript into a DreamDraft via a remote
// language-model service with a fixed extraction schema. It either returns a
// draft with all six fields populated and a valid mood, or an error, never a
// partial draft.
type Structurer interface {
	Structure(ctx context.Context, rawText string) (*model.DreamDraft, error)
}

// Recorder is the capture side of the pipeline: one exclusive microphone
// session per process. Stop is idempotent and returns the finalized local
// audio file; Cancel discards it.
type Recorder interface {
	Start(ctx context.Context) error
	Pause() error
	Resume() error
	Stop() (audioPath string, duration time.Duration, err error)
	Cancel() error
	Session() model.RecordingSession
}
