package model

import "time"

// Mood classifies the overall feeling of a dream. The set is fixed; the
// structuring API is instructed to pick from it and anything else is rejected
// before an entry is persisted.
type Mood string

const (
	MoodHappy      Mood = "happy"
	MoodAnxious    Mood = "anxious"
	MoodNeutral    Mood = "neutral"
	MoodExcited    Mood = "excited"
	MoodSad        Mood = "sad"
	MoodCurious    Mood = "curious"
	MoodFrustrated Mood = "frustrated"
)

// Moods lists every valid mood value.
var Moods = []Mood{
	MoodHappy,
	MoodAnxious,
	MoodNeutral,
	MoodExcited,
	MoodSad,
	MoodCurious,
	MoodFrustrated,
}

// Valid reports whether m is one of the fixed mood values.
func (m Mood) Valid() bool {
	for _, v := range Moods {
		if m == v {
			return true
		}
	}
	return false
}

// DreamDraft is the transient structured output of the language-model step,
// prior to persistence. All six fields are populated when a draft is returned;
// a partial response is an error, never a partial draft.
type DreamDraft struct {
	Title      string   `json:"title"`
	Transcript string   `json:"transcript"`
	Tags       []string `json:"tags"`
	Mood       Mood     `json:"mood"`
	Summary    string   `json:"summary"`
	Keywords   []string `json:"keywords"`
}

// DreamEntry is a persisted dream record.
type DreamEntry struct {
	ID           string
	OwnerID      string
	Title        string
	Transcript   string
	Summary      string
	Tags         []string
	Keywords     []string
	Mood         Mood
	AudioURL     string  // empty for text-only entries
	AudioSeconds float64 // 0 when unknown or no audio
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	Starred      bool
	DeletedAt    *time.Time // nil = active
}

// EntryPatch describes a partial update to an entry. Nil fields are left
// untouched.
type EntryPatch struct {
	Title      *string
	Transcript *string
	Summary    *string
	Tags       []string
	Keywords   []string
	Mood       *Mood
	Starred    *bool
}

// CaptureState is the state of an in-progress audio recording session.
type CaptureState string

const (
	CaptureIdle      CaptureState = "idle"
	CaptureRecording CaptureState = "recording"
	CapturePaused    CaptureState = "paused"
	CaptureStopped   CaptureState = "stopped"
)

// RecordingSession is the ephemeral snapshot of an active capture, exposed for
// UI feedback. Level is normalized to [0,1]; exact sampling timing carries no
// correctness weight.
type RecordingSession struct {
	State   CaptureState
	Elapsed time.Duration
	Level   float64
}

// FlowState is the orchestrator's position in the capture-and-processing
// pipeline.
type FlowState string

const (
	FlowIdle         FlowState = "idle"
	FlowCapturing    FlowState = "capturing"
	FlowTranscribing FlowState = "transcribing"
	FlowStructuring  FlowState = "structuring"
	FlowReadyToSave  FlowState = "ready_to_save"
	FlowUploading    FlowState = "uploading"
	FlowSaved        FlowState = "saved"
	FlowFailed       FlowState = "failed"
	FlowCancelled    FlowState = "cancelled"
)
