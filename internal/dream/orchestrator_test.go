package dream_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"dreamlog/internal/audio"
	"dreamlog/internal/dream"
	"dreamlog/internal/media"
	"dreamlog/internal/model"
	"dreamlog/internal/testutil"
)

func newOrchestrator(t *testing.T, recorder dream.Recorder, tr dream.Transcriber, st dream.Structurer) (*dream.CaptureOrchestrator, dream.EntryStore, *media.MemoryStore) {
	t.Helper()
	store := testutil.NewTestStore(t)
	m := media.NewMemoryStore()
	svc := dream.NewDreamService(store, m, dream.NewNopLogger(), testutil.FixedClock{T: testTime}, &testutil.SeqIDs{})
	return dream.NewCaptureOrchestrator(recorder, tr, st, svc, dream.NewNopLogger()), store, m
}

func newAudioSession(t *testing.T) *audio.Session {
	t.Helper()
	device := audio.NewMemoryDevice(t.TempDir())
	device.Content = []byte("m4a-bytes")
	session := audio.NewSession(device, dream.NewNopLogger())
	t.Cleanup(func() { session.Close() })
	return session
}

func TestCaptureOrchestrator_TextFlow(t *testing.T) {
	ctx := context.Background()
	st := &testutil.StubStructurer{Draft: testutil.Draft()}
	o, _, _ := newOrchestrator(t, nil, nil, st)

	var states []model.FlowState
	o.OnStateChange(func(s model.FlowState) { states = append(states, s) })
	var saved *model.DreamEntry
	o.OnSaved(func(e *model.DreamEntry) { saved = e })

	if err := o.SubmitText(ctx, "I was flying over mountains."); err != nil {
		t.Fatalf("SubmitText() error = %v", err)
	}
	if o.State() != model.FlowReadyToSave {
		t.Fatalf("state after submit = %q, want ready_to_save", o.State())
	}
	if o.Draft() == nil || o.Draft().Title != "Flying Over Mountains" {
		t.Fatalf("draft = %+v", o.Draft())
	}

	entry, err := o.Save(ctx, "owner-a")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if o.State() != model.FlowSaved {
		t.Errorf("state after save = %q, want saved", o.State())
	}

	if entry.AudioURL != "" {
		t.Errorf("text entry has AudioURL %q", entry.AudioURL)
	}
	if entry.AudioSeconds != 0 {
		t.Errorf("text entry has AudioSeconds %v", entry.AudioSeconds)
	}
	if entry.Starred {
		t.Error("new entry is starred")
	}
	if entry.DeletedAt != nil {
		t.Error("new entry has DeletedAt set")
	}
	if entry.CreatedAt.IsZero() || entry.UpdatedAt == nil {
		t.Error("timestamps not stamped")
	}

	if saved == nil || saved.ID != entry.ID {
		t.Errorf("onSaved hook saw %+v", saved)
	}
	want := []model.FlowState{model.FlowStructuring, model.FlowReadyToSave, model.FlowUploading, model.FlowSaved}
	if len(states) != len(want) {
		t.Fatalf("observed states %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("state[%d] = %q, want %q", i, states[i], want[i])
		}
	}
}

func TestCaptureOrchestrator_AudioFlow(t *testing.T) {
	ctx := context.Background()
	tr := &testutil.StubTranscriber{Text: "I was flying over mountains."}
	st := &testutil.StubStructurer{Draft: testutil.Draft()}
	o, store, m := newOrchestrator(t, newAudioSession(t), tr, st)

	if err := o.BeginCapture(ctx); err != nil {
		t.Fatalf("BeginCapture() error = %v", err)
	}
	if o.State() != model.FlowCapturing {
		t.Fatalf("state = %q, want capturing", o.State())
	}

	time.Sleep(20 * time.Millisecond)

	if err := o.FinishCapture(ctx); err != nil {
		t.Fatalf("FinishCapture() error = %v", err)
	}
	if o.State() != model.FlowReadyToSave {
		t.Fatalf("state = %q, want ready_to_save", o.State())
	}
	if len(tr.Calls) != 1 {
		t.Fatalf("transcriber called %d times", len(tr.Calls))
	}
	if len(st.Calls) != 1 || st.Calls[0] != "I was flying over mountains." {
		t.Fatalf("structurer calls = %v", st.Calls)
	}

	entry, err := o.Save(ctx, "owner-a")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if entry.AudioURL == "" {
		t.Error("audio entry has no AudioURL")
	}
	if key := m.KeyFromURL(entry.AudioURL); !m.Has(key) {
		t.Errorf("no media object at %q", key)
	}
	if _, err := store.GetEntry(ctx, entry.ID, "owner-a"); err != nil {
		t.Errorf("GetEntry() error = %v", err)
	}
	if len(tr.Calls) > 0 {
		if _, err := os.Stat(tr.Calls[0]); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("local recording %q survived the save", tr.Calls[0])
		}
	}
}

func TestCaptureOrchestrator_Cancel(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newOrchestrator(t, newAudioSession(t), &testutil.StubTranscriber{}, &testutil.StubStructurer{Draft: testutil.Draft()})

	if err := o.BeginCapture(ctx); err != nil {
		t.Fatalf("BeginCapture() error = %v", err)
	}
	if err := o.CancelCapture(); err != nil {
		t.Fatalf("CancelCapture() error = %v", err)
	}
	if o.State() != model.FlowCancelled {
		t.Errorf("state = %q, want cancelled", o.State())
	}

	if err := o.FinishCapture(ctx); err == nil {
		t.Error("FinishCapture() after cancel succeeded")
	}
	if _, err := o.Save(ctx, "owner-a"); err == nil {
		t.Error("Save() after cancel succeeded")
	}
}

func TestCaptureOrchestrator_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newOrchestrator(t, nil, nil, &testutil.StubStructurer{Draft: testutil.Draft()})

	if err := o.CancelCapture(); err == nil {
		t.Error("CancelCapture() from idle succeeded")
	}
	if err := o.FinishCapture(ctx); err == nil {
		t.Error("FinishCapture() from idle succeeded")
	}
	if _, err := o.Save(ctx, "owner-a"); err == nil {
		t.Error("Save() from idle succeeded")
	}
	if err := o.SubmitText(ctx, "   "); !errors.Is(err, dream.ErrEmptyResult) {
		t.Errorf("SubmitText(blank) error = %v, want ErrEmptyResult", err)
	}
	if err := o.BeginCapture(ctx); err == nil {
		t.Error("BeginCapture() without recorder succeeded")
	}
}

func TestCaptureOrchestrator_TranscribeFailureRetry(t *testing.T) {
	ctx := context.Background()
	tr := &testutil.StubTranscriber{Err: fmt.Errorf("%w: connection reset", dream.ErrNetwork)}
	st := &testutil.StubStructurer{Draft: testutil.Draft()}
	o, _, _ := newOrchestrator(t, newAudioSession(t), tr, st)

	if err := o.BeginCapture(ctx); err != nil {
		t.Fatalf("BeginCapture() error = %v", err)
	}
	if err := o.FinishCapture(ctx); !errors.Is(err, dream.ErrNetwork) {
		t.Fatalf("FinishCapture() error = %v, want ErrNetwork", err)
	}
	if o.State() != model.FlowFailed {
		t.Fatalf("state = %q, want failed", o.State())
	}
	if !errors.Is(o.Err(), dream.ErrNetwork) {
		t.Errorf("Err() = %v", o.Err())
	}

	// The finalized recording is retained, so re-invoking resumes at the
	// transcription step without touching the recorder again.
	tr.Err = nil
	tr.Text = "I was flying over mountains."
	if err := o.FinishCapture(ctx); err != nil {
		t.Fatalf("retry FinishCapture() error = %v", err)
	}
	if o.State() != model.FlowReadyToSave {
		t.Errorf("state after retry = %q, want ready_to_save", o.State())
	}
	if len(tr.Calls) != 2 || tr.Calls[0] != tr.Calls[1] {
		t.Errorf("transcriber calls = %v, want the same path twice", tr.Calls)
	}
}

func TestCaptureOrchestrator_StructureFailureRetry(t *testing.T) {
	ctx := context.Background()
	st := &testutil.StubStructurer{Err: fmt.Errorf("%w: invalid payload", dream.ErrSchema)}
	o, _, _ := newOrchestrator(t, nil, nil, st)

	if err := o.SubmitText(ctx, "I was flying over mountains."); !errors.Is(err, dream.ErrSchema) {
		t.Fatalf("SubmitText() error = %v, want ErrSchema", err)
	}
	if o.State() != model.FlowFailed {
		t.Fatalf("state = %q, want failed", o.State())
	}

	st.Err = nil
	st.Draft = testutil.Draft()
	if err := o.Restructure(ctx); err != nil {
		t.Fatalf("Restructure() error = %v", err)
	}
	if o.State() != model.FlowReadyToSave {
		t.Errorf("state after retry = %q, want ready_to_save", o.State())
	}
	if len(st.Calls) != 2 || st.Calls[0] != st.Calls[1] {
		t.Errorf("structurer calls = %v, want the same text twice", st.Calls)
	}
}

func TestCaptureOrchestrator_RestructureNeedsTranscript(t *testing.T) {
	o, _, _ := newOrchestrator(t, nil, nil, &testutil.StubStructurer{Draft: testutil.Draft()})
	if err := o.Restructure(context.Background()); err == nil {
		t.Error("Restructure() from idle succeeded")
	}
}

func TestCaptureOrchestrator_SaveFailureRetry(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)

	// A draft with no transcript is rejected by the persistence layer,
	// simulating a save failure after a good structuring pass.
	badDraft := testutil.Draft()
	badDraft.Transcript = ""

	st := &testutil.StubStructurer{Draft: badDraft}
	svc := dream.NewDreamService(store, media.NewMemoryStore(), dream.NewNopLogger(), testutil.FixedClock{T: testTime}, &testutil.SeqIDs{})
	o := dream.NewCaptureOrchestrator(nil, nil, st, svc, dream.NewNopLogger())

	if err := o.SubmitText(ctx, "I was flying over mountains."); err != nil {
		t.Fatalf("SubmitText() error = %v", err)
	}
	if _, err := o.Save(ctx, "owner-a"); !errors.Is(err, dream.ErrPersistence) {
		t.Fatalf("Save() error = %v, want ErrPersistence", err)
	}
	if o.State() != model.FlowFailed {
		t.Fatalf("state = %q, want failed", o.State())
	}

	// Save is re-invocable from failed while the draft is held.
	o.Draft().Transcript = "I was flying over mountains."
	entry, err := o.Save(ctx, "owner-a")
	if err != nil {
		t.Fatalf("retry Save() error = %v", err)
	}
	if o.State() != model.FlowSaved {
		t.Errorf("state = %q, want saved", o.State())
	}
	if _, err := store.GetEntry(ctx, entry.ID, "owner-a"); err != nil {
		t.Errorf("GetEntry() error = %v", err)
	}
}
