// Package testutil provides shared fixtures for pipeline tests: stub remote
// clients, deterministic clocks and id generators, and an in-memory entry
// store.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"dreamlog/internal/config"
	"dreamlog/internal/database"
	"dreamlog/internal/dream"
	"dreamlog/internal/model"
)

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// SeqIDs generates "id-1", "id-2", ... deterministically.
type SeqIDs struct {
	n int
}

func (s *SeqIDs) New() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

// StubTranscriber returns a canned transcript or error and records its calls.
type StubTranscriber struct {
	Text  string
	Err   error
	Calls []string
}

func (s *StubTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	s.Calls = append(s.Calls, audioPath)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}

// StubStructurer returns a canned draft or error and records its calls.
type StubStructurer struct {
	Draft *model.DreamDraft
	Err   error
	Calls []string
}

func (s *StubStructurer) Structure(_ context.Context, rawText string) (*model.DreamDraft, error) {
	s.Calls = append(s.Calls, rawText)
	if s.Err != nil {
		return nil, s.Err
	}
	d := *s.Draft
	return &d, nil
}

// NewTestStore creates an in-memory entry store with the schema migrated,
// closed automatically when the test ends.
func NewTestStore(t *testing.T) dream.EntryStore {
	t.Helper()
	store, err := database.NewEntryStoreFromConfig(config.DatabaseConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// Draft returns a fully populated draft for tests.
func Draft() *model.DreamDraft {
	return &model.DreamDraft{
		Title:      "Flying Over Mountains",
		Transcript: "I was flying over mountains.",
		Tags:       []string{"flying", "mountains"},
		Mood:       model.MoodExcited,
		Summary:    "A dream about flying over mountain landscapes.",
		Keywords:   []string{"flying", "mountains"},
	}
}
