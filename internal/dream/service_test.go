package dream_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"dreamlog/internal/dream"
	"dreamlog/internal/media"
	"dreamlog/internal/model"
	"dreamlog/internal/testutil"
)

var testTime = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*dream.DreamService, dream.EntryStore, *media.MemoryStore) {
	t.Helper()
	store := testutil.NewTestStore(t)
	m := media.NewMemoryStore()
	svc := dream.NewDreamService(store, m, dream.NewNopLogger(), testutil.FixedClock{T: testTime}, &testutil.SeqIDs{})
	return svc, store, m
}

func writeAudioFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing audio file: %v", err)
	}
	return path
}

func TestDreamService_UploadAudio(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads under owner-namespaced key", func(t *testing.T) {
		svc, _, m := newTestService(t)
		path := writeAudioFile(t, "recording.m4a", "m4a-bytes")

		url, err := svc.UploadAudio(ctx, path, "owner-a")
		if err != nil {
			t.Fatalf("UploadAudio() error = %v", err)
		}
		if url == "" {
			t.Fatal("UploadAudio() returned empty URL")
		}
		if !m.Has("owner-a/recording.m4a") {
			t.Error("object not stored under owner-a/recording.m4a")
		}
		if got := m.ContentType("owner-a/recording.m4a"); got != "audio/m4a" {
			t.Errorf("content type = %q, want audio/m4a", got)
		}
	})

	t.Run("no audio means no URL and no error", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		url, err := svc.UploadAudio(ctx, "", "owner-a")
		if err != nil || url != "" {
			t.Errorf("UploadAudio() = (%q, %v), want empty and nil", url, err)
		}
	})

	t.Run("no owner means no URL and no error", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		path := writeAudioFile(t, "recording.m4a", "x")
		url, err := svc.UploadAudio(ctx, path, "")
		if err != nil || url != "" {
			t.Errorf("UploadAudio() = (%q, %v), want empty and nil", url, err)
		}
	})

	t.Run("re-upload overwrites the same key", func(t *testing.T) {
		svc, _, m := newTestService(t)
		path := writeAudioFile(t, "recording.m4a", "first")
		if _, err := svc.UploadAudio(ctx, path, "owner-a"); err != nil {
			t.Fatalf("first UploadAudio() error = %v", err)
		}
		if err := os.WriteFile(path, []byte("second"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.UploadAudio(ctx, path, "owner-a"); err != nil {
			t.Fatalf("second UploadAudio() error = %v", err)
		}

		var buf writerBuffer
		if err := m.Get(ctx, "owner-a/recording.m4a", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != "second" {
			t.Errorf("object content = %q, want %q", buf.String(), "second")
		}
	})
}

func TestDreamService_SaveEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps identity, timestamps and defaults", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		entry, err := svc.SaveEntry(ctx, testutil.Draft(), "owner-a", "", 0)
		if err != nil {
			t.Fatalf("SaveEntry() error = %v", err)
		}

		if entry.ID != "id-1" {
			t.Errorf("ID = %q", entry.ID)
		}
		if entry.OwnerID != "owner-a" {
			t.Errorf("OwnerID = %q", entry.OwnerID)
		}
		if entry.Starred {
			t.Error("new entry is starred")
		}
		if entry.DeletedAt != nil {
			t.Error("new entry has DeletedAt set")
		}
		if entry.AudioURL != "" {
			t.Errorf("AudioURL = %q, want empty", entry.AudioURL)
		}
		if !entry.CreatedAt.Equal(testTime) {
			t.Errorf("CreatedAt = %v, want %v", entry.CreatedAt, testTime)
		}
		if entry.UpdatedAt == nil || !entry.UpdatedAt.Equal(testTime) {
			t.Errorf("UpdatedAt = %v, want %v", entry.UpdatedAt, testTime)
		}
	})

	t.Run("round trip preserves draft fields", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		draft := testutil.Draft()

		saved, err := svc.SaveEntry(ctx, draft, "owner-a", "", 0)
		if err != nil {
			t.Fatalf("SaveEntry() error = %v", err)
		}

		got, err := store.GetEntry(ctx, saved.ID, "owner-a")
		if err != nil {
			t.Fatalf("GetEntry() error = %v", err)
		}
		if got.Title != draft.Title || got.Transcript != draft.Transcript || got.Summary != draft.Summary {
			t.Errorf("text fields differ: %+v", got)
		}
		if !reflect.DeepEqual(got.Tags, draft.Tags) || !reflect.DeepEqual(got.Keywords, draft.Keywords) {
			t.Errorf("lists differ: tags %v keywords %v", got.Tags, got.Keywords)
		}
		if got.Mood != draft.Mood {
			t.Errorf("Mood = %q, want %q", got.Mood, draft.Mood)
		}
	})

	t.Run("drops empty and duplicate tags", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		draft := testutil.Draft()
		draft.Tags = []string{"flying", "", "flying", "  ", "nature"}

		entry, err := svc.SaveEntry(ctx, draft, "owner-a", "", 0)
		if err != nil {
			t.Fatalf("SaveEntry() error = %v", err)
		}
		if want := []string{"flying", "nature"}; !reflect.DeepEqual(entry.Tags, want) {
			t.Errorf("Tags = %v, want %v", entry.Tags, want)
		}
	})

	t.Run("rejects draft without transcript", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		draft := testutil.Draft()
		draft.Transcript = "  "

		if _, err := svc.SaveEntry(ctx, draft, "owner-a", "", 0); !errors.Is(err, dream.ErrPersistence) {
			t.Fatalf("SaveEntry() error = %v, want ErrPersistence", err)
		}
	})
}

func TestDreamService_UpdateEntry(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	saved, err := svc.SaveEntry(ctx, testutil.Draft(), "owner-a", "", 0)
	if err != nil {
		t.Fatalf("SaveEntry() error = %v", err)
	}

	t.Run("rejects unknown mood", func(t *testing.T) {
		bad := model.Mood("wistful")
		_, err := svc.UpdateEntry(ctx, saved.ID, "owner-a", model.EntryPatch{Mood: &bad})
		if !errors.Is(err, dream.ErrSchema) {
			t.Fatalf("UpdateEntry() error = %v, want ErrSchema", err)
		}
	})

	t.Run("rejects emptying the transcript", func(t *testing.T) {
		empty := ""
		_, err := svc.UpdateEntry(ctx, saved.ID, "owner-a", model.EntryPatch{Transcript: &empty})
		if !errors.Is(err, dream.ErrPersistence) {
			t.Fatalf("UpdateEntry() error = %v, want ErrPersistence", err)
		}
	})

	t.Run("applies valid patch", func(t *testing.T) {
		mood := model.MoodCurious
		got, err := svc.UpdateEntry(ctx, saved.ID, "owner-a", model.EntryPatch{Mood: &mood})
		if err != nil {
			t.Fatalf("UpdateEntry() error = %v", err)
		}
		if got.Mood != model.MoodCurious {
			t.Errorf("Mood = %q, want curious", got.Mood)
		}
	})
}

func TestDreamService_DeleteEntry(t *testing.T) {
	ctx := context.Background()

	save := func(t *testing.T, svc *dream.DreamService, withAudio bool) *model.DreamEntry {
		t.Helper()
		audioURL := ""
		if withAudio {
			path := writeAudioFile(t, "recording.m4a", "m4a-bytes")
			var err error
			audioURL, err = svc.UploadAudio(ctx, path, "owner-a")
			if err != nil {
				t.Fatalf("UploadAudio() error = %v", err)
			}
		}
		entry, err := svc.SaveEntry(ctx, testutil.Draft(), "owner-a", audioURL, 0)
		if err != nil {
			t.Fatalf("SaveEntry() error = %v", err)
		}
		return entry
	}

	t.Run("deletes audio object before the row", func(t *testing.T) {
		svc, store, m := newTestService(t)
		entry := save(t, svc, true)

		if err := svc.DeleteEntry(ctx, entry.ID, "owner-a"); err != nil {
			t.Fatalf("DeleteEntry() error = %v", err)
		}
		if m.Has("owner-a/recording.m4a") {
			t.Error("audio object still present after delete")
		}
		if got := m.Deletes(); !reflect.DeepEqual(got, []string{"owner-a/recording.m4a"}) {
			t.Errorf("media deletes = %v", got)
		}
		if _, err := store.GetEntry(ctx, entry.ID, "owner-a"); !errors.Is(err, dream.ErrNotFound) {
			t.Errorf("row still present after delete: %v", err)
		}
	})

	t.Run("media failure does not block the row delete", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		m := &failingDeleteMedia{MemoryStore: media.NewMemoryStore()}
		svc := dream.NewDreamService(store, m, dream.NewNopLogger(), testutil.FixedClock{T: testTime}, &testutil.SeqIDs{})

		entry := save(t, svc, true)

		if err := svc.DeleteEntry(ctx, entry.ID, "owner-a"); err != nil {
			t.Fatalf("DeleteEntry() error = %v, want success despite media failure", err)
		}
		if _, err := store.GetEntry(ctx, entry.ID, "owner-a"); !errors.Is(err, dream.ErrNotFound) {
			t.Errorf("row still present after delete: %v", err)
		}
	})

	t.Run("text-only entry deletes without touching media", func(t *testing.T) {
		svc, _, m := newTestService(t)
		entry := save(t, svc, false)

		if err := svc.DeleteEntry(ctx, entry.ID, "owner-a"); err != nil {
			t.Fatalf("DeleteEntry() error = %v", err)
		}
		if got := m.Deletes(); len(got) != 0 {
			t.Errorf("media deletes = %v, want none", got)
		}
	})

	t.Run("cross-owner delete fails", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		entry := save(t, svc, false)

		if err := svc.DeleteEntry(ctx, entry.ID, "owner-b"); !errors.Is(err, dream.ErrNotFound) {
			t.Fatalf("DeleteEntry() cross-owner error = %v, want ErrNotFound", err)
		}
	})
}

// failingDeleteMedia fails every Delete to exercise the best-effort path.
type failingDeleteMedia struct {
	*media.MemoryStore
}

func (f *failingDeleteMedia) Delete(context.Context, string) error {
	return fmt.Errorf("storage unavailable")
}

// writerBuffer is a minimal io.Writer capturing bytes.
type writerBuffer struct {
	data []byte
}

func (b *writerBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *writerBuffer) String() string { return string(b.data) }

var _ io.Writer = (*writerBuffer)(nil)
