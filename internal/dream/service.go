package dream

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dreamlog/internal/model"
)

const audioContentType = "audio/m4a"

// DreamService is the persistence layer of the pipeline: it uploads audio
// artifacts to the media store and writes entries to the entry store. All
// mutating operations are scoped to the owning user.
type DreamService struct {
	store  EntryStore
	media  MediaStore
	logger Logger
	clock  Clock
	idgen  IDGenerator
}

// NewDreamService creates a DreamService with the provided dependencies.
func NewDreamService(store EntryStore, media MediaStore, logger Logger, clock Clock, idgen IDGenerator) *DreamService {
	return &DreamService{
		store:  store,
		media:  media,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
	}
}

// UploadAudio uploads a local audio file to the media store under a key
// namespaced by owner and filename, overwriting any existing object at that
// key. Returns the public URL, or "" (not an error) when there is no audio to
// upload or no owner to namespace it under.
func (s *DreamService) UploadAudio(ctx context.Context, audioPath, ownerID string) (string, error) {
	if audioPath == "" || ownerID == "" {
		return "", nil
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("reading audio file info: %w", err)
	}

	key := ownerID + "/" + filepath.Base(audioPath)
	url, err := s.media.Put(ctx, key, f, info.Size(), audioContentType)
	if err != nil {
		s.logger.Error("audio upload failed", "key", key, "error", err)
		return "", fmt.Errorf("uploading audio: %w", err)
	}

	s.logger.Info("audio uploaded", "key", key)
	return url, nil
}

// SaveEntry persists a draft as a new entry for the owner, stamping identity,
// timestamps and default flags. audioURL may be empty for text-only entries.
func (s *DreamService) SaveEntry(ctx context.Context, draft *model.DreamDraft, ownerID, audioURL string, audioSeconds float64) (*model.DreamEntry, error) {
	if draft == nil || strings.TrimSpace(draft.Transcript) == "" {
		return nil, fmt.Errorf("%w: draft has no transcript", ErrPersistence)
	}

	now := s.clock.Now()
	entry := &model.DreamEntry{
		ID:           s.idgen.New(),
		OwnerID:      ownerID,
		Title:        draft.Title,
		Transcript:   draft.Transcript,
		Summary:      draft.Summary,
		Tags:         cleanList(draft.Tags),
		Keywords:     cleanList(draft.Keywords),
		Mood:         draft.Mood,
		AudioURL:     audioURL,
		AudioSeconds: audioSeconds,
		CreatedAt:    now,
		UpdatedAt:    &now,
		Starred:      false,
	}

	if err := s.store.InsertEntry(ctx, entry); err != nil {
		s.logger.Error("entry insert failed", "owner", ownerID, "error", err)
		return nil, fmt.Errorf("%w: inserting entry: %v", ErrPersistence, err)
	}

	s.logger.Info("entry saved", "id", entry.ID, "owner", ownerID)
	return entry, nil
}

// GetEntry returns the owner's entry by id.
func (s *DreamService) GetEntry(ctx context.Context, id, ownerID string) (*model.DreamEntry, error) {
	return s.store.GetEntry(ctx, id, ownerID)
}

// ListEntries returns the owner's active entries, newest first.
func (s *DreamService) ListEntries(ctx context.Context, ownerID string) ([]model.DreamEntry, error) {
	return s.store.ListEntries(ctx, ownerID)
}

// SearchEntries returns the owner's active entries matching the query.
func (s *DreamService) SearchEntries(ctx context.Context, ownerID, query string) ([]model.DreamEntry, error) {
	return s.store.SearchEntries(ctx, ownerID, query)
}

// UpdateEntry applies a partial update to the owner's entry. A patched mood
// must be in the fixed enumeration.
func (s *DreamService) UpdateEntry(ctx context.Context, id, ownerID string, patch model.EntryPatch) (*model.DreamEntry, error) {
	if patch.Mood != nil && !patch.Mood.Valid() {
		return nil, fmt.Errorf("%w: unknown mood %q", ErrSchema, *patch.Mood)
	}
	if patch.Transcript != nil && strings.TrimSpace(*patch.Transcript) == "" {
		return nil, fmt.Errorf("%w: transcript may not be emptied", ErrPersistence)
	}
	patch.Tags = cleanList(patch.Tags)
	patch.Keywords = cleanList(patch.Keywords)

	entry, err := s.store.UpdateEntry(ctx, id, ownerID, patch)
	if err != nil {
		return nil, fmt.Errorf("updating entry: %w", err)
	}

	s.logger.Info("entry updated", "id", id, "owner", ownerID)
	return entry, nil
}

// SoftDeleteEntry marks the owner's entry deleted without touching the row or
// its audio artifact.
func (s *DreamService) SoftDeleteEntry(ctx context.Context, id, ownerID string) error {
	if err := s.store.SoftDeleteEntry(ctx, id, ownerID); err != nil {
		return fmt.Errorf("soft-deleting entry: %w", err)
	}
	s.logger.Info("entry soft-deleted", "id", id, "owner", ownerID)
	return nil
}

// DeleteEntry removes the owner's entry and its audio artifact. The audio
// deletion is best effort: a media-store failure is logged and the row delete
// proceeds.
func (s *DreamService) DeleteEntry(ctx context.Context, id, ownerID string) error {
	entry, err := s.store.GetEntry(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("loading entry for delete: %w", err)
	}

	if entry.AudioURL != "" {
		if key := s.media.KeyFromURL(entry.AudioURL); key != "" {
			if err := s.media.Delete(ctx, key); err != nil {
				s.logger.Warn("audio delete failed, removing row anyway", "key", key, "error", err)
			}
		}
	}

	if err := s.store.DeleteEntry(ctx, id, ownerID); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}

	s.logger.Info("entry deleted", "id", id, "owner", ownerID)
	return nil
}

// ToggleStar flips the starred flag on the owner's entry.
func (s *DreamService) ToggleStar(ctx context.Context, id, ownerID string) error {
	if err := s.store.ToggleStar(ctx, id, ownerID); err != nil {
		return fmt.Errorf("toggling star: %w", err)
	}
	return nil
}

// cleanList drops empty strings and duplicates while preserving order.
func cleanList(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
