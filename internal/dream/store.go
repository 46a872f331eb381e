package dream

import (
	"context"

	"dreamlog/internal/model"
)

// EntryStore is the relational store for dream entries. Every mutating
// operation is scoped to (id, ownerID): a caller can never touch another
// owner's row, and a scope miss surfaces as ErrNotFound.
type EntryStore interface {
	// InsertEntry writes a fully populated entry. The caller stamps ID,
	// timestamps and flags before calling.
	InsertEntry(ctx context.Context, e *model.DreamEntry) error

	// GetEntry returns the entry matching id and ownerID, or ErrNotFound.
	GetEntry(ctx context.Context, id, ownerID string) (*model.DreamEntry, error)

	// ListEntries returns the owner's active (non-soft-deleted) entries,
	// newest first.
	ListEntries(ctx context.Context, ownerID string) ([]model.DreamEntry, error)

	// UpdateEntry applies the non-nil fields of patch to the row matching id
	// and ownerID, stamps UpdatedAt, and returns the updated entry.
	UpdateEntry(ctx context.Context, id, ownerID string, patch model.EntryPatch) (*model.DreamEntry, error)

	// SoftDeleteEntry stamps DeletedAt on the row matching id and ownerID.
	SoftDeleteEntry(ctx context.Context, id, ownerID string) error

	// DeleteEntry removes the row matching id and ownerID.
	DeleteEntry(ctx context.Context, id, ownerID string) error

	// ToggleStar flips the starred flag on the row matching id and ownerID.
	ToggleStar(ctx context.Context, id, ownerID string) error

	// SearchEntries returns the owner's active entries whose title,
	// transcript, summary, tags or keywords match the query, newest first.
	SearchEntries(ctx context.Context, ownerID, query string) ([]model.DreamEntry, error)

	// Close releases the underlying connection.
	Close() error
}
