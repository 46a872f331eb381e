package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dreamlog/internal/dream"
	"dreamlog/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the EntryStore interface using SQLite. Tag and
// keyword lists are stored as JSON arrays in text columns.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite entry store.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// DB exposes the underlying connection for migration checks.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

const entryColumns = `id, owner_id, title, transcript, summary, tags, keywords,
	mood, audio_url, audio_seconds, created_at, updated_at, is_starred, deleted_at`

// InsertEntry writes a fully populated entry.
func (s *SQLiteStore) InsertEntry(ctx context.Context, e *model.DreamEntry) error {
	tags, err := marshalList(e.Tags)
	if err != nil {
		return err
	}
	keywords, err := marshalList(e.Keywords)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dreams (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Title, e.Transcript, e.Summary, tags, keywords,
		nullMood(e.Mood), e.AudioURL, e.AudioSeconds, e.CreatedAt, nullTime(e.UpdatedAt),
		e.Starred, nullTime(e.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

// GetEntry returns the entry matching id and ownerID.
func (s *SQLiteStore) GetEntry(ctx context.Context, id, ownerID string) (*model.DreamEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM dreams
		WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: entry %s", dream.ErrNotFound, id)
		}
		return nil, fmt.Errorf("loading entry: %w", err)
	}
	return e, nil
}

// ListEntries returns the owner's active entries, newest first.
func (s *SQLiteStore) ListEntries(ctx context.Context, ownerID string) ([]model.DreamEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM dreams
		WHERE owner_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// SearchEntries returns the owner's active entries whose text fields match
// the query, newest first.
func (s *SQLiteStore) SearchEntries(ctx context.Context, ownerID, query string) ([]model.DreamEntry, error) {
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM dreams
		WHERE owner_id = ? AND deleted_at IS NULL
		  AND (title LIKE ? OR transcript LIKE ? OR summary LIKE ? OR tags LIKE ? OR keywords LIKE ?)
		ORDER BY created_at DESC`,
		ownerID, like, like, like, like, like,
	)
	if err != nil {
		return nil, fmt.Errorf("searching entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// UpdateEntry applies the non-nil fields of patch to the row matching id and
// ownerID, stamps updated_at, and returns the updated entry.
func (s *SQLiteStore) UpdateEntry(ctx context.Context, id, ownerID string, patch model.EntryPatch) (*model.DreamEntry, error) {
	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if patch.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Transcript != nil {
		set = append(set, "transcript = ?")
		args = append(args, *patch.Transcript)
	}
	if patch.Summary != nil {
		set = append(set, "summary = ?")
		args = append(args, *patch.Summary)
	}
	if patch.Tags != nil {
		tags, err := marshalList(patch.Tags)
		if err != nil {
			return nil, err
		}
		set = append(set, "tags = ?")
		args = append(args, tags)
	}
	if patch.Keywords != nil {
		keywords, err := marshalList(patch.Keywords)
		if err != nil {
			return nil, err
		}
		set = append(set, "keywords = ?")
		args = append(args, keywords)
	}
	if patch.Mood != nil {
		set = append(set, "mood = ?")
		args = append(args, string(*patch.Mood))
	}
	if patch.Starred != nil {
		set = append(set, "is_starred = ?")
		args = append(args, *patch.Starred)
	}

	args = append(args, id, ownerID)
	res, err := s.db.ExecContext(ctx, `
		UPDATE dreams SET `+strings.Join(set, ", ")+`
		WHERE id = ? AND owner_id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("updating entry: %w", err)
	}
	if err := requireRow(res, id); err != nil {
		return nil, err
	}

	return s.GetEntry(ctx, id, ownerID)
}

// SoftDeleteEntry stamps deleted_at on the row matching id and ownerID.
func (s *SQLiteStore) SoftDeleteEntry(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE dreams SET deleted_at = ?
		WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("soft-deleting entry: %w", err)
	}
	return requireRow(res, id)
}

// DeleteEntry removes the row matching id and ownerID.
func (s *SQLiteStore) DeleteEntry(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM dreams WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return requireRow(res, id)
}

// ToggleStar flips the starred flag on the row matching id and ownerID.
func (s *SQLiteStore) ToggleStar(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE dreams SET is_starred = NOT is_starred, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("toggling star: %w", err)
	}
	return requireRow(res, id)
}

// requireRow maps a zero-row mutation to ErrNotFound; the (id, owner) scope
// is the authorization boundary, so a miss never reveals whether the row
// exists under another owner.
func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: entry %s", dream.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*model.DreamEntry, error) {
	var (
		e        model.DreamEntry
		tags     string
		keywords string
		mood     sql.NullString
		updated  sql.NullTime
		deleted  sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.Title, &e.Transcript, &e.Summary, &tags, &keywords,
		&mood, &e.AudioURL, &e.AudioSeconds, &e.CreatedAt, &updated, &e.Starred, &deleted,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &e.Keywords); err != nil {
		return nil, fmt.Errorf("decoding keywords: %w", err)
	}
	if mood.Valid {
		e.Mood = model.Mood(mood.String)
	}
	if updated.Valid {
		t := updated.Time
		e.UpdatedAt = &t
	}
	if deleted.Valid {
		t := deleted.Time
		e.DeletedAt = &t
	}
	return &e, nil
}

func collectEntries(rows *sql.Rows) ([]model.DreamEntry, error) {
	var entries []model.DreamEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}
	return entries, nil
}

func marshalList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(data), nil
}

func nullMood(m model.Mood) any {
	if m == "" {
		return nil
	}
	return string(m)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// Compile-time check that SQLiteStore implements dream.EntryStore.
var _ dream.EntryStore = (*SQLiteStore)(nil)
