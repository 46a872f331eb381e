package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"dreamlog/internal/dream"
)

// MemoryStore is an in-memory implementation of the MediaStore interface,
// useful for testing. It is safe for concurrent use.
type MemoryStore struct {
	objects map[string][]byte
	types   map[string]string
	deletes []string
	mu      sync.RWMutex
}

const memoryURLPrefix = "memory://media/"

// NewMemoryStore creates a new in-memory media store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

// Put stores an object. Writing the same key twice overwrites (upsert).
func (m *MemoryStore) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read object: %w", err)
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return memoryURLPrefix + key, nil
}

// Get retrieves an object by key.
func (m *MemoryStore) Get(_ context.Context, key string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return fmt.Errorf("object not found: %s", key)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// Delete removes an object. Missing keys are not an error.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.types, key)
	m.deletes = append(m.deletes, key)
	return nil
}

// KeyFromURL derives the object key from a URL returned by Put.
func (m *MemoryStore) KeyFromURL(url string) string {
	if !strings.HasPrefix(url, memoryURLPrefix) {
		return ""
	}
	return strings.TrimPrefix(url, memoryURLPrefix)
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(context.Context) error { return nil }

// Has reports whether an object exists. Test helper.
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// ContentType returns the stored content type for a key. Test helper.
func (m *MemoryStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[key]
}

// Deletes returns the keys passed to Delete in order. Test helper.
func (m *MemoryStore) Deletes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deletes...)
}

// Compile-time check that MemoryStore implements dream.MediaStore.
var _ dream.MediaStore = (*MemoryStore)(nil)
