package dream

import (
	"context"
	"io"
)

// MediaStore provides object storage for audio artifacts. Objects are keyed
// by "<ownerID>/<filename>" and writes are upserts: putting the same key twice
// overwrites the previous object, so re-running a failed save is safe.
type MediaStore interface {
	// Put stores an object and returns its public URL.
	// size is the number of bytes that will be read from r.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)

	// Get retrieves an object by key and writes it to w.
	Get(ctx context.Context, key string, w io.Writer) error

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// KeyFromURL derives the object key from a URL previously returned by
	// Put. Returns "" if the URL does not belong to this store.
	KeyFromURL(url string) string

	// ValidateSetup verifies that the store is accessible and properly
	// configured.
	ValidateSetup(ctx context.Context) error
}
