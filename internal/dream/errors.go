package dream

import "errors"

// Error taxonomy for the capture pipeline. Each layer wraps one of these
// sentinels with fmt.Errorf("...: %w", ...) so callers can classify failures
// with errors.Is while still logging the full chain.
var (
	// ErrPermissionDenied means the microphone (or another required
	// capability) was refused by the platform or the user.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNetwork is a transport-level failure before an HTTP status was
	// received.
	ErrNetwork = errors.New("network error")

	// ErrService is a non-2xx response from a remote API.
	ErrService = errors.New("service error")

	// ErrSchema means a remote response did not match the expected structure,
	// including a mood outside the fixed enumeration.
	ErrSchema = errors.New("schema violation")

	// ErrEmptyResult means the transcription service returned no text.
	ErrEmptyResult = errors.New("empty transcription result")

	// ErrConfig means a required credential or setting is missing. It is
	// surfaced before any network call is attempted.
	ErrConfig = errors.New("configuration error")

	// ErrPersistence is a write failure against the entry store.
	ErrPersistence = errors.New("persistence error")

	// ErrNotFound means no row matched the (id, owner) scope of an update or
	// delete. Rows owned by other users are indistinguishable from absent
	// rows on purpose.
	ErrNotFound = errors.New("entry not found or not owned by caller")
)
