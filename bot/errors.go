package bot

import "errors"

// Error kinds for the recognition workflow. Absence of a match is not
// an error; it is a nil Song result.
var (
	// ErrAttachmentTooLarge means the inbound file exceeds the
	// transport download limit. Reported with a size-specific user
	// message, never retried.
	ErrAttachmentTooLarge = errors.New("attachment too large")

	// ErrBackendUnavailable means the fingerprinting backend is not
	// running or not configured.
	ErrBackendUnavailable = errors.New("recognition backend unavailable")
)
