package snapshot

import "errors"

// Snapshot codec errors.
var (
	// ErrMalformedInput is returned when the buffer is not a parseable record.
	ErrMalformedInput = errors.New("malformed snapshot")

	// ErrSchemaMismatch is returned when the record parses but its fields
	// are missing, mistyped, out of range or inconsistent in length.
	ErrSchemaMismatch = errors.New("snapshot schema mismatch")

	// ErrReplayMismatch is returned by Verify when the stored series differs
	// from a fresh simulation of the same parameters.
	ErrReplayMismatch = errors.New("snapshot does not match simulation")
)
