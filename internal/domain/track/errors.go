package track

import "errors"

// Sentinel kinds for track errors.
var (
	ErrEmpty           = errors.New("track has no samples")
	ErrNotMonotonic    = errors.New("track timestamps are not strictly increasing")
	ErrAlreadyRedacted = errors.New("track already redacted")
	ErrInvalidWindow   = errors.New("invalid redaction window")
)
