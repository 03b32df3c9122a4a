package protocol

import "errors"

// Decode failures are values, not panics: a single bad peer frame must
// never take down a live control session. Callers log and drop.
var (
	// ErrMalformedFrame is returned when a frame is not valid JSON or
	// lacks required fields.
	ErrMalformedFrame = errors.New("protocol: malformed frame")

	// ErrSchemaMismatch is returned when parallel name/value arrays
	// disagree in length.
	ErrSchemaMismatch = errors.New("protocol: schema mismatch")

	// ErrUnknownType is returned for an unrecognized frame type.
	ErrUnknownType = errors.New("protocol: unknown frame type")

	// ErrUnknownMode is returned for an unrecognized command mode.
	ErrUnknownMode = errors.New("protocol: unknown command mode")
)
