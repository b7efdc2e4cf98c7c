package overlay

import "errors"

// Package-specific errors. Operational misses (unknown ids, stale handles)
// are silent no-ops by design and never surface as errors.
var (
	// ErrParsingConfig is returned when environment variables cannot be
	// parsed into the config struct.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
)
