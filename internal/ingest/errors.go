package ingest

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the Supervisor wraps exactly one.
var (
	// ErrConfiguration means the relay cannot be launched as configured.
	ErrConfiguration = errors.New("ingest: configuration error")

	// ErrStateConflict means the request contradicts the registry. Not retryable.
	ErrStateConflict = errors.New("ingest: state conflict")

	// ErrProcess means the subprocess could not be spawned. Nothing was registered.
	ErrProcess = errors.New("ingest: process error")
)

var (
	ErrBinaryNotFound = fmt.Errorf("%w: relay binary not found", ErrConfiguration)
	ErrAlreadyRunning = fmt.Errorf("%w: relay already running", ErrStateConflict)
	ErrNotRunning     = fmt.Errorf("%w: relay not running", ErrStateConflict)
)

// errShutdownTimeout is logged when a relay ignores the interrupt. It never
// reaches callers: Stop succeeds once the relay is gone.
var errShutdownTimeout = errors.New("ingest: relay did not exit within grace period")
