package qfind

import "errors"

// Error kinds returned by the engine. Every operation returns exactly one of
// these (possibly wrapped with additional context via fmt.Errorf and %w), so
// callers can classify failures with errors.Is.
var (
	// ErrInvalidArgument indicates a nil handle, an empty query, or an
	// oversized path.
	ErrInvalidArgument = errors.New("qfind: invalid argument")

	// ErrBusy indicates an update batch is full and the background committer
	// has not yet drained it. The caller may retry.
	ErrBusy = errors.New("qfind: busy")

	// ErrNotFound indicates a delete was enqueued for a path that is not
	// present in the index.
	ErrNotFound = errors.New("qfind: not found")

	// ErrCorruption indicates a posting list failed to decode. The resolver
	// skips the affected trigram and continues with reduced recall; the error
	// surfaces directly only from low-level decode entry points.
	ErrCorruption = errors.New("qfind: corrupt posting list")

	// ErrIO indicates an upstream walker or notifier failure.
	ErrIO = errors.New("qfind: io error")

	// ErrClosed indicates the index has been closed.
	ErrClosed = errors.New("qfind: index closed")
)
