package scheduler

import "errors"

// Sentinel errors for scheduling operations.
var (
	// ErrUnknownPolicy reports a policy name that is not greedy or
	// balanced. A configuration error, never retried.
	ErrUnknownPolicy = errors.New("unknown assignment policy")

	// ErrInvalidConstraints reports malformed batch constraints.
	ErrInvalidConstraints = errors.New("invalid assignment constraints")

	// ErrPreviewNotFound reports a preview id that is unknown, expired,
	// or already finalized. Finalize is not idempotent by design.
	ErrPreviewNotFound = errors.New("preview not found or already finalized")
)
