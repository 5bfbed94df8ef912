package services

import "errors"

// Error kinds surfaced to the transport layer. Services wrap these
// sentinels with a human-readable message via fmt.Errorf and %w;
// handlers classify with errors.Is. Missing records are reported with
// store.ErrNotFound and uniqueness violations with store.ErrConflict.
var (
	// ErrForbidden marks an authorization denial.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState marks an operation rejected by the current
	// lifecycle state (claiming an inactive item, a disallowed claim
	// status transition).
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation marks malformed input: a bad enum value, a future
	// event date, an oversized or wrong-type image.
	ErrValidation = errors.New("invalid input")
)
