package domain

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid caller input.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates a state conflict such as a duplicate order number.
	ErrConflict = errors.New("conflict")

	// ErrInvalidStateTransition indicates a disallowed order status change.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrProofNotUploaded indicates dispatch was requested before a proof exists.
	ErrProofNotUploaded = errors.New("proof not uploaded")

	// ErrTokenCollisionExhausted indicates token generation failed after bounded retries.
	ErrTokenCollisionExhausted = errors.New("token collision retries exhausted")

	// ErrShortLinkNotFound indicates an unknown public short code.
	ErrShortLinkNotFound = errors.New("short link not found")
)
