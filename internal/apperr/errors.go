// Package apperr defines the error taxonomy shared by services and controllers.
// Services wrap these sentinels with context; controllers map them to HTTP
// statuses with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound: the referenced test or attempt does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyAssigned: an attempt ledger already exists for this
	// (candidate, test) pair, in any state.
	ErrAlreadyAssigned = errors.New("test already assigned to candidate")

	// ErrAlreadyFinished: the attempt has reached a terminal state and no
	// further submission is accepted.
	ErrAlreadyFinished = errors.New("test already finished")

	// ErrInvalidInput: malformed payload or missing identifiers. No partial
	// write has been performed.
	ErrInvalidInput = errors.New("invalid input")
)
