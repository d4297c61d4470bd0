package domain

import "errors"

var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrNoDueItems indicates that nothing is currently due for processing.
	ErrNoDueItems = errors.New("no due items found")
	// ErrNotPending indicates an operation that requires a pending scheduled
	// message hit one that was already claimed or finalized.
	ErrNotPending = errors.New("scheduled message is not pending")
)
