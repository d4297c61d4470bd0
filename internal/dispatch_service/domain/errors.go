package domain

import "errors"

var (
	// ErrNotFound indicates a referenced pair, user or reminder is missing.
	ErrNotFound = errors.New("resource not found")
	// ErrUnknownEventKind indicates an unrecognized event type tag.
	ErrUnknownEventKind = errors.New("unknown event kind")
	// ErrInvalidEvent indicates a malformed or incomplete event payload.
	ErrInvalidEvent = errors.New("invalid event payload")
)
