package session

import "errors"

var (
	errQueueFull = errors.New("session outbound queue full")
	// ErrClosed is returned when replying to a session that has ended.
	ErrClosed = errors.New("session closed")
)
