package server

import (
	"errors"
	"fmt"
)

var (
	// ErrServerClosed is returned by Do after Close.
	ErrServerClosed = errors.New("server: closed")

	// ErrUnexpectedFrame is reported to a viewer that sends a frame type
	// other than FrameEvent.
	ErrUnexpectedFrame = errors.New("server: unexpected frame type")

	// ErrSlowViewer is the close reason for a viewer whose send queue
	// overflowed.
	ErrSlowViewer = errors.New("server: viewer send queue full")
)

// ViewerError wraps an error with the viewer it concerns.
type ViewerError struct {
	Viewer string // Request ID of the websocket upgrade
	Op     string // Operation that failed
	Err    error  // Underlying error
}

// Error returns the error message with viewer context.
func (e *ViewerError) Error() string {
	if e.Viewer == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: viewer %s: %s: %v", e.Viewer, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ViewerError) Unwrap() error {
	return e.Err
}
