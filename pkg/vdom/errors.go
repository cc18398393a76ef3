package vdom

import (
	"errors"
	"fmt"
)

// ErrNilContainer is returned when Render or Unmount is given a nil container.
var ErrNilContainer = errors.New("vdom: nil container")

// ErrUnknownTag is returned (or, from H, panicked) for a tag that names
// neither an element nor a component.
var ErrUnknownTag = errors.New("vdom: unknown tag")

// RenderError is a failure inside a component: a panic or an error value
// returned from Render, or a failure constructing the component.
type RenderError struct {
	Component string // Component name
	Panic     any    // Recovered panic value, if the render panicked
	Stack     []byte // Stack at the panic
	Err       error  // Returned or wrapped error
}

// Error returns the error message.
func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vdom: render %s: %v", e.Component, e.Err)
	}
	return fmt.Sprintf("vdom: render %s: panic: %v", e.Component, e.Panic)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// asRenderError wraps err for component name unless it already is a
// *RenderError.
func asRenderError(name string, err error) error {
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{Component: name, Err: err}
}

// panicError converts a recovered panic value.
func panicError(name string, p any, stack []byte) *RenderError {
	re := &RenderError{Component: name, Panic: p, Stack: stack}
	if err, ok := p.(error); ok {
		re.Err = err
	}
	return re
}
