package display

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is wrapped by RenderError when Render runs before a
	// successful Initialize.
	ErrNotInitialized = errors.New("display not initialized")
	// ErrClosed is wrapped by RenderError after Shutdown.
	ErrClosed = errors.New("display shut down")
)

// InitError reports that the panel could not be brought up. Startup aborts
// on it.
type InitError struct {
	Model string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize display %q: %v", e.Model, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// RenderError reports a failed draw. Consecutive counts the failure streak
// including this one.
type RenderError struct {
	Consecutive int
	Err         error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
