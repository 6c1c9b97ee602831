package app

import (
	"context"
	"time"
)

// ShutdownSignal is a one-way event shared by the supervisor and both
// loops. Once set it stays set. Its Context is cancelled at the same moment
// so in-flight HTTP requests abort.
type ShutdownSignal struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewShutdownSignal returns an unset signal.
func NewShutdownSignal() *ShutdownSignal {
	ctx, cancel := context.WithCancel(context.Background())
	return &ShutdownSignal{ctx: ctx, cancel: cancel}
}

// Set raises the signal. Calling it again has no effect.
func (s *ShutdownSignal) Set() {
	s.cancel()
}

// IsSet reports whether Set has been called.
func (s *ShutdownSignal) IsSet() bool {
	return s.ctx.Err() != nil
}

// Done is closed when the signal is set.
func (s *ShutdownSignal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context is cancelled when the signal is set.
func (s *ShutdownSignal) Context() context.Context {
	return s.ctx
}

// Sleep waits for d or until the signal is set, whichever comes first. It
// returns false when woken by the signal.
func (s *ShutdownSignal) Sleep(d time.Duration) bool {
	if s.IsSet() {
		return false
	}
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return !s.IsSet()
	case <-s.ctx.Done():
		return false
	}
}
