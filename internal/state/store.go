package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/frida/internal/transit"
)

// Health describes the outcome of recent fetch attempts. It never affects
// which snapshot is current.
type Health struct {
	LastAttempt         time.Time
	LastSuccess         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline reports whether the API has failed at least twice in a row.
func (h Health) IsOffline() bool {
	return h.ConsecutiveFailures >= 2
}

// Store holds the current arrivals snapshot. The zero value is ready to use
// and holds the empty snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot transit.Snapshot
	health   Health
	now      func() time.Time
}

// Write replaces the current snapshot and clears the failure streak.
func (s *Store) Write(snap transit.Snapshot) {
	snap = snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.clock()
	s.snapshot = snap
	s.health.LastAttempt = ts
	s.health.LastSuccess = ts
	s.health.LastError = nil
	s.health.ConsecutiveFailures = 0
}

// RecordFailure notes a failed fetch. The current snapshot is left as is.
func (s *Store) RecordFailure(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.LastAttempt = s.clock()
	s.health.LastError = err
	s.health.ConsecutiveFailures++
}

// Read returns a copy of the most recently written snapshot.
func (s *Store) Read() transit.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Health returns a copy of the fetch health.
func (s *Store) Health() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.health
	if s.health.LastError != nil {
		h.LastError = fmt.Errorf("%w", s.health.LastError)
	}
	return h
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
