// Package breaker provides the circuit-breaker capability: a global paused
// flag that blocks the purchase path while engaged.
package breaker

import (
	"log/slog"
	"sync/atomic"
)

// Breaker reports whether purchases are currently blocked.
type Breaker interface {
	Paused() bool
}

// Switch is an atomic pause flag. The zero value is unpaused.
type Switch struct {
	paused atomic.Bool
}

// New creates an unpaused Switch.
func New() *Switch {
	return &Switch{}
}

// Paused reports whether the breaker is engaged.
func (s *Switch) Paused() bool {
	return s.paused.Load()
}

// Pause engages the breaker. Idempotent.
func (s *Switch) Pause() {
	if !s.paused.Swap(true) {
		slog.Info("breaker: paused")
	}
}

// Unpause releases the breaker. Idempotent.
func (s *Switch) Unpause() {
	if s.paused.Swap(false) {
		slog.Info("breaker: unpaused")
	}
}
