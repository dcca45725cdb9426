// Package guard provides the reentrancy guard: a single-permit lock that
// fails fast instead of queuing. Operations that perform value transfers run
// under it so a transfer callback cannot re-enter mid-flight state.
package guard

import (
	"sync/atomic"

	"github.com/agrovest/shares/internal/domain"
)

// Guard is a fail-fast mutual-exclusion permit. The zero value is unlocked.
// The same instance must be shared by every operation in the same exclusion
// domain (here: buy and withdraw).
type Guard struct {
	held atomic.Bool
}

// New creates an unlocked Guard.
func New() *Guard {
	return &Guard{}
}

// Do runs fn while holding the permit. If the permit is already held the call
// fails immediately with ErrReentrantCall; there is no queuing or backoff.
// The permit is released on every exit path, including panics.
func (g *Guard) Do(fn func() error) error {
	if !g.held.CompareAndSwap(false, true) {
		return domain.ErrReentrantCall
	}
	defer g.held.Store(false)
	return fn()
}
