// Package gate provides the access-control capability: a single privileged
// owner principal that gates admin operations and can be handed over.
package gate

import (
	"crypto/subtle"
	"log/slog"
	"sync"

	"github.com/agrovest/shares/internal/domain"
)

// Gate answers whether a principal is the privileged owner.
type Gate interface {
	IsOwner(principal string) bool
}

// StaticGate holds the owner principal in memory. Ownership is transferable
// by the current owner only.
type StaticGate struct {
	mu    sync.RWMutex
	owner string
}

// New creates a StaticGate owned by the given principal.
func New(owner string) *StaticGate {
	return &StaticGate{owner: owner}
}

// IsOwner reports whether principal is the current owner. The comparison is
// constant-time so the check cannot be used to probe the owner value.
func (g *StaticGate) IsOwner(principal string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return subtle.ConstantTimeCompare([]byte(principal), []byte(g.owner)) == 1
}

// Owner returns the current owner principal.
func (g *StaticGate) Owner() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.owner
}

// TransferOwnership hands the gate to newOwner. Only the current owner may
// transfer it.
func (g *StaticGate) TransferOwnership(caller, newOwner string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if subtle.ConstantTimeCompare([]byte(caller), []byte(g.owner)) != 1 {
		return domain.ErrUnauthorized
	}
	g.owner = newOwner
	slog.Info("gate: ownership transferred", "newOwner", newOwner)
	return nil
}
