// Package metadata resolves display metadata URIs for asset classes from an
// admin-set base URI.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agrovest/shares/internal/domain"
	"github.com/agrovest/shares/internal/gate"
)

// AssetGetter validates that an id names a registered asset class.
type AssetGetter interface {
	GetAsset(ctx context.Context, id int64) (domain.AssetClass, error)
}

// Resolver renders per-asset metadata URIs as <base><id>.json.
type Resolver struct {
	mu     sync.RWMutex
	base   string
	assets AssetGetter
	gate   gate.Gate
}

// NewResolver creates a Resolver with an initial base URI.
func NewResolver(base string, assets AssetGetter, g gate.Gate) *Resolver {
	if assets == nil {
		panic("metadata.NewResolver: assets is nil")
	}
	if g == nil {
		panic("metadata.NewResolver: gate is nil")
	}
	return &Resolver{base: base, assets: assets, gate: g}
}

// SetBase replaces the metadata base URI. Owner-only.
func (r *Resolver) SetBase(caller, base string) error {
	if !r.gate.IsOwner(caller) {
		return domain.ErrUnauthorized
	}
	r.mu.Lock()
	r.base = base
	r.mu.Unlock()
	slog.Info("metadata: base URI updated", "base", base)
	return nil
}

// Base returns the current base URI.
func (r *Resolver) Base() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.base
}

// URI returns the metadata URI for a registered asset class.
func (r *Resolver) URI(ctx context.Context, id int64) (string, error) {
	if _, err := r.assets.GetAsset(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d.json", r.Base(), id), nil
}
