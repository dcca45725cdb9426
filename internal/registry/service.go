// Package registry is the durable catalog of sellable asset classes: their
// price, capacity, sold count and active flag. Classes are created once and
// never deleted; only price and the active flag are mutable, and sold counts
// move only through successful purchases.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agrovest/shares/internal/domain"
	"github.com/agrovest/shares/internal/gate"
)

// Storage defines the persistence the registry needs.
type Storage interface {
	InsertAsset(ctx context.Context, name string, pricePerPart, maxParts uint64) (domain.AssetClass, error)
	UpdateAssetPrice(ctx context.Context, id int64, pricePerPart uint64) error
	DeactivateAsset(ctx context.Context, id int64) error
	GetAsset(ctx context.Context, id int64) (domain.AssetClass, error)
	AssetCount(ctx context.Context) (int64, error)
	ListAssets(ctx context.Context) ([]domain.AssetClass, error)
}

// Service exposes the asset registry operations. Mutations are owner-gated;
// reads are public.
type Service struct {
	store Storage
	gate  gate.Gate
}

// NewService creates a registry Service. Both dependencies are required.
func NewService(store Storage, g gate.Gate) *Service {
	if store == nil {
		panic("registry.NewService: store is nil")
	}
	if g == nil {
		panic("registry.NewService: gate is nil")
	}
	return &Service{store: store, gate: g}
}

// Register creates a new asset class with the next sequential id, zero sold
// parts and the active flag set. The price and capacity must both be positive.
func (s *Service) Register(ctx context.Context, caller, name string, pricePerPart, maxParts uint64) (domain.AssetClass, error) {
	if !s.gate.IsOwner(caller) {
		return domain.AssetClass{}, domain.ErrUnauthorized
	}
	if pricePerPart == 0 {
		return domain.AssetClass{}, domain.ErrInvalidPrice
	}
	if maxParts == 0 {
		return domain.AssetClass{}, domain.ErrInvalidCapacity
	}

	asset, err := s.store.InsertAsset(ctx, name, pricePerPart, maxParts)
	if err != nil {
		return domain.AssetClass{}, fmt.Errorf("registering asset: %w", err)
	}

	slog.Info("registry: asset registered",
		"id", asset.ID,
		"name", asset.Name,
		"pricePerPart", asset.PricePerPart,
		"maxParts", asset.MaxParts,
	)
	return asset, nil
}

// UpdatePrice sets a new per-part price for an existing asset class.
//
// Known validation gap, kept deliberately: unlike Register, a zero price is
// accepted here, which makes every purchase of the asset free until the price
// is raised again. Callers relying on a floor must enforce it themselves.
func (s *Service) UpdatePrice(ctx context.Context, caller string, id int64, pricePerPart uint64) error {
	if !s.gate.IsOwner(caller) {
		return domain.ErrUnauthorized
	}
	if id < 1 {
		return domain.ErrUnknownAsset
	}
	if err := s.store.UpdateAssetPrice(ctx, id, pricePerPart); err != nil {
		return err
	}
	slog.Info("registry: price updated", "id", id, "pricePerPart", pricePerPart)
	return nil
}

// Deactivate disables sales for an asset class. Idempotent. There is no
// reactivation operation: deactivation is one-directional.
func (s *Service) Deactivate(ctx context.Context, caller string, id int64) error {
	if !s.gate.IsOwner(caller) {
		return domain.ErrUnauthorized
	}
	if id < 1 {
		return domain.ErrUnknownAsset
	}
	if err := s.store.DeactivateAsset(ctx, id); err != nil {
		return err
	}
	slog.Info("registry: asset deactivated", "id", id)
	return nil
}

// Get returns the asset class for the id.
func (s *Service) Get(ctx context.Context, id int64) (domain.AssetClass, error) {
	return s.store.GetAsset(ctx, id)
}

// Remaining returns the unsold capacity of the asset class.
func (s *Service) Remaining(ctx context.Context, id int64) (uint64, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return 0, err
	}
	return asset.Remaining(), nil
}

// List returns all registered asset classes ordered by id.
func (s *Service) List(ctx context.Context) ([]domain.AssetClass, error) {
	return s.store.ListAssets(ctx)
}

// Count returns how many asset classes have been registered.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.AssetCount(ctx)
}
