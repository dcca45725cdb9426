// Package sale implements the purchase engine: it validates a purchase
// request against supply and price, then applies the sold-count increment,
// the mint, the payment collection and any overpayment refund as one atomic
// transaction. The engine holds no state of its own.
package sale

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agrovest/shares/internal/breaker"
	"github.com/agrovest/shares/internal/domain"
	"github.com/agrovest/shares/internal/guard"
	"github.com/agrovest/shares/internal/store"
)

// Storage defines the persistence the engine needs: asset reads plus an
// atomic transaction for the purchase mutations.
type Storage interface {
	GetAsset(ctx context.Context, id int64) (domain.AssetClass, error)
	Atomic(ctx context.Context, fn func(tx store.Tx) error) error
}

// Service executes purchases.
type Service struct {
	store   Storage
	breaker breaker.Breaker
	guard   *guard.Guard
}

// NewService creates a purchase engine. The guard must be the same instance
// the treasury uses, so a purchase cannot re-enter an in-flight withdrawal
// and vice versa.
func NewService(storage Storage, brk breaker.Breaker, g *guard.Guard) *Service {
	if storage == nil {
		panic("sale.NewService: storage is nil")
	}
	if brk == nil {
		panic("sale.NewService: breaker is nil")
	}
	if g == nil {
		panic("sale.NewService: guard is nil")
	}
	return &Service{store: storage, breaker: brk, guard: g}
}

// Buy purchases parts of an asset class for the buyer, paying payment from
// the buyer's account. On success the buyer holds parts more units, the sold
// count has grown by parts, the treasury has grown by the total cost, and any
// overpayment has been returned to the buyer.
//
// Preconditions are checked in a fixed order so rejection is deterministic:
// paused, unknown asset, inactive asset, quantity bounds, remaining supply,
// payment coverage. All arithmetic on counters and amounts is
// overflow-checked. Every effect happens inside one transaction: a failed
// refund (or any other failed step) aborts the purchase with nothing
// observable, including the mint and the sold-count increment.
func (s *Service) Buy(ctx context.Context, buyer string, assetID int64, parts, payment uint64) (domain.PurchaseReceipt, error) {
	var receipt domain.PurchaseReceipt

	err := s.guard.Do(func() error {
		if s.breaker.Paused() {
			return domain.ErrSystemPaused
		}

		asset, err := s.store.GetAsset(ctx, assetID)
		if err != nil {
			return err
		}
		if !asset.Active {
			return domain.ErrAssetInactive
		}
		if parts < domain.MinPartsPerPurchase || parts > domain.MaxPartsPerPurchase {
			return domain.ErrInvalidQuantity
		}
		sold, ok := domain.CheckedAdd(asset.SoldParts, parts)
		if !ok || sold > asset.MaxParts {
			return domain.ErrSupplyExceeded
		}
		cost, ok := domain.TotalCost(asset.PricePerPart, parts)
		if !ok {
			// The true cost exceeds the largest representable amount, so no
			// payment can cover it.
			return domain.ErrInsufficientPayment
		}
		if payment < cost {
			return domain.ErrInsufficientPayment
		}
		refund := payment - cost

		return s.store.Atomic(ctx, func(tx store.Tx) error {
			if err := tx.ClaimParts(ctx, assetID, parts); err != nil {
				return err
			}
			if err := tx.MintParts(ctx, buyer, assetID, parts); err != nil {
				return fmt.Errorf("minting parts: %w", err)
			}
			if err := tx.Transfer(ctx, buyer, store.TreasuryAccount, payment); err != nil {
				return fmt.Errorf("collecting payment: %w", err)
			}
			rec, err := tx.RecordPurchase(ctx, domain.PurchaseReceipt{
				Buyer:   buyer,
				AssetID: assetID,
				Parts:   parts,
				Payment: payment,
				Cost:    cost,
				Refund:  refund,
			})
			if err != nil {
				return fmt.Errorf("recording purchase: %w", err)
			}
			if refund > 0 {
				if err := tx.Transfer(ctx, store.TreasuryAccount, buyer, refund); err != nil {
					return fmt.Errorf("%w: %v", domain.ErrRefundFailed, err)
				}
			}
			receipt = rec
			return nil
		})
	})
	if err != nil {
		return domain.PurchaseReceipt{}, err
	}

	slog.Info("sale: purchase completed",
		"buyer", receipt.Buyer,
		"assetId", receipt.AssetID,
		"parts", receipt.Parts,
		"payment", receipt.Payment,
		"refund", receipt.Refund,
	)
	return receipt, nil
}
