// Package store owns all durable state of the sale ledger: the asset class
// registry, per-owner token holdings, payment accounts and the purchase and
// withdrawal journal. Mutations that must be all-or-nothing run through
// Atomic; everything inside one Atomic call commits together or not at all.
package store

import (
	"context"

	"github.com/agrovest/shares/internal/domain"
)

// TreasuryAccount is the account that accumulates received payments until the
// owner withdraws them.
const TreasuryAccount = "treasury"

// SalesRow is a per-asset sales aggregate used for reporting.
type SalesRow struct {
	Asset    domain.AssetClass
	Proceeds uint64
	Buyers   int64
}

// Tx is the set of mutations available inside one atomic transaction. Any
// error returned from the Atomic callback rolls back every write made through
// the Tx.
type Tx interface {
	// ClaimParts increments sold_parts for the asset, guarded so the
	// sold_parts <= max_parts invariant can never be violated, even by a
	// racing writer. Returns ErrSupplyExceeded when the claim does not fit.
	ClaimParts(ctx context.Context, assetID int64, parts uint64) error

	// MintParts adds parts of the asset class to the owner's holdings.
	MintParts(ctx context.Context, owner string, assetID int64, parts uint64) error

	// Transfer moves amount between accounts. The source must exist and hold
	// at least amount; the destination is created if missing. A transfer that
	// cannot be applied fails with ErrTransferFailed.
	Transfer(ctx context.Context, from, to string, amount uint64) error

	// AccountBalance reads an account balance within the transaction.
	AccountBalance(ctx context.Context, account string) (uint64, error)

	// RecordPurchase journals a successful purchase and returns it with its
	// assigned id and timestamp.
	RecordPurchase(ctx context.Context, rec domain.PurchaseReceipt) (domain.PurchaseReceipt, error)

	// RecordWithdrawal journals a treasury withdrawal.
	RecordWithdrawal(ctx context.Context, destination string, amount uint64) (domain.WithdrawalReceipt, error)
}

// Store is the full persistence surface. Consumer packages depend on narrow
// subsets of it; PgStore is the PostgreSQL implementation.
type Store interface {
	GetAsset(ctx context.Context, id int64) (domain.AssetClass, error)
	AssetCount(ctx context.Context) (int64, error)
	ListAssets(ctx context.Context) ([]domain.AssetClass, error)
	InsertAsset(ctx context.Context, name string, pricePerPart, maxParts uint64) (domain.AssetClass, error)
	UpdateAssetPrice(ctx context.Context, id int64, pricePerPart uint64) error
	DeactivateAsset(ctx context.Context, id int64) error

	BalanceOf(ctx context.Context, owner string, assetID int64) (uint64, error)
	AccountBalance(ctx context.Context, account string) (uint64, error)
	CreditAccount(ctx context.Context, account string, amount uint64) error

	ListPurchases(ctx context.Context, limit int) ([]domain.PurchaseReceipt, error)
	SalesRows(ctx context.Context) ([]SalesRow, error)

	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
