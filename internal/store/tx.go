package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/agrovest/shares/internal/domain"
)

// pgTx implements Tx over one pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) ClaimParts(ctx context.Context, assetID int64, parts uint64) error {
	// The WHERE clause re-checks capacity under the row lock, so the
	// sold_parts <= max_parts invariant holds regardless of what the caller
	// observed before the transaction began.
	tag, err := t.tx.Exec(ctx,
		`UPDATE asset_classes
		 SET sold_parts = sold_parts + $2
		 WHERE id = $1 AND sold_parts + $2 <= max_parts`,
		assetID, int64(parts))
	if err != nil {
		return fmt.Errorf("claiming %d parts of asset %d: %w", parts, assetID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSupplyExceeded
	}
	return nil
}

func (t *pgTx) MintParts(ctx context.Context, owner string, assetID int64, parts uint64) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO holdings (owner, asset_id, parts) VALUES ($1, $2, $3)
		 ON CONFLICT (owner, asset_id) DO UPDATE SET parts = holdings.parts + $3`,
		owner, assetID, int64(parts))
	if err != nil {
		return fmt.Errorf("minting %d parts of asset %d to %s: %w", parts, assetID, owner, err)
	}
	return nil
}

func (t *pgTx) Transfer(ctx context.Context, from, to string, amount uint64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $2 WHERE id = $1 AND balance >= $2`,
		from, int64(amount))
	if err != nil {
		return fmt.Errorf("debiting %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s cannot cover %d", domain.ErrTransferFailed, from, amount)
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO accounts (id, balance) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET balance = accounts.balance + $2`,
		to, int64(amount))
	if err != nil {
		return fmt.Errorf("crediting %s: %w", to, err)
	}
	return nil
}

func (t *pgTx) AccountBalance(ctx context.Context, account string) (uint64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, account).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("getting balance for %s: %w", account, err)
	}
	return uint64(balance), nil
}

func (t *pgTx) RecordPurchase(ctx context.Context, rec domain.PurchaseReceipt) (domain.PurchaseReceipt, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO purchases (buyer, asset_id, parts, payment, cost, refund)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		rec.Buyer, rec.AssetID, int64(rec.Parts), int64(rec.Payment), int64(rec.Cost), int64(rec.Refund)).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return domain.PurchaseReceipt{}, fmt.Errorf("recording purchase: %w", err)
	}
	return rec, nil
}

func (t *pgTx) RecordWithdrawal(ctx context.Context, destination string, amount uint64) (domain.WithdrawalReceipt, error) {
	var rec domain.WithdrawalReceipt
	rec.Destination = destination
	rec.Amount = amount
	err := t.tx.QueryRow(ctx,
		`INSERT INTO withdrawals (destination, amount)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		destination, int64(amount)).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return domain.WithdrawalReceipt{}, fmt.Errorf("recording withdrawal: %w", err)
	}
	return rec, nil
}
