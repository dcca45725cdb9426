// Package treasury manages the pool of received payments: it accumulates the
// proceeds of every sale (and any unsolicited deposit) and exposes the
// owner-gated withdrawal that drains the whole balance at once.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agrovest/shares/internal/domain"
	"github.com/agrovest/shares/internal/gate"
	"github.com/agrovest/shares/internal/guard"
	"github.com/agrovest/shares/internal/store"
)

// Storage defines the persistence the treasury needs.
type Storage interface {
	AccountBalance(ctx context.Context, account string) (uint64, error)
	CreditAccount(ctx context.Context, account string, amount uint64) error
	Atomic(ctx context.Context, fn func(tx store.Tx) error) error
}

// Service exposes treasury operations.
type Service struct {
	store Storage
	gate  gate.Gate
	guard *guard.Guard
}

// NewService creates a treasury Service. The guard must be the instance the
// purchase engine uses.
func NewService(storage Storage, g gate.Gate, grd *guard.Guard) *Service {
	if storage == nil {
		panic("treasury.NewService: storage is nil")
	}
	if g == nil {
		panic("treasury.NewService: gate is nil")
	}
	if grd == nil {
		panic("treasury.NewService: guard is nil")
	}
	return &Service{store: storage, gate: g, guard: grd}
}

// Withdraw drains the entire treasury balance to the destination account and
// records the withdrawal. Owner-only. Fails with ErrNoFunds on an empty
// treasury; a failed transfer leaves the balance untouched.
func (s *Service) Withdraw(ctx context.Context, caller, destination string) (domain.WithdrawalReceipt, error) {
	var receipt domain.WithdrawalReceipt

	err := s.guard.Do(func() error {
		if !s.gate.IsOwner(caller) {
			return domain.ErrUnauthorized
		}
		return s.store.Atomic(ctx, func(tx store.Tx) error {
			balance, err := tx.AccountBalance(ctx, store.TreasuryAccount)
			if err != nil {
				return fmt.Errorf("reading treasury balance: %w", err)
			}
			if balance == 0 {
				return domain.ErrNoFunds
			}
			if err := tx.Transfer(ctx, store.TreasuryAccount, destination, balance); err != nil {
				if errors.Is(err, domain.ErrTransferFailed) {
					return err
				}
				return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
			}
			rec, err := tx.RecordWithdrawal(ctx, destination, balance)
			if err != nil {
				return fmt.Errorf("recording withdrawal: %w", err)
			}
			receipt = rec
			return nil
		})
	})
	if err != nil {
		return domain.WithdrawalReceipt{}, err
	}

	slog.Info("treasury: withdrawal completed",
		"destination", receipt.Destination,
		"amount", receipt.Amount,
	)
	return receipt, nil
}

// Deposit accepts an unsolicited payment into the treasury. Anyone may
// deposit; the value is accepted silently.
func (s *Service) Deposit(ctx context.Context, from string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := s.store.CreditAccount(ctx, store.TreasuryAccount, amount); err != nil {
		return fmt.Errorf("depositing to treasury: %w", err)
	}
	slog.Info("treasury: deposit accepted", "from", from, "amount", amount)
	return nil
}

// FundAccount credits a payment account. Owner-only; this is the on-ramp for
// buyer balances.
func (s *Service) FundAccount(ctx context.Context, caller, account string, amount uint64) error {
	if !s.gate.IsOwner(caller) {
		return domain.ErrUnauthorized
	}
	if err := s.store.CreditAccount(ctx, account, amount); err != nil {
		return fmt.Errorf("funding account %s: %w", account, err)
	}
	slog.Info("treasury: account funded", "account", account, "amount", amount)
	return nil
}

// Balance returns the current treasury balance.
func (s *Service) Balance(ctx context.Context) (uint64, error) {
	return s.store.AccountBalance(ctx, store.TreasuryAccount)
}
