package sale

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/agrovest/shares/internal/breaker"
	"github.com/agrovest/shares/internal/domain"
	"github.com/agrovest/shares/internal/guard"
	"github.com/agrovest/shares/internal/store"
	"github.com/agrovest/shares/internal/treasury"
)

// memState is a snapshot of ledger state. Atomic clones it, applies the
// callback to the clone and swaps it in only on success, so a failed
// transaction leaves the visible state untouched.
type memState struct {
	assets      map[int64]domain.AssetClass
	holdings    map[string]map[int64]uint64
	balances    map[string]uint64
	purchases   []domain.PurchaseReceipt
	withdrawals []domain.WithdrawalReceipt
}

func (s memState) clone() memState {
	c := memState{
		assets:      make(map[int64]domain.AssetClass, len(s.assets)),
		holdings:    make(map[string]map[int64]uint64, len(s.holdings)),
		balances:    make(map[string]uint64, len(s.balances)),
		purchases:   append([]domain.PurchaseReceipt(nil), s.purchases...),
		withdrawals: append([]domain.WithdrawalReceipt(nil), s.withdrawals...),
	}
	for id, a := range s.assets {
		c.assets[id] = a
	}
	for owner, parts := range s.holdings {
		inner := make(map[int64]uint64, len(parts))
		for id, n := range parts {
			inner[id] = n
		}
		c.holdings[owner] = inner
	}
	for acc, bal := range s.balances {
		c.balances[acc] = bal
	}
	return c
}

type memStore struct {
	state memState

	// failTransfer, when set, makes matching transfers fail inside the
	// transaction.
	failTransfer func(from, to string) error
	// onTransfer runs before each transfer; used to provoke reentrancy.
	onTransfer func(from, to string)
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		assets:   map[int64]domain.AssetClass{},
		holdings: map[string]map[int64]uint64{},
		balances: map[string]uint64{store.TreasuryAccount: 0},
	}}
}

func (m *memStore) GetAsset(_ context.Context, id int64) (domain.AssetClass, error) {
	asset, ok := m.state.assets[id]
	if !ok {
		return domain.AssetClass{}, domain.ErrUnknownAsset
	}
	return asset, nil
}

func (m *memStore) AccountBalance(_ context.Context, account string) (uint64, error) {
	return m.state.balances[account], nil
}

func (m *memStore) CreditAccount(_ context.Context, account string, amount uint64) error {
	m.state.balances[account] += amount
	return nil
}

func (m *memStore) Atomic(_ context.Context, fn func(tx store.Tx) error) error {
	tx := &memTx{store: m, state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

type memTx struct {
	store *memStore
	state memState
}

func (t *memTx) ClaimParts(_ context.Context, assetID int64, parts uint64) error {
	asset, ok := t.state.assets[assetID]
	if !ok || asset.SoldParts+parts > asset.MaxParts {
		return domain.ErrSupplyExceeded
	}
	asset.SoldParts += parts
	t.state.assets[assetID] = asset
	return nil
}

func (t *memTx) MintParts(_ context.Context, owner string, assetID int64, parts uint64) error {
	if t.state.holdings[owner] == nil {
		t.state.holdings[owner] = map[int64]uint64{}
	}
	t.state.holdings[owner][assetID] += parts
	return nil
}

func (t *memTx) Transfer(_ context.Context, from, to string, amount uint64) error {
	if t.store.onTransfer != nil {
		t.store.onTransfer(from, to)
	}
	if t.store.failTransfer != nil {
		if err := t.store.failTransfer(from, to); err != nil {
			return err
		}
	}
	if t.state.balances[from] < amount {
		return fmt.Errorf("%w: insufficient balance in %s", domain.ErrTransferFailed, from)
	}
	t.state.balances[from] -= amount
	t.state.balances[to] += amount
	return nil
}

func (t *memTx) AccountBalance(_ context.Context, account string) (uint64, error) {
	return t.state.balances[account], nil
}

func (t *memTx) RecordPurchase(_ context.Context, rec domain.PurchaseReceipt) (domain.PurchaseReceipt, error) {
	rec.ID = int64(len(t.state.purchases) + 1)
	rec.CreatedAt = time.Now()
	t.state.purchases = append(t.state.purchases, rec)
	return rec, nil
}

func (t *memTx) RecordWithdrawal(_ context.Context, destination string, amount uint64) (domain.WithdrawalReceipt, error) {
	rec := domain.WithdrawalReceipt{
		ID:          int64(len(t.state.withdrawals) + 1),
		Destination: destination,
		Amount:      amount,
		CreatedAt:   time.Now(),
	}
	t.state.withdrawals = append(t.state.withdrawals, rec)
	return rec, nil
}

type ownerGate struct{ owner string }

func (g ownerGate) IsOwner(principal string) bool { return principal == g.owner }

func newTestService(m *memStore) (*Service, *breaker.Switch) {
	brk := breaker.New()
	return NewService(m, brk, guard.New()), brk
}

func TestBuyExactPayment(t *testing.T) {
	m := newMemStore()
	m.state.assets[1] = domain.AssetClass{ID: 1, Name: "orchard", PricePerPart: 1000, MaxParts: 10, Active: true}
	m.state.balances["alice"] = 5000
	svc, _ := newTestService(m)

	receipt, err := svc.Buy(context.Background(), "alice", 1, 3, 3000)
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if receipt.Cost != 3000 || receipt.Refund != 0 || receipt.Parts != 3 {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if got := m.state.assets[1].SoldParts; got != 3 {
		t.Errorf("SoldParts = %d, want 3", got)
	}
	if got := m.state.holdings["alice"][1]; got != 3 {
		t.Errorf("holdings = %d, want 3", got)
	}
	if got := m.state.balances["alice"]; got != 2000 {
		t.Errorf("buyer balance = %d, want 2000", got)
	}
	if got := m.state.balances[store.TreasuryAccount]; got != 3000 {
		t.Errorf("treasury balance = %d, want 3000", got)
	}
	if len(m.state.purchases) != 1 {
		t.Errorf("purchases journaled = %d, want 1", len(m.state.purchases))
	}
}

func TestBuyOverpaymentRefunded(t *testing.T) {
	m := newMemStore()
	m.state.assets[1] = domain.AssetClass{ID: 1, PricePerPart: 1000, MaxParts: 10, Active: true}
	m.state.balances["bob"] = 5000
	svc, _ := newTestService(m)

	receipt, err := svc.Buy(context.Background(), "bob", 1, 3, 3500)
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if receipt.Refund != 500 {
		t.Errorf("Refund = %d, want 500", receipt.Refund)
	}
	if got := m.state.balances["bob"]; got != 2000 {
		t.Errorf("buyer balance = %d, want 2000", got)
	}
	if got := m.state.balances[store.TreasuryAccount]; got != 3000 {
		t.Errorf("treasury balance = %d, want 3000", got)
	}
}

func TestBuyRejections(t *testing.T) {
	tests := []struct {
		name    string
		asset   domain.AssetClass
		parts   uint64
		payment uint64
		wantErr error
	}{
		{
			"inactive asset",
			domain.AssetClass{ID: 1, PricePerPart: 1000, MaxParts: 10, Active: false},
			3, 3000, domain.ErrAssetInactive,
		},
		{
			// The active check comes before quantity validation.
			"inactive asset with zero parts",
			domain.AssetClass{ID: 1, PricePerPart: 1000, MaxParts: 10, Active: false},
			0, 0, domain.ErrAssetInactive,
		},
		{
			"zero parts",
			domain.AssetClass{ID: 1, PricePerPart: 1000, MaxParts: 10, Active: true},
			0, 0, domain.ErrInvalidQuantity,
		},
		{
			"over per-purchase cap",
			domain.AssetClass{ID: 1, PricePerPart: 1, MaxParts: 1000, Active: true},
			domain.MaxPartsPerPurchase + 1, 1000, domain.ErrInvalidQuantity,
		},
		{
			"supply exceeded",
			domain.AssetClass{ID: 1, PricePerPart: 1000, MaxParts: 10, SoldParts: 8, Active: true},
			5, 5000, domain.ErrSupplyExceeded,
		},
		{
			"underpayment",
			domain.AssetClass{ID: 1, PricePerPart: 1000, MaxParts: 10, Active: true},
			3, 2999, domain.ErrInsufficientPayment,
		},
		{
			// Cost overflows uint64, so no payment can cover it.
			"cost overflow",
			domain.AssetClass{ID: 1, PricePerPart: ^uint64(0), MaxParts: 10, Active: true},
			2, ^uint64(0), domain.ErrInsufficientPayment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemStore()
			m.state.assets[1] = tt.asset
			m.state.balances["alice"] = ^uint64(0)
			svc, _ := newTestService(m)

			_, err := svc.Buy(context.Background(), "alice", 1, tt.parts, tt.payment)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got := m.state.assets[1].SoldParts; got != tt.asset.SoldParts {
				t.Errorf("SoldParts changed to %d on rejected purchase", got)
			}
			if len(m.state.purchases) != 0 {
				t.Error("rejected purchase was journaled")
			}
		})
	}
}

func TestBuyUnknownAsset(t *testing.T) {
	svc, _ := newTestService(newMemStore())

	_, err := svc.Buy(context.Background(), "alice", 42, 1, 1000)
	if !errors.Is(err, domain.ErrUnknownAsset) {
		t.Errorf("error = %v, want ErrUnknownAsset", err)
	}
}

func TestBuyPaused(t *testing.T) {
	m := newMemStore()
	m.state.assets[1] = domain.AssetClass{ID: 1, PricePerPart: 1000, MaxParts: 10, Active: true}
	m.state.balances["alice"] = 5000
	svc, brk := newTestService(m)

	brk.Pause()
	if _, err := svc.Buy(context.Background(), "alice", 1, 3, 3000); !errors.Is(err, domain.ErrSystemPaused) {
		t.Fatalf("error = %v, want ErrSystemPaused", err)
	}

	brk.Unpause()
	if _, err := svc.Buy(context.Background(), "alice", 1, 3, 3000); err != nil {
		t.Fatalf("Buy after unpause failed: %v", err)
	}
}

func TestBuyPaymentCollectionFails(t *testing.T) {
	m := newMemStore()
	m.state.assets[1] = domain.AssetClass{ID: 1, PricePerPart: 1000, MaxParts: 10, Active: true}
	// Buyer account holds nothing.
	svc, _ := newTestService(m)

	_, err := svc.Buy(context.Background(), "alice", 1, 3, 3000)
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("error = %v, want ErrTransferFailed", err)
	}
	if got := m.state.assets[1].SoldParts; got != 0 {
		t.Errorf("SoldParts = %d after failed payment, want 0", got)
	}
	if got := m.state.holdings["alice"][1]; got != 0 {
		t.Errorf("holdings = %d after failed payment, want 0", got)
	}
}

func TestBuyRefundFailureRollsBackEverything(t *testing.T) {
	m := newMemStore()
	m.state.assets[1] = domain.AssetClass{ID: 1, PricePerPart: 1000, MaxParts: 10, Active: true}
	m.state.balances["alice"] = 5000
	m.failTransfer = func(from, to string) error {
		if from == store.TreasuryAccount {
			return errors.New("destination rejected the refund")
		}
		return nil
	}
	svc, _ := newTestService(m)

	_, err := svc.Buy(context.Background(), "alice", 1, 3, 3500)
	if !errors.Is(err, domain.ErrRefundFailed) {
		t.Fatalf("error = %v, want ErrRefundFailed", err)
	}

	// Nothing observable: no mint, no sold count, no payment movement, no journal row.
	if got := m.state.assets[1].SoldParts; got != 0 {
		t.Errorf("SoldParts = %d, want 0", got)
	}
	if got := m.state.holdings["alice"][1]; got != 0 {
		t.Errorf("holdings = %d, want 0", got)
	}
	if got := m.state.balances["alice"]; got != 5000 {
		t.Errorf("buyer balance = %d, want 5000", got)
	}
	if got := m.state.balances[store.TreasuryAccount]; got != 0 {
		t.Errorf("treasury balance = %d, want 0", got)
	}
	if len(m.state.purchases) != 0 {
		t.Error("failed purchase was journaled")
	}
}

func TestBuyReentrantCallRejected(t *testing.T) {
	m := newMemStore()
	m.state.assets[1] = domain.AssetClass{ID: 1, PricePerPart: 1000, MaxParts: 10, Active: true}
	m.state.balances["alice"] = 10000
	svc, _ := newTestService(m)

	var inner error
	m.onTransfer = func(from, to string) {
		if from == "alice" {
			_, inner = svc.Buy(context.Background(), "alice", 1, 1, 1000)
		}
	}

	receipt, err := svc.Buy(context.Background(), "alice", 1, 3, 3000)
	if err != nil {
		t.Fatalf("outer Buy failed: %v", err)
	}
	if !errors.Is(inner, domain.ErrReentrantCall) {
		t.Errorf("inner error = %v, want ErrReentrantCall", inner)
	}
	if receipt.Parts != 3 || m.state.assets[1].SoldParts != 3 {
		t.Errorf("outer purchase affected by rejected reentrant call: %+v", receipt)
	}
}

// Full sale round: three buyers against a 10-part class, then the owner drains
// the proceeds.
func TestSaleRoundAndWithdrawal(t *testing.T) {
	ctx := context.Background()
	m := newMemStore()
	m.state.assets[1] = domain.AssetClass{ID: 1, Name: "orchard-2026", PricePerPart: 1000, MaxParts: 10, Active: true}
	m.state.balances["alice"] = 3000
	m.state.balances["bob"] = 3500
	m.state.balances["carol"] = 5000

	brk := breaker.New()
	grd := guard.New()
	saleSvc := NewService(m, brk, grd)
	treasurySvc := treasury.NewService(m, ownerGate{owner: "owner"}, grd)

	r1, err := saleSvc.Buy(ctx, "alice", 1, 3, 3000)
	if err != nil {
		t.Fatalf("alice's purchase failed: %v", err)
	}
	if r1.Refund != 0 {
		t.Errorf("alice's refund = %d, want 0", r1.Refund)
	}

	r2, err := saleSvc.Buy(ctx, "bob", 1, 3, 3500)
	if err != nil {
		t.Fatalf("bob's purchase failed: %v", err)
	}
	if r2.Refund != 500 {
		t.Errorf("bob's refund = %d, want 500", r2.Refund)
	}

	if _, err := saleSvc.Buy(ctx, "carol", 1, 5, 5000); !errors.Is(err, domain.ErrSupplyExceeded) {
		t.Fatalf("carol's purchase error = %v, want ErrSupplyExceeded", err)
	}

	if got := m.state.assets[1].Remaining(); got != 4 {
		t.Errorf("remaining = %d, want 4", got)
	}
	if got := m.state.balances[store.TreasuryAccount]; got != 6000 {
		t.Errorf("treasury = %d, want 6000", got)
	}

	rec, err := treasurySvc.Withdraw(ctx, "owner", "farm-bank")
	if err != nil {
		t.Fatalf("withdrawal failed: %v", err)
	}
	if rec.Amount != 6000 {
		t.Errorf("withdrawn = %d, want 6000", rec.Amount)
	}
	if got := m.state.balances[store.TreasuryAccount]; got != 0 {
		t.Errorf("treasury after withdrawal = %d, want 0", got)
	}
	if got := m.state.balances["farm-bank"]; got != 6000 {
		t.Errorf("destination balance = %d, want 6000", got)
	}
}
