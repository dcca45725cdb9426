package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrovest/shares/internal/domain"
)

// PgStore implements Store with PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new PostgreSQL store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const assetColumns = `id, name, price_per_part, max_parts, sold_parts, active, created_at`

func scanAsset(row pgx.Row) (domain.AssetClass, error) {
	var a domain.AssetClass
	var price, maxParts, soldParts int64
	err := row.Scan(&a.ID, &a.Name, &price, &maxParts, &soldParts, &a.Active, &a.CreatedAt)
	if err != nil {
		return domain.AssetClass{}, err
	}
	a.PricePerPart = uint64(price)
	a.MaxParts = uint64(maxParts)
	a.SoldParts = uint64(soldParts)
	return a, nil
}

func (s *PgStore) GetAsset(ctx context.Context, id int64) (domain.AssetClass, error) {
	if id < 1 {
		return domain.AssetClass{}, domain.ErrUnknownAsset
	}
	a, err := scanAsset(s.pool.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM asset_classes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AssetClass{}, domain.ErrUnknownAsset
		}
		return domain.AssetClass{}, fmt.Errorf("getting asset %d: %w", id, err)
	}
	return a, nil
}

func (s *PgStore) AssetCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM asset_classes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting assets: %w", err)
	}
	return count, nil
}

func (s *PgStore) ListAssets(ctx context.Context) ([]domain.AssetClass, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+assetColumns+` FROM asset_classes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.AssetClass
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *PgStore) InsertAsset(ctx context.Context, name string, pricePerPart, maxParts uint64) (domain.AssetClass, error) {
	a, err := scanAsset(s.pool.QueryRow(ctx,
		`INSERT INTO asset_classes (name, price_per_part, max_parts)
		 VALUES ($1, $2, $3)
		 RETURNING `+assetColumns,
		name, int64(pricePerPart), int64(maxParts)))
	if err != nil {
		return domain.AssetClass{}, fmt.Errorf("inserting asset %q: %w", name, err)
	}
	return a, nil
}

func (s *PgStore) UpdateAssetPrice(ctx context.Context, id int64, pricePerPart uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE asset_classes SET price_per_part = $2 WHERE id = $1`,
		id, int64(pricePerPart))
	if err != nil {
		return fmt.Errorf("updating price for asset %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownAsset
	}
	return nil
}

func (s *PgStore) DeactivateAsset(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE asset_classes SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivating asset %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownAsset
	}
	return nil
}

func (s *PgStore) BalanceOf(ctx context.Context, owner string, assetID int64) (uint64, error) {
	var parts int64
	err := s.pool.QueryRow(ctx,
		`SELECT parts FROM holdings WHERE owner = $1 AND asset_id = $2`,
		owner, assetID).Scan(&parts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("getting holdings for %s/%d: %w", owner, assetID, err)
	}
	return uint64(parts), nil
}

func (s *PgStore) AccountBalance(ctx context.Context, account string) (uint64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE id = $1`, account).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("getting balance for %s: %w", account, err)
	}
	return uint64(balance), nil
}

func (s *PgStore) CreditAccount(ctx context.Context, account string, amount uint64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, balance) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET balance = accounts.balance + $2`,
		account, int64(amount))
	if err != nil {
		return fmt.Errorf("crediting account %s: %w", account, err)
	}
	return nil
}

func (s *PgStore) ListPurchases(ctx context.Context, limit int) ([]domain.PurchaseReceipt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, buyer, asset_id, parts, payment, cost, refund, created_at
		 FROM purchases ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	var receipts []domain.PurchaseReceipt
	for rows.Next() {
		r, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning purchase: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

func (s *PgStore) SalesRows(ctx context.Context) ([]SalesRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.name, a.price_per_part, a.max_parts, a.sold_parts, a.active, a.created_at,
		        COALESCE(SUM(p.cost), 0), COUNT(DISTINCT p.buyer)
		 FROM asset_classes a
		 LEFT JOIN purchases p ON p.asset_id = a.id
		 GROUP BY a.id
		 ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("aggregating sales: %w", err)
	}
	defer rows.Close()

	var result []SalesRow
	for rows.Next() {
		var r SalesRow
		var price, maxParts, soldParts, proceeds int64
		if err := rows.Scan(&r.Asset.ID, &r.Asset.Name, &price, &maxParts, &soldParts,
			&r.Asset.Active, &r.Asset.CreatedAt, &proceeds, &r.Buyers); err != nil {
			return nil, fmt.Errorf("scanning sales row: %w", err)
		}
		r.Asset.PricePerPart = uint64(price)
		r.Asset.MaxParts = uint64(maxParts)
		r.Asset.SoldParts = uint64(soldParts)
		r.Proceeds = uint64(proceeds)
		result = append(result, r)
	}
	return result, rows.Err()
}

// Atomic runs fn inside one transaction. Any error from fn rolls back every
// write made through the Tx; a nil return commits them all.
func (s *PgStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer pgtx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&pgTx{tx: pgtx}); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func scanPurchase(row pgx.Row) (domain.PurchaseReceipt, error) {
	var r domain.PurchaseReceipt
	var parts, payment, cost, refund int64
	err := row.Scan(&r.ID, &r.Buyer, &r.AssetID, &parts, &payment, &cost, &refund, &r.CreatedAt)
	if err != nil {
		return domain.PurchaseReceipt{}, err
	}
	r.Parts = uint64(parts)
	r.Payment = uint64(payment)
	r.Cost = uint64(cost)
	r.Refund = uint64(refund)
	return r, nil
}
