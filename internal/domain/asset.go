package domain

import "time"

// Purchase quantity bounds. The per-call ceiling limits how many parts a
// single purchase may claim; it is not a per-buyer or per-asset cap.
const (
	MinPartsPerPurchase uint64 = 1
	MaxPartsPerPurchase uint64 = 100
)

// AssetClass is one investable offering: a named pool of identical sellable
// parts with an admin-set unit price. Ids are assigned sequentially from 1;
// id 0 is reserved as "no asset".
type AssetClass struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PricePerPart uint64    `json:"pricePerPart"`
	MaxParts     uint64    `json:"maxParts"`
	SoldParts    uint64    `json:"soldParts"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Remaining returns the unsold capacity. SoldParts never exceeds MaxParts,
// so the subtraction cannot underflow.
func (a AssetClass) Remaining() uint64 {
	return a.MaxParts - a.SoldParts
}

// SoldOut reports whether every part has been sold. Exhaustion is emergent
// from the counters; asset classes are never deleted.
func (a AssetClass) SoldOut() bool {
	return a.SoldParts == a.MaxParts
}
