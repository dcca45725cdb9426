package domain

import "time"

// PurchaseReceipt records one successful purchase: the minted quantity, what
// was paid, the computed cost and any overpayment returned to the buyer.
type PurchaseReceipt struct {
	ID        int64     `json:"id"`
	Buyer     string    `json:"buyer"`
	AssetID   int64     `json:"assetId"`
	Parts     uint64    `json:"parts"`
	Payment   uint64    `json:"payment"`
	Cost      uint64    `json:"cost"`
	Refund    uint64    `json:"refund"`
	CreatedAt time.Time `json:"createdAt"`
}

// WithdrawalReceipt records one treasury drain to a destination account.
type WithdrawalReceipt struct {
	ID          int64     `json:"id"`
	Destination string    `json:"destination"`
	Amount      uint64    `json:"amount"`
	CreatedAt   time.Time `json:"createdAt"`
}
