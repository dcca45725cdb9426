package domain

import "errors"

var (
	// ErrUnauthorized indicates the caller is not the privileged owner principal.
	ErrUnauthorized = errors.New("shares: unauthorized")

	// ErrInvalidPrice indicates an asset class was registered with a zero price.
	ErrInvalidPrice = errors.New("shares: price per part must be positive")

	// ErrInvalidCapacity indicates an asset class was registered with zero sellable parts.
	ErrInvalidCapacity = errors.New("shares: max parts must be positive")

	// ErrInvalidQuantity indicates the requested part count is outside [1, MaxPartsPerPurchase].
	ErrInvalidQuantity = errors.New("shares: invalid part quantity")

	// ErrUnknownAsset indicates the asset id does not name a registered asset class.
	ErrUnknownAsset = errors.New("shares: unknown asset")

	// ErrAssetInactive indicates the asset class has been deactivated for sale.
	ErrAssetInactive = errors.New("shares: asset is not active")

	// ErrSupplyExceeded indicates the purchase would push sold parts past capacity.
	ErrSupplyExceeded = errors.New("shares: not enough parts remaining")

	// ErrInsufficientPayment indicates the attached payment does not cover the total cost.
	ErrInsufficientPayment = errors.New("shares: insufficient payment")

	// ErrNoFunds indicates a withdrawal was attempted against an empty treasury.
	ErrNoFunds = errors.New("shares: no funds to withdraw")

	// ErrRefundFailed indicates the overpayment refund transfer failed; the purchase is aborted.
	ErrRefundFailed = errors.New("shares: refund transfer failed")

	// ErrTransferFailed indicates the withdrawal value transfer failed; no balance is deducted.
	ErrTransferFailed = errors.New("shares: value transfer failed")

	// ErrReentrantCall indicates a guarded operation was re-entered while already in flight.
	ErrReentrantCall = errors.New("shares: reentrant call")

	// ErrSystemPaused indicates the circuit breaker is engaged and purchases are blocked.
	ErrSystemPaused = errors.New("shares: system is paused")
)
