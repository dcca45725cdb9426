package api

import (
	"net/http"
	"time"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, h *Handler) *http.Server {
	mux := http.NewServeMux()

	// Public reads
	mux.HandleFunc("GET /api/v1/assets", h.ListAssets)
	mux.HandleFunc("GET /api/v1/assets/{id}", h.GetAsset)
	mux.HandleFunc("GET /api/v1/assets/{id}/remaining", h.GetRemaining)
	mux.HandleFunc("GET /api/v1/assets/{id}/metadata", h.GetMetadataURI)
	mux.HandleFunc("GET /api/v1/balances/{owner}/{id}", h.GetUserBalance)
	mux.HandleFunc("GET /api/v1/purchases", h.ListPurchases)
	mux.HandleFunc("GET /api/v1/treasury", h.TreasuryBalance)

	// Public mutations
	mux.HandleFunc("POST /api/v1/assets/{id}/buy", h.Buy)
	mux.HandleFunc("POST /api/v1/treasury/deposit", h.Deposit)

	// Owner-gated mutations; authorization happens in the services, keyed on
	// the bearer principal.
	mux.HandleFunc("POST /api/v1/assets", h.RegisterAsset)
	mux.HandleFunc("PATCH /api/v1/assets/{id}/price", h.UpdatePrice)
	mux.HandleFunc("POST /api/v1/assets/{id}/deactivate", h.DeactivateAsset)
	mux.HandleFunc("POST /api/v1/treasury/withdraw", h.Withdraw)
	mux.HandleFunc("POST /api/v1/accounts/{id}/credit", h.FundAccount)
	mux.HandleFunc("PUT /api/v1/metadata/base", h.SetMetadataBase)
	mux.HandleFunc("POST /api/v1/owner/transfer", h.TransferOwnership)
	mux.HandleFunc("POST /api/v1/pause", h.Pause)
	mux.HandleFunc("POST /api/v1/unpause", h.Unpause)

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
