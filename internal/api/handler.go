// Package api exposes the sale ledger over HTTP. Failures carry a stable
// error kind end to end: every service sentinel maps to one status code so
// callers can tell a rejection that will never succeed from a transient one.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/agrovest/shares/internal/breaker"
	"github.com/agrovest/shares/internal/domain"
	"github.com/agrovest/shares/internal/metadata"
	"github.com/agrovest/shares/internal/registry"
	"github.com/agrovest/shares/internal/sale"
	"github.com/agrovest/shares/internal/treasury"
)

// LedgerReader provides the public token-ledger reads.
type LedgerReader interface {
	BalanceOf(ctx context.Context, owner string, assetID int64) (uint64, error)
	ListPurchases(ctx context.Context, limit int) ([]domain.PurchaseReceipt, error)
}

// OwnerGate authorizes the pause/unpause endpoints and handles ownership
// transfer.
type OwnerGate interface {
	IsOwner(principal string) bool
	TransferOwnership(caller, newOwner string) error
}

// Handler provides the HTTP endpoints.
type Handler struct {
	registry *registry.Service
	sale     *sale.Service
	treasury *treasury.Service
	metadata *metadata.Resolver
	breaker  *breaker.Switch
	gate     OwnerGate
	ledger   LedgerReader
}

// NewHandler creates a new API handler.
func NewHandler(reg *registry.Service, s *sale.Service, t *treasury.Service, m *metadata.Resolver, b *breaker.Switch, g OwnerGate, l LedgerReader) *Handler {
	return &Handler{
		registry: reg,
		sale:     s,
		treasury: t,
		metadata: m,
		breaker:  b,
		gate:     g,
		ledger:   l,
	}
}

// principal extracts the caller principal from the Authorization header.
// Public endpoints tolerate an empty principal; owner-gated services reject it.
func principal(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

func assetID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

// RegisterAsset handles POST /api/v1/assets.
func (h *Handler) RegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		PricePerPart uint64 `json:"pricePerPart"`
		MaxParts     uint64 `json:"maxParts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset, err := h.registry.Register(r.Context(), principal(r), req.Name, req.PricePerPart, req.MaxParts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

// ListAssets handles GET /api/v1/assets.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.registry.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if assets == nil {
		assets = []domain.AssetClass{}
	}
	writeJSON(w, http.StatusOK, assets)
}

// GetAsset handles GET /api/v1/assets/{id}.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	asset, err := h.registry.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// GetRemaining handles GET /api/v1/assets/{id}/remaining.
func (h *Handler) GetRemaining(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	remaining, err := h.registry.Remaining(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"remaining": remaining})
}

// GetMetadataURI handles GET /api/v1/assets/{id}/metadata.
func (h *Handler) GetMetadataURI(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	uri, err := h.metadata.URI(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uri": uri})
}

// UpdatePrice handles PATCH /api/v1/assets/{id}/price.
func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	var req struct {
		PricePerPart uint64 `json:"pricePerPart"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.registry.UpdatePrice(r.Context(), principal(r), id, req.PricePerPart); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeactivateAsset handles POST /api/v1/assets/{id}/deactivate.
func (h *Handler) DeactivateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	if err := h.registry.Deactivate(r.Context(), principal(r), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Buy handles POST /api/v1/assets/{id}/buy.
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	var req struct {
		Buyer   string `json:"buyer"`
		Parts   uint64 `json:"parts"`
		Payment uint64 `json:"payment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Buyer == "" {
		writeError(w, http.StatusBadRequest, "buyer is required")
		return
	}

	receipt, err := h.sale.Buy(r.Context(), req.Buyer, id, req.Parts, req.Payment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// GetUserBalance handles GET /api/v1/balances/{owner}/{id}.
func (h *Handler) GetUserBalance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	owner := r.PathValue("owner")
	parts, err := h.ledger.BalanceOf(r.Context(), owner, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"parts": parts})
}

// ListPurchases handles GET /api/v1/purchases.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 500
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}
	receipts, err := h.ledger.ListPurchases(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if receipts == nil {
		receipts = []domain.PurchaseReceipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// TreasuryBalance handles GET /api/v1/treasury.
func (h *Handler) TreasuryBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.treasury.Balance(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

// Deposit handles POST /api/v1/treasury/deposit.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   string `json:"from"`
		Amount uint64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.treasury.Deposit(r.Context(), req.From, req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Withdraw handles POST /api/v1/treasury/withdraw.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Destination == "" {
		writeError(w, http.StatusBadRequest, "destination is required")
		return
	}
	receipt, err := h.treasury.Withdraw(r.Context(), principal(r), req.Destination)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// FundAccount handles POST /api/v1/accounts/{id}/credit.
func (h *Handler) FundAccount(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("id")
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.treasury.FundAccount(r.Context(), principal(r), account, req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMetadataBase handles PUT /api/v1/metadata/base.
func (h *Handler) SetMetadataBase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Base string `json:"base"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.metadata.SetBase(principal(r), req.Base); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransferOwnership handles POST /api/v1/owner/transfer.
func (h *Handler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewOwner string `json:"newOwner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewOwner == "" {
		writeError(w, http.StatusBadRequest, "newOwner is required")
		return
	}
	if err := h.gate.TransferOwnership(principal(r), req.NewOwner); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pause handles POST /api/v1/pause.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	if !h.gate.IsOwner(principal(r)) {
		writeDomainError(w, domain.ErrUnauthorized)
		return
	}
	h.breaker.Pause()
	w.WriteHeader(http.StatusNoContent)
}

// Unpause handles POST /api/v1/unpause.
func (h *Handler) Unpause(w http.ResponseWriter, r *http.Request) {
	if !h.gate.IsOwner(principal(r)) {
		writeDomainError(w, domain.ErrUnauthorized)
		return
	}
	h.breaker.Unpause()
	w.WriteHeader(http.StatusNoContent)
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUnknownAsset):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidCapacity),
		errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientPayment):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrAssetInactive),
		errors.Is(err, domain.ErrSupplyExceeded),
		errors.Is(err, domain.ErrNoFunds),
		errors.Is(err, domain.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSystemPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrRefundFailed),
		errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		slog.Error("api: internal error", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
