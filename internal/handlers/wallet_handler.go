package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/quipstakes/backend/internal/middleware"
	"github.com/quipstakes/backend/internal/models"
)

const defaultLedgerPageSize = 50

// BalanceReader reads a player's current wallet and vault totals.
type BalanceReader interface {
	GetBalances(ctx context.Context, playerID uuid.UUID) (*models.Wallet, error)
}

// LedgerLister pages through a player's ledger history, newest first.
type LedgerLister interface {
	ListByPlayer(ctx context.Context, playerID uuid.UUID, limit int) ([]*models.LedgerEntry, error)
}

// WalletHandler serves the player's balances and ledger history.
type WalletHandler struct {
	Balances BalanceReader
	Entries  LedgerLister
	Logger   *slog.Logger
}

// Wallet handles GET /api/v1/wallet.
func (h *WalletHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.PlayerFromCtx(r.Context())
	if playerID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	wallet, err := h.Balances.GetBalances(r.Context(), playerID)
	if err != nil {
		h.Logger.Error("read balances", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// Ledger handles GET /api/v1/wallet/ledger. Accepts ?limit= up to 200.
func (h *WalletHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.PlayerFromCtx(r.Context())
	if playerID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	limit := defaultLedgerPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.Entries.ListByPlayer(r.Context(), playerID, limit)
	if err != nil {
		h.Logger.Error("list ledger", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
