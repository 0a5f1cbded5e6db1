package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/quipstakes/backend/internal/ledger"
	"github.com/quipstakes/backend/internal/middleware"
	"github.com/quipstakes/backend/internal/pglock"
	"github.com/quipstakes/backend/internal/services"
)

// RoundStarter abstracts the selection engine.
type RoundStarter interface {
	StartRound(ctx context.Context, playerID uuid.UUID) (*services.RoundOffer, error)
}

// VoteResolver abstracts the settlement engine.
type VoteResolver interface {
	ResolveVote(ctx context.Context, roundID, chosenCaptionID, voterID uuid.UUID) (*services.PayoutResult, error)
}

// RoundHandler serves round start and vote resolution.
type RoundHandler struct {
	Selection  RoundStarter
	Settlement VoteResolver
	Logger     *slog.Logger
}

type captionView struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

type startRoundResponse struct {
	RoundID       uuid.UUID     `json:"round_id"`
	ImageID       uuid.UUID     `json:"image_id"`
	ImageAssetRef string        `json:"image_asset_ref"`
	EntryFeeCents int64         `json:"entry_fee_cents"`
	Captions      []captionView `json:"captions"`
}

// StartRound handles POST /api/v1/rounds. The response deliberately exposes
// only caption id and text: authorship and scores would leak selection bias.
func (h *RoundHandler) StartRound(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.PlayerFromCtx(r.Context())
	if playerID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	offer, err := h.Selection.StartRound(r.Context(), playerID)
	if err != nil {
		h.writeEngineError(w, "start round", err)
		return
	}

	resp := startRoundResponse{
		RoundID:       offer.Round.ID,
		ImageID:       offer.Image.ID,
		ImageAssetRef: offer.Image.AssetRef,
		EntryFeeCents: offer.Round.EntryFeeCents,
		Captions:      make([]captionView, 0, len(offer.Captions)),
	}
	for _, c := range offer.Captions {
		resp.Captions = append(resp.Captions, captionView{ID: c.ID, Text: c.Text})
	}
	writeJSON(w, http.StatusCreated, resp)
}

type voteRequest struct {
	CaptionID string `json:"caption_id"`
}

// Vote handles POST /api/v1/rounds/{id}/vote.
func (h *RoundHandler) Vote(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.PlayerFromCtx(r.Context())
	if playerID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	roundID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid round id"}`, http.StatusBadRequest)
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	captionID, err := uuid.Parse(req.CaptionID)
	if err != nil {
		http.Error(w, `{"error":"invalid caption_id"}`, http.StatusBadRequest)
		return
	}

	result, err := h.Settlement.ResolveVote(r.Context(), roundID, captionID, playerID)
	if err != nil {
		h.writeEngineError(w, "resolve vote", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeEngineError maps engine error taxonomy onto HTTP statuses.
func (h *RoundHandler) writeEngineError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, services.ErrNoContentAvailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no content available, try again later"})
	case errors.Is(err, services.ErrInvalidOperation):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invalid operation"})
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "insufficient balance"})
	case errors.Is(err, pglock.ErrLockTimeout):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy, retry"})
	default:
		h.Logger.Error(op, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
