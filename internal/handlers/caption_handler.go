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
	"github.com/quipstakes/backend/internal/models"
	"github.com/quipstakes/backend/internal/pglock"
	"github.com/quipstakes/backend/internal/services"
)

// CaptionSubmitter abstracts the submission pipeline.
type CaptionSubmitter interface {
	Submit(ctx context.Context, playerID, imageID uuid.UUID, text, kind string, parentID *uuid.UUID) (*models.Caption, error)
}

// QuotaReader reports remaining free submissions.
type QuotaReader interface {
	RemainingFree(ctx context.Context, playerID uuid.UUID) (int, error)
}

// CaptionHandler serves caption submission and the quota read.
type CaptionHandler struct {
	Submission CaptionSubmitter
	Quota      QuotaReader
	Logger     *slog.Logger
}

type submitCaptionRequest struct {
	ImageID  string  `json:"image_id"`
	Text     string  `json:"text"`
	Kind     string  `json:"kind"`
	ParentID *string `json:"parent_id,omitempty"`
}

type submitCaptionResponse struct {
	CaptionID uuid.UUID `json:"caption_id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
}

// Submit handles POST /api/v1/captions.
func (h *CaptionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.PlayerFromCtx(r.Context())
	if playerID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req submitCaptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	imageID, err := uuid.Parse(req.ImageID)
	if err != nil {
		http.Error(w, `{"error":"invalid image_id"}`, http.StatusBadRequest)
		return
	}
	var parentID *uuid.UUID
	if req.ParentID != nil {
		id, err := uuid.Parse(*req.ParentID)
		if err != nil {
			http.Error(w, `{"error":"invalid parent_id"}`, http.StatusBadRequest)
			return
		}
		parentID = &id
	}

	caption, err := h.Submission.Submit(r.Context(), playerID, imageID, req.Text, req.Kind, parentID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		case errors.Is(err, ledger.ErrInsufficientBalance):
			writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "insufficient balance"})
		case errors.Is(err, pglock.ErrLockTimeout):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy, retry"})
		default:
			h.Logger.Error("submit caption", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}
	writeJSON(w, http.StatusCreated, submitCaptionResponse{CaptionID: caption.ID, Kind: caption.Kind, Text: caption.Text})
}

// GetQuota handles GET /api/v1/quota.
func (h *CaptionHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.PlayerFromCtx(r.Context())
	if playerID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	remaining, err := h.Quota.RemainingFree(r.Context(), playerID)
	if err != nil {
		h.Logger.Error("read quota", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"remaining_free": remaining})
}
