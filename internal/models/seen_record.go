package models

import (
	"time"

	"github.com/google/uuid"
)

// SeenRecord marks that a caption was exposed to a player for an image.
// Written once at round resolution, never mutated; its existence is what
// keeps the same caption from being shown to the same player twice.
type SeenRecord struct {
	PlayerID  uuid.UUID `json:"player_id"`
	CaptionID uuid.UUID `json:"caption_id"`
	ImageID   uuid.UUID `json:"image_id"`
	SeenAt    time.Time `json:"seen_at"`
}
