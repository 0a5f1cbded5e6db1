package models

import (
	"time"

	"github.com/google/uuid"
)

// Image lifecycle statuses. An image is immutable once active except status.
const (
	ImageStatusActive   = "active"
	ImageStatusDisabled = "disabled"
)

type Image struct {
	ID        uuid.UUID  `json:"id"`
	AssetRef  string     `json:"asset_ref"`
	Status    string     `json:"status"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
