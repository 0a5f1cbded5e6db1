package models

import (
	"time"

	"github.com/google/uuid"
)

// Caption kind and status enums.
const (
	CaptionKindOriginal = "original"
	CaptionKindRiff     = "riff"

	CaptionStatusActive  = "active"
	CaptionStatusRetired = "retired"
)

// Caption is a candidate line for an image. AuthorID is nil for system-seeded
// captions, which never receive payouts. ParentID is set iff Kind is riff and
// always references a caption on the same image. Retirement is permanent.
type Caption struct {
	ID                uuid.UUID  `json:"id"`
	ImageID           uuid.UUID  `json:"image_id"`
	AuthorID          *uuid.UUID `json:"author_id,omitempty"`
	Kind              string     `json:"kind"`
	ParentID          *uuid.UUID `json:"parent_id,omitempty"`
	Text              string     `json:"text"`
	Status            string     `json:"status"`
	Shows             int        `json:"shows"`
	Picks             int        `json:"picks"`
	FirstVoteAwarded  bool       `json:"first_vote_awarded"`
	QualityScore      float64    `json:"quality_score"`
	GrossEarnedCents  int64      `json:"gross_earned_cents"`
	WalletEarnedCents int64      `json:"wallet_earned_cents"`
	VaultEarnedCents  int64      `json:"vault_earned_cents"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
