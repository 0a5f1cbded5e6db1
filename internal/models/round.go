package models

import (
	"time"

	"github.com/google/uuid"
)

// Round is one play: a player pays the entry fee, sees an image with a set of
// captions, and either votes (resolving the round exactly once) or walks away
// (the round is later marked abandoned). A nil ChosenCaptionID means the
// round is still live. Rounds are immutable after resolution.
type Round struct {
	ID               uuid.UUID   `json:"id"`
	PlayerID         uuid.UUID   `json:"player_id"`
	ImageID          uuid.UUID   `json:"image_id"`
	CaptionIDs       []uuid.UUID `json:"caption_ids"`
	EntryFeeCents    int64       `json:"entry_fee_cents"`
	ChosenCaptionID  *uuid.UUID  `json:"chosen_caption_id,omitempty"`
	GrossPayoutCents int64       `json:"gross_payout_cents"`
	AuthorShareCents int64       `json:"author_share_cents"`
	ParentShareCents int64       `json:"parent_share_cents"`
	FirstVoteBonus   bool        `json:"first_vote_bonus"`
	Abandoned        bool        `json:"abandoned"`
	CreatedAt        time.Time   `json:"created_at"`
	ResolvedAt       *time.Time  `json:"resolved_at,omitempty"`
}

// Resolved reports whether the round has already been settled by a vote.
func (r *Round) Resolved() bool {
	return r.ChosenCaptionID != nil
}
