package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyQuota counts a player's free caption submissions for one UTC calendar
// day. The row is created lazily on first use; because the key embeds the
// date, a new day implicitly starts a fresh counter.
type DailyQuota struct {
	PlayerID  uuid.UUID `json:"player_id"`
	Day       time.Time `json:"day"`
	Used      int       `json:"used"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuotaDay truncates t to the UTC calendar day used as the quota key.
func QuotaDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
