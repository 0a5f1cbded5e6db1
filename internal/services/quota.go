package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quipstakes/backend/internal/config"
	"github.com/quipstakes/backend/internal/models"
)

// QuotaRepo is the minimal daily-quota store interface for the tracker.
type QuotaRepo interface {
	Get(ctx context.Context, playerID uuid.UUID, day time.Time) (*models.DailyQuota, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, day time.Time) (*models.DailyQuota, error)
	CreateTx(ctx context.Context, tx pgx.Tx, dq *models.DailyQuota) error
	IncrementUsed(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, day time.Time) error
}

// QuotaTracker counts free caption submissions per player per UTC day. The
// key embeds the date, so a new day starts a fresh counter with no reset job.
type QuotaTracker struct {
	Repo   QuotaRepo
	Config config.Provider
	Now    func() time.Time
}

func NewQuotaTracker(repo QuotaRepo, cfg config.Provider) *QuotaTracker {
	return &QuotaTracker{Repo: repo, Config: cfg, Now: time.Now}
}

// RemainingFree reports how many free submissions the player has left today.
func (t *QuotaTracker) RemainingFree(ctx context.Context, playerID uuid.UUID) (int, error) {
	cfg, err := t.Config.Tunables(ctx)
	if err != nil {
		return 0, err
	}
	dq, err := t.Repo.Get(ctx, playerID, models.QuotaDay(t.Now()))
	if err != nil {
		return 0, err
	}
	used := 0
	if dq != nil {
		used = dq.Used
	}
	remaining := cfg.FreeCaptionsPerDay - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ConsumeFree takes one free slot if any remain, reporting whether it did.
// The caller must hold the per-player submit lock: it serializes the lazy
// row creation and the read-then-increment.
func (t *QuotaTracker) ConsumeFree(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (bool, error) {
	cfg, err := t.Config.Tunables(ctx)
	if err != nil {
		return false, err
	}
	day := models.QuotaDay(t.Now())
	dq, err := t.Repo.GetForUpdate(ctx, tx, playerID, day)
	if err != nil {
		return false, err
	}
	if dq == nil {
		dq = &models.DailyQuota{PlayerID: playerID, Day: day}
		if err := t.Repo.CreateTx(ctx, tx, dq); err != nil {
			return false, err
		}
	}
	if dq.Used >= cfg.FreeCaptionsPerDay {
		return false, nil
	}
	if err := t.Repo.IncrementUsed(ctx, tx, playerID, day); err != nil {
		return false, err
	}
	return true, nil
}
