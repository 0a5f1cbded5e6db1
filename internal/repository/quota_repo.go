package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quipstakes/backend/internal/models"
)

type QuotaRepo struct {
	pool *pgxpool.Pool
}

func NewQuotaRepo(pool *pgxpool.Pool) *QuotaRepo {
	return &QuotaRepo{pool: pool}
}

// Get reads a quota row outside any transaction. Returns (nil, nil) when the
// player has not submitted yet that day.
func (r *QuotaRepo) Get(ctx context.Context, playerID uuid.UUID, day time.Time) (*models.DailyQuota, error) {
	return r.get(ctx, r.pool, playerID, day, "")
}

// GetForUpdate locks the quota row. Call within a transaction; returns
// (nil, nil) when the row does not exist yet.
func (r *QuotaRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, day time.Time) (*models.DailyQuota, error) {
	return r.get(ctx, tx, playerID, day, " FOR UPDATE")
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *QuotaRepo) get(ctx context.Context, q querier, playerID uuid.UUID, day time.Time, suffix string) (*models.DailyQuota, error) {
	var dq models.DailyQuota
	err := q.QueryRow(ctx, `
		SELECT player_id, day, used, updated_at
		FROM daily_quotas WHERE player_id = $1 AND day = $2`+suffix,
		playerID, day).Scan(&dq.PlayerID, &dq.Day, &dq.Used, &dq.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dq, nil
}

// CreateTx inserts a fresh quota row. The caller holds the per-player submit
// lock, so lazy get-then-create cannot race.
func (r *QuotaRepo) CreateTx(ctx context.Context, tx pgx.Tx, dq *models.DailyQuota) error {
	return tx.QueryRow(ctx, `
		INSERT INTO daily_quotas (player_id, day, used)
		VALUES ($1, $2, $3)
		RETURNING updated_at
	`, dq.PlayerID, dq.Day, dq.Used).Scan(&dq.UpdatedAt)
}

// IncrementUsed consumes one free submission slot.
func (r *QuotaRepo) IncrementUsed(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, day time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE daily_quotas SET used = used + 1, updated_at = now()
		WHERE player_id = $1 AND day = $2
	`, playerID, day)
	return err
}
