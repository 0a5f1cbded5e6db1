package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quipstakes/backend/internal/models"
)

// SeenRepo is the novelty tracker's store: one row per (player, caption,
// image) first exposure, written at round resolution and only ever read for
// existence.
type SeenRepo struct {
	pool *pgxpool.Pool
}

func NewSeenRepo(pool *pgxpool.Pool) *SeenRepo {
	return &SeenRepo{pool: pool}
}

func (r *SeenRepo) Exists(ctx context.Context, tx pgx.Tx, playerID, captionID, imageID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM seen_records
			WHERE player_id = $1 AND caption_id = $2 AND image_id = $3
		)
	`, playerID, captionID, imageID).Scan(&exists)
	return exists, err
}

func (r *SeenRepo) CreateTx(ctx context.Context, tx pgx.Tx, rec *models.SeenRecord) error {
	return tx.QueryRow(ctx, `
		INSERT INTO seen_records (player_id, caption_id, image_id)
		VALUES ($1, $2, $3)
		RETURNING seen_at
	`, rec.PlayerID, rec.CaptionID, rec.ImageID).Scan(&rec.SeenAt)
}
