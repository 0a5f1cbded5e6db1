package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quipstakes/backend/internal/models"
)

type ImageRepo struct {
	pool *pgxpool.Pool
}

func NewImageRepo(pool *pgxpool.Pool) *ImageRepo {
	return &ImageRepo{pool: pool}
}

func (r *ImageRepo) Create(ctx context.Context, img *models.Image) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO images (id, asset_ref, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, img.ID, img.AssetRef, img.Status, img.CreatedBy).Scan(&img.CreatedAt)
}

func (r *ImageRepo) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Image, error) {
	var img models.Image
	err := tx.QueryRow(ctx, `
		SELECT id, asset_ref, status, created_by, created_at
		FROM images WHERE id = $1
	`, id).Scan(&img.ID, &img.AssetRef, &img.Status, &img.CreatedBy, &img.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *ImageRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE images SET status = $2 WHERE id = $1`, id, status)
	return err
}

// SampleEligible returns up to window ids of active images that have at least
// minCaptions active captions the player could be shown: not authored by the
// player and never seen by them. The window is drawn in random order, so the
// caller picking any element gives approximately uniform image choice without
// scanning the full candidate set.
func (r *ImageRepo) SampleEligible(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, minCaptions, window int) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `
		SELECT c.image_id
		FROM captions c
		JOIN images i ON i.id = c.image_id AND i.status = 'active'
		WHERE c.status = 'active'
		  AND (c.author_id IS NULL OR c.author_id <> $1)
		  AND NOT EXISTS (
			SELECT 1 FROM seen_records s
			WHERE s.player_id = $1 AND s.caption_id = c.id AND s.image_id = c.image_id
		  )
		GROUP BY c.image_id
		HAVING COUNT(*) >= $2
		ORDER BY random()
		LIMIT $3
	`, playerID, minCaptions, window)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
