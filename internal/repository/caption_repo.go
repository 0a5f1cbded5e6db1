package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quipstakes/backend/internal/models"
)

const captionColumns = `id, image_id, author_id, kind, parent_id, text, status, shows, picks, first_vote_awarded, quality_score, gross_earned_cents, wallet_earned_cents, vault_earned_cents, created_at, updated_at`

type CaptionRepo struct {
	pool *pgxpool.Pool
}

func NewCaptionRepo(pool *pgxpool.Pool) *CaptionRepo {
	return &CaptionRepo{pool: pool}
}

func scanCaption(row pgx.Row) (*models.Caption, error) {
	var c models.Caption
	err := row.Scan(&c.ID, &c.ImageID, &c.AuthorID, &c.Kind, &c.ParentID, &c.Text, &c.Status, &c.Shows, &c.Picks, &c.FirstVoteAwarded, &c.QualityScore, &c.GrossEarnedCents, &c.WalletEarnedCents, &c.VaultEarnedCents, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateTx inserts a caption inside the given transaction.
func (r *CaptionRepo) CreateTx(ctx context.Context, tx pgx.Tx, c *models.Caption) error {
	return tx.QueryRow(ctx, `
		INSERT INTO captions (id, image_id, author_id, kind, parent_id, text, status, shows, picks, first_vote_awarded, quality_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, c.ID, c.ImageID, c.AuthorID, c.Kind, c.ParentID, c.Text, c.Status, c.Shows, c.Picks, c.FirstVoteAwarded, c.QualityScore).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *CaptionRepo) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Caption, error) {
	return scanCaption(tx.QueryRow(ctx, `SELECT `+captionColumns+` FROM captions WHERE id = $1`, id))
}

// GetByIDForUpdate locks the caption row for update. Call within a transaction.
func (r *CaptionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Caption, error) {
	return scanCaption(tx.QueryRow(ctx, `SELECT `+captionColumns+` FROM captions WHERE id = $1 FOR UPDATE`, id))
}

// ListEligible returns active captions on the image the player may be shown:
// not their own and never seen by them.
func (r *CaptionRepo) ListEligible(ctx context.Context, tx pgx.Tx, imageID, playerID uuid.UUID) ([]*models.Caption, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+captionColumns+`
		FROM captions c
		WHERE c.image_id = $1
		  AND c.status = 'active'
		  AND (c.author_id IS NULL OR c.author_id <> $2)
		  AND NOT EXISTS (
			SELECT 1 FROM seen_records s
			WHERE s.player_id = $2 AND s.caption_id = c.id AND s.image_id = c.image_id
		  )
		ORDER BY c.created_at
	`, imageID, playerID)
	if err != nil {
		return nil, err
	}
	return collectCaptions(rows)
}

// ListActiveByImage returns all active captions on the image, used by the
// submission pipeline's duplicate check.
func (r *CaptionRepo) ListActiveByImage(ctx context.Context, tx pgx.Tx, imageID uuid.UUID) ([]*models.Caption, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+captionColumns+`
		FROM captions WHERE image_id = $1 AND status = 'active'
	`, imageID)
	if err != nil {
		return nil, err
	}
	return collectCaptions(rows)
}

func collectCaptions(rows pgx.Rows) ([]*models.Caption, error) {
	defer rows.Close()
	var list []*models.Caption
	for rows.Next() {
		c, err := scanCaption(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// UpdateStats persists the mutable fields touched by settlement bookkeeping:
// counters, score, status, earnings. Call after GetByIDForUpdate in same tx.
func (r *CaptionRepo) UpdateStats(ctx context.Context, tx pgx.Tx, c *models.Caption) error {
	_, err := tx.Exec(ctx, `
		UPDATE captions
		SET shows = $2, picks = $3, quality_score = $4, status = $5,
		    gross_earned_cents = $6, wallet_earned_cents = $7, vault_earned_cents = $8,
		    updated_at = now()
		WHERE id = $1
	`, c.ID, c.Shows, c.Picks, c.QualityScore, c.Status, c.GrossEarnedCents, c.WalletEarnedCents, c.VaultEarnedCents)
	return err
}

// ClaimFirstVote atomically sets first_vote_awarded and reports whether this
// call won the claim. At most one caller ever sees true for a caption.
func (r *CaptionRepo) ClaimFirstVote(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE captions SET first_vote_awarded = TRUE, updated_at = now()
		WHERE id = $1 AND NOT first_vote_awarded
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
