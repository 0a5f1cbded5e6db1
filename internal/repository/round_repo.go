package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quipstakes/backend/internal/models"
)

const roundColumns = `id, player_id, image_id, caption_ids, entry_fee_cents, chosen_caption_id, gross_payout_cents, author_share_cents, parent_share_cents, first_vote_bonus, abandoned, created_at, resolved_at`

type RoundRepo struct {
	pool *pgxpool.Pool
}

func NewRoundRepo(pool *pgxpool.Pool) *RoundRepo {
	return &RoundRepo{pool: pool}
}

// Begin starts a transaction on the underlying pool.
func (r *RoundRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func scanRound(row pgx.Row) (*models.Round, error) {
	var rd models.Round
	err := row.Scan(&rd.ID, &rd.PlayerID, &rd.ImageID, &rd.CaptionIDs, &rd.EntryFeeCents, &rd.ChosenCaptionID, &rd.GrossPayoutCents, &rd.AuthorShareCents, &rd.ParentShareCents, &rd.FirstVoteBonus, &rd.Abandoned, &rd.CreatedAt, &rd.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

// CreateTx inserts a round inside the given transaction, atomically with the
// entry-fee charge the caller has already applied.
func (r *RoundRepo) CreateTx(ctx context.Context, tx pgx.Tx, rd *models.Round) error {
	return tx.QueryRow(ctx, `
		INSERT INTO rounds (id, player_id, image_id, caption_ids, entry_fee_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, rd.ID, rd.PlayerID, rd.ImageID, rd.CaptionIDs, rd.EntryFeeCents).Scan(&rd.CreatedAt)
}

// GetByIDForUpdate locks the round row for update. Call within a transaction.
func (r *RoundRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Round, error) {
	return scanRound(tx.QueryRow(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1 FOR UPDATE`, id))
}

// MarkResolved writes the round's settled state. The round is immutable
// afterward; callers enforce single resolution via the round lock.
func (r *RoundRepo) MarkResolved(ctx context.Context, tx pgx.Tx, rd *models.Round) error {
	_, err := tx.Exec(ctx, `
		UPDATE rounds
		SET chosen_caption_id = $2, gross_payout_cents = $3, author_share_cents = $4,
		    parent_share_cents = $5, first_vote_bonus = $6, resolved_at = $7
		WHERE id = $1
	`, rd.ID, rd.ChosenCaptionID, rd.GrossPayoutCents, rd.AuthorShareCents, rd.ParentShareCents, rd.FirstVoteBonus, rd.ResolvedAt)
	return err
}

// AbandonLive marks all of the player's unresolved rounds abandoned. Called
// under the player's round-start lock so a player has at most one live round.
func (r *RoundRepo) AbandonLive(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE rounds SET abandoned = TRUE
		WHERE player_id = $1 AND chosen_caption_id IS NULL AND NOT abandoned
	`, playerID)
	return err
}

// MarkAbandoned abandons a single round if it is still live, reporting
// whether anything changed.
func (r *RoundRepo) MarkAbandoned(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE rounds SET abandoned = TRUE
		WHERE id = $1 AND chosen_caption_id IS NULL AND NOT abandoned
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
