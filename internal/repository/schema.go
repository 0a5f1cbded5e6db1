package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaDDL creates every table the engine owns, plus the circle tables the
// social oracle reads (their rows are managed by the external circle
// service). Statements are idempotent so EnsureSchema can run at every boot.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS images (
		id          UUID PRIMARY KEY,
		asset_ref   TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'active',
		created_by  UUID,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS captions (
		id                  UUID PRIMARY KEY,
		image_id            UUID NOT NULL REFERENCES images(id),
		author_id           UUID,
		kind                TEXT NOT NULL,
		parent_id           UUID REFERENCES captions(id),
		text                TEXT NOT NULL,
		status              TEXT NOT NULL DEFAULT 'active',
		shows               INT NOT NULL DEFAULT 0,
		picks               INT NOT NULL DEFAULT 0,
		first_vote_awarded  BOOLEAN NOT NULL DEFAULT FALSE,
		quality_score       DOUBLE PRECISION NOT NULL,
		gross_earned_cents  BIGINT NOT NULL DEFAULT 0,
		wallet_earned_cents BIGINT NOT NULL DEFAULT 0,
		vault_earned_cents  BIGINT NOT NULL DEFAULT 0,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS captions_image_status_idx ON captions (image_id, status)`,
	`CREATE TABLE IF NOT EXISTS seen_records (
		player_id  UUID NOT NULL,
		caption_id UUID NOT NULL REFERENCES captions(id),
		image_id   UUID NOT NULL REFERENCES images(id),
		seen_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (player_id, caption_id, image_id)
	)`,
	`CREATE TABLE IF NOT EXISTS rounds (
		id                 UUID PRIMARY KEY,
		player_id          UUID NOT NULL,
		image_id           UUID NOT NULL REFERENCES images(id),
		caption_ids        UUID[] NOT NULL,
		entry_fee_cents    BIGINT NOT NULL,
		chosen_caption_id  UUID REFERENCES captions(id),
		gross_payout_cents BIGINT NOT NULL DEFAULT 0,
		author_share_cents BIGINT NOT NULL DEFAULT 0,
		parent_share_cents BIGINT NOT NULL DEFAULT 0,
		first_vote_bonus   BOOLEAN NOT NULL DEFAULT FALSE,
		abandoned          BOOLEAN NOT NULL DEFAULT FALSE,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		resolved_at        TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS rounds_player_live_idx ON rounds (player_id) WHERE chosen_caption_id IS NULL AND NOT abandoned`,
	`CREATE TABLE IF NOT EXISTS daily_quotas (
		player_id  UUID NOT NULL,
		day        DATE NOT NULL,
		used       INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (player_id, day)
	)`,
	`CREATE TABLE IF NOT EXISTS player_balances (
		player_id    UUID PRIMARY KEY,
		wallet_cents BIGINT NOT NULL DEFAULT 0,
		vault_cents  BIGINT NOT NULL DEFAULT 0,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id                 UUID PRIMARY KEY,
		player_id          UUID NOT NULL,
		round_id           UUID,
		caption_id         UUID,
		entry_type         TEXT NOT NULL,
		bucket             TEXT NOT NULL,
		amount_cents       BIGINT NOT NULL,
		wallet_after_cents BIGINT NOT NULL,
		vault_after_cents  BIGINT NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_player_idx ON ledger_entries (player_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS circles (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS circle_members (
		circle_id UUID NOT NULL REFERENCES circles(id),
		player_id UUID NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (circle_id, player_id)
	)`,
	`CREATE INDEX IF NOT EXISTS circle_members_player_idx ON circle_members (player_id)`,
}

// EnsureSchema applies the DDL above. River's own migrations run separately.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaDDL {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
