// Package social answers the single question the engine needs from the
// social graph: are two players in the same circle. Circle administration
// (create/join/approve) lives in another service.
package social

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Oracle reports whether two players are socially connected. Used to gate
// circle-first caption selection and writer-bonus suppression.
type Oracle interface {
	IsConnected(ctx context.Context, a, b uuid.UUID) (bool, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Oracle = (*Repository)(nil)

// IsConnected reports whether a and b share at least one circle.
func (r *Repository) IsConnected(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if a == b {
		return true, nil
	}
	var connected bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM circle_members ma
			JOIN circle_members mb ON mb.circle_id = ma.circle_id
			WHERE ma.player_id = $1 AND mb.player_id = $2
		)
	`, a, b).Scan(&connected)
	if err != nil {
		return false, err
	}
	return connected, nil
}
