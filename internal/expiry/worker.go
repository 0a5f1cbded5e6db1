// Package expiry abandons rounds the player walked away from. The job is
// enqueued transactionally when the round is created and fires after the
// abandonment TTL; a round that was resolved (or already abandoned) in the
// meantime makes the job a no-op.
package expiry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

type ExpireRoundArgs struct {
	RoundID uuid.UUID `json:"round_id"`
}

func (ExpireRoundArgs) Kind() string { return "expire_round" }

// RoundAbandoner is the settlement-engine contract the worker needs.
type RoundAbandoner interface {
	Abandon(ctx context.Context, roundID uuid.UUID) (bool, error)
}

type ExpireRoundWorker struct {
	river.WorkerDefaults[ExpireRoundArgs]
	rounds RoundAbandoner
}

func NewExpireRoundWorker(rounds RoundAbandoner) *ExpireRoundWorker {
	return &ExpireRoundWorker{rounds: rounds}
}

func (w *ExpireRoundWorker) Work(ctx context.Context, job *river.Job[ExpireRoundArgs]) error {
	if _, err := w.rounds.Abandon(ctx, job.Args.RoundID); err != nil {
		return fmt.Errorf("abandon round %s: %w", job.Args.RoundID, err)
	}
	return nil
}
