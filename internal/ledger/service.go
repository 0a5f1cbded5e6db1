package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Service appends balance-affecting events. Engines never mutate balances
// directly; every charge and payout flows through CreateTransaction inside
// the caller's transaction so partial failure leaves no visible side effect.
type Service interface {
	// CreateTransaction applies amountCents (negative = debit) to the given
	// bucket of the player's balance row and appends a ledger entry. Returns
	// the resulting wallet and vault balances. A debit that would take the
	// bucket negative fails with ErrInsufficientBalance and changes nothing.
	CreateTransaction(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, amountCents int64, entryType, bucket string, roundID, captionID *uuid.UUID) (walletAfter, vaultAfter int64, err error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) CreateTransaction(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, amountCents int64, entryType, bucket string, roundID, captionID *uuid.UUID) (int64, int64, error) {
	return s.repo.CreateTransaction(ctx, tx, playerID, amountCents, entryType, bucket, roundID, captionID)
}

// ErrInsufficientBalance is returned when a debit would exceed the bucket's
// available funds.
var ErrInsufficientBalance = errInsufficientBalance
