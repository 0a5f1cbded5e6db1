package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quipstakes/backend/internal/models"
	"github.com/quipstakes/backend/internal/pglock"
)

var errInsufficientBalance = errors.New("insufficient balance")

// walletLockTimeout bounds the wait for the per-player wallet lock. Wallet
// rows are contended only by settlements paying the same author at once.
const walletLockTimeout = 3 * time.Second

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateTransaction runs inside the caller's transaction. It:
// a) Takes the per-player wallet advisory lock, then locks (creating if
//    absent) the player's balance row.
// b) Applies the signed amount to the chosen bucket with a conditional
//    UPDATE; zero rows affected means the debit would go negative.
// c) Appends the ledger entry with the balances after the change.
func (r *Repository) CreateTransaction(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, amountCents int64, entryType, bucket string, roundID, captionID *uuid.UUID) (int64, int64, error) {
	if bucket != models.BucketWallet && bucket != models.BucketVault {
		return 0, 0, fmt.Errorf("unknown bucket %q", bucket)
	}
	if err := pglock.AcquireTx(ctx, tx, walletLockTimeout, pglock.NSWallet, playerID); err != nil {
		return 0, 0, err
	}
	if err := r.ensureWallet(ctx, tx, playerID); err != nil {
		return 0, 0, err
	}

	column := "wallet_cents"
	if bucket == models.BucketVault {
		column = "vault_cents"
	}
	var walletAfter, vaultAfter int64
	err := tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE player_balances
		SET %s = %s + $1, updated_at = now()
		WHERE player_id = $2 AND %s + $1 >= 0
		RETURNING wallet_cents, vault_cents
	`, column, column, column), amountCents, playerID).Scan(&walletAfter, &vaultAfter)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, errInsufficientBalance
	}
	if err != nil {
		return 0, 0, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, player_id, round_id, caption_id, entry_type, bucket, amount_cents, wallet_after_cents, vault_after_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.New(), playerID, roundID, captionID, entryType, bucket, amountCents, walletAfter, vaultAfter)
	if err != nil {
		return 0, 0, err
	}
	return walletAfter, vaultAfter, nil
}

// ensureWallet creates the balance row on first use. The caller holds the
// per-player wallet lock, so get-then-create cannot race.
func (r *Repository) ensureWallet(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM player_balances WHERE player_id = $1)
	`, playerID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO player_balances (player_id, wallet_cents, vault_cents)
		VALUES ($1, 0, 0)
	`, playerID)
	return err
}

// GetBalances reads a player's current wallet and vault totals. A player with
// no balance row yet reads as zero.
func (r *Repository) GetBalances(ctx context.Context, playerID uuid.UUID) (*models.Wallet, error) {
	w := &models.Wallet{PlayerID: playerID}
	err := r.pool.QueryRow(ctx, `
		SELECT wallet_cents, vault_cents, updated_at FROM player_balances WHERE player_id = $1
	`, playerID).Scan(&w.WalletCents, &w.VaultCents, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return w, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ListByPlayer returns the player's ledger entries, newest first.
func (r *Repository) ListByPlayer(ctx context.Context, playerID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, player_id, round_id, caption_id, entry_type, bucket, amount_cents, wallet_after_cents, vault_after_cents, created_at
		FROM ledger_entries WHERE player_id = $1 ORDER BY created_at DESC LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.RoundID, &e.CaptionID, &e.EntryType, &e.Bucket, &e.AmountCents, &e.WalletAfterCents, &e.VaultAfterCents, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
