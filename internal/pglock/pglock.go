// Package pglock provides named advisory locks over PostgreSQL. Every
// read-then-write engine operation takes one of these before touching shared
// counters; the lock is transaction-scoped and released on commit/rollback.
package pglock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Lock key namespaces. Distinct namespaces keep unrelated operations on the
// same entity from contending.
const (
	NSRoundStart   = "round_start"   // keyed by player id
	NSSubmit       = "submit"        // keyed by player id
	NSRoundResolve = "round_resolve" // keyed by round id
	NSWallet       = "wallet"        // keyed by player id
)

// ErrLockTimeout is returned when the advisory lock cannot be acquired within
// the configured wait. The transaction never began any work, so retrying is
// always safe.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// lockNotAvailable is the SQLSTATE Postgres raises when lock_timeout expires.
const lockNotAvailable = "55P03"

// Key hashes a namespace plus entity id into the 64-bit advisory lock space.
func Key(namespace string, id uuid.UUID) int64 {
	h := xxhash.New()
	_, _ = h.WriteString(namespace)
	_, _ = h.Write(id[:])
	return int64(h.Sum64())
}

// AcquireTx takes the advisory lock for (namespace, id) inside tx, waiting at
// most timeout. The lock is held until the transaction ends.
func AcquireTx(ctx context.Context, tx pgx.Tx, timeout time.Duration, namespace string, id uuid.UUID) error {
	// lock_timeout cannot be bound as a parameter; the value is an integer we
	// control, so formatting it inline is safe.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", timeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", Key(namespace, id)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
			return ErrLockTimeout
		}
		return fmt.Errorf("acquire %s lock: %w", namespace, err)
	}
	return nil
}
