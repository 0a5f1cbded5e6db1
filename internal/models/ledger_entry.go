package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry_type enums. Negative amounts are debits.
const (
	LedgerEntryRoundEntry     = "round_entry"
	LedgerEntryCaptionSubmit  = "caption_submit"
	LedgerEntryAuthorPayout   = "author_payout"
	LedgerEntryParentPayout   = "parent_payout"
	LedgerEntryFirstVoteBonus = "first_vote_bonus"
)

// Balance buckets. The vault receives the rake on realized profit; the
// wallet is the spendable balance all charges draw from.
const (
	BucketWallet = "wallet"
	BucketVault  = "vault"
)

// LedgerEntry is an append-only record of one balance-affecting event.
// Balances are never mutated directly; every change appends an entry.
type LedgerEntry struct {
	ID               uuid.UUID  `json:"id"`
	PlayerID         uuid.UUID  `json:"player_id"`
	RoundID          *uuid.UUID `json:"round_id,omitempty"`
	CaptionID        *uuid.UUID `json:"caption_id,omitempty"`
	EntryType        string     `json:"entry_type"`
	Bucket           string     `json:"bucket"`
	AmountCents      int64      `json:"amount_cents"`
	WalletAfterCents int64      `json:"wallet_after_cents"`
	VaultAfterCents  int64      `json:"vault_after_cents"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Wallet holds a player's two balance buckets.
type Wallet struct {
	PlayerID    uuid.UUID `json:"player_id"`
	WalletCents int64     `json:"wallet_cents"`
	VaultCents  int64     `json:"vault_cents"`
	UpdatedAt   time.Time `json:"updated_at"`
}
