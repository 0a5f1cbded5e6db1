package services

import (
	"context"
	"errors"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quipstakes/backend/internal/config"
	"github.com/quipstakes/backend/internal/ledger"
	"github.com/quipstakes/backend/internal/models"
	"github.com/quipstakes/backend/internal/pglock"
	"github.com/quipstakes/backend/internal/social"
)

// SettlementRoundRepo is the minimal round store interface for settlement.
type SettlementRoundRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Round, error)
	MarkResolved(ctx context.Context, tx pgx.Tx, rd *models.Round) error
	MarkAbandoned(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// SettlementCaptionRepo locks and updates captions during settlement.
type SettlementCaptionRepo interface {
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Caption, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Caption, error)
	UpdateStats(ctx context.Context, tx pgx.Tx, c *models.Caption) error
	ClaimFirstVote(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// SettlementSeenRepo records first exposures at resolution time.
type SettlementSeenRepo interface {
	Exists(ctx context.Context, tx pgx.Tx, playerID, captionID, imageID uuid.UUID) (bool, error)
	CreateTx(ctx context.Context, tx pgx.Tx, rec *models.SeenRecord) error
}

// PayoutResult is the full breakdown of one settled vote.
type PayoutResult struct {
	GrossCents          int64 `json:"gross_cents"`
	AuthorShareCents    int64 `json:"author_share_cents"`
	AuthorWalletCents   int64 `json:"author_wallet_cents"`
	AuthorVaultCents    int64 `json:"author_vault_cents"`
	ParentShareCents    int64 `json:"parent_share_cents"`
	ParentWalletCents   int64 `json:"parent_wallet_cents"`
	ParentVaultCents    int64 `json:"parent_vault_cents"`
	FirstVoteBonusCents int64 `json:"first_vote_bonus_cents"`
}

// SettlementEngine resolves votes: pays the chosen caption's author (and the
// parent author for riffs), awards the one-time first-vote bonus, and runs
// post-round bookkeeping (shows, SeenRecords, rescoring, retirement) for
// every caption the round displayed. Everything happens in one transaction
// under the per-round lock.
type SettlementEngine struct {
	DB       TxBeginner
	Rounds   SettlementRoundRepo
	Captions SettlementCaptionRepo
	Seen     SettlementSeenRepo
	Social   social.Oracle
	Ledger   ledger.Service
	Config   config.Provider
	Now      func() time.Time
}

func NewSettlementEngine(db TxBeginner, rounds SettlementRoundRepo, captions SettlementCaptionRepo, seen SettlementSeenRepo, oracle social.Oracle, ldg ledger.Service, cfg config.Provider) *SettlementEngine {
	return &SettlementEngine{
		DB:       db,
		Rounds:   rounds,
		Captions: captions,
		Seen:     seen,
		Social:   oracle,
		Ledger:   ldg,
		Config:   cfg,
		Now:      time.Now,
	}
}

// ResolveVote settles the round with the voter's choice. Only the player who
// started the round may resolve it, the chosen caption must be one of those
// shown, and a round resolves at most once; violations are ErrInvalidOperation.
func (e *SettlementEngine) ResolveVote(ctx context.Context, roundID, chosenCaptionID, voterID uuid.UUID) (*PayoutResult, error) {
	cfg, err := e.Config.Tunables(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := e.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := pglock.AcquireTx(ctx, tx, cfg.LockTimeout, pglock.NSRoundResolve, roundID); err != nil {
		return nil, err
	}

	round, err := e.Rounds.GetByIDForUpdate(ctx, tx, roundID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidOperation
	}
	if err != nil {
		return nil, err
	}
	if round.PlayerID != voterID || round.Resolved() || round.Abandoned {
		return nil, ErrInvalidOperation
	}
	if !slices.Contains(round.CaptionIDs, chosenCaptionID) {
		return nil, ErrInvalidOperation
	}

	// Peek at the chosen caption (unlocked) to learn its parent, then lock
	// every involved caption row in deterministic order to avoid deadlock
	// between settlements that share captions.
	peek, err := e.Captions.GetByID(ctx, tx, chosenCaptionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidOperation
	}
	if err != nil {
		return nil, err
	}
	lockIDs := slices.Clone(round.CaptionIDs)
	if peek.Kind == models.CaptionKindRiff && peek.ParentID != nil && !slices.Contains(lockIDs, *peek.ParentID) {
		lockIDs = append(lockIDs, *peek.ParentID)
	}
	sort.Slice(lockIDs, func(i, j int) bool { return lockIDs[i].String() < lockIDs[j].String() })
	locked := make(map[uuid.UUID]*models.Caption, len(lockIDs))
	for _, id := range lockIDs {
		c, err := e.Captions.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = c
	}
	chosen := locked[chosenCaptionID]

	res := &PayoutResult{}
	var parent *models.Caption
	if chosen.Kind == models.CaptionKindRiff && chosen.ParentID != nil {
		parent = locked[*chosen.ParentID]
	}

	// System-seeded captions have no author and never receive payouts; only
	// bookkeeping happens for them.
	if chosen.AuthorID != nil {
		authorConnected, err := e.Social.IsConnected(ctx, voterID, *chosen.AuthorID)
		if err != nil {
			return nil, err
		}
		// A riff whose parent is authorless pays out like an original: there
		// is nobody to receive the parent share.
		parentAuthor := (*uuid.UUID)(nil)
		parentConnected := false
		if parent != nil && parent.AuthorID != nil {
			parentAuthor = parent.AuthorID
			parentConnected, err = e.Social.IsConnected(ctx, voterID, *parentAuthor)
			if err != nil {
				return nil, err
			}
		}

		*res = computePayout(round.EntryFeeCents, parentAuthor != nil, authorConnected, parentConnected, cfg.WriterBonusMultiplier, cfg.VaultPct)

		if err := e.payShare(ctx, tx, *chosen.AuthorID, res.AuthorWalletCents, res.AuthorVaultCents, models.LedgerEntryAuthorPayout, round.ID, chosen.ID); err != nil {
			return nil, err
		}
		chosen.GrossEarnedCents += res.AuthorShareCents
		chosen.WalletEarnedCents += res.AuthorWalletCents
		chosen.VaultEarnedCents += res.AuthorVaultCents

		if parentAuthor != nil {
			if err := e.payShare(ctx, tx, *parentAuthor, res.ParentWalletCents, res.ParentVaultCents, models.LedgerEntryParentPayout, round.ID, parent.ID); err != nil {
				return nil, err
			}
			parent.GrossEarnedCents += res.ParentShareCents
			parent.WalletEarnedCents += res.ParentWalletCents
			parent.VaultEarnedCents += res.ParentVaultCents
		}

		// First-vote bonus, at most once per caption ever. The conditional
		// update decides the winner even if several rounds race on a caption
		// that has never been voted before.
		won, err := e.Captions.ClaimFirstVote(ctx, tx, chosen.ID)
		if err != nil {
			return nil, err
		}
		if won {
			if _, _, err := e.Ledger.CreateTransaction(ctx, tx, voterID, cfg.FirstVoteBonusCents, models.LedgerEntryFirstVoteBonus, models.BucketWallet, &round.ID, &chosen.ID); err != nil {
				return nil, err
			}
			res.FirstVoteBonusCents = cfg.FirstVoteBonusCents
			round.FirstVoteBonus = true
			chosen.FirstVoteAwarded = true
		}
	}

	// Post-round bookkeeping: every shown caption gets a show, a SeenRecord,
	// a rescore, and a retirement check; the chosen one also gets its pick.
	for _, id := range lockIDs {
		c := locked[id]
		shown := slices.Contains(round.CaptionIDs, id)
		if shown {
			applyShow(c, id == chosenCaptionID, cfg.MinShowsBeforeRetirement, cfg.MinQualityScoreActive)
		}
		if err := e.Captions.UpdateStats(ctx, tx, c); err != nil {
			return nil, err
		}
		if !shown {
			continue
		}
		exists, err := e.Seen.Exists(ctx, tx, round.PlayerID, id, round.ImageID)
		if err != nil {
			return nil, err
		}
		if !exists {
			rec := &models.SeenRecord{PlayerID: round.PlayerID, CaptionID: id, ImageID: round.ImageID}
			if err := e.Seen.CreateTx(ctx, tx, rec); err != nil {
				return nil, err
			}
		}
	}

	now := e.Now()
	round.ChosenCaptionID = &chosenCaptionID
	round.GrossPayoutCents = res.GrossCents
	round.AuthorShareCents = res.AuthorShareCents
	round.ParentShareCents = res.ParentShareCents
	round.ResolvedAt = &now
	if err := e.Rounds.MarkResolved(ctx, tx, round); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// Abandon marks a round abandoned if it is still live, reporting whether it
// did. Used by the expiry worker; the entry fee is forfeit and no SeenRecords
// are written, so an abandoned round never burns novelty.
func (e *SettlementEngine) Abandon(ctx context.Context, roundID uuid.UUID) (bool, error) {
	cfg, err := e.Config.Tunables(ctx)
	if err != nil {
		return false, err
	}
	tx, err := e.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if err := pglock.AcquireTx(ctx, tx, cfg.LockTimeout, pglock.NSRoundResolve, roundID); err != nil {
		return false, err
	}
	abandoned, err := e.Rounds.MarkAbandoned(ctx, tx, roundID)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return abandoned, nil
}

// payShare appends the wallet and (when positive) vault credits for one
// payout recipient.
func (e *SettlementEngine) payShare(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, walletCents, vaultCents int64, entryType string, roundID, captionID uuid.UUID) error {
	if walletCents > 0 {
		if _, _, err := e.Ledger.CreateTransaction(ctx, tx, playerID, walletCents, entryType, models.BucketWallet, &roundID, &captionID); err != nil {
			return err
		}
	}
	if vaultCents > 0 {
		if _, _, err := e.Ledger.CreateTransaction(ctx, tx, playerID, vaultCents, entryType, models.BucketVault, &roundID, &captionID); err != nil {
			return err
		}
	}
	return nil
}

// computePayout derives the full payout breakdown. Each recipient's gross is
// computed from their own bonus eligibility: the writer bonus is suppressed
// for a recipient the voter is connected to, so a player cannot inflate a
// circle-mate's earnings. For riffs the parent receives the floored 40% of
// their gross and the riff author keeps the remainder of theirs.
func computePayout(entryFee int64, hasParent, authorConnected, parentConnected bool, multiplier int64, vaultPct float64) PayoutResult {
	authorGross := entryFee
	if !authorConnected {
		authorGross += entryFee * multiplier
	}

	var res PayoutResult
	if !hasParent {
		res.AuthorShareCents = authorGross
	} else {
		parentGross := entryFee
		if !parentConnected {
			parentGross += entryFee * multiplier
		}
		res.ParentShareCents = parentGross * 40 / 100
		res.AuthorShareCents = authorGross - authorGross*40/100
	}
	res.GrossCents = res.AuthorShareCents + res.ParentShareCents

	// The rake only taxes profit, never principal: the primary author's cost
	// basis is the entry fee, the parent paid nothing.
	res.AuthorWalletCents, res.AuthorVaultCents = splitWalletVault(res.AuthorShareCents, entryFee, vaultPct)
	res.ParentWalletCents, res.ParentVaultCents = splitWalletVault(res.ParentShareCents, 0, vaultPct)
	return res
}

// splitWalletVault routes a share between wallet and vault: anything up to
// the cost basis goes to wallet whole; floor(profit x vaultPct) of the rest
// goes to vault.
func splitWalletVault(share, costBasis int64, vaultPct float64) (wallet, vault int64) {
	if share <= costBasis {
		return share, 0
	}
	profit := share - costBasis
	vault = int64(math.Floor(float64(profit) * vaultPct))
	return share - vault, vault
}
