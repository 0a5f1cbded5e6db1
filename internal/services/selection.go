package services

import (
	"context"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quipstakes/backend/internal/config"
	"github.com/quipstakes/backend/internal/ledger"
	"github.com/quipstakes/backend/internal/models"
	"github.com/quipstakes/backend/internal/pglock"
	"github.com/quipstakes/backend/internal/social"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SelectionImageRepo is the minimal image store interface for selection.
type SelectionImageRepo interface {
	SampleEligible(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, minCaptions, window int) ([]uuid.UUID, error)
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Image, error)
}

// SelectionCaptionRepo lists the captions a player may be shown for an image.
type SelectionCaptionRepo interface {
	ListEligible(ctx context.Context, tx pgx.Tx, imageID, playerID uuid.UUID) ([]*models.Caption, error)
}

// SelectionRoundRepo creates rounds and retires the player's previous live one.
type SelectionRoundRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, rd *models.Round) error
	AbandonLive(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) error
}

// Seeder populates placeholder content when nothing is eligible. Wired only
// outside production.
type Seeder interface {
	Seed(ctx context.Context) error
}

// EnqueueExpireFunc schedules the round-abandonment job within the given
// transaction. Provided by main using river.Client.InsertTx.
type EnqueueExpireFunc func(ctx context.Context, tx pgx.Tx, roundID uuid.UUID, at time.Time) error

// RoundOffer is what a started round presents to the player.
type RoundOffer struct {
	Round    *models.Round
	Image    *models.Image
	Captions []*models.Caption
}

// SelectionEngine picks an image and a caption set for a round, charging the
// entry fee and persisting the round in one transaction. SeenRecords are NOT
// written here; novelty is only burned when the round resolves.
type SelectionEngine struct {
	DB            TxBeginner
	Images        SelectionImageRepo
	Captions      SelectionCaptionRepo
	Rounds        SelectionRoundRepo
	Social        social.Oracle
	Ledger        ledger.Service
	Config        config.Provider
	Seeder        Seeder // nil in production
	EnqueueExpire EnqueueExpireFunc
	Rand          *mrand.Rand // nil means the shared source
	Now           func() time.Time
}

func NewSelectionEngine(db TxBeginner, images SelectionImageRepo, captions SelectionCaptionRepo, rounds SelectionRoundRepo, oracle social.Oracle, ldg ledger.Service, cfg config.Provider) *SelectionEngine {
	return &SelectionEngine{
		DB:       db,
		Images:   images,
		Captions: captions,
		Rounds:   rounds,
		Social:   oracle,
		Ledger:   ldg,
		Config:   cfg,
		Now:      time.Now,
	}
}

// StartRound begins a round for the player: abandon any previous live round,
// pick an image from a bounded random window of eligible candidates, select
// captions circle-first with score-weighted sampling, charge the entry fee,
// and persist the round. Fails with ErrNoContentAvailable when no image
// qualifies; outside production that triggers one content-seeding retry.
func (e *SelectionEngine) StartRound(ctx context.Context, playerID uuid.UUID) (*RoundOffer, error) {
	cfg, err := e.Config.Tunables(ctx)
	if err != nil {
		return nil, err
	}
	offer, err := e.startRound(ctx, playerID, cfg)
	if errors.Is(err, ErrNoContentAvailable) && e.Seeder != nil && !cfg.IsProduction() {
		if seedErr := e.Seeder.Seed(ctx); seedErr != nil {
			return nil, fmt.Errorf("seed content: %w", seedErr)
		}
		return e.startRound(ctx, playerID, cfg)
	}
	return offer, err
}

func (e *SelectionEngine) startRound(ctx context.Context, playerID uuid.UUID, cfg config.Tunables) (*RoundOffer, error) {
	tx, err := e.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := pglock.AcquireTx(ctx, tx, cfg.LockTimeout, pglock.NSRoundStart, playerID); err != nil {
		return nil, err
	}

	window, err := e.Images.SampleEligible(ctx, tx, playerID, cfg.CaptionsPerRound, cfg.ImageSampleWindow)
	if err != nil {
		return nil, err
	}
	if len(window) == 0 {
		return nil, ErrNoContentAvailable
	}
	imageID := window[e.intN(len(window))]

	img, err := e.Images.GetByID(ctx, tx, imageID)
	if err != nil {
		return nil, err
	}
	eligible, err := e.Captions.ListEligible(ctx, tx, imageID, playerID)
	if err != nil {
		return nil, err
	}
	selected, err := e.selectCaptions(ctx, playerID, eligible, cfg.CaptionsPerRound)
	if err != nil {
		return nil, err
	}
	e.shuffle(selected)

	if err := e.Rounds.AbandonLive(ctx, tx, playerID); err != nil {
		return nil, err
	}

	round := &models.Round{
		ID:            uuid.New(),
		PlayerID:      playerID,
		ImageID:       imageID,
		CaptionIDs:    captionIDs(selected),
		EntryFeeCents: cfg.RoundEntryCostCents,
	}
	if _, _, err := e.Ledger.CreateTransaction(ctx, tx, playerID, -cfg.RoundEntryCostCents, models.LedgerEntryRoundEntry, models.BucketWallet, &round.ID, nil); err != nil {
		return nil, err
	}
	if err := e.Rounds.CreateTx(ctx, tx, round); err != nil {
		return nil, err
	}
	if e.EnqueueExpire != nil {
		if err := e.EnqueueExpire(ctx, tx, round.ID, e.Now().Add(cfg.RoundAbandonTTL)); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &RoundOffer{Round: round, Image: img, Captions: selected}, nil
}

// selectCaptions applies the circle-first policy: all-connected when enough
// connected captions exist, connected-plus-fill when some do, and the open
// pool otherwise. System captions (no author) count as unconnected.
func (e *SelectionEngine) selectCaptions(ctx context.Context, playerID uuid.UUID, eligible []*models.Caption, n int) ([]*models.Caption, error) {
	if len(eligible) < n {
		return nil, ErrNoContentAvailable
	}

	connectedAuthors := make(map[uuid.UUID]bool)
	for _, c := range eligible {
		if c.AuthorID == nil {
			continue
		}
		if _, seen := connectedAuthors[*c.AuthorID]; seen {
			continue
		}
		connected, err := e.Social.IsConnected(ctx, playerID, *c.AuthorID)
		if err != nil {
			return nil, err
		}
		connectedAuthors[*c.AuthorID] = connected
	}

	var connected, open []*models.Caption
	for _, c := range eligible {
		if c.AuthorID != nil && connectedAuthors[*c.AuthorID] {
			connected = append(connected, c)
		} else {
			open = append(open, c)
		}
	}

	switch {
	case len(connected) >= n:
		return e.weightedSample(connected, n)
	case len(connected) > 0:
		fill, err := e.weightedSample(open, n-len(connected))
		if err != nil {
			return nil, err
		}
		return append(connected, fill...), nil
	default:
		return e.weightedSample(open, n)
	}
}

// weightedSample draws n captions without replacement, each candidate
// weighted by its quality score. When all remaining weights are zero the
// draw falls back to uniform choice.
func (e *SelectionEngine) weightedSample(pool []*models.Caption, n int) ([]*models.Caption, error) {
	if len(pool) < n {
		return nil, ErrNoContentAvailable
	}
	candidates := make([]*models.Caption, len(pool))
	copy(candidates, pool)
	total := 0.0
	for _, c := range candidates {
		total += c.QualityScore
	}

	out := make([]*models.Caption, 0, n)
	for len(out) < n {
		idx := len(candidates) - 1
		if total > 0 {
			draw := e.float64() * total
			acc := 0.0
			for i, c := range candidates {
				acc += c.QualityScore
				if draw < acc {
					idx = i
					break
				}
			}
		} else {
			idx = e.intN(len(candidates))
		}
		chosen := candidates[idx]
		out = append(out, chosen)
		total -= chosen.QualityScore
		candidates = append(candidates[:idx], candidates[idx+1:]...)
	}
	return out, nil
}

// shuffle randomizes display order so connected captions are not always
// listed first.
func (e *SelectionEngine) shuffle(captions []*models.Caption) {
	for i := len(captions) - 1; i > 0; i-- {
		j := e.intN(i + 1)
		captions[i], captions[j] = captions[j], captions[i]
	}
}

func (e *SelectionEngine) intN(n int) int {
	if e.Rand != nil {
		return e.Rand.IntN(n)
	}
	return mrand.IntN(n)
}

func (e *SelectionEngine) float64() float64 {
	if e.Rand != nil {
		return e.Rand.Float64()
	}
	return mrand.Float64()
}

func captionIDs(captions []*models.Caption) []uuid.UUID {
	ids := make([]uuid.UUID, len(captions))
	for i, c := range captions {
		ids[i] = c.ID
	}
	return ids
}
