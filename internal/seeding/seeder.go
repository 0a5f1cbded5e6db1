// Package seeding provides the non-production content fallback: when no
// image has enough eligible captions for a round, a placeholder image with a
// handful of authorless captions is inserted so play can continue.
package seeding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quipstakes/backend/internal/config"
	"github.com/quipstakes/backend/internal/models"
	"github.com/quipstakes/backend/internal/services"
)

var placeholderTexts = []string{
	"When the coffee hits at 9:47 AM",
	"Nobody told me this was a formal event",
	"I regret everything and nothing",
	"Day three of pretending to understand",
	"This is fine, probably",
	"The committee has reached a decision",
	"Somewhere, an intern is panicking",
	"Plot twist: it was Tuesday all along",
}

// Repos is the slice of persistence the seeder needs.
type Repos struct {
	DB interface {
		Begin(ctx context.Context) (pgx.Tx, error)
	}
	Images interface {
		Create(ctx context.Context, img *models.Image) error
	}
	Captions interface {
		CreateTx(ctx context.Context, tx pgx.Tx, c *models.Caption) error
	}
}

type Seeder struct {
	Repos  Repos
	Config config.Provider
}

func New(repos Repos, cfg config.Provider) *Seeder {
	return &Seeder{Repos: repos, Config: cfg}
}

// placeholderText cycles the fixed texts, suffixing repeats so a round
// larger than the text pool still gets distinct captions.
func placeholderText(i int) string {
	text := placeholderTexts[i%len(placeholderTexts)]
	if take := i / len(placeholderTexts); take > 0 {
		return fmt.Sprintf("%s (take %d)", text, take+1)
	}
	return text
}

// Seed inserts one placeholder image with enough system captions for a full
// round. System captions have no author and never receive payouts.
func (s *Seeder) Seed(ctx context.Context) error {
	cfg, err := s.Config.Tunables(ctx)
	if err != nil {
		return err
	}
	img := &models.Image{
		ID:       uuid.New(),
		AssetRef: fmt.Sprintf("placeholder/%s.jpg", uuid.New()),
		Status:   models.ImageStatusActive,
	}
	if err := s.Repos.Images.Create(ctx, img); err != nil {
		return fmt.Errorf("seed image: %w", err)
	}

	tx, err := s.Repos.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < cfg.CaptionsPerRound; i++ {
		c := &models.Caption{
			ID:           uuid.New(),
			ImageID:      img.ID,
			Kind:         models.CaptionKindOriginal,
			Text:         placeholderText(i),
			Status:       models.CaptionStatusActive,
			QualityScore: services.QualityScore(0, 0),
		}
		if err := s.Repos.Captions.CreateTx(ctx, tx, c); err != nil {
			return fmt.Errorf("seed caption: %w", err)
		}
	}
	return tx.Commit(ctx)
}
