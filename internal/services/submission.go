package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quipstakes/backend/internal/config"
	"github.com/quipstakes/backend/internal/ledger"
	"github.com/quipstakes/backend/internal/models"
	"github.com/quipstakes/backend/internal/pglock"
)

// SubmissionImageRepo resolves the target image.
type SubmissionImageRepo interface {
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Image, error)
}

// SubmissionCaptionRepo is the minimal caption store interface for submission.
type SubmissionCaptionRepo interface {
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Caption, error)
	ListActiveByImage(ctx context.Context, tx pgx.Tx, imageID uuid.UUID) ([]*models.Caption, error)
	CreateTx(ctx context.Context, tx pgx.Tx, c *models.Caption) error
}

// QuotaConsumer takes one free daily slot when available.
type QuotaConsumer interface {
	ConsumeFree(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (bool, error)
}

// SubmissionPipeline validates and stores new captions. Quota consumption
// (or the charge when quota is spent) and caption creation are one atomic
// unit; the per-player submit lock keeps two concurrent submissions from
// both taking the same free slot.
type SubmissionPipeline struct {
	DB       TxBeginner
	Images   SubmissionImageRepo
	Captions SubmissionCaptionRepo
	Quota    QuotaConsumer
	Ledger   ledger.Service
	Config   config.Provider
}

func NewSubmissionPipeline(db TxBeginner, images SubmissionImageRepo, captions SubmissionCaptionRepo, quota QuotaConsumer, ldg ledger.Service, cfg config.Provider) *SubmissionPipeline {
	return &SubmissionPipeline{DB: db, Images: images, Captions: captions, Quota: quota, Ledger: ldg, Config: cfg}
}

// Submit validates the caption, settles its cost, and stores it.
func (p *SubmissionPipeline) Submit(ctx context.Context, playerID, imageID uuid.UUID, text, kind string, parentID *uuid.UUID) (*models.Caption, error) {
	cfg, err := p.Config.Tunables(ctx)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, validationErr("text", "must not be empty")
	}
	if utf8.RuneCountInString(trimmed) > cfg.MaxCaptionLength {
		return nil, validationErr("text", "exceeds maximum length")
	}
	switch kind {
	case models.CaptionKindOriginal:
		if parentID != nil {
			return nil, validationErr("parent_id", "original captions cannot have a parent")
		}
	case models.CaptionKindRiff:
		if parentID == nil {
			return nil, validationErr("parent_id", "riffs require a parent caption")
		}
	default:
		return nil, validationErr("kind", "must be original or riff")
	}

	tx, err := p.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := pglock.AcquireTx(ctx, tx, cfg.LockTimeout, pglock.NSSubmit, playerID); err != nil {
		return nil, err
	}

	img, err := p.Images.GetByID(ctx, tx, imageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, validationErr("image_id", "image does not exist")
	}
	if err != nil {
		return nil, err
	}
	if img.Status != models.ImageStatusActive {
		return nil, validationErr("image_id", "image is not active")
	}

	normalized := normalizeText(trimmed)
	if kind == models.CaptionKindRiff {
		parent, err := p.Captions.GetByID(ctx, tx, *parentID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, validationErr("parent_id", "parent caption does not exist")
		}
		if err != nil {
			return nil, err
		}
		if parent.ImageID != imageID {
			return nil, validationErr("parent_id", "parent caption belongs to a different image")
		}
		parentNorm := normalizeText(parent.Text)
		if normalized == parentNorm {
			return nil, validationErr("text", "riff is identical to its parent")
		}
		if similarity(normalized, parentNorm) >= cfg.SimilarityThreshold {
			return nil, validationErr("text", "riff is too similar to its parent")
		}
	}

	existing, err := p.Captions.ListActiveByImage(ctx, tx, imageID)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if normalizeText(c.Text) == normalized {
			return nil, validationErr("text", "duplicate of an existing caption")
		}
	}

	caption := &models.Caption{
		ID:           uuid.New(),
		ImageID:      imageID,
		AuthorID:     &playerID,
		Kind:         kind,
		ParentID:     parentID,
		Text:         trimmed,
		Status:       models.CaptionStatusActive,
		QualityScore: QualityScore(0, 0),
	}

	free, err := p.Quota.ConsumeFree(ctx, tx, playerID)
	if err != nil {
		return nil, err
	}
	if !free {
		if _, _, err := p.Ledger.CreateTransaction(ctx, tx, playerID, -cfg.CaptionSubmissionCents, models.LedgerEntryCaptionSubmit, models.BucketWallet, nil, &caption.ID); err != nil {
			return nil, err
		}
	}
	if err := p.Captions.CreateTx(ctx, tx, caption); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return caption, nil
}

// normalizeText lowercases and collapses whitespace for duplicate and
// similarity comparisons.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// similarity is 1 - levenshtein/maxLen over normalized text, in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := utf8.RuneCountInString(a)
	if l := utf8.RuneCountInString(b); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}
