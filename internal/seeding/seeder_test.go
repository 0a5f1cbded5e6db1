package seeding

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quipstakes/backend/internal/config"
	"github.com/quipstakes/backend/internal/models"
)

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockDB struct{}

func (mockDB) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

type recordingStore struct {
	images   []*models.Image
	captions []*models.Caption
}

func (r *recordingStore) Create(_ context.Context, img *models.Image) error {
	r.images = append(r.images, img)
	return nil
}

func (r *recordingStore) CreateTx(_ context.Context, _ pgx.Tx, c *models.Caption) error {
	r.captions = append(r.captions, c)
	return nil
}

func seedFixture(captionsPerRound int) (*Seeder, *recordingStore) {
	store := &recordingStore{}
	cfg := config.Static{T: config.Tunables{CaptionsPerRound: captionsPerRound}}
	return New(Repos{DB: mockDB{}, Images: store, Captions: store}, cfg), store
}

func TestSeedInsertsFullRound(t *testing.T) {
	seeder, store := seedFixture(5)
	if err := seeder.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(store.images) != 1 {
		t.Fatalf("seeded %d images, want 1", len(store.images))
	}
	if len(store.captions) != 5 {
		t.Fatalf("seeded %d captions, want 5", len(store.captions))
	}
	for _, c := range store.captions {
		if c.AuthorID != nil {
			t.Errorf("seeded caption %s has an author; system captions must not", c.ID)
		}
		if c.ImageID != store.images[0].ID {
			t.Errorf("caption %s attached to the wrong image", c.ID)
		}
		if c.Status != models.CaptionStatusActive {
			t.Errorf("caption status = %q, want active", c.Status)
		}
	}
}

func TestSeedCoversRoundsLargerThanTextPool(t *testing.T) {
	// A round size above the fixed text pool must still yield a full set of
	// distinct captions, or the post-seed retry can never succeed.
	n := len(placeholderTexts) + 3
	seeder, store := seedFixture(n)
	if err := seeder.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(store.captions) != n {
		t.Fatalf("seeded %d captions, want %d", len(store.captions), n)
	}
	texts := make(map[string]bool, n)
	for _, c := range store.captions {
		if texts[c.Text] {
			t.Errorf("duplicate seeded text %q", c.Text)
		}
		texts[c.Text] = true
	}
}
