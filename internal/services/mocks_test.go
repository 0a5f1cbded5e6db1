package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quipstakes/backend/internal/ledger"
	"github.com/quipstakes/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks for the engine's minimal repo interfaces. These let us test
// the real engine logic without a database. Getters return copies and writes
// go through the store mutex, mirroring row-level read/write semantics.
// ---------------------------------------------------------------------------

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback and the
// advisory-lock Execs are called. ---

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

// --- memStore holds images, captions, rounds, and seen records. ---

type memStore struct {
	mu       sync.Mutex
	images   map[uuid.UUID]*models.Image
	captions map[uuid.UUID]*models.Caption
	rounds   map[uuid.UUID]*models.Round
	seen     map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		images:   make(map[uuid.UUID]*models.Image),
		captions: make(map[uuid.UUID]*models.Caption),
		rounds:   make(map[uuid.UUID]*models.Round),
		seen:     make(map[string]bool),
	}
}

func seenKey(player, caption, image uuid.UUID) string {
	return player.String() + "|" + caption.String() + "|" + image.String()
}

func (m *memStore) addImage(img *models.Image) { m.images[img.ID] = img }

func (m *memStore) addCaption(c *models.Caption) { m.captions[c.ID] = c }

// eligible mirrors the repository's SQL contract: active, not the player's
// own, never seen by the player.
func (m *memStore) eligible(imageID, playerID uuid.UUID) []*models.Caption {
	var out []*models.Caption
	for _, c := range m.captions {
		if c.ImageID != imageID || c.Status != models.CaptionStatusActive {
			continue
		}
		if c.AuthorID != nil && *c.AuthorID == playerID {
			continue
		}
		if m.seen[seenKey(playerID, c.ID, imageID)] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// --- SelectionImageRepo ---

func (m *memStore) SampleEligible(_ context.Context, _ pgx.Tx, playerID uuid.UUID, minCaptions, window int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, img := range m.images {
		if img.Status != models.ImageStatusActive {
			continue
		}
		if len(m.eligible(id, playerID)) >= minCaptions {
			ids = append(ids, id)
		}
		if len(ids) == window {
			break
		}
	}
	return ids, nil
}

func (m *memStore) GetByID(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *img
	return &cp, nil
}

// --- SelectionCaptionRepo / SubmissionCaptionRepo / SettlementCaptionRepo ---

type mockCaptions struct {
	store *memStore
}

func (m *mockCaptions) ListEligible(_ context.Context, _ pgx.Tx, imageID, playerID uuid.UUID) ([]*models.Caption, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*models.Caption
	for _, c := range m.store.eligible(imageID, playerID) {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockCaptions) ListActiveByImage(_ context.Context, _ pgx.Tx, imageID uuid.UUID) ([]*models.Caption, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*models.Caption
	for _, c := range m.store.captions {
		if c.ImageID == imageID && c.Status == models.CaptionStatusActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockCaptions) GetByID(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Caption, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c, ok := m.store.captions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *mockCaptions) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Caption, error) {
	return m.GetByID(ctx, tx, id)
}

func (m *mockCaptions) CreateTx(_ context.Context, _ pgx.Tx, c *models.Caption) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cp := *c
	m.store.captions[c.ID] = &cp
	return nil
}

func (m *mockCaptions) UpdateStats(_ context.Context, _ pgx.Tx, c *models.Caption) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cur, ok := m.store.captions[c.ID]
	if !ok {
		return fmt.Errorf("caption %s not found", c.ID)
	}
	cur.Shows = c.Shows
	cur.Picks = c.Picks
	cur.QualityScore = c.QualityScore
	cur.Status = c.Status
	cur.GrossEarnedCents = c.GrossEarnedCents
	cur.WalletEarnedCents = c.WalletEarnedCents
	cur.VaultEarnedCents = c.VaultEarnedCents
	return nil
}

func (m *mockCaptions) ClaimFirstVote(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c, ok := m.store.captions[id]
	if !ok {
		return false, fmt.Errorf("caption %s not found", id)
	}
	if c.FirstVoteAwarded {
		return false, nil
	}
	c.FirstVoteAwarded = true
	return true, nil
}

// --- SelectionRoundRepo / SettlementRoundRepo ---

type mockRounds struct {
	store *memStore
}

func (m *mockRounds) CreateTx(_ context.Context, _ pgx.Tx, rd *models.Round) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cp := *rd
	m.store.rounds[rd.ID] = &cp
	return nil
}

func (m *mockRounds) AbandonLive(_ context.Context, _ pgx.Tx, playerID uuid.UUID) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, rd := range m.store.rounds {
		if rd.PlayerID == playerID && rd.ChosenCaptionID == nil {
			rd.Abandoned = true
		}
	}
	return nil
}

func (m *mockRounds) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Round, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	rd, ok := m.store.rounds[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *rd
	return &cp, nil
}

func (m *mockRounds) MarkResolved(_ context.Context, _ pgx.Tx, rd *models.Round) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cur, ok := m.store.rounds[rd.ID]
	if !ok {
		return fmt.Errorf("round %s not found", rd.ID)
	}
	cur.ChosenCaptionID = rd.ChosenCaptionID
	cur.GrossPayoutCents = rd.GrossPayoutCents
	cur.AuthorShareCents = rd.AuthorShareCents
	cur.ParentShareCents = rd.ParentShareCents
	cur.FirstVoteBonus = rd.FirstVoteBonus
	cur.ResolvedAt = rd.ResolvedAt
	return nil
}

func (m *mockRounds) MarkAbandoned(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	rd, ok := m.store.rounds[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if rd.ChosenCaptionID != nil || rd.Abandoned {
		return false, nil
	}
	rd.Abandoned = true
	return true, nil
}

// --- SettlementSeenRepo ---

type mockSeen struct {
	store *memStore
}

func (m *mockSeen) Exists(_ context.Context, _ pgx.Tx, playerID, captionID, imageID uuid.UUID) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.seen[seenKey(playerID, captionID, imageID)], nil
}

func (m *mockSeen) CreateTx(_ context.Context, _ pgx.Tx, rec *models.SeenRecord) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	key := seenKey(rec.PlayerID, rec.CaptionID, rec.ImageID)
	if m.store.seen[key] {
		return fmt.Errorf("duplicate seen record %s", key)
	}
	m.store.seen[key] = true
	return nil
}

// --- ledger.Service mock: balances plus an append-only entry log ---

type ledgerEntry struct {
	PlayerID  uuid.UUID
	EntryType string
	Bucket    string
	Amount    int64
}

type mockLedger struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]int64
	vaults  map[uuid.UUID]int64
	entries []ledgerEntry
}

func newMockLedger() *mockLedger {
	return &mockLedger{wallets: make(map[uuid.UUID]int64), vaults: make(map[uuid.UUID]int64)}
}

func (m *mockLedger) fund(playerID uuid.UUID, cents int64) {
	m.wallets[playerID] = cents
}

func (m *mockLedger) CreateTransaction(_ context.Context, _ pgx.Tx, playerID uuid.UUID, amountCents int64, entryType, bucket string, _, _ *uuid.UUID) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buckets := m.wallets
	if bucket == models.BucketVault {
		buckets = m.vaults
	}
	if buckets[playerID]+amountCents < 0 {
		return 0, 0, ledger.ErrInsufficientBalance
	}
	buckets[playerID] += amountCents
	m.entries = append(m.entries, ledgerEntry{PlayerID: playerID, EntryType: entryType, Bucket: bucket, Amount: amountCents})
	return m.wallets[playerID], m.vaults[playerID], nil
}

func (m *mockLedger) wallet(playerID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wallets[playerID]
}

func (m *mockLedger) vault(playerID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vaults[playerID]
}

func (m *mockLedger) byType(entryType string) []ledgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledgerEntry
	for _, e := range m.entries {
		if e.EntryType == entryType {
			out = append(out, e)
		}
	}
	return out
}

// --- social.Oracle mock ---

type mockSocial struct {
	pairs map[string]bool
}

func newMockSocial() *mockSocial {
	return &mockSocial{pairs: make(map[string]bool)}
}

func pairKey(a, b uuid.UUID) string {
	if a.String() < b.String() {
		return a.String() + "|" + b.String()
	}
	return b.String() + "|" + a.String()
}

func (m *mockSocial) connect(a, b uuid.UUID) {
	m.pairs[pairKey(a, b)] = true
}

func (m *mockSocial) IsConnected(_ context.Context, a, b uuid.UUID) (bool, error) {
	if a == b {
		return true, nil
	}
	return m.pairs[pairKey(a, b)], nil
}

// --- QuotaRepo mock ---

type mockQuotaRepo struct {
	mu     sync.Mutex
	quotas map[string]*models.DailyQuota
}

func newMockQuotaRepo() *mockQuotaRepo {
	return &mockQuotaRepo{quotas: make(map[string]*models.DailyQuota)}
}

func quotaKey(playerID uuid.UUID, day time.Time) string {
	return playerID.String() + "|" + day.Format("2006-01-02")
}

func (m *mockQuotaRepo) Get(_ context.Context, playerID uuid.UUID, day time.Time) (*models.DailyQuota, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dq, ok := m.quotas[quotaKey(playerID, day)]
	if !ok {
		return nil, nil
	}
	cp := *dq
	return &cp, nil
}

func (m *mockQuotaRepo) GetForUpdate(ctx context.Context, _ pgx.Tx, playerID uuid.UUID, day time.Time) (*models.DailyQuota, error) {
	return m.Get(ctx, playerID, day)
}

func (m *mockQuotaRepo) CreateTx(_ context.Context, _ pgx.Tx, dq *models.DailyQuota) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *dq
	m.quotas[quotaKey(dq.PlayerID, dq.Day)] = &cp
	return nil
}

func (m *mockQuotaRepo) IncrementUsed(_ context.Context, _ pgx.Tx, playerID uuid.UUID, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dq, ok := m.quotas[quotaKey(playerID, day)]
	if !ok {
		return fmt.Errorf("quota row missing for %s", playerID)
	}
	dq.Used++
	return nil
}
