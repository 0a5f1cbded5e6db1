package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

// Tunables are the engine knobs. Amounts are integer cents; VaultPct is a
// fraction in [0,1]. Defaults apply when the env var is unset.
type Tunables struct {
	CaptionsPerRound          int           `env:"CAPTIONS_PER_ROUND" envDefault:"5"`
	RoundEntryCostCents       int64         `env:"ROUND_ENTRY_COST" envDefault:"10"`
	CaptionSubmissionCents    int64         `env:"CAPTION_SUBMISSION_COST" envDefault:"25"`
	FreeCaptionsPerDay        int           `env:"FREE_CAPTIONS_PER_DAY" envDefault:"3"`
	VaultPct                  float64       `env:"VAULT_PCT" envDefault:"0.2"`
	WriterBonusMultiplier     int64         `env:"WRITER_BONUS_MULTIPLIER" envDefault:"2"`
	FirstVoteBonusCents       int64         `env:"FIRST_VOTE_BONUS_AMOUNT" envDefault:"5"`
	MinShowsBeforeRetirement  int           `env:"MIN_SHOWS_BEFORE_RETIREMENT" envDefault:"5"`
	MinQualityScoreActive     float64       `env:"MIN_QUALITY_SCORE_ACTIVE" envDefault:"0.15"`
	SimilarityThreshold       float64       `env:"SIMILARITY_THRESHOLD" envDefault:"0.8"`
	MaxCaptionLength          int           `env:"MAX_CAPTION_LENGTH" envDefault:"280"`
	RoundAbandonTTL           time.Duration `env:"ROUND_ABANDON_TTL" envDefault:"10m"`
	ImageSampleWindow         int           `env:"IMAGE_SAMPLE_WINDOW" envDefault:"10"`
	LockTimeout               time.Duration `env:"LOCK_TIMEOUT" envDefault:"3s"`
	Environment               string        `env:"ENVIRONMENT" envDefault:"development"`
}

// IsProduction gates the content-seeding fallback.
func (t Tunables) IsProduction() bool {
	return t.Environment == "production"
}

// Provider is the read-only accessor injected into each engine component.
type Provider interface {
	Tunables(ctx context.Context) (Tunables, error)
}

// EnvProvider reads tunables from the environment on every call.
type EnvProvider struct{}

func (EnvProvider) Tunables(_ context.Context) (Tunables, error) {
	var t Tunables
	if err := env.Parse(&t); err != nil {
		return Tunables{}, fmt.Errorf("parse tunables: %w", err)
	}
	return t, nil
}

// Cached wraps a Provider with a TTL cache and explicit invalidation, so hot
// paths don't re-read the environment per request.
type Cached struct {
	Inner Provider
	TTL   time.Duration

	mu        sync.Mutex
	cached    Tunables
	fetchedAt time.Time
	valid     bool
}

func NewCached(inner Provider, ttl time.Duration) *Cached {
	return &Cached{Inner: inner, TTL: ttl}
}

func (c *Cached) Tunables(ctx context.Context) (Tunables, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && time.Since(c.fetchedAt) < c.TTL {
		return c.cached, nil
	}
	t, err := c.Inner.Tunables(ctx)
	if err != nil {
		return Tunables{}, err
	}
	c.cached = t
	c.fetchedAt = time.Now()
	c.valid = true
	return t, nil
}

// Invalidate drops the cached snapshot; the next call re-reads the source.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// Static is a fixed-value Provider for tests and tools.
type Static struct {
	T Tunables
}

func (s Static) Tunables(_ context.Context) (Tunables, error) {
	return s.T, nil
}
