package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quipstakes/backend/internal/config"
)

func quotaTestConfig() config.Provider {
	return config.Static{T: config.Tunables{FreeCaptionsPerDay: 3, LockTimeout: time.Second}}
}

func TestQuotaConsumeAndRemaining(t *testing.T) {
	player := uuid.New()
	repo := newMockQuotaRepo()
	tracker := NewQuotaTracker(repo, quotaTestConfig())
	tracker.Now = func() time.Time { return time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC) }

	ctx := context.Background()
	if got, _ := tracker.RemainingFree(ctx, player); got != 3 {
		t.Fatalf("fresh remaining = %d, want 3", got)
	}

	for i := 0; i < 3; i++ {
		ok, err := tracker.ConsumeFree(ctx, noopTx{}, player)
		if err != nil {
			t.Fatalf("ConsumeFree #%d: %v", i+1, err)
		}
		if !ok {
			t.Fatalf("ConsumeFree #%d should succeed", i+1)
		}
	}

	if got, _ := tracker.RemainingFree(ctx, player); got != 0 {
		t.Errorf("remaining after 3 = %d, want 0", got)
	}
	ok, err := tracker.ConsumeFree(ctx, noopTx{}, player)
	if err != nil {
		t.Fatalf("ConsumeFree #4: %v", err)
	}
	if ok {
		t.Error("fourth ConsumeFree should report no free slot")
	}
}

func TestQuotaResetsOnNewDay(t *testing.T) {
	player := uuid.New()
	repo := newMockQuotaRepo()
	tracker := NewQuotaTracker(repo, quotaTestConfig())

	day1 := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	tracker.Now = func() time.Time { return day1 }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if ok, _ := tracker.ConsumeFree(ctx, noopTx{}, player); !ok {
			t.Fatalf("day 1 ConsumeFree #%d should succeed", i+1)
		}
	}
	if got, _ := tracker.RemainingFree(ctx, player); got != 0 {
		t.Fatalf("day 1 exhausted remaining = %d, want 0", got)
	}

	// Two minutes later it's a new UTC day and a fresh counter.
	tracker.Now = func() time.Time { return day1.Add(2 * time.Minute) }
	if got, _ := tracker.RemainingFree(ctx, player); got != 3 {
		t.Errorf("new day remaining = %d, want 3", got)
	}
	if ok, _ := tracker.ConsumeFree(ctx, noopTx{}, player); !ok {
		t.Error("new day ConsumeFree should succeed")
	}
}
