package services

import (
	"math"
	"testing"

	"github.com/quipstakes/backend/internal/models"
)

func TestQualityScoreBounds(t *testing.T) {
	// 0 < score < 1 for all valid counter pairs.
	for shows := 0; shows <= 200; shows++ {
		for picks := 0; picks <= shows; picks++ {
			s := QualityScore(picks, shows)
			if s <= 0 || s >= 1 {
				t.Fatalf("QualityScore(%d, %d) = %v, want in (0,1)", picks, shows, s)
			}
		}
	}
}

func TestQualityScoreNewCaption(t *testing.T) {
	if got := QualityScore(0, 0); math.Abs(got-1.0/3.0) > 1e-12 {
		t.Errorf("QualityScore(0,0) = %v, want 1/3", got)
	}
}

func TestQualityScoreApproachesPickRate(t *testing.T) {
	// At high volume the smoothing washes out.
	got := QualityScore(500, 1000)
	if math.Abs(got-0.5) > 0.01 {
		t.Errorf("QualityScore(500,1000) = %v, want ~0.5", got)
	}
}

func TestShouldRetire(t *testing.T) {
	const minShows = 5
	const minScore = 0.15

	cases := []struct {
		name         string
		picks, shows int
		want         bool
	}{
		{"never picked at threshold", 0, 5, true},
		{"never picked below threshold", 0, 4, false},
		{"picked but score below floor", 1, 50, true}, // 2/53 < 0.15
		{"healthy caption", 10, 20, false},
		{"fresh caption", 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRetire(tc.picks, tc.shows, minShows, minScore); got != tc.want {
				t.Errorf("ShouldRetire(%d, %d) = %v, want %v", tc.picks, tc.shows, got, tc.want)
			}
		})
	}
}

func TestApplyShowRetiresPermanently(t *testing.T) {
	c := &models.Caption{Status: models.CaptionStatusActive, Shows: 4, Picks: 0}
	applyShow(c, false, 5, 0.15)
	if c.Shows != 5 {
		t.Fatalf("shows = %d, want 5", c.Shows)
	}
	if c.Status != models.CaptionStatusRetired {
		t.Fatalf("status = %q, want retired", c.Status)
	}

	// A retired caption never comes back, even if its numbers would pass.
	c.Picks = 100
	applyShow(c, true, 5, 0.15)
	if c.Status != models.CaptionStatusRetired {
		t.Errorf("retirement must be irreversible, got %q", c.Status)
	}
}
