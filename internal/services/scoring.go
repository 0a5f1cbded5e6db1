package services

import "github.com/quipstakes/backend/internal/models"

// QualityScore is a Bayesian-smoothed pick rate: (picks+1)/(shows+3). A
// brand-new caption scores 1/3; the score approaches the true pick rate as
// shows grows and never reaches 0 or 1.
func QualityScore(picks, shows int) float64 {
	return float64(picks+1) / float64(shows+3)
}

// ShouldRetire applies the retirement rule: enough exposure and either zero
// picks or a score below the active floor. Retirement is irreversible.
func ShouldRetire(picks, shows, minShows int, minScore float64) bool {
	return shows >= minShows && (picks == 0 || QualityScore(picks, shows) < minScore)
}

// applyShow records one exposure on the caption: bumps shows (and picks when
// chosen), rescores, and retires when the rule fires. Callers persist the
// caption afterward within the same transaction.
func applyShow(c *models.Caption, picked bool, minShows int, minScore float64) {
	c.Shows++
	if picked {
		c.Picks++
	}
	c.QualityScore = QualityScore(c.Picks, c.Shows)
	if c.Status == models.CaptionStatusActive && ShouldRetire(c.Picks, c.Shows, minShows, minScore) {
		c.Status = models.CaptionStatusRetired
	}
}
