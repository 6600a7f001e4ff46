package heuristics

import (
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/setup/config"
)

// Thresholds bounds each detector's window and trigger level.
type Thresholds struct {
	BurstVotingWindow    time.Duration
	BurstVotingThreshold int

	SimilarityWindow        time.Duration
	SimilarityThreshold     float64
	SimilarityMinAuthors    int
	SimilarityMaxItems      int
	SimilarityMinTextLength int

	LowDiversityWindow          time.Duration
	LowDiversityMinInteractions int
	LowDiversityMaxTargets      int
}

// DefaultThresholds returns the production detector settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BurstVotingWindow:    time.Hour,
		BurstVotingThreshold: 50,

		SimilarityWindow:        24 * time.Hour,
		SimilarityThreshold:     0.8,
		SimilarityMinAuthors:    3,
		SimilarityMaxItems:      500,
		SimilarityMinTextLength: 20,

		LowDiversityWindow:          7 * 24 * time.Hour,
		LowDiversityMinInteractions: 20,
		LowDiversityMaxTargets:      2,
	}
}

// ThresholdsFromConfig overlays positive config values onto the defaults.
func ThresholdsFromConfig(cfg *config.Heuristics) Thresholds {
	t := DefaultThresholds()
	if cfg == nil {
		return t
	}

	setMinutes(&t.BurstVotingWindow, cfg.BurstVotingWindow)
	setInt(&t.BurstVotingThreshold, cfg.BurstVotingThreshold)

	setMinutes(&t.SimilarityWindow, cfg.SimilarityWindow)
	if cfg.SimilarityThreshold > 0 && cfg.SimilarityThreshold <= 1 {
		t.SimilarityThreshold = cfg.SimilarityThreshold
	}
	setInt(&t.SimilarityMinAuthors, cfg.SimilarityMinAuthors)
	setInt(&t.SimilarityMaxItems, cfg.SimilarityMaxItems)
	setInt(&t.SimilarityMinTextLength, cfg.SimilarityMinTextLength)

	setMinutes(&t.LowDiversityWindow, cfg.LowDiversityWindow)
	setInt(&t.LowDiversityMinInteractions, cfg.LowDiversityMinInteractions)
	setInt(&t.LowDiversityMaxTargets, cfg.LowDiversityMaxTargets)

	return t
}

func setMinutes(dst *time.Duration, minutes int) {
	if minutes > 0 {
		*dst = time.Duration(minutes) * time.Minute
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
