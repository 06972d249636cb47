package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
)

func observationsAt(combination int, choices []string, safeRewards []float64) []ChoiceObservation {
	obs := make([]ChoiceObservation, len(choices))
	for i := range choices {
		obs[i] = ChoiceObservation{
			CombinationID:   combination,
			RiskProbability: 25,
			RiskReward:      100,
			SafeReward:      safeRewards[i],
			Choice:          choices[i],
		}
	}
	return obs
}

func TestEstimateIndifferencePoints(t *testing.T) {
	tests := []struct {
		name        string
		choices     []string
		safeRewards []float64
		wantPoint   float64
		wantQuality string
	}{
		{
			name:        "clean switch midpoint",
			choices:     []string{"risk", "risk", "safe", "safe"},
			safeRewards: []float64{10, 20, 30, 40},
			wantPoint:   25,
			wantQuality: models.QualityOK,
		},
		{
			name:        "never takes safe",
			choices:     []string{"risk", "risk", "risk", "risk"},
			safeRewards: []float64{10, 20, 30, 40},
			wantPoint:   10,
			wantQuality: models.QualityAlwaysRisky,
		},
		{
			name:        "never takes risk",
			choices:     []string{"safe", "safe", "safe", "safe"},
			safeRewards: []float64{10, 20, 30, 40},
			wantPoint:   40,
			wantQuality: models.QualityAlwaysSafe,
		},
		{
			name:        "all timeouts",
			choices:     []string{"timeout", "timeout", "timeout"},
			safeRewards: []float64{10, 20, 40},
			wantPoint:   25,
			wantQuality: models.QualityNoSwitch,
		},
		{
			name:        "inconsistent switching uses last risk and first safe",
			choices:     []string{"risk", "safe", "risk", "safe"},
			safeRewards: []float64{10, 20, 30, 40},
			wantPoint:   25, // midpoint of 30 (last risk) and 20 (first safe)
			wantQuality: models.QualityOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := EstimateIndifferencePoints(observationsAt(1, tt.choices, tt.safeRewards), 1)
			require.Len(t, points, 1)
			assert.Equal(t, 1, points[0].CombinationID)
			assert.Equal(t, tt.wantQuality, points[0].Quality)
			assert.InDelta(t, tt.wantPoint, points[0].IndifferencePoint, 1e-9)
		})
	}
}

func TestEstimateEmitsAllCombinations(t *testing.T) {
	obs := observationsAt(3, []string{"risk", "safe"}, []float64{10, 20})
	points := EstimateIndifferencePoints(obs, 5)
	require.Len(t, points, 5)

	for i, p := range points {
		assert.Equal(t, i+1, p.CombinationID)
		if p.CombinationID == 3 {
			assert.Equal(t, models.QualityOK, p.Quality)
			continue
		}
		assert.Equal(t, models.QualityMissing, p.Quality)
		assert.Zero(t, p.IndifferencePoint)
	}
}

func TestEstimateSortsByTestedAmount(t *testing.T) {
	// Presentation order was shuffled; the scan must happen in ascending
	// safe-reward order regardless.
	obs := observationsAt(1, []string{"safe", "risk", "safe", "risk"}, []float64{40, 10, 30, 20})
	points := EstimateIndifferencePoints(obs, 1)
	require.Len(t, points, 1)
	assert.Equal(t, models.QualityOK, points[0].Quality)
	assert.InDelta(t, 25.0, points[0].IndifferencePoint, 1e-9)
}

func TestEstimateIgnoresDummyObservations(t *testing.T) {
	obs := []ChoiceObservation{
		{CombinationID: 0, SafeReward: 10, Choice: "risk"},
	}
	points := EstimateIndifferencePoints(obs, 2)
	require.Len(t, points, 2)
	for _, p := range points {
		assert.Equal(t, models.QualityMissing, p.Quality)
	}
}
