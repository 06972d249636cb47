package scoring

import (
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
)

// Points-to-USD conversion is a fixed two-tier table keyed on the reward
// scale of the trial: the "millions" stimuli (500,000-1,500,000 points)
// divide by 500,000, the "hundreds" stimuli (100-600 points) divide by 50.
// The tiers encode the designed payout range and must not be changed.
const (
	millionsThreshold = 500000
	millionsDivisor   = 500000
	hundredsDivisor   = 50
)

// Rand is the random source for the bonus draw. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// CompletedTrial is the slice of a trial result the bonus draw needs.
type CompletedTrial struct {
	TrialNumber     int
	TrialID         int
	Choice          string
	RiskProbability int
	RiskReward      float64
	SafeReward      float64
}

// ResolveBonus selects one eligible completed trial uniformly at random and
// plays it out for real money. Eligible means: trial number within the
// configured main range and an actual risk or safe choice (timeouts never
// pay). With no eligible trials it returns a zero outcome with a diagnostic
// reason instead of failing.
func ResolveBonus(completed []CompletedTrial, minTrial, maxTrial int, rng Rand) models.BonusOutcome {
	var eligible []CompletedTrial
	for _, t := range completed {
		if t.TrialNumber < minTrial || t.TrialNumber > maxTrial {
			continue
		}
		if t.Choice != models.ChoiceRisk && t.Choice != models.ChoiceSafe {
			continue
		}
		eligible = append(eligible, t)
	}

	if len(eligible) == 0 {
		return models.BonusOutcome{Reason: "no eligible trials"}
	}

	selected := eligible[rng.Intn(len(eligible))]
	outcome := models.BonusOutcome{
		SelectedTrialNumber: selected.TrialNumber,
		SelectedTrialID:     selected.TrialID,
		Choice:              selected.Choice,
	}

	if selected.Choice == models.ChoiceSafe {
		// The safe option is a guaranteed payout.
		outcome.Win = true
		outcome.RewardPoints = selected.SafeReward
		outcome.BonusUSD = PointsToUSD(selected.SafeReward)
		return outcome
	}

	// Play the lottery: a roll at or below the stated probability wins.
	// The boundary is inclusive.
	roll := rng.Float64() * 100
	if roll <= float64(selected.RiskProbability) {
		outcome.Win = true
		outcome.RewardPoints = selected.RiskReward
		outcome.BonusUSD = PointsToUSD(selected.RiskReward)
	}
	return outcome
}

// PointsToUSD converts reward points to dollars under the two-tier table.
// Exactly 500,000 points falls in the millions tier.
func PointsToUSD(points float64) float64 {
	if points >= millionsThreshold {
		return points / millionsDivisor
	}
	return points / hundredsDivisor
}
