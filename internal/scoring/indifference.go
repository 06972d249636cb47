// Package scoring holds the pure computation behind the study: the
// indifference-point estimator, the bonus resolution and the descriptive
// summaries attached to exports.
package scoring

import (
	"math"
	"sort"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
)

// ChoiceObservation is one completed phase-1 trial as seen by the estimator:
// the lottery it belongs to, the safe amount tested and what the participant
// did.
type ChoiceObservation struct {
	CombinationID   int
	RiskProbability int
	RiskReward      float64
	SafeReward      float64
	Choice          string
}

// EstimateIndifferencePoints computes one indifference point per combination
// id 1..combinations. Combinations with no data still get a record, tagged
// missing, so downstream consumers always see the full set.
//
// Per combination the choices are scanned in ascending safe-reward order for
// the last risk choice and the first safe choice. The midpoint of those two
// safe amounts is the estimate. The boundary policies are asymmetric on
// purpose: a participant who never takes the safe option gets the lowest
// tested amount (conservative lower bound), one who never takes the risk
// gets the highest.
func EstimateIndifferencePoints(observations []ChoiceObservation, combinations int) []models.IndifferencePoint {
	grouped := make(map[int][]ChoiceObservation)
	for _, obs := range observations {
		if obs.CombinationID > 0 {
			grouped[obs.CombinationID] = append(grouped[obs.CombinationID], obs)
		}
	}

	points := make([]models.IndifferencePoint, 0, combinations)
	for id := 1; id <= combinations; id++ {
		points = append(points, estimateOne(id, grouped[id]))
	}
	return points
}

func estimateOne(combinationID int, obs []ChoiceObservation) models.IndifferencePoint {
	ip := models.IndifferencePoint{CombinationID: combinationID}
	if len(obs) == 0 {
		ip.Quality = models.QualityMissing
		return ip
	}

	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].SafeReward < obs[j].SafeReward
	})
	ip.RiskReward = obs[0].RiskReward
	ip.RiskProbability = obs[0].RiskProbability

	lastRisk, firstSafe := -1, -1
	for i, o := range obs {
		switch o.Choice {
		case models.ChoiceRisk:
			lastRisk = i
		case models.ChoiceSafe:
			if firstSafe == -1 {
				firstSafe = i
			}
		}
	}

	lowest := obs[0].SafeReward
	highest := obs[len(obs)-1].SafeReward

	switch {
	case lastRisk == -1 && firstSafe == -1:
		// Trials exist but none produced a choice (all timeouts), so there
		// is no switch point in either direction.
		ip.Quality = models.QualityNoSwitch
		ip.IndifferencePoint = round2((lowest + highest) / 2)
	case firstSafe == -1:
		ip.Quality = models.QualityAlwaysRisky
		ip.IndifferencePoint = round2(lowest)
	case lastRisk == -1:
		ip.Quality = models.QualityAlwaysSafe
		ip.IndifferencePoint = round2(highest)
	default:
		ip.Quality = models.QualityOK
		ip.IndifferencePoint = round2((obs[lastRisk].SafeReward + obs[firstSafe].SafeReward) / 2)
	}
	return ip
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
