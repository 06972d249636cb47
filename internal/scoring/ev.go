package scoring

import "math"

// evEpsilon is the tolerance under which the two options count as equal in
// expected value.
const evEpsilon = 0.01

// ClassifyEV compares the expected value of the risk option against the
// guaranteed safe amount and labels the trial same, safe or risky.
func ClassifyEV(riskProbability int, riskReward, safeReward float64) string {
	riskEV := float64(riskProbability) / 100 * riskReward
	switch {
	case math.Abs(riskEV-safeReward) < evEpsilon:
		return "same"
	case safeReward > riskEV:
		return "safe"
	default:
		return "risky"
	}
}
