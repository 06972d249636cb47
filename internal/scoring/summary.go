package scoring

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/rows"
)

// SessionSummary is a descriptive digest of one participant's rows, attached
// to the researcher export for quick screening.
type SessionSummary struct {
	Trials           int
	RiskChoices      int
	SafeChoices      int
	Timeouts         int
	MeanChoiceTime   float64
	MedianChoiceTime float64
	ChoiceTimeSD     float64
}

// Summarize computes choice counts and reaction-time statistics over a
// participant's result rows. Rows without a recorded choice time (timeouts)
// are excluded from the timing stats.
func Summarize(batch []rows.Row) SessionSummary {
	summary := SessionSummary{Trials: len(batch)}

	var times []float64
	for _, r := range batch {
		switch r.Choice {
		case models.ChoiceRisk:
			summary.RiskChoices++
		case models.ChoiceSafe:
			summary.SafeChoices++
		case models.ChoiceTimeout:
			summary.Timeouts++
		}
		if !math.IsNaN(r.BarChoiceTime) {
			times = append(times, r.BarChoiceTime)
		}
	}

	if len(times) == 0 {
		summary.MeanChoiceTime = math.NaN()
		summary.MedianChoiceTime = math.NaN()
		summary.ChoiceTimeSD = math.NaN()
		return summary
	}

	summary.MeanChoiceTime = stat.Mean(times, nil)
	if len(times) > 1 {
		summary.ChoiceTimeSD = stat.StdDev(times, nil)
	}
	if median, err := stats.Median(times); err == nil {
		summary.MedianChoiceTime = median
	}
	return summary
}
