package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/rows"
)

func TestSummarize(t *testing.T) {
	batch := []rows.Row{
		{Choice: "risk", BarChoiceTime: 1.0},
		{Choice: "risk", BarChoiceTime: 2.0},
		{Choice: "safe", BarChoiceTime: 3.0},
		{Choice: "timeout", BarChoiceTime: math.NaN()},
	}

	s := Summarize(batch)
	assert.Equal(t, 4, s.Trials)
	assert.Equal(t, 2, s.RiskChoices)
	assert.Equal(t, 1, s.SafeChoices)
	assert.Equal(t, 1, s.Timeouts)
	assert.InDelta(t, 2.0, s.MeanChoiceTime, 1e-9)
	assert.InDelta(t, 2.0, s.MedianChoiceTime, 1e-9)
	assert.InDelta(t, 1.0, s.ChoiceTimeSD, 1e-9)
}

func TestSummarizeAllTimeouts(t *testing.T) {
	batch := []rows.Row{
		{Choice: "timeout", BarChoiceTime: math.NaN()},
		{Choice: "timeout", BarChoiceTime: math.NaN()},
	}

	s := Summarize(batch)
	assert.Equal(t, 2, s.Timeouts)
	assert.True(t, math.IsNaN(s.MeanChoiceTime))
	assert.True(t, math.IsNaN(s.MedianChoiceTime))
	assert.True(t, math.IsNaN(s.ChoiceTimeSD))
}
