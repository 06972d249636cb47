package trials

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/config"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
)

func testStudyConfig() config.StudyConfig {
	return config.StudyConfig{
		Mode:               "risk-survey",
		MainTrials:         10,
		AttentionChecks:    2,
		PracticeTrialIDs:   []int{1, 3, 5},
		FilterFiftyPercent: true,
	}
}

func testDefs(n int) []models.TrialDefinition {
	defs := make([]models.TrialDefinition, 0, n)
	for i := 1; i <= n; i++ {
		prob := 25
		if i%3 == 0 {
			prob = 75
		}
		defs = append(defs, models.TrialDefinition{
			TrialID:         i,
			RiskProbability: prob,
			RiskReward:      100,
			SafeReward:      float64(10 * i),
			SizeCondition:   models.SizeBothSmall,
		})
	}
	return defs
}

func testPool() []models.AttentionQuestion {
	return []models.AttentionQuestion{
		{Type: "text", Prompt: "q1", CorrectAnswer: "a"},
		{Type: "text", Prompt: "q2", CorrectAnswer: "b"},
		{Type: "text", Prompt: "q3", CorrectAnswer: "c"},
	}
}

func TestBuildMainSequence(t *testing.T) {
	b := NewBuilder(testStudyConfig(), rand.New(rand.NewSource(1)))
	seq := b.Build(testDefs(40), testPool())

	require.Len(t, seq.Main, 10)

	seen := make(map[int]bool)
	for _, tr := range seq.Main {
		assert.False(t, seen[tr.TrialID], "trial id %d repeated", tr.TrialID)
		seen[tr.TrialID] = true
		assert.False(t, tr.IsPractice)
	}

	// Trial numbers are sequential from 1.
	for i, tr := range seq.Main {
		assert.Equal(t, i+1, tr.TrialNumber)
	}
}

func TestBuildFiltersFiftyPercentRows(t *testing.T) {
	defs := testDefs(20)
	defs[0].RiskProbability = 50
	defs[1].RiskProbability = 50

	b := NewBuilder(testStudyConfig(), rand.New(rand.NewSource(1)))
	seq := b.Build(defs, nil)
	for _, tr := range seq.Main {
		assert.NotEqual(t, 50, tr.RiskProbability)
	}
}

func TestBuildCapsAtTableSize(t *testing.T) {
	cfg := testStudyConfig()
	cfg.MainTrials = 100
	b := NewBuilder(cfg, rand.New(rand.NewSource(1)))

	seq := b.Build(testDefs(15), nil)
	assert.LessOrEqual(t, len(seq.Main), 15)
}

func TestBuildPracticeUsesFixedIDs(t *testing.T) {
	b := NewBuilder(testStudyConfig(), rand.New(rand.NewSource(1)))
	seq := b.Build(testDefs(40), nil)

	require.Len(t, seq.Practice, 3)
	assert.Equal(t, 1, seq.Practice[0].TrialID)
	assert.Equal(t, 3, seq.Practice[1].TrialID)
	assert.Equal(t, 5, seq.Practice[2].TrialID)
	for i, p := range seq.Practice {
		assert.True(t, p.IsPractice)
		assert.Equal(t, "practice_"+strconv.Itoa(i+1), p.PracticeLabel)
	}
}

func TestBuildPracticeMissingIDFallsBack(t *testing.T) {
	cfg := testStudyConfig()
	cfg.PracticeTrialIDs = []int{999}
	b := NewBuilder(cfg, rand.New(rand.NewSource(1)))

	seq := b.Build(testDefs(10), nil)
	require.Len(t, seq.Practice, 1)
	// Substitutes the first available row instead of failing the session.
	assert.NotZero(t, seq.Practice[0].TrialID)
}

func TestTimelineInterleavesAttentionChecks(t *testing.T) {
	b := NewBuilder(testStudyConfig(), rand.New(rand.NewSource(1)))
	seq := b.Build(testDefs(40), testPool())

	require.Len(t, seq.Timeline, 12) // 10 trials + 2 probes

	var probes, trialsSeen int
	for _, item := range seq.Timeline {
		switch {
		case item.Attention != nil:
			probes++
		case item.Trial != nil:
			trialsSeen++
		}
	}
	assert.Equal(t, 2, probes)
	assert.Equal(t, 10, trialsSeen)

	// With 10 trials and 2 probes, interval is 3: probes land at positions
	// 3 and 7 after insertion shifting.
	assert.NotNil(t, seq.Timeline[3].Attention)
	assert.NotNil(t, seq.Timeline[7].Attention)
}

func TestIPModeSkipsPracticeAndAttention(t *testing.T) {
	cfg := testStudyConfig()
	cfg.Mode = "ip"
	b := NewBuilder(cfg, rand.New(rand.NewSource(1)))

	seq := b.Build(testDefs(40), testPool())
	assert.Empty(t, seq.Practice)
	assert.Len(t, seq.Timeline, len(seq.Main))
	for _, item := range seq.Timeline {
		assert.Nil(t, item.Attention)
	}
}

func phase2Defs() []models.TrialDefinition {
	var defs []models.TrialDefinition
	id := 1
	for combo := 1; combo <= 2; combo++ {
		for rep := 0; rep < 6; rep++ {
			defs = append(defs, models.TrialDefinition{
				TrialID:         id,
				CombinationID:   combo,
				RiskProbability: 25,
				RiskReward:      400,
				SafeReward:      200,
				SizeCondition:   models.SizeRiskLarge,
				Phase2Trial:     true,
			})
			id++
		}
	}
	for i := 0; i < 5; i++ {
		defs = append(defs, models.TrialDefinition{
			TrialID:         id,
			RiskProbability: 90,
			RiskReward:      600,
			SafeReward:      10,
			SizeCondition:   models.SizeBothSmall,
			Phase2Trial:     true,
		})
		id++
	}
	return defs
}

func TestBuildPhase2(t *testing.T) {
	cfg := testStudyConfig()
	cfg.Mode = "ip"
	cfg.Phase2RepsPerCombo = 4
	cfg.Phase2DummyTrials = 3
	cfg.IndifferenceCombos = 2
	b := NewBuilder(cfg, rand.New(rand.NewSource(1)))

	points := []models.IndifferencePoint{
		{CombinationID: 1, IndifferencePoint: 123.45, Quality: models.QualityOK},
		{CombinationID: 2, Quality: models.QualityMissing},
	}

	built := b.BuildPhase2(phase2Defs(), points)

	// 4 reps of combination 1, combination 2 skipped, 3 dummies.
	require.Len(t, built, 7)

	var real, dummies int
	for _, tr := range built {
		if tr.IsDummy {
			dummies++
			continue
		}
		real++
		assert.Equal(t, 1, tr.CombinationID)
		assert.InDelta(t, 123.45, tr.SafeReward, 1e-9)
	}
	assert.Equal(t, 4, real)
	assert.Equal(t, 3, dummies)

	for i, tr := range built {
		assert.Equal(t, i+1, tr.TrialNumber)
	}
}
