package models

// Size condition values from the trial table. They control how large each
// option is drawn; the renderer maps them to bar dimensions.
const (
	SizeBothLarge = "both-large"
	SizeBothSmall = "both-small"
	SizeRiskLarge = "risk-large"
	SizeSafeLarge = "safe-large"
)

// Choice values recorded for a completed trial.
const (
	ChoiceRisk    = "risk"
	ChoiceSafe    = "safe"
	ChoiceTimeout = "timeout"
)

// TrialDefinition is one immutable row of the trial table.
// CombinationID groups the repeated presentations of the same lottery at
// different safe amounts; it is 0 for dummy filler rows.
type TrialDefinition struct {
	TrialID         int
	CombinationID   int
	RiskProbability int // percent, 0-100
	RiskReward      float64
	SafeReward      float64
	SizeCondition   string
	ExpectedValue   float64
	Phase2Trial     bool
}

// Trial is a single scheduled presentation, derived from a TrialDefinition
// during sequence building. It is immutable once built; the runner consumes
// it exactly once and attaches the response elsewhere.
type Trial struct {
	TrialNumber     int
	PracticeLabel   string // "practice_N" for practice trials, empty otherwise
	TrialID         int
	CombinationID   int
	RiskProbability int
	RiskReward      float64
	SafeReward      float64
	SizeCondition   string
	ExpectedValue   float64
	RiskOnLeft      bool
	IsPractice      bool
	IsDummy         bool
}

// RiskPosition reports which side the risk option was shown on.
func (t Trial) RiskPosition() string {
	if t.RiskOnLeft {
		return "left"
	}
	return "right"
}

// SafePosition reports which side the safe option was shown on.
func (t Trial) SafePosition() string {
	if t.RiskOnLeft {
		return "right"
	}
	return "left"
}

// Indifference point quality markers.
const (
	QualityOK          = "ok"
	QualityNoSwitch    = "no_switch"
	QualityAlwaysSafe  = "always_safe"
	QualityAlwaysRisky = "always_risky"
	QualityMissing     = "missing"
)

// IndifferencePoint is the estimate for one lottery combination after
// phase 1. Exactly one is produced per combination id, including a missing
// record when no data exists for that id.
type IndifferencePoint struct {
	CombinationID     int
	RiskReward        float64
	RiskProbability   int
	IndifferencePoint float64
	Quality           string
}

// BonusOutcome is the result of the end-of-session bonus draw.
type BonusOutcome struct {
	SelectedTrialNumber int
	SelectedTrialID     int
	Choice              string
	Win                 bool
	RewardPoints        float64
	BonusUSD            float64
	Reason              string // set when no eligible trial existed
}
