package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// TrialResult is the stored form of one canonical result row. Column names
// match the export header so the read path can stream them straight out.
type TrialResult struct {
	ID                   int    `gorm:"primaryKey"`
	ParticipantID        string `gorm:"index:idx_participant_trial"`
	TrialNumber          int    `gorm:"index:idx_participant_trial"`
	BarSizeCondition     string
	Choice               string
	Confidence           *float64
	RiskProbability      int
	RiskReward           float64
	SafeProbability      int
	SafeReward           float64
	RiskPosition         string
	SafePosition         string
	EV                   string `gorm:"column:ev"`
	BarChoiceTime        *float64
	ConfidenceChoiceTime *float64
	TrialID              int
	IsBonusTrial         bool
	BonusAmount          *float64
	Timestamp            time.Time
}

// AttentionCheckResult is one answered attention probe. It is an independent
// stream from TrialResult and never feeds bonus or indifference computation.
type AttentionCheckResult struct {
	ID                   int `gorm:"primaryKey"`
	ParticipantID        string
	AttentionCheckNumber int
	QuestionType         string
	QuestionPrompt       string
	CorrectAnswer        string
	UserAnswer           string
	IsCorrect            bool
	ResponseTime         float64
	Timestamp            time.Time
	SessionID            string
	RawQuestion          datatypes.JSON `gorm:"type:jsonb"`
}

// BonusPayment tracks the real-money outcome for one participant. Upserts
// are keyed on ParticipantID; a repeated save updates in place.
type BonusPayment struct {
	ID               int    `gorm:"primaryKey"`
	ParticipantID    string `gorm:"uniqueIndex"`
	BonusTrialID     int
	BonusTrialNumber int
	ChoiceOnBonus    string
	OutcomeAmount    float64
	Payment          string `gorm:"default:pending"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SessionSnapshot records enough server-side state to reconcile a session
// that died mid-way: the trial ids received so far in order, and the row
// watermark after the last confirmed save.
type SessionSnapshot struct {
	ID            int           `gorm:"primaryKey"`
	ParticipantID string        `gorm:"uniqueIndex"`
	TrialOrder    pq.Int64Array `gorm:"type:integer[]"`
	SavedRowCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExportSetting gates one researcher download page: a URL slug plus a bcrypt
// hash of its access password.
type ExportSetting struct {
	ID           int    `gorm:"primaryKey"`
	URLSlug      string `gorm:"uniqueIndex"`
	PasswordHash string
	CreatedAt    time.Time
}
