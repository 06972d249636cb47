// Package session owns the per-participant run state: the accumulated result
// rows, attention-check answers, counters and save watermarks. One Session is
// created at participant start and torn down at experiment end; nothing here
// is global.
package session

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/config"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/rows"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/scoring"
)

// AttentionAnswer is one recorded attention-check response. The JSON field
// names are the wire contract of the save-attention endpoint.
type AttentionAnswer struct {
	ParticipantID        string    `json:"participantId"`
	AttentionCheckNumber int       `json:"attentionCheckNumber"`
	QuestionType         string    `json:"questionType"`
	QuestionPrompt       string    `json:"questionPrompt"`
	CorrectAnswer        string    `json:"correctAnswer"`
	UserAnswer           string    `json:"userAnswer"`
	IsCorrect            bool      `json:"isCorrect"`
	ResponseTime         float64   `json:"responseTime"`
	Timestamp            time.Time `json:"timestamp"`
	SessionID            string    `json:"sessionId"`
}

// Snapshot is the serializable view of a session handed to the local backup
// mirror.
type Snapshot struct {
	ParticipantID    string
	SessionID        string
	StudyMode        string
	Rows             []rows.Row
	AttentionAnswers []AttentionAnswer
	SavedRowCount    int
	Timestamp        time.Time
}

// Session accumulates everything recorded during one participant run.
type Session struct {
	ParticipantID string
	SessionID     string
	StudyMode     string

	Rows             []rows.Row
	AttentionAnswers []AttentionAnswer
	Points           []models.IndifferencePoint
	Bonus            *models.BonusOutcome

	// SavedRowCount is the row watermark: rows below it are durably saved
	// remotely and must not be sent again by a later phase.
	SavedRowCount int

	trialCounter int
	completed    []scoring.CompletedTrial
	observations []scoring.ChoiceObservation

	log    *zap.Logger
	mirror func(Snapshot) error
}

// New creates a session for one participant. An empty participant id gets a
// generated test id, matching how unproctored test runs are tagged.
func New(participantID string, cfg config.StudyConfig, log *zap.Logger) *Session {
	if participantID == "" {
		participantID = "TEST_" + strings.Split(uuid.NewString(), "-")[0]
	}
	return &Session{
		ParticipantID: participantID,
		SessionID:     "ses_" + time.Now().UTC().Format("20060102T150405"),
		StudyMode:     cfg.Mode,
		trialCounter:  1,
		log:           log,
	}
}

// SetMirror installs the local backup writer invoked after every recorded
// result. Mirror failures are logged and swallowed; the backup is advisory.
func (s *Session) SetMirror(mirror func(Snapshot) error) {
	s.mirror = mirror
}

// RecordTrial turns a consumed trial plus its response into the canonical
// result row, appends it to the session log and mirrors the session state.
// barChoiceTime and confidence use NaN when never collected.
func (s *Session) RecordTrial(t models.Trial, choice string, barChoiceTime, submitTime, confidence float64) rows.Row {
	if choice != models.ChoiceRisk && choice != models.ChoiceSafe {
		choice = models.ChoiceTimeout
	}

	confidenceChoiceTime := math.NaN()
	if !math.IsNaN(barChoiceTime) && !math.IsNaN(submitTime) {
		confidenceChoiceTime = submitTime - barChoiceTime
	}

	row := rows.Row{
		ParticipantID:        s.ParticipantID,
		TrialNumber:          s.trialCounter,
		BarSizeCondition:     t.SizeCondition,
		Choice:               choice,
		Confidence:           confidence,
		RiskProbability:      t.RiskProbability,
		RiskReward:           t.RiskReward,
		SafeProbability:      100,
		SafeReward:           t.SafeReward,
		RiskPosition:         t.RiskPosition(),
		SafePosition:         t.SafePosition(),
		EV:                   scoring.ClassifyEV(t.RiskProbability, t.RiskReward, t.SafeReward),
		BarChoiceTime:        barChoiceTime,
		ConfidenceChoiceTime: confidenceChoiceTime,
		TrialID:              t.TrialID,
	}
	s.Rows = append(s.Rows, row)
	s.trialCounter++

	if !t.IsDummy {
		s.completed = append(s.completed, scoring.CompletedTrial{
			TrialNumber:     row.TrialNumber,
			TrialID:         t.TrialID,
			Choice:          choice,
			RiskProbability: t.RiskProbability,
			RiskReward:      t.RiskReward,
			SafeReward:      t.SafeReward,
		})
		if t.CombinationID > 0 {
			s.observations = append(s.observations, scoring.ChoiceObservation{
				CombinationID:   t.CombinationID,
				RiskProbability: t.RiskProbability,
				RiskReward:      t.RiskReward,
				SafeReward:      t.SafeReward,
				Choice:          choice,
			})
		}
	}

	s.mirrorState()
	return row
}

// RecordAttention appends one attention-check answer. Attention data is an
// independent stream and never affects the row counter, the bonus draw or
// the indifference estimates.
func (s *Session) RecordAttention(q models.AttentionQuestion, userAnswer string, responseTime float64) AttentionAnswer {
	answer := AttentionAnswer{
		ParticipantID:        s.ParticipantID,
		AttentionCheckNumber: len(s.AttentionAnswers) + 1,
		QuestionType:         q.Type,
		QuestionPrompt:       q.Prompt,
		CorrectAnswer:        q.CorrectAnswer,
		UserAnswer:           userAnswer,
		IsCorrect:            q.IsAnswerCorrect(userAnswer),
		ResponseTime:         responseTime,
		Timestamp:            time.Now().UTC(),
		SessionID:            s.SessionID,
	}
	s.AttentionAnswers = append(s.AttentionAnswers, answer)
	s.mirrorState()
	return answer
}

// CompletedTrials returns the bonus-draw view of the recorded trials.
func (s *Session) CompletedTrials() []scoring.CompletedTrial {
	return s.completed
}

// Observations returns the estimator's view of the recorded phase-1 trials.
func (s *Session) Observations() []scoring.ChoiceObservation {
	return s.observations
}

// PendingRows returns the slice of rows past the save watermark: exactly
// what the next save must transmit.
func (s *Session) PendingRows() []rows.Row {
	if s.SavedRowCount >= len(s.Rows) {
		return nil
	}
	return s.Rows[s.SavedRowCount:]
}

// MarkSaved advances the watermark after a confirmed remote save.
func (s *Session) MarkSaved(count int) {
	s.SavedRowCount += count
	if s.SavedRowCount > len(s.Rows) {
		s.SavedRowCount = len(s.Rows)
	}
}

// Snapshot captures the mirrorable state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ParticipantID:    s.ParticipantID,
		SessionID:        s.SessionID,
		StudyMode:        s.StudyMode,
		Rows:             s.Rows,
		AttentionAnswers: s.AttentionAnswers,
		SavedRowCount:    s.SavedRowCount,
		Timestamp:        time.Now().UTC(),
	}
}

func (s *Session) mirrorState() {
	if s.mirror == nil {
		return
	}
	if err := s.mirror(s.Snapshot()); err != nil {
		// Best effort only. Quota or disabled storage must never take down
		// the run.
		s.log.Warn("Could not write session backup",
			zap.String("participant", s.ParticipantID),
			zap.Error(err))
	}
}
