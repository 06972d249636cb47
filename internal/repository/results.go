package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/database"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/rows"
)

// SaveTrialRows inserts a parsed batch of result rows in a single
// transaction, stamping each with the receive time. A failed insert rolls the
// whole batch back so the client retry re-sends everything past its
// watermark.
func SaveTrialRows(ctx context.Context, batch []rows.Row) error {
	now := time.Now().UTC()
	records := make([]models.TrialResult, len(batch))
	for i, r := range batch {
		records[i] = models.TrialResult{
			ParticipantID:        r.ParticipantID,
			TrialNumber:          r.TrialNumber,
			BarSizeCondition:     r.BarSizeCondition,
			Choice:               r.Choice,
			Confidence:           nullableFloat(r.Confidence),
			RiskProbability:      r.RiskProbability,
			RiskReward:           r.RiskReward,
			SafeProbability:      r.SafeProbability,
			SafeReward:           r.SafeReward,
			RiskPosition:         r.RiskPosition,
			SafePosition:         r.SafePosition,
			EV:                   r.EV,
			BarChoiceTime:        nullableFloat(r.BarChoiceTime),
			ConfidenceChoiceTime: nullableFloat(r.ConfidenceChoiceTime),
			TrialID:              r.TrialID,
			IsBonusTrial:         r.IsBonusTrial,
			BonusAmount:          nullableFloat(r.BonusAmount),
			Timestamp:            now,
		}
	}
	return database.DB.WithContext(ctx).Create(&records).Error
}

// GetAllTrialResults returns every stored row in export order.
func GetAllTrialResults(ctx context.Context) ([]models.TrialResult, error) {
	var results []models.TrialResult
	err := database.DB.WithContext(ctx).
		Order("participant_id, trial_number, timestamp").
		Find(&results).Error
	return results, err
}

// SaveAttentionResults inserts a participant's attention-check answers.
func SaveAttentionResults(ctx context.Context, records []models.AttentionCheckResult) error {
	if len(records) == 0 {
		return nil
	}
	return database.DB.WithContext(ctx).Create(&records).Error
}

// GetAllAttentionResults returns every attention answer in export order.
func GetAllAttentionResults(ctx context.Context) ([]models.AttentionCheckResult, error) {
	var results []models.AttentionCheckResult
	err := database.DB.WithContext(ctx).
		Order("participant_id, attention_check_number, timestamp").
		Find(&results).Error
	return results, err
}

// RecordSavedBatch advances the server-side reconciliation snapshot for a
// participant after a stored batch: the batch's trial ids extend the received
// order and the watermark grows by the row count. A client that died mid-way
// can be reconciled against this record without its local backup.
func RecordSavedBatch(ctx context.Context, participantID string, trialIDs []int64, rowCount int) error {
	tx := database.DB.WithContext(ctx)

	var snap models.SessionSnapshot
	err := tx.Where("participant_id = ?", participantID).First(&snap).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		snap = models.SessionSnapshot{ParticipantID: participantID}
	default:
		return err
	}

	snap.TrialOrder = append(snap.TrialOrder, trialIDs...)
	snap.SavedRowCount += rowCount
	if snap.ID == 0 {
		return tx.Create(&snap).Error
	}
	return tx.Save(&snap).Error
}

// GetSessionSnapshot returns the reconciliation record for a participant.
func GetSessionSnapshot(ctx context.Context, participantID string) (*models.SessionSnapshot, error) {
	var snap models.SessionSnapshot
	result := database.DB.WithContext(ctx).First(&snap, "participant_id = ?", participantID)
	return &snap, result.Error
}

// nullableFloat maps the NaN wire sentinel to a SQL NULL.
func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
