package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/database"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
)

// UpsertBonusPayment records the bonus outcome for a participant. A repeated
// save for the same participant updates in place, so a client retry after a
// half-finished submission never creates a second payment. The matching trial
// row is stamped in the same transaction.
func UpsertBonusPayment(ctx context.Context, payment *models.BonusPayment) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.BonusPayment
		err := tx.Where("participant_id = ?", payment.ParticipantID).First(&existing).Error
		switch {
		case err == nil:
			payment.ID = existing.ID
			payment.CreatedAt = existing.CreatedAt
			// A payment already marked paid stays paid.
			if existing.Payment == "paid" {
				payment.Payment = existing.Payment
			}
			if err := tx.Save(payment).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if payment.Payment == "" {
				payment.Payment = "pending"
			}
			if err := tx.Create(payment).Error; err != nil {
				return err
			}
		default:
			return err
		}

		// Stamp the selected trial row so exports carry the payout inline
		// even when the client saved its rows before the draw.
		return tx.Model(&models.TrialResult{}).
			Where("participant_id = ? AND trial_number = ?", payment.ParticipantID, payment.BonusTrialNumber).
			Updates(map[string]interface{}{
				"is_bonus_trial": true,
				"bonus_amount":   payment.OutcomeAmount,
			}).Error
	})
}

// GetAllBonusPayments returns every bonus record ordered by participant.
func GetAllBonusPayments(ctx context.Context) ([]models.BonusPayment, error) {
	var payments []models.BonusPayment
	err := database.DB.WithContext(ctx).
		Order("participant_id").
		Find(&payments).Error
	return payments, err
}

// CountPendingPayments returns how many bonus payments still await payout.
func CountPendingPayments(ctx context.Context) (int64, error) {
	var count int64
	err := database.DB.WithContext(ctx).
		Model(&models.BonusPayment{}).
		Where("payment = ?", "pending").
		Count(&count).Error
	return count, err
}
