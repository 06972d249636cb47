package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/config"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/repository"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/rows"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/utils"
)

// SaveHandler owns the data-ingest endpoints the study client posts to.
type SaveHandler struct {
	log *zap.Logger
}

func NewSaveHandler(log *zap.Logger) *SaveHandler {
	return &SaveHandler{log: log}
}

type saveRequest struct {
	Data string `json:"data" binding:"required"`
}

// SaveTrials accepts a serialized row batch and stores it. The whole batch is
// parsed before anything is written, so a malformed line rejects the request
// without a partial insert.
func (h *SaveHandler) SaveTrials(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing data field"})
		return
	}

	batch, err := rows.DecodeBatch(req.Data)
	if err != nil {
		h.log.Warn("Rejected malformed row batch", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty batch"})
		return
	}
	if err := utils.ValidateParticipantID(batch[0].ParticipantID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := repository.SaveTrialRows(c, batch); err != nil {
		h.log.Error("Failed to store row batch",
			zap.String("participant", batch[0].ParticipantID),
			zap.Int("rows", len(batch)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store data"})
		return
	}

	// The snapshot is reconciliation metadata; its failure must not fail a
	// save whose rows are already stored.
	if err := repository.RecordSavedBatch(c, batch[0].ParticipantID, batchTrialIDs(batch), len(batch)); err != nil {
		h.log.Warn("Could not update session snapshot",
			zap.String("participant", batch[0].ParticipantID),
			zap.Error(err))
	}

	h.log.Info("Stored row batch",
		zap.String("participant", batch[0].ParticipantID),
		zap.Int("rows", len(batch)))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "rows": len(batch)})
}

// batchTrialIDs extracts the received trial-id order from a parsed batch.
func batchTrialIDs(batch []rows.Row) []int64 {
	ids := make([]int64, len(batch))
	for i, r := range batch {
		ids[i] = int64(r.TrialID)
	}
	return ids
}

type attentionAnswer struct {
	AttentionCheckNumber int     `json:"attentionCheckNumber"`
	QuestionType         string  `json:"questionType"`
	QuestionPrompt       string  `json:"questionPrompt"`
	CorrectAnswer        string  `json:"correctAnswer"`
	UserAnswer           string  `json:"userAnswer"`
	IsCorrect            bool    `json:"isCorrect"`
	ResponseTime         float64 `json:"responseTime"`
	SessionID            string  `json:"sessionId"`
}

type saveAttentionRequest struct {
	ParticipantID string            `json:"participantId" binding:"required"`
	Data          []attentionAnswer `json:"data" binding:"required"`
}

// SaveAttention accepts a participant's attention-check answers.
func (h *SaveHandler) SaveAttention(c *gin.Context) {
	var req saveAttentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing participantId or data"})
		return
	}
	if err := utils.ValidateParticipantID(req.ParticipantID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	records := make([]models.AttentionCheckResult, len(req.Data))
	for i, a := range req.Data {
		records[i] = attentionRecord(req.ParticipantID, a, now)
	}

	if err := repository.SaveAttentionResults(c, records); err != nil {
		h.log.Error("Failed to store attention answers",
			zap.String("participant", req.ParticipantID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "answers": len(records)})
}

// attentionRecord converts one submitted answer to its stored form. The
// submitted payload is kept verbatim in RawQuestion so question revisions
// stay auditable after the structured columns were extracted.
func attentionRecord(participantID string, a attentionAnswer, now time.Time) models.AttentionCheckResult {
	raw, err := json.Marshal(a)
	if err != nil {
		raw = nil
	}
	return models.AttentionCheckResult{
		ParticipantID:        participantID,
		AttentionCheckNumber: a.AttentionCheckNumber,
		QuestionType:         a.QuestionType,
		QuestionPrompt:       a.QuestionPrompt,
		CorrectAnswer:        a.CorrectAnswer,
		UserAnswer:           a.UserAnswer,
		IsCorrect:            a.IsCorrect,
		ResponseTime:         a.ResponseTime,
		Timestamp:            now,
		SessionID:            a.SessionID,
		RawQuestion:          datatypes.JSON(raw),
	}
}

type saveBonusRequest struct {
	ParticipantID    string  `json:"participant_id" binding:"required"`
	BonusTrialID     int     `json:"bonus_trial_id"`
	BonusTrialNumber int     `json:"bonus_trial_number"`
	ChoiceOnBonus    string  `json:"choice_on_bonus"`
	OutcomeAmount    float64 `json:"outcome_amount"`
	Payment          string  `json:"payment"`
}

// SaveBonus records the bonus outcome. Repeated saves for a participant
// update the existing record rather than creating another payment.
func (h *SaveHandler) SaveBonus(c *gin.Context) {
	var req saveBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing participant_id"})
		return
	}
	if err := utils.ValidateParticipantID(req.ParticipantID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment := &models.BonusPayment{
		ParticipantID:    req.ParticipantID,
		BonusTrialID:     req.BonusTrialID,
		BonusTrialNumber: req.BonusTrialNumber,
		ChoiceOnBonus:    req.ChoiceOnBonus,
		OutcomeAmount:    req.OutcomeAmount,
		Payment:          req.Payment,
	}
	if err := repository.UpsertBonusPayment(c, payment); err != nil {
		h.log.Error("Failed to store bonus payment",
			zap.String("participant", req.ParticipantID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store data"})
		return
	}

	h.log.Info("Stored bonus payment",
		zap.String("participant", req.ParticipantID),
		zap.Int("trial_number", req.BonusTrialNumber),
		zap.Float64("amount", req.OutcomeAmount))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Health is the liveness probe the client hits to wake a sleeping instance.
func (h *SaveHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// StudyConfig serves the experiment parameters the client runs under.
func (h *SaveHandler) StudyConfig(c *gin.Context) {
	study := config.Conf.Study
	min, max := study.BonusRange()
	c.JSON(http.StatusOK, gin.H{
		"mode":              study.Mode,
		"main_trials":       study.MainTrials,
		"attention_checks":  study.AttentionChecks,
		"trial_duration_ms": study.TrialDurationMS,
		"bonus_trial_min":   min,
		"bonus_trial_max":   max,
	})
}
