package handlers

import (
	"encoding/csv"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/repository"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/rows"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/scoring"
)

// ExportHandler serves the password-gated researcher downloads. Each download
// path is an ExportSetting slug; a correct password unlocks the slug for the
// browser session.
type ExportHandler struct {
	log *zap.Logger
}

func NewExportHandler(log *zap.Logger) *ExportHandler {
	return &ExportHandler{log: log}
}

func sessionKey(slug string) string {
	return "export_unlocked_" + slug
}

// ShowGate renders the password prompt for a download slug.
func (h *ExportHandler) ShowGate(c *gin.Context) {
	slug := c.Param("slug")
	if _, err := repository.GetExportSetting(c, slug); err != nil {
		c.String(http.StatusNotFound, "Not found")
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, gatePage, slug)
}

// Unlock verifies a password attempt and marks the slug unlocked in the
// session.
func (h *ExportHandler) Unlock(c *gin.Context) {
	slug := c.Param("slug")
	password := c.PostForm("password")

	ok, err := repository.CheckExportPassword(c, slug, password)
	if err != nil {
		c.String(http.StatusNotFound, "Not found")
		return
	}
	if !ok {
		h.log.Warn("Rejected export password attempt",
			zap.String("slug", slug),
			zap.String("ip", c.ClientIP()))
		c.String(http.StatusUnauthorized, "Incorrect password")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionKey(slug), true)
	if err := session.Save(); err != nil {
		c.String(http.StatusInternalServerError, "Could not establish session")
		return
	}
	c.Redirect(http.StatusFound, "/download/"+slug+"/file")
}

// unlocked reports whether the current session has passed the gate.
func unlocked(c *gin.Context, slug string) bool {
	v := sessions.Default(c).Get(sessionKey(slug))
	b, ok := v.(bool)
	return ok && b
}

// Download streams the export behind an unlocked slug. The slug selects the
// dataset; a format query switches between CSV and a workbook with a summary
// sheet.
func (h *ExportHandler) Download(c *gin.Context) {
	slug := c.Param("slug")
	if !unlocked(c, slug) {
		c.Redirect(http.StatusFound, "/download/"+slug)
		return
	}

	switch slug {
	case "trials":
		h.downloadTrials(c)
	case "attention":
		h.downloadAttention(c)
	case "bonus":
		h.downloadBonus(c)
	default:
		c.String(http.StatusNotFound, "Not found")
	}
}

func (h *ExportHandler) downloadTrials(c *gin.Context) {
	results, err := repository.GetAllTrialResults(c)
	if err != nil {
		h.log.Error("Trial export query failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Export failed")
		return
	}

	if c.Query("format") == "xlsx" {
		h.downloadTrialsWorkbook(c, results)
		return
	}

	header := append(append([]string{}, rows.Columns...), "timestamp")
	records := make([][]string, 0, len(results))
	for _, r := range results {
		records = append(records, []string{
			r.ParticipantID,
			strconv.Itoa(r.TrialNumber),
			r.BarSizeCondition,
			r.Choice,
			floatField(r.Confidence),
			strconv.Itoa(r.RiskProbability),
			strconv.FormatFloat(r.RiskReward, 'g', -1, 64),
			strconv.Itoa(r.SafeProbability),
			strconv.FormatFloat(r.SafeReward, 'g', -1, 64),
			r.RiskPosition,
			r.SafePosition,
			r.EV,
			floatField(r.BarChoiceTime),
			floatField(r.ConfidenceChoiceTime),
			strconv.Itoa(r.TrialID),
			boolField(r.IsBonusTrial),
			floatField(r.BonusAmount),
			r.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	h.writeCSV(c, "trial_results.csv", header, records)
}

func (h *ExportHandler) downloadAttention(c *gin.Context) {
	results, err := repository.GetAllAttentionResults(c)
	if err != nil {
		h.log.Error("Attention export query failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Export failed")
		return
	}

	header := []string{
		"participant_id", "attention_check_number", "question_type",
		"question_prompt", "correct_answer", "user_answer", "is_correct",
		"response_time", "timestamp", "session_id",
	}
	records := make([][]string, 0, len(results))
	for _, r := range results {
		records = append(records, []string{
			r.ParticipantID,
			strconv.Itoa(r.AttentionCheckNumber),
			r.QuestionType,
			r.QuestionPrompt,
			r.CorrectAnswer,
			r.UserAnswer,
			boolField(r.IsCorrect),
			strconv.FormatFloat(r.ResponseTime, 'g', -1, 64),
			r.Timestamp.UTC().Format(time.RFC3339),
			r.SessionID,
		})
	}
	h.writeCSV(c, "attention_results.csv", header, records)
}

func (h *ExportHandler) downloadBonus(c *gin.Context) {
	payments, err := repository.GetAllBonusPayments(c)
	if err != nil {
		h.log.Error("Bonus export query failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Export failed")
		return
	}

	header := []string{
		"participant_id", "bonus_trial_id", "bonus_trial_number",
		"choice_on_bonus", "outcome_amount", "payment",
	}
	records := make([][]string, 0, len(payments))
	for _, p := range payments {
		records = append(records, []string{
			p.ParticipantID,
			strconv.Itoa(p.BonusTrialID),
			strconv.Itoa(p.BonusTrialNumber),
			p.ChoiceOnBonus,
			strconv.FormatFloat(p.OutcomeAmount, 'f', 2, 64),
			p.Payment,
		})
	}
	h.writeCSV(c, "bonus_payments.csv", header, records)
}

// downloadTrialsWorkbook writes the trial export as a workbook with a
// per-participant summary sheet alongside the raw rows.
func (h *ExportHandler) downloadTrialsWorkbook(c *gin.Context, results []models.TrialResult) {
	f := excelize.NewFile()
	defer f.Close()

	const dataSheet = "Trials"
	f.SetSheetName(f.GetSheetName(0), dataSheet)

	header := append(append([]string{}, rows.Columns...), "timestamp")
	for col, name := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(dataSheet, cell, name)
	}

	byParticipant := make(map[string][]rows.Row)
	var order []string
	for i, r := range results {
		values := []interface{}{
			r.ParticipantID, r.TrialNumber, r.BarSizeCondition, r.Choice,
			floatCell(r.Confidence), r.RiskProbability, r.RiskReward,
			r.SafeProbability, r.SafeReward, r.RiskPosition, r.SafePosition,
			r.EV, floatCell(r.BarChoiceTime), floatCell(r.ConfidenceChoiceTime),
			r.TrialID, r.IsBonusTrial, floatCell(r.BonusAmount),
			r.Timestamp.UTC().Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(dataSheet, cell, v)
		}

		if _, seen := byParticipant[r.ParticipantID]; !seen {
			order = append(order, r.ParticipantID)
		}
		byParticipant[r.ParticipantID] = append(byParticipant[r.ParticipantID], exportRow(r))
	}

	const summarySheet = "Summary"
	f.NewSheet(summarySheet)
	summaryHeader := []string{
		"participant_id", "trials", "risk_choices", "safe_choices",
		"timeouts", "mean_choice_time", "median_choice_time", "choice_time_sd",
	}
	for col, name := range summaryHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(summarySheet, cell, name)
	}
	for i, pid := range order {
		s := scoring.Summarize(byParticipant[pid])
		values := []interface{}{
			pid, s.Trials, s.RiskChoices, s.SafeChoices, s.Timeouts,
			nanCell(s.MeanChoiceTime), nanCell(s.MedianChoiceTime), nanCell(s.ChoiceTimeSD),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(summarySheet, cell, v)
		}
	}

	c.Header("Content-Disposition", `attachment; filename="trial_results.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		h.log.Error("Workbook export failed", zap.Error(err))
	}
}

func (h *ExportHandler) writeCSV(c *gin.Context, filename string, header []string, records [][]string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Header("Content-Type", "text/csv; charset=utf-8")

	w := csv.NewWriter(c.Writer)
	if err := w.Write(header); err != nil {
		h.log.Error("CSV export failed", zap.Error(err))
		return
	}
	if err := w.WriteAll(records); err != nil {
		h.log.Error("CSV export failed", zap.Error(err))
	}
}

// exportRow converts a stored record back to the canonical row shape so the
// summary statistics run on the same representation as the wire format.
func exportRow(r models.TrialResult) rows.Row {
	return rows.Row{
		ParticipantID:        r.ParticipantID,
		TrialNumber:          r.TrialNumber,
		BarSizeCondition:     r.BarSizeCondition,
		Choice:               r.Choice,
		Confidence:           deref(r.Confidence),
		RiskProbability:      r.RiskProbability,
		RiskReward:           r.RiskReward,
		SafeProbability:      r.SafeProbability,
		SafeReward:           r.SafeReward,
		RiskPosition:         r.RiskPosition,
		SafePosition:         r.SafePosition,
		EV:                   r.EV,
		BarChoiceTime:        deref(r.BarChoiceTime),
		ConfidenceChoiceTime: deref(r.ConfidenceChoiceTime),
		TrialID:              r.TrialID,
		IsBonusTrial:         r.IsBonusTrial,
		BonusAmount:          deref(r.BonusAmount),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func floatField(v *float64) string {
	if v == nil {
		return "NaN"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func floatCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func nanCell(v float64) interface{} {
	if math.IsNaN(v) {
		return ""
	}
	return v
}

func boolField(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

const gatePage = `<!DOCTYPE html>
<html>
<head><title>Download</title></head>
<body>
<form method="POST" action="/download/%s/unlock">
  <label>Password: <input type="password" name="password" autofocus></label>
  <button type="submit">Unlock</button>
</form>
</body>
</html>`
