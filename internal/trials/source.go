// Package trials loads the trial-definition table and builds the per-session
// trial sequences: practice, main/phase-1, interleaved attention checks and,
// for the indifference-point study, phase 2.
package trials

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
)

// LoadTable reads a trial-definition CSV. Integer columns are parsed
// strictly; safe_reward and expected_value accept decimals since the
// indifference-point table carries fractional safe amounts. A missing
// combination_id marks a filler row and parses to zero.
func LoadTable(path string) ([]models.TrialDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trial table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse trial table: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("trial table %s is empty or malformed", path)
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"trial_id", "risk_probability", "risk_reward", "safe_reward", "size_condition"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("trial table %s is missing column %q", path, required)
		}
	}

	defs := make([]models.TrialDefinition, 0, len(records)-1)
	for n, record := range records[1:] {
		def, err := parseDefinition(record, col)
		if err != nil {
			return nil, fmt.Errorf("trial table row %d: %w", n+2, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func parseDefinition(record []string, col map[string]int) (models.TrialDefinition, error) {
	var def models.TrialDefinition
	var err error

	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	if def.TrialID, err = strconv.Atoi(field("trial_id")); err != nil {
		return def, fmt.Errorf("trial_id: %w", err)
	}
	if v := field("combination_id"); v != "" {
		if def.CombinationID, err = strconv.Atoi(v); err != nil {
			return def, fmt.Errorf("combination_id: %w", err)
		}
	}
	if def.RiskProbability, err = strconv.Atoi(field("risk_probability")); err != nil {
		return def, fmt.Errorf("risk_probability: %w", err)
	}
	if def.RiskProbability < 0 || def.RiskProbability > 100 {
		return def, fmt.Errorf("risk_probability %d out of range", def.RiskProbability)
	}
	if def.RiskReward, err = strconv.ParseFloat(field("risk_reward"), 64); err != nil {
		return def, fmt.Errorf("risk_reward: %w", err)
	}
	if def.SafeReward, err = strconv.ParseFloat(field("safe_reward"), 64); err != nil {
		return def, fmt.Errorf("safe_reward: %w", err)
	}
	if def.RiskReward < 0 || def.SafeReward < 0 {
		return def, fmt.Errorf("negative reward on trial %d", def.TrialID)
	}
	def.SizeCondition = field("size_condition")
	if v := field("expected_value"); v != "" {
		if def.ExpectedValue, err = strconv.ParseFloat(v, 64); err != nil {
			return def, fmt.Errorf("expected_value: %w", err)
		}
	}
	switch field("phase2_trial") {
	case "1", "TRUE", "true":
		def.Phase2Trial = true
	}
	return def, nil
}
