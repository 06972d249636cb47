// attention.go
package models

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/utils"
)

// AttentionQuestion matches the YAML definition of one attention-check probe.
type AttentionQuestion struct {
	Type          string   `yaml:"type"` // multi-choice, text or likert
	Prompt        string   `yaml:"prompt"`
	Options       []string `yaml:"options,omitempty"`
	Labels        []string `yaml:"labels,omitempty"`
	CorrectAnswer string   `yaml:"correct_answer"`
}

// AttentionCheckSet holds the full pool of configured probes.
type AttentionCheckSet struct {
	Questions []AttentionQuestion `yaml:"questions"`
}

// LoadAttentionChecks reads and parses the attention-check question file.
func LoadAttentionChecks(path string) (*AttentionCheckSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attention check file: %w", err)
	}

	var set AttentionCheckSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attention check YAML: %w", err)
	}

	return &set, nil
}

// IsAnswerCorrect compares a participant answer against the configured
// expected answer. Free-text questions with a numeric expected answer grade
// by value, so "+20" and " 20 " both match "20"; other text compares
// case-insensitively.
func (q AttentionQuestion) IsAnswerCorrect(answer string) bool {
	if q.Type == "text" {
		trimmed := strings.TrimSpace(answer)
		if expected, err := strconv.Atoi(q.CorrectAnswer); err == nil {
			if !utils.IsNumericAnswer(trimmed) {
				return false
			}
			got, err := strconv.Atoi(trimmed)
			return err == nil && got == expected
		}
		return strings.EqualFold(trimmed, q.CorrectAnswer)
	}
	return answer == q.CorrectAnswer
}
