package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAttentionChecks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.yaml")
	content := `questions:
  - type: multi-choice
    prompt: "Which of the following is a color?"
    options: ["Tuesday", "Blue"]
    correct_answer: "Blue"
  - type: text
    prompt: "What is 12 + 8?"
    correct_answer: "20"
  - type: likert
    prompt: "Select the middle option."
    labels: ["1", "2", "3", "4", "5"]
    correct_answer: "3"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	set, err := LoadAttentionChecks(path)
	require.NoError(t, err)
	require.Len(t, set.Questions, 3)

	assert.Equal(t, "multi-choice", set.Questions[0].Type)
	assert.Equal(t, []string{"Tuesday", "Blue"}, set.Questions[0].Options)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, set.Questions[2].Labels)
}

func TestLoadAttentionChecksMissingFile(t *testing.T) {
	_, err := LoadAttentionChecks(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestIsAnswerCorrect(t *testing.T) {
	multi := AttentionQuestion{Type: "multi-choice", CorrectAnswer: "Blue"}
	assert.True(t, multi.IsAnswerCorrect("Blue"))
	assert.False(t, multi.IsAnswerCorrect("blue")) // choices match exactly

	text := AttentionQuestion{Type: "text", CorrectAnswer: "bicycle"}
	assert.True(t, text.IsAnswerCorrect("bicycle"))
	assert.True(t, text.IsAnswerCorrect(" BICYCLE "))
	assert.False(t, text.IsAnswerCorrect("tricycle"))
}

func TestIsAnswerCorrectNumericText(t *testing.T) {
	math := AttentionQuestion{Type: "text", CorrectAnswer: "20"}

	tests := []struct {
		answer string
		want   bool
	}{
		{"20", true},
		{" 20 ", true},
		{"+20", true},
		{"21", false},
		{"-20", false},
		{"twenty", false},
		{"20 apples", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, math.IsAnswerCorrect(tt.answer), "answer %q", tt.answer)
	}
}

func TestTrialPositions(t *testing.T) {
	left := Trial{RiskOnLeft: true}
	assert.Equal(t, "left", left.RiskPosition())
	assert.Equal(t, "right", left.SafePosition())

	right := Trial{RiskOnLeft: false}
	assert.Equal(t, "right", right.RiskPosition())
	assert.Equal(t, "left", right.SafePosition())
}
