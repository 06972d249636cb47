package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateParticipantID(t *testing.T) {
	assert.NoError(t, ValidateParticipantID("P001"))
	assert.NoError(t, ValidateParticipantID("TEST_ab12cd34"))

	assert.Error(t, ValidateParticipantID(""))
	assert.Error(t, ValidateParticipantID("   "))
	assert.Error(t, ValidateParticipantID("a,b"))
	assert.Error(t, ValidateParticipantID(`a"b`))
	assert.Error(t, ValidateParticipantID("a\nb"))
	assert.Error(t, ValidateParticipantID(strings.Repeat("x", 65)))
}

func TestIsNumericAnswer(t *testing.T) {
	assert.True(t, IsNumericAnswer("20"))
	assert.True(t, IsNumericAnswer(" 20 "))
	assert.True(t, IsNumericAnswer("-3"))

	assert.False(t, IsNumericAnswer(""))
	assert.False(t, IsNumericAnswer("-"))
	assert.False(t, IsNumericAnswer("twenty"))
	assert.False(t, IsNumericAnswer("2.5"))
}
