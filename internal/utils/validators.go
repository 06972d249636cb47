package utils

import (
	"errors"
	"strings"
	"unicode"
)

const maxParticipantIDLength = 64

// ValidateParticipantID rejects empty or oversized ids and ids containing
// control characters or row delimiters, which would corrupt the exports.
func ValidateParticipantID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("participant id is required")
	}
	if len(id) > maxParticipantIDLength {
		return errors.New("participant id too long")
	}
	for _, r := range id {
		if unicode.IsControl(r) || r == ',' || r == '"' {
			return errors.New("participant id contains invalid characters")
		}
	}
	return nil
}

// IsNumericAnswer reports whether an attention-check answer is a plain
// integer, the only legal shape for math-type probes.
func IsNumericAnswer(answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	for i, r := range answer {
		if i == 0 && (r == '-' || r == '+') && len(answer) > 1 {
			continue
		}
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
