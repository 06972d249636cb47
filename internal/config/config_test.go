package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBonusRange(t *testing.T) {
	tests := []struct {
		name    string
		study   StudyConfig
		wantMin int
		wantMax int
	}{
		{"explicit bounds", StudyConfig{BonusTrialMin: 10, BonusTrialMax: 90, MainTrials: 120}, 10, 90},
		{"zero max tracks main trials", StudyConfig{BonusTrialMin: 1, BonusTrialMax: 0, MainTrials: 120}, 1, 120},
		{"zero min clamps to one", StudyConfig{BonusTrialMin: 0, BonusTrialMax: 0, MainTrials: 60}, 1, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max := tt.study.BonusRange()
			assert.Equal(t, tt.wantMin, min)
			assert.Equal(t, tt.wantMax, max)
		})
	}
}
