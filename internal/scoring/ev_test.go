package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyEV(t *testing.T) {
	tests := []struct {
		name            string
		riskProbability int
		riskReward      float64
		safeReward      float64
		want            string
	}{
		{"equal values", 50, 200, 100, "same"},
		{"within tolerance", 25, 100, 25.005, "same"},
		{"safe advantage", 25, 100, 40, "safe"},
		{"risk advantage", 75, 600, 200, "risky"},
		{"just outside tolerance", 25, 100, 25.02, "safe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEV(tt.riskProbability, tt.riskReward, tt.safeReward))
		})
	}
}
