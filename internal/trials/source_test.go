package trials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trials.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTable(t *testing.T) {
	path := writeTable(t, `trial_id,combination_id,risk_probability,risk_reward,safe_reward,size_condition,expected_value,phase2_trial
1,1,25,100,20.5,both-small,25.0,
2,,75,600,150,both-large,450.0,1
`)

	defs, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, 1, defs[0].TrialID)
	assert.Equal(t, 1, defs[0].CombinationID)
	assert.Equal(t, 25, defs[0].RiskProbability)
	assert.InDelta(t, 20.5, defs[0].SafeReward, 1e-9)
	assert.False(t, defs[0].Phase2Trial)

	assert.Equal(t, 0, defs[1].CombinationID)
	assert.True(t, defs[1].Phase2Trial)
}

func TestLoadTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"missing required column",
			"trial_id,risk_probability\n1,25\n",
		},
		{
			"probability out of range",
			"trial_id,risk_probability,risk_reward,safe_reward,size_condition\n1,150,100,50,both-small\n",
		},
		{
			"negative reward",
			"trial_id,risk_probability,risk_reward,safe_reward,size_condition\n1,25,-100,50,both-small\n",
		},
		{
			"non-numeric trial id",
			"trial_id,risk_probability,risk_reward,safe_reward,size_condition\nabc,25,100,50,both-small\n",
		},
		{
			"header only",
			"trial_id,risk_probability,risk_reward,safe_reward,size_condition\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTable(writeTable(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
