package rows

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow() Row {
	return Row{
		ParticipantID:        "P001",
		TrialNumber:          7,
		BarSizeCondition:     "both-large",
		Choice:               "risk",
		Confidence:           math.NaN(),
		RiskProbability:      75,
		RiskReward:           600,
		SafeProbability:      100,
		SafeReward:           200,
		RiskPosition:         "left",
		SafePosition:         "right",
		EV:                   "risky",
		BarChoiceTime:        1.234,
		ConfidenceChoiceTime: math.NaN(),
		TrialID:              42,
	}
}

func TestRowRoundTrip(t *testing.T) {
	encoded := sampleRow().Encode()
	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, "P001", decoded.ParticipantID)
	assert.Equal(t, 7, decoded.TrialNumber)
	assert.Equal(t, "risk", decoded.Choice)
	assert.True(t, math.IsNaN(decoded.Confidence))
	assert.InDelta(t, 1.234, decoded.BarChoiceTime, 1e-9)
	assert.True(t, math.IsNaN(decoded.ConfidenceChoiceTime))
	assert.Equal(t, 42, decoded.TrialID)
	assert.False(t, decoded.IsBonusTrial)
}

func TestRowEscaping(t *testing.T) {
	r := sampleRow()
	r.BarSizeCondition = "both-large, test"
	r.ParticipantID = `P "quoted" 2`

	encoded := r.Encode()
	assert.Contains(t, encoded, `"both-large, test"`)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "both-large, test", decoded.BarSizeCondition)
	assert.Equal(t, `P "quoted" 2`, decoded.ParticipantID)
}

func TestDecodeRejectsWrongFieldCount(t *testing.T) {
	_, err := Decode("a,b,c")
	assert.Error(t, err)
}

func TestDecodeNullSentinels(t *testing.T) {
	encoded := sampleRow().Encode()
	// Clients that never collected confidence send "null" in that column.
	encoded = strings.Replace(encoded, "NaN", "null", 1)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(decoded.Confidence))
}

func TestBatchRoundTrip(t *testing.T) {
	a := sampleRow()
	b := sampleRow()
	b.TrialNumber = 8
	b.Choice = "safe"

	data := EncodeBatch([]Row{a, b})
	assert.True(t, strings.HasSuffix(data, "\n"))

	batch, err := DecodeBatch(data)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, 7, batch[0].TrialNumber)
	assert.Equal(t, "safe", batch[1].Choice)
}

func TestDecodeBatchSkipsBlankLines(t *testing.T) {
	data := sampleRow().Encode() + "\n\n\n"
	batch, err := DecodeBatch(data)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestPatchBonus(t *testing.T) {
	batch := []Row{sampleRow(), sampleRow()}
	batch[1].TrialNumber = 8

	require.True(t, PatchBonus(batch, 8, 12.0))
	assert.False(t, batch[0].IsBonusTrial)
	assert.True(t, batch[1].IsBonusTrial)
	assert.InDelta(t, 12.0, batch[1].BonusAmount, 1e-9)

	assert.False(t, PatchBonus(batch, 999, 1.0))
}

func TestHeaderMatchesColumnCount(t *testing.T) {
	assert.Len(t, strings.Split(Header(), ","), len(Columns))
	assert.Len(t, strings.Split(sampleRow().Encode(), ","), len(Columns))
}
