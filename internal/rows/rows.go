// Package rows defines the canonical trial-result row shared by the client
// serializer, the save endpoint and the bonus patcher. Both sides work from
// the same named fields instead of indexing into raw comma-joined strings.
package rows

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Columns is the canonical field order of a serialized trial-result row.
var Columns = []string{
	"participant_id",
	"trial_number",
	"bar_size_condition",
	"choice",
	"confidence",
	"risk_probability",
	"risk_reward",
	"safe_probability",
	"safe_reward",
	"risk_position",
	"safe_position",
	"ev",
	"bar_choice_time",
	"confidence_choice_time",
	"trial_id",
	"is_bonus_trial",
	"bonus_amount",
}

// Header is the comma-joined column list, as sent ahead of exports.
func Header() string {
	return strings.Join(Columns, ",")
}

// Row is one canonical trial-result record. Confidence and the two timing
// fields use NaN as the "never collected" sentinel, mirroring how they are
// written on the wire.
type Row struct {
	ParticipantID        string
	TrialNumber          int
	BarSizeCondition     string
	Choice               string
	Confidence           float64
	RiskProbability      int
	RiskReward           float64
	SafeProbability      int
	SafeReward           float64
	RiskPosition         string
	SafePosition         string
	EV                   string
	BarChoiceTime        float64
	ConfidenceChoiceTime float64
	TrialID              int
	IsBonusTrial         bool
	BonusAmount          float64
}

// Encode serializes the row in canonical column order, quoting any field that
// contains a delimiter, quote or newline and doubling internal quotes.
func (r Row) Encode() string {
	fields := []string{
		r.ParticipantID,
		strconv.Itoa(r.TrialNumber),
		r.BarSizeCondition,
		r.Choice,
		formatFloat(r.Confidence),
		strconv.Itoa(r.RiskProbability),
		formatFloat(r.RiskReward),
		strconv.Itoa(r.SafeProbability),
		formatFloat(r.SafeReward),
		r.RiskPosition,
		r.SafePosition,
		r.EV,
		formatFloat(r.BarChoiceTime),
		formatFloat(r.ConfidenceChoiceTime),
		strconv.Itoa(r.TrialID),
		formatBool(r.IsBonusTrial),
		formatFloat(r.BonusAmount),
	}

	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = escapeField(f)
	}
	return strings.Join(escaped, ",")
}

// Decode parses one serialized row back into its typed form, reversing the
// quote escaping applied by Encode.
func Decode(line string) (Row, error) {
	values := splitEscaped(line)
	if len(values) != len(Columns) {
		return Row{}, fmt.Errorf("row has %d fields, expected %d", len(values), len(Columns))
	}

	var (
		r   Row
		err error
	)
	r.ParticipantID = values[0]
	if r.TrialNumber, err = parseInt(values[1]); err != nil {
		return Row{}, fmt.Errorf("trial_number: %w", err)
	}
	r.BarSizeCondition = values[2]
	r.Choice = values[3]
	r.Confidence = parseFloat(values[4])
	if r.RiskProbability, err = parseInt(values[5]); err != nil {
		return Row{}, fmt.Errorf("risk_probability: %w", err)
	}
	r.RiskReward = parseFloat(values[6])
	if r.SafeProbability, err = parseInt(values[7]); err != nil {
		return Row{}, fmt.Errorf("safe_probability: %w", err)
	}
	r.SafeReward = parseFloat(values[8])
	r.RiskPosition = values[9]
	r.SafePosition = values[10]
	r.EV = values[11]
	r.BarChoiceTime = parseFloat(values[12])
	r.ConfidenceChoiceTime = parseFloat(values[13])
	if r.TrialID, err = parseInt(values[14]); err != nil {
		return Row{}, fmt.Errorf("trial_id: %w", err)
	}
	r.IsBonusTrial = parseBool(values[15])
	r.BonusAmount = parseFloat(values[16])
	return r, nil
}

// EncodeBatch serializes rows newline-terminated, the shape the save endpoint
// accepts.
func EncodeBatch(batch []Row) string {
	var b strings.Builder
	for _, r := range batch {
		b.WriteString(r.Encode())
		b.WriteByte('\n')
	}
	return b.String()
}

// DecodeBatch parses a newline-separated batch, skipping blank lines.
func DecodeBatch(data string) ([]Row, error) {
	var batch []Row
	for i, line := range strings.Split(data, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := Decode(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		batch = append(batch, r)
	}
	return batch, nil
}

// PatchBonus marks the row whose trial number matches as the bonus trial and
// stamps the payout. It reports whether a matching row was found.
func PatchBonus(batch []Row, trialNumber int, amount float64) bool {
	for i := range batch {
		if batch[i].TrialNumber == trialNumber {
			batch[i].IsBonusTrial = true
			batch[i].BonusAmount = amount
			return true
		}
	}
	return false
}

func escapeField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// splitEscaped walks the line once, honoring quoted fields with doubled
// internal quotes.
func splitEscaped(line string) []string {
	var (
		result   []string
		current  strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			result = append(result, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	result = append(result, current.String())
	return result
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// parseFloat maps empty and null markers to NaN rather than failing; those
// sentinels are legal in the timing and confidence columns.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseBool(s string) bool {
	switch strings.TrimSpace(s) {
	case "TRUE", "true", "1":
		return true
	}
	return false
}
