package trials

import (
	"strconv"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/config"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
)

// Rand is the random source the builder draws from. *math/rand.Rand
// satisfies it; tests inject seeded sources for determinism.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// TimelineItem is one slot of the main timeline: either a scored trial or an
// interleaved attention-check probe, never both.
type TimelineItem struct {
	Trial     *models.Trial
	Attention *models.AttentionQuestion
}

// Sequences holds everything built for one session.
type Sequences struct {
	Practice []models.Trial
	Main     []models.Trial
	Timeline []TimelineItem
}

// Builder constructs per-session trial sequences from the loaded table.
type Builder struct {
	cfg config.StudyConfig
	rng Rand
}

func NewBuilder(cfg config.StudyConfig, rng Rand) *Builder {
	return &Builder{cfg: cfg, rng: rng}
}

// Build produces the practice set, the main set and the final timeline with
// attention checks interleaved. The indifference-point study omits practice
// and attention checks entirely.
func (b *Builder) Build(defs []models.TrialDefinition, pool []models.AttentionQuestion) Sequences {
	filtered := b.filter(defs)

	main := b.selectMain(filtered)

	var seq Sequences
	if b.cfg.Mode != "ip" {
		seq.Practice = b.buildPractice(filtered)
	}
	seq.Main = make([]models.Trial, len(main))
	for i, def := range main {
		seq.Main[i] = b.newTrial(def, i+1, false)
	}

	seq.Timeline = make([]TimelineItem, len(seq.Main))
	for i := range seq.Main {
		seq.Timeline[i] = TimelineItem{Trial: &seq.Main[i]}
	}
	if b.cfg.Mode != "ip" {
		seq.Timeline = b.interleaveAttentionChecks(seq.Timeline, pool)
	}
	return seq
}

// filter applies the study-mode row filter. The risk survey drops every 50%
// probability row: at 50/50 the risky and safe bars are visually ambiguous
// and the choice carries no signal.
func (b *Builder) filter(defs []models.TrialDefinition) []models.TrialDefinition {
	if !b.cfg.FilterFiftyPercent {
		return defs
	}
	kept := make([]models.TrialDefinition, 0, len(defs))
	for _, def := range defs {
		if def.RiskProbability != 50 {
			kept = append(kept, def)
		}
	}
	return kept
}

// selectMain Fisher-Yates shuffles the filtered table and takes the first
// mainTrialCount rows. Shuffling a deduplicated table guarantees no stimulus
// repeats within the session; a request beyond the table size caps instead
// of failing.
func (b *Builder) selectMain(defs []models.TrialDefinition) []models.TrialDefinition {
	shuffled := make([]models.TrialDefinition, len(defs))
	copy(shuffled, defs)
	b.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	count := b.cfg.MainTrials
	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}

// buildPractice resolves the fixed practice identifiers against the loaded
// table. The id list is identical for every participant so practice exposure
// stays comparable across the sample; a missing id substitutes the first
// available row rather than failing the session.
func (b *Builder) buildPractice(defs []models.TrialDefinition) []models.Trial {
	if len(defs) == 0 {
		return nil
	}

	byID := make(map[int]models.TrialDefinition, len(defs))
	for _, def := range defs {
		byID[def.TrialID] = def
	}

	practice := make([]models.Trial, 0, len(b.cfg.PracticeTrialIDs))
	for i, id := range b.cfg.PracticeTrialIDs {
		def, ok := byID[id]
		if !ok {
			def = defs[0]
		}
		t := b.newTrial(def, i+1, true)
		practice = append(practice, t)
	}
	return practice
}

// interleaveAttentionChecks spaces the configured number of probes evenly
// through the main trials. The insertion index advances by one per inserted
// probe so later probes are not pushed earlier than intended; a probe whose
// position falls past the end is appended, never dropped.
func (b *Builder) interleaveAttentionChecks(timeline []TimelineItem, pool []models.AttentionQuestion) []TimelineItem {
	count := b.cfg.AttentionChecks
	if count <= 0 || len(pool) == 0 || len(timeline) == 0 {
		return timeline
	}

	shuffled := make([]models.AttentionQuestion, len(pool))
	copy(shuffled, pool)
	b.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if count > len(shuffled) {
		count = len(shuffled)
	}
	selected := shuffled[:count]

	interval := len(timeline) / (count + 1)
	inserted := 0
	for i := range selected {
		item := TimelineItem{Attention: &selected[i]}
		pos := (i+1)*interval + inserted
		if pos < len(timeline) {
			timeline = append(timeline[:pos], append([]TimelineItem{item}, timeline[pos:]...)...)
			inserted++
		} else {
			timeline = append(timeline, item)
		}
	}
	return timeline
}

// BuildPhase2 assembles the size-manipulation phase of the indifference-point
// study. Each combination's template rows get their safe reward replaced by
// that combination's computed indifference point; the fixed dummy pool
// (dominant-risky fillers, excluded from analysis) is merged in, the whole
// set shuffled once and renumbered sequentially.
func (b *Builder) BuildPhase2(defs []models.TrialDefinition, points []models.IndifferencePoint) []models.Trial {
	byCombination := make(map[int]models.IndifferencePoint, len(points))
	for _, ip := range points {
		byCombination[ip.CombinationID] = ip
	}

	repsLeft := make(map[int]int, b.cfg.IndifferenceCombos)
	var built []models.Trial
	dummies := 0

	for _, def := range defs {
		if !def.Phase2Trial {
			continue
		}
		if def.CombinationID == 0 {
			if dummies < b.cfg.Phase2DummyTrials {
				t := b.newTrial(def, 0, false)
				t.IsDummy = true
				built = append(built, t)
				dummies++
			}
			continue
		}

		ip, ok := byCombination[def.CombinationID]
		if !ok || ip.Quality == models.QualityMissing {
			// No usable estimate for this lottery; its variants are skipped.
			continue
		}
		if _, seen := repsLeft[def.CombinationID]; !seen {
			repsLeft[def.CombinationID] = b.cfg.Phase2RepsPerCombo
		}
		if repsLeft[def.CombinationID] == 0 {
			continue
		}
		repsLeft[def.CombinationID]--

		def.SafeReward = ip.IndifferencePoint
		built = append(built, b.newTrial(def, 0, false))
	}

	b.rng.Shuffle(len(built), func(i, j int) {
		built[i], built[j] = built[j], built[i]
	})
	for i := range built {
		built[i].TrialNumber = i + 1
	}
	return built
}

// newTrial derives a presentation from a table row. Left/right placement is
// an unbiased coin flip per presentation, not a property of the stimulus.
func (b *Builder) newTrial(def models.TrialDefinition, number int, practice bool) models.Trial {
	t := models.Trial{
		TrialNumber:     number,
		TrialID:         def.TrialID,
		CombinationID:   def.CombinationID,
		RiskProbability: def.RiskProbability,
		RiskReward:      def.RiskReward,
		SafeReward:      def.SafeReward,
		SizeCondition:   def.SizeCondition,
		ExpectedValue:   def.ExpectedValue,
		RiskOnLeft:      b.rng.Float64() < 0.5,
		IsPractice:      practice,
	}
	if practice {
		t.PracticeLabel = "practice_" + strconv.Itoa(number)
	}
	return t
}
