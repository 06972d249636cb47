package submit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/backup"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/config"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/rows"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/scoring"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/session"
)

// Pipeline orchestrates the end-of-run save: bonus resolution, row delivery,
// attention delivery, bonus record, watermark advance and backup cleanup, in
// that order. Every step before the watermark advance is safe to repeat, so a
// failed finish can simply be retried from the top.
type Pipeline struct {
	client *Client
	store  *backup.Store
	study  config.StudyConfig
	rng    scoring.Rand
	log    *zap.Logger
}

func NewPipeline(client *Client, store *backup.Store, study config.StudyConfig, rng scoring.Rand, log *zap.Logger) *Pipeline {
	return &Pipeline{client: client, store: store, study: study, rng: rng, log: log}
}

// Diagnostics describes a save attempt for the participant-facing retry
// screen and the support logs.
type Diagnostics struct {
	ParticipantID string
	RowCount      int
	BackedUp      bool
	Timestamp     time.Time
}

func (p *Pipeline) diagnostics(sess *session.Session, pending []rows.Row) Diagnostics {
	return Diagnostics{
		ParticipantID: sess.ParticipantID,
		RowCount:      len(pending),
		BackedUp:      p.store.Exists(sess.ParticipantID),
		Timestamp:     time.Now().UTC(),
	}
}

// SavePhase transmits the rows accumulated since the last confirmed save and
// advances the watermark. Used at phase boundaries so a later phase never
// re-sends earlier rows.
func (p *Pipeline) SavePhase(ctx context.Context, sess *session.Session) (Diagnostics, error) {
	pending := sess.PendingRows()
	diag := p.diagnostics(sess, pending)
	if len(pending) == 0 {
		return diag, ErrNoData
	}

	if err := p.store.Save(sess.Snapshot()); err != nil {
		p.log.Warn("Backup before phase save failed", zap.Error(err))
	}
	p.client.Wake(ctx)

	if err := p.client.SaveTrials(ctx, rows.EncodeBatch(pending)); err != nil {
		return diag, err
	}
	sess.MarkSaved(len(pending))

	p.log.Info("Phase rows saved",
		zap.String("participant", sess.ParticipantID),
		zap.Int("rows", len(pending)),
		zap.Int("watermark", sess.SavedRowCount))
	return diag, nil
}

// Finish runs the complete end-of-run sequence. The bonus is resolved at most
// once per session: a retry after a partial failure reuses the stored outcome
// so the participant cannot re-roll the lottery.
func (p *Pipeline) Finish(ctx context.Context, sess *session.Session) (Diagnostics, error) {
	pending := sess.PendingRows()
	diag := p.diagnostics(sess, pending)
	if len(sess.Rows) == 0 {
		return diag, ErrNoData
	}

	if err := p.store.Save(sess.Snapshot()); err != nil {
		p.log.Warn("Backup before finish failed", zap.Error(err))
	}
	p.client.Wake(ctx)

	bonus := p.resolveBonus(sess)
	if bonus.SelectedTrialNumber > 0 {
		if rows.PatchBonus(pending, bonus.SelectedTrialNumber, bonus.BonusUSD) {
			p.log.Debug("Bonus stamped onto pending row",
				zap.Int("trial_number", bonus.SelectedTrialNumber),
				zap.Float64("bonus_usd", bonus.BonusUSD))
		}
	}

	if len(pending) > 0 {
		if err := p.client.SaveTrials(ctx, rows.EncodeBatch(pending)); err != nil {
			return diag, err
		}
		sess.MarkSaved(len(pending))
	}

	if len(sess.AttentionAnswers) > 0 {
		if err := p.client.SaveAttention(ctx, sess.ParticipantID, sess.AttentionAnswers); err != nil {
			return diag, err
		}
	}

	if bonus.SelectedTrialNumber > 0 {
		err := p.client.SaveBonus(ctx, BonusPayload{
			ParticipantID:    sess.ParticipantID,
			BonusTrialID:     bonus.SelectedTrialID,
			BonusTrialNumber: bonus.SelectedTrialNumber,
			ChoiceOnBonus:    bonus.Choice,
			OutcomeAmount:    bonus.BonusUSD,
		})
		if err != nil {
			return diag, err
		}
	}

	if err := p.store.Clear(sess.ParticipantID); err != nil {
		p.log.Warn("Could not clear local backup after save", zap.Error(err))
	}

	p.log.Info("Session saved",
		zap.String("participant", sess.ParticipantID),
		zap.Int("rows", len(sess.Rows)),
		zap.Int("attention_answers", len(sess.AttentionAnswers)),
		zap.Float64("bonus_usd", bonus.BonusUSD))
	return diag, nil
}

// resolveBonus draws the bonus trial once and pins the outcome on the
// session. Later calls return the pinned outcome unchanged.
func (p *Pipeline) resolveBonus(sess *session.Session) *models.BonusOutcome {
	if sess.Bonus != nil {
		return sess.Bonus
	}
	min, max := p.study.BonusRange()
	outcome := scoring.ResolveBonus(sess.CompletedTrials(), min, max, p.rng)
	sess.Bonus = &outcome

	if outcome.Reason != "" {
		p.log.Warn("No bonus could be drawn",
			zap.String("participant", sess.ParticipantID),
			zap.String("reason", outcome.Reason))
	} else {
		p.log.Info("Bonus resolved",
			zap.String("participant", sess.ParticipantID),
			zap.Int("trial_number", outcome.SelectedTrialNumber),
			zap.String("choice", outcome.Choice),
			zap.Bool("win", outcome.Win),
			zap.Float64("bonus_usd", outcome.BonusUSD))
	}
	return sess.Bonus
}
