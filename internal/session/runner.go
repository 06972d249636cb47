package session

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/trials"
)

// Runner advances a session through a built timeline one item at a time.
// Progression is strictly sequential; the only asynchronous actor is the
// per-trial response deadline, and the finished guard ensures a racing
// timeout and user choice cannot both record a result.
type Runner struct {
	mu sync.Mutex

	sess     *Session
	duration time.Duration
	log      *zap.Logger

	timeline []trials.TimelineItem
	index    int
	practice bool

	timer       *time.Timer
	presentedAt time.Time
	finished    bool

	// seq identifies the current presentation. A deadline callback carries
	// the seq it was armed for; anything else that fires is stale. Stop alone
	// is not enough: a callback that already fired can still be waiting on
	// the mutex while the next trial is presented.
	seq uint64

	// OnAdvance is called after each item completes, with the next item or
	// nil at the end of the timeline. The presentation layer renders from
	// it. It runs outside the runner's lock and may call back in.
	OnAdvance func(next *trials.TimelineItem)
}

// NewRunner wires a runner over a session. duration is the per-trial
// response deadline; zero disables the deadline.
func NewRunner(sess *Session, duration time.Duration, log *zap.Logger) *Runner {
	return &Runner{sess: sess, duration: duration, log: log}
}

// StartPractice begins the untimed practice block.
func (r *Runner) StartPractice(practice []models.Trial) {
	items := make([]trials.TimelineItem, len(practice))
	for i := range practice {
		items[i] = trials.TimelineItem{Trial: &practice[i]}
	}
	r.start(items, true)
}

// StartMain begins the scored timeline.
func (r *Runner) StartMain(timeline []trials.TimelineItem) {
	r.start(timeline, false)
}

func (r *Runner) start(timeline []trials.TimelineItem, practice bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopTimerLocked()
	r.timeline = timeline
	r.index = 0
	r.practice = practice
	r.presentLocked()
}

// Current returns the item awaiting a response, or nil when the timeline is
// exhausted.
func (r *Runner) Current() *trials.TimelineItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

// Done reports whether the timeline is exhausted.
func (r *Runner) Done() bool {
	return r.Current() == nil
}

// Choose records the participant's bar choice for the current trial. A
// choice arriving after the deadline already fired is a no-op.
func (r *Runner) Choose(choice string) {
	r.mu.Lock()
	item := r.currentLocked()
	if item == nil || item.Trial == nil || r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.stopTimerLocked()

	elapsed := time.Since(r.presentedAt).Seconds()
	if !r.practice {
		r.sess.RecordTrial(*item.Trial, choice, elapsed, elapsed, math.NaN())
	}
	r.finishItemLocked()
}

// AnswerAttention records the response to the current attention probe.
func (r *Runner) AnswerAttention(answer string) {
	r.mu.Lock()
	item := r.currentLocked()
	if item == nil || item.Attention == nil || r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.stopTimerLocked()

	elapsed := time.Since(r.presentedAt).Seconds()
	r.sess.RecordAttention(*item.Attention, answer, elapsed)
	r.finishItemLocked()
}

// expire handles the response deadline firing for presentation seq. If the
// participant chose in the meantime, the seq no longer matches the current
// presentation and this is a no-op.
func (r *Runner) expire(seq uint64) {
	r.mu.Lock()
	item := r.currentLocked()
	if seq != r.seq || item == nil || item.Trial == nil || r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.stopTimerLocked()

	r.log.Debug("Trial deadline expired",
		zap.Int("trial_number", item.Trial.TrialNumber),
		zap.String("participant", r.sess.ParticipantID))

	if !r.practice {
		r.sess.RecordTrial(*item.Trial, models.ChoiceTimeout, math.NaN(), math.NaN(), math.NaN())
	}
	r.finishItemLocked()
}

// finishItemLocked advances to the next item and releases the lock before
// notifying the presentation layer.
func (r *Runner) finishItemLocked() {
	r.index++
	r.presentLocked()
	next := r.currentLocked()
	cb := r.OnAdvance
	r.mu.Unlock()

	if cb != nil {
		cb(next)
	}
}

func (r *Runner) currentLocked() *trials.TimelineItem {
	if r.index >= len(r.timeline) {
		return nil
	}
	return &r.timeline[r.index]
}

// presentLocked arms the next item. Any stale timer is cleared first so at
// most one deadline is ever live, and the seq advance invalidates callbacks
// already in flight.
func (r *Runner) presentLocked() {
	r.stopTimerLocked()
	r.finished = false
	r.presentedAt = time.Now()
	r.seq++

	item := r.currentLocked()
	if item == nil || item.Trial == nil {
		return
	}
	// Practice trials and attention checks run untimed.
	if r.practice || r.duration <= 0 {
		return
	}
	seq := r.seq
	r.timer = time.AfterFunc(r.duration, func() { r.expire(seq) })
}

func (r *Runner) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
