// Package submit delivers accumulated session rows to the persistence
// endpoint despite transient unavailability. The target service may be
// cold-started and slow, so every real attempt is preceded by a warm-up
// probe and failures retry under exponential backoff.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/config"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/session"
)

// Client talks to the save endpoints with wake-probe and retry semantics.
type Client struct {
	baseURL        string
	http           *http.Client
	maxRetries     int
	attemptTimeout time.Duration
	wakeSettle     time.Duration
	log            *zap.Logger

	// sleep is swapped out by tests to observe backoff without waiting.
	sleep func(time.Duration)
}

func NewClient(cfg config.SubmitConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:        cfg.ServerURL,
		http:           &http.Client{},
		maxRetries:     cfg.MaxRetries,
		attemptTimeout: time.Duration(cfg.AttemptTimeoutS) * time.Second,
		wakeSettle:     time.Duration(cfg.WakeSettleMS) * time.Millisecond,
		log:            log,
		sleep:          time.Sleep,
	}
}

// Wake pings the liveness endpoint to pull a sleeping service back up. Probe
// failure is non-fatal: the real attempt proceeds regardless, after a short
// settle so the service has time to finish waking.
func (c *Client) Wake(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/health", nil)
	if err == nil {
		resp, probeErr := c.http.Do(req)
		if probeErr != nil {
			c.log.Debug("Wake-up probe did not get through", zap.Error(probeErr))
		} else {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.log.Debug("Wake-up probe answered", zap.Int("status", resp.StatusCode))
		}
	}

	if c.wakeSettle > 0 {
		c.sleep(c.wakeSettle)
	}
}

// SaveTrials posts a serialized row batch to /save.
func (c *Client) SaveTrials(ctx context.Context, data string) error {
	return c.postWithRetry(ctx, "/save", map[string]any{"data": data})
}

// SaveAttention posts the attention-check answers to /save-attention.
func (c *Client) SaveAttention(ctx context.Context, participantID string, answers []session.AttentionAnswer) error {
	return c.postWithRetry(ctx, "/save-attention", map[string]any{
		"participantId": participantID,
		"data":          answers,
	})
}

// BonusPayload is the body of a /save-bonus call. The save is an idempotent
// upsert keyed on the participant id.
type BonusPayload struct {
	ParticipantID    string  `json:"participant_id"`
	BonusTrialID     int     `json:"bonus_trial_id"`
	BonusTrialNumber int     `json:"bonus_trial_number"`
	ChoiceOnBonus    string  `json:"choice_on_bonus"`
	OutcomeAmount    float64 `json:"outcome_amount"`
	Payment          string  `json:"payment"`
}

// SaveBonus posts the bonus outcome to /save-bonus.
func (c *Client) SaveBonus(ctx context.Context, payload BonusPayload) error {
	if payload.Payment == "" {
		payload.Payment = "pending"
	}
	return c.postWithRetry(ctx, "/save-bonus", payload)
}

// postWithRetry runs one POST under the bounded retry loop: each attempt is
// individually time-limited, failed attempts wait 2^attempt seconds and
// re-probe the liveness endpoint before retrying, and exhaustion returns the
// classified terminal error.
func (c *Client) postWithRetry(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", path, err)
	}

	var lastErr *Error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		c.log.Debug("Submission attempt",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Int("max", c.maxRetries))

		if err := c.post(ctx, path, payload); err != nil {
			lastErr = err
			c.log.Warn("Submission attempt failed",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.String("kind", err.Kind.String()),
				zap.Error(err.Err))

			if attempt < c.maxRetries {
				wait := time.Duration(1<<uint(attempt)) * time.Second
				c.log.Debug("Backing off before retry", zap.Duration("wait", wait))
				c.sleep(wait)
				// Cold starts dominate the failure mode, so wake the
				// service again before the next try.
				c.Wake(ctx)
			}
			continue
		}
		return nil
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, path string, payload []byte) *Error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindServer, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: classify(err), Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind: KindServer,
			Err:  fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}
	return nil
}
