package submit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/config"
)

func newTestClient(t *testing.T, url string) (*Client, *[]time.Duration) {
	t.Helper()
	c := NewClient(config.SubmitConfig{
		ServerURL:       url,
		MaxRetries:      3,
		AttemptTimeoutS: 5,
		WakeSettleMS:    0,
	}, zap.NewNop())

	var sleeps []time.Duration
	c.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return c, &sleeps
}

func TestSaveTrialsRetriesWithBackoff(t *testing.T) {
	var saves atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		require.Equal(t, "/save", r.URL.Path)
		if saves.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "row-data", payload["data"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	err := c.SaveTrials(context.Background(), "row-data")
	require.NoError(t, err)

	assert.Equal(t, int32(3), saves.Load())
	// 2^1 and 2^2 seconds between the three attempts.
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *sleeps)
}

func TestSaveTrialsBackoffDoubles(t *testing.T) {
	var saves atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/save" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if saves.Add(1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(config.SubmitConfig{
		ServerURL:       srv.URL,
		MaxRetries:      4,
		AttemptTimeoutS: 5,
		WakeSettleMS:    0,
	}, zap.NewNop())
	var sleeps []time.Duration
	c.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	err := c.SaveTrials(context.Background(), "row-data")
	require.NoError(t, err)

	// Three failures wait 2^1, 2^2 and 2^3 seconds; the fourth attempt lands.
	assert.Equal(t, int32(4), saves.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, sleeps)
}

func TestSaveTrialsExhaustsRetries(t *testing.T) {
	var saves atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/save" {
			saves.Add(1)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	err := c.SaveTrials(context.Background(), "row-data")

	require.Error(t, err)
	var subErr *Error
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, KindServer, subErr.Kind)
	assert.Equal(t, int32(3), saves.Load())
}

func TestSaveTrialsUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	c, _ := newTestClient(t, srv.URL)
	err := c.SaveTrials(context.Background(), "row-data")

	var subErr *Error
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, KindUnreachable, subErr.Kind)
}

func TestSaveBonusDefaultsPaymentPending(t *testing.T) {
	var got BonusPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/save-bonus" {
			w.WriteHeader(http.StatusOK)
			return
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	err := c.SaveBonus(context.Background(), BonusPayload{
		ParticipantID:    "P001",
		BonusTrialNumber: 17,
		ChoiceOnBonus:    "risk",
		OutcomeAmount:    12.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Payment)
	assert.Equal(t, 17, got.BonusTrialNumber)
}

func TestWakeFailureIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c, _ := newTestClient(t, srv.URL)
	// Must not panic or error; the probe is advisory.
	c.Wake(context.Background())
}

func TestUserMessages(t *testing.T) {
	assert.Contains(t, KindTimeout.UserMessage(), "timed out")
	assert.Contains(t, KindUnreachable.UserMessage(), "internet connection")
	assert.Contains(t, KindServer.UserMessage(), "server")
}
