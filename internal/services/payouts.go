package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/repository"
)

// PayoutMonitor periodically reports how many bonus payments still await
// manual payout, so a backlog shows up in the logs instead of being
// discovered at reconciliation time.
type PayoutMonitor struct {
	log      *zap.Logger
	interval time.Duration
}

func NewPayoutMonitor(log *zap.Logger) *PayoutMonitor {
	return &PayoutMonitor{log: log, interval: time.Hour}
}

// Start runs the monitor in a goroutine.
func (m *PayoutMonitor) Start() {
	m.log.Info("Starting payout monitor...")
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			<-ticker.C
			m.runCheck()
		}
	}()
}

func (m *PayoutMonitor) runCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pending, err := repository.CountPendingPayments(ctx)
	if err != nil {
		m.log.Error("Failed to count pending payouts", zap.Error(err))
		return
	}
	if pending > 0 {
		m.log.Info("Bonus payouts awaiting payment", zap.Int64("pending", pending))
	}
}
