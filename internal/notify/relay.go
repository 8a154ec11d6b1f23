package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vendorhub/internal/expiry"
	"vendorhub/internal/platform/metrics"
	"vendorhub/pkg/platform/circuit"
)

// Scheduler is the slice of the expiry service the relay drives.
type Scheduler interface {
	PendingAlerts(ctx context.Context, limit int) ([]expiry.PendingAlert, error)
	MarkSent(ctx context.Context, alertID uuid.UUID) (bool, error)
}

// Relay drains pending alerts through the notifier and confirms deliveries.
// An alert is only marked sent after the notifier accepted it, so a crashed
// relay re-delivers rather than losing reminders.
type Relay struct {
	scheduler Scheduler
	notifier  Notifier
	interval  time.Duration
	batch     int
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewRelay(scheduler Scheduler, notifier Notifier, interval time.Duration, batch int, logger *slog.Logger, m *metrics.Metrics) *Relay {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 200
	}
	return &Relay{
		scheduler: scheduler,
		notifier:  notifier,
		interval:  interval,
		batch:     batch,
		breaker:   circuit.New("alert-notifier"),
		logger:    logger,
		metrics:   m,
	}
}

// Run relays once immediately, then on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if _, err := r.RelayOnce(ctx); err != nil {
		r.logger.ErrorContext(ctx, "alert relay pass failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.ErrorContext(ctx, "alert relay pass failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RelayOnce delivers one batch of pending alerts. A delivery failure is
// logged and counted and the alert stays pending; repeated failures open the
// circuit breaker and cut the batch short until deliveries recover.
// Returns the number of alerts confirmed sent.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	pending, err := r.scheduler.PendingAlerts(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("list pending alerts: %w", err)
	}

	sent := 0
	for _, alert := range pending {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if err := r.notifier.Notify(ctx, alert); err != nil {
			r.metrics.NotificationsFailed.Inc()
			r.logger.WarnContext(ctx, "alert delivery failed",
				"alert_id", alert.AlertID,
				"supplier_id", alert.SupplierID,
				"error", err,
			)
			if open, change := r.breaker.RecordFailure(); open {
				if change.Opened {
					r.logger.ErrorContext(ctx, "notifier circuit opened, deferring rest of batch",
						"breaker", r.breaker.Name(),
						"pending", len(pending)-sent,
					)
				}
				break
			}
			continue
		}
		if _, change := r.breaker.RecordSuccess(); change.Closed {
			r.logger.InfoContext(ctx, "notifier circuit closed", "breaker", r.breaker.Name())
		}
		found, err := r.scheduler.MarkSent(ctx, alert.AlertID)
		if err != nil {
			return sent, fmt.Errorf("mark alert sent: %w", err)
		}
		if found {
			sent++
		}
	}

	if sent > 0 {
		r.logger.InfoContext(ctx, "alert relay pass finished",
			"delivered", sent,
			"pending", len(pending),
		)
	}
	return sent, nil
}
