package expiry

import (
	"context"
	"log/slog"
	"time"
)

// SweepWorker runs the daily sweep on a fixed interval. It exists so the
// scheduler keeps working without an external cron; a second instance running
// concurrently is harmless because sweeps are idempotent.
type SweepWorker struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSweepWorker(service *Service, interval time.Duration, logger *slog.Logger) *SweepWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &SweepWorker{service: service, interval: interval, logger: logger}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// Sweep failures are logged and do not stop the loop.
func (w *SweepWorker) Run(ctx context.Context) error {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	result, err := w.service.SweepAll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.ErrorContext(ctx, "expiry sweep failed",
			"error", err,
			"documents_processed", result.DocumentsProcessed,
		)
		return
	}
	w.logger.InfoContext(ctx, "scheduled sweep finished",
		"documents_processed", result.DocumentsProcessed,
		"alerts_created", result.AlertsCreated,
	)
}
