// The sweeper binary runs the background loops: the daily expiry sweep, the
// alert notifier relay, the activity outbox relay, and the purge of stale
// rejected applications. It shares the database with cmd/server and is safe
// to run alongside another sweeper; every loop is idempotent.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"vendorhub/internal/document"
	"vendorhub/internal/expiry"
	"vendorhub/internal/notify"
	"vendorhub/internal/platform/config"
	"vendorhub/internal/platform/kafka"
	"vendorhub/internal/platform/logger"
	"vendorhub/internal/platform/metrics"
	"vendorhub/internal/platform/postgres"
	"vendorhub/internal/supplier"
	"vendorhub/internal/trail"
	txpkg "vendorhub/pkg/platform/tx"
)

const purgeInterval = 24 * time.Hour

func main() {
	cfg := config.FromEnv()
	log := logger.New("vendorhub-sweeper", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Error("schema bootstrap failed", "error", err)
		os.Exit(1)
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Error("kafka connect failed", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
	}

	m := metrics.New()
	runner := txpkg.NewSQLRunner(db)

	trailStore := trail.NewPostgresStore(db)
	recorder := trail.NewRecorder(trailStore, trailStore, log, m, trail.WithOutbox(trailStore))

	documentStore := document.NewPostgresStore(db)
	alertStore := expiry.NewPostgresAlertStore(db)
	supplierStore := supplier.NewPostgresStore(db)

	expiryService := expiry.NewService(alertStore, documentStore, recorder, runner, log, m)
	supplierService := supplier.NewService(supplierStore, recorder, runner, log)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return expiry.NewSweepWorker(expiryService, cfg.SweepInterval, log).Run(ctx)
	})

	if producer != nil {
		notifier := notify.NewKafkaNotifier(producer, cfg.Kafka.AlertTopic)
		relay := notify.NewRelay(expiryService, notifier, cfg.NotifyInterval, cfg.Kafka.RelayBatchSize, log, m)
		g.Go(func() error {
			return relay.Run(ctx)
		})

		outbox := trail.NewOutboxRelay(trailStore, producer, cfg.Kafka.ActivityTopic, cfg.Kafka.RelayBatchSize, cfg.NotifyInterval, log, m)
		g.Go(func() error {
			return outbox.Run(ctx)
		})
	} else {
		log.Warn("kafka not configured; alert and activity relays disabled")
	}

	g.Go(func() error {
		return runPurgeLoop(ctx, supplierService, cfg.RejectedRetention, log)
	})

	log.Info("sweeper started",
		"sweep_interval", cfg.SweepInterval,
		"notify_interval", cfg.NotifyInterval,
		"rejected_retention", cfg.RejectedRetention,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("sweeper exited", "error", err)
		os.Exit(1)
	}
	log.Info("sweeper stopped")
}

// runPurgeLoop deletes long-rejected applications once a day. Their activity
// trail survives through the outbox even though the database rows cascade.
func runPurgeLoop(ctx context.Context, suppliers *supplier.Service, retention time.Duration, log *slog.Logger) error {
	purge := func() {
		n, err := suppliers.PurgeRejected(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				log.ErrorContext(ctx, "rejected purge failed", "error", err)
			}
			return
		}
		if n > 0 {
			log.InfoContext(ctx, "rejected applications purged", "count", n)
		}
	}

	purge()
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			purge()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
