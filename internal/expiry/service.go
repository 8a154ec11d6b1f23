// Package expiry converts the continuous quantity "days until a document
// expires" into discrete, non-repeating alert events. The uniqueness
// constraint on (document_id, bucket) is the concurrency mechanism: a live
// write-path evaluation and a scheduled sweep may race to insert, the store
// makes exactly one the winner, and the loser sees a no-op.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"vendorhub/internal/domain"
	"vendorhub/internal/platform/metrics"
	"vendorhub/internal/trail"
	"vendorhub/pkg/platform/sentinel"
	txpkg "vendorhub/pkg/platform/tx"
	"vendorhub/pkg/requestcontext"
)

// sweepParallelism bounds concurrent per-document evaluations in a sweep.
// Each evaluation is its own transaction, so parallelism does not weaken the
// uniqueness contract.
const sweepParallelism = 8

// Service is the expiry alert scheduler.
type Service struct {
	alerts   AlertStore
	docs     DocumentReader
	recorder *trail.Recorder
	runner   txpkg.Runner
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewService(alerts AlertStore, docs DocumentReader, recorder *trail.Recorder, runner txpkg.Runner, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		alerts:   alerts,
		docs:     docs,
		recorder: recorder,
		runner:   runner,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("vendorhub/expiry"),
	}
}

// EvaluateDocument computes the document's threshold bucket and inserts an
// alert for it if none exists. Inapplicable documents (not VERIFIED, no
// expiry date, more than 90 days out, supplier not actionable) yield a no-op
// result, not an error. An existing alert for the same bucket is also a
// no-op: that is what keeps a document from re-alerting as it crosses the
// same boundary on consecutive days.
func (s *Service) EvaluateDocument(ctx context.Context, doc domain.Document, supplierStatus domain.SupplierStatus) (EvaluationResult, error) {
	if doc.Status != domain.VerificationVerified || doc.ExpiryDate == nil || !supplierStatus.Actionable() {
		return EvaluationResult{}, nil
	}
	days, _ := doc.DaysUntilExpiry(requestcontext.Now(ctx))
	bucket, ok := BucketFor(days)
	if !ok {
		return EvaluationResult{}, nil
	}
	return s.insertAlert(ctx, candidateFromDocument(doc), bucket)
}

// SweepAll evaluates every eligible document once. Naturally idempotent:
// a second run over the same day's data creates zero additional alerts. The
// sweep is interruptible between documents; a cancelled run leaves no
// inconsistent state because each document's evaluation is self-contained.
func (s *Service) SweepAll(ctx context.Context) (SweepResult, error) {
	ctx, span := s.tracer.Start(ctx, "expiry.SweepAll")
	defer span.End()

	start := time.Now()
	candidates, err := s.docs.ExpiringCandidates(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("load expiring candidates: %w", err)
	}

	today := requestcontext.Now(ctx)
	var processed, created atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepParallelism)
	for _, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			processed.Add(1)

			days := daysUntil(c.ExpiryDate, today)
			bucket, ok := BucketFor(days)
			if !ok || !c.SupplierStatus.Actionable() {
				return nil
			}
			res, err := s.insertAlert(requestcontext.WithTime(gctx, today), c, bucket)
			if err != nil {
				return err
			}
			if res.Created {
				created.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SweepResult{
			DocumentsProcessed: int(processed.Load()),
			AlertsCreated:      int(created.Load()),
		}, err
	}

	result := SweepResult{
		DocumentsProcessed: int(processed.Load()),
		AlertsCreated:      int(created.Load()),
	}
	s.metrics.SweepRuns.Inc()
	s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	s.metrics.SweepDocuments.Add(float64(result.DocumentsProcessed))
	s.logger.InfoContext(ctx, "expiry sweep completed",
		"documents_processed", result.DocumentsProcessed,
		"alerts_created", result.AlertsCreated,
	)
	return result, nil
}

// PendingAlerts returns undelivered alerts for actionable suppliers, most
// urgent first. This is the hand-off point to the external notifier.
func (s *Service) PendingAlerts(ctx context.Context, limit int) ([]PendingAlert, error) {
	if limit <= 0 {
		limit = 500
	}
	return s.alerts.Pending(ctx, requestcontext.Now(ctx), limit)
}

// MarkSent records a confirmed delivery. found=false when the alert no
// longer exists; never an error. The scheduler never re-sends on its own —
// retry policy belongs to the notifier.
func (s *Service) MarkSent(ctx context.Context, alertID uuid.UUID) (bool, error) {
	found, err := s.alerts.MarkSent(ctx, alertID, requestcontext.Now(ctx))
	if err != nil {
		return false, fmt.Errorf("mark alert sent: %w", err)
	}
	if found {
		s.metrics.NotificationsSent.Inc()
	}
	return found, nil
}

// Acknowledge sets acknowledgement state when the caller's supplier owns the
// alert. A mismatch reads identically to a missing alert so one supplier
// cannot probe for another's alerts.
func (s *Service) Acknowledge(ctx context.Context, alertID, supplierID uuid.UUID) (bool, error) {
	found, err := s.alerts.Acknowledge(ctx, alertID, supplierID, requestcontext.Now(ctx))
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	return found, nil
}

// Stats aggregates alert counts for the admin dashboard.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.alerts.Stats(ctx, requestcontext.Now(ctx))
}

// SupplierExpiring lists a supplier's documents expiring within the
// threshold, soonest first.
func (s *Service) SupplierExpiring(ctx context.Context, supplierID uuid.UUID, withinDays int) ([]SupplierExpiringDocument, error) {
	if withinDays <= 0 || withinDays > 365 {
		withinDays = 90
	}
	return s.docs.SupplierExpiring(ctx, supplierID, requestcontext.Now(ctx), withinDays)
}

// Dashboard classifies a supplier's expiring documents by severity and
// returns the ten soonest for display.
func (s *Service) Dashboard(ctx context.Context, supplierID uuid.UUID) (DashboardSummary, error) {
	docs, err := s.docs.SupplierExpiring(ctx, supplierID, requestcontext.Now(ctx), 90)
	if err != nil {
		return DashboardSummary{}, err
	}

	var summary DashboardSummary
	for _, d := range docs {
		switch {
		case d.DaysUntilExpiry < 0:
			summary.ExpiredCount++
		case d.DaysUntilExpiry <= 7:
			summary.CriticalCount++
		case d.DaysUntilExpiry <= 30:
			summary.WarningCount++
		default:
			summary.InfoCount++
		}
	}
	if len(docs) > 10 {
		docs = docs[:10]
	}
	summary.Documents = docs
	return summary, nil
}

// insertAlert races to create the (document, bucket) alert inside one
// transaction together with its activity entry. A lost race surfaces as
// sentinel.ErrAlreadyExists from the store and is success here.
func (s *Service) insertAlert(ctx context.Context, c CandidateDocument, bucket Bucket) (EvaluationResult, error) {
	result := EvaluationResult{Applicable: true, Bucket: bucket}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		alert := Alert{
			ID:         uuid.New(),
			DocumentID: c.DocumentID,
			SupplierID: c.SupplierID,
			Bucket:     bucket,
			ExpiryDate: c.ExpiryDate,
			CreatedAt:  requestcontext.Now(ctx),
		}
		if err := s.alerts.Insert(ctx, alert); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				s.metrics.AlertDuplicates.Inc()
				return errDuplicateAlert
			}
			return fmt.Errorf("insert alert: %w", err)
		}
		result.Created = true
		result.AlertID = alert.ID

		return s.recorder.LogActivity(ctx, trail.ActivityLogEntry{
			SupplierID:  c.SupplierID,
			Type:        trail.ActivityAlertCreated,
			Title:       "Document expiry alert created",
			Description: fmt.Sprintf("Document %s enters the %s expiry window", c.DocumentType, bucket),
			Actor:       domain.SystemActor(),
			Metadata: trail.Metadata{
				Version: trail.MetadataVersion,
				Kind:    trail.ActivityAlertCreated,
				AlertCreated: &trail.AlertCreatedMeta{
					DocumentID:   c.DocumentID.String(),
					DocumentType: string(c.DocumentType),
					Bucket:       string(bucket),
					ExpiryDate:   c.ExpiryDate.Format("2006-01-02"),
				},
			},
		})
	})
	if err != nil {
		if errors.Is(err, errDuplicateAlert) {
			return result, nil
		}
		return EvaluationResult{}, err
	}

	s.metrics.AlertsCreated.Inc()
	return result, nil
}

// errDuplicateAlert aborts the insert transaction without surfacing a
// failure: losing the uniqueness race is an expected outcome.
var errDuplicateAlert = errors.New("duplicate alert")

func candidateFromDocument(doc domain.Document) CandidateDocument {
	return CandidateDocument{
		DocumentID:   doc.ID,
		SupplierID:   doc.SupplierID,
		DocumentType: doc.Type,
		ExpiryDate:   *doc.ExpiryDate,
	}
}

func daysUntil(expiry, today time.Time) int {
	t := today.Truncate(24 * time.Hour)
	e := expiry.Truncate(24 * time.Hour)
	return int(e.Sub(t).Hours() / 24)
}
