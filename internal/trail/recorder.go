// Package trail makes every supplier and document state transition
// observable and attributable. The recorder appends one immutable history
// row and one activity log row per observed transition, inside the same
// transaction as the entity mutation itself: a reader never sees a committed
// status change without its trail, and a failed trail write fails the whole
// business operation.
package trail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"vendorhub/internal/domain"
	"vendorhub/internal/platform/metrics"
	"vendorhub/pkg/requestcontext"
)

// Recorder appends status history and activity log entries. All writes go
// through the stores with the caller's transaction in ctx; the recorder
// itself never opens one.
type Recorder struct {
	history  HistoryStore
	activity ActivityStore
	outbox   OutboxStore // optional
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithOutbox stages every activity entry for asynchronous publication.
func WithOutbox(outbox OutboxStore) Option {
	return func(r *Recorder) { r.outbox = outbox }
}

func NewRecorder(history HistoryStore, activity ActivityStore, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Recorder {
	r := &Recorder{
		history:  history,
		activity: activity,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("vendorhub/trail"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordSupplierTransition observes a supplier status change. A no-op when
// old equals new: retried writes of an unchanged value must not produce
// duplicate trail rows. Returns an error when either append fails, which the
// caller must treat as fatal to its transaction.
func (r *Recorder) RecordSupplierTransition(ctx context.Context, supplierID uuid.UUID, old, new domain.SupplierStatus, actor domain.Actor, notes string) error {
	if old == new {
		return nil
	}
	ctx, span := r.tracer.Start(ctx, "trail.RecordSupplierTransition")
	defer span.End()

	now := requestcontext.Now(ctx)
	oldCopy := old
	entry := SupplierStatusHistory{
		ID:         uuid.New(),
		SupplierID: supplierID,
		OldStatus:  &oldCopy,
		NewStatus:  new,
		Actor:      actor,
		Notes:      notes,
		CreatedAt:  now,
	}
	if err := r.history.AppendSupplier(ctx, entry); err != nil {
		return fmt.Errorf("append supplier history: %w", err)
	}
	r.metrics.HistoryAppended.WithLabelValues("supplier").Inc()

	activity := ActivityLogEntry{
		ID:          uuid.New(),
		SupplierID:  supplierID,
		Type:        ActivityStatusChange,
		Title:       "Application status updated",
		Description: fmt.Sprintf("Application status changed from %s to %s", old, new),
		Actor:       actor,
		Metadata: Metadata{
			Version: MetadataVersion,
			Kind:    ActivityStatusChange,
			StatusChange: &StatusChangeMeta{
				Entity:    "supplier",
				EntityID:  supplierID.String(),
				OldStatus: string(old),
				NewStatus: string(new),
			},
		},
		CreatedAt: now,
	}
	return r.appendActivity(ctx, activity)
}

// RecordDocumentTransition observes a document verification change with the
// same no-op and atomicity contract as the supplier variant.
func (r *Recorder) RecordDocumentTransition(ctx context.Context, documentID, supplierID uuid.UUID, docType domain.DocumentType, old, new domain.VerificationStatus, actor domain.Actor, notes string) error {
	if old == new {
		return nil
	}
	ctx, span := r.tracer.Start(ctx, "trail.RecordDocumentTransition")
	defer span.End()

	now := requestcontext.Now(ctx)
	oldCopy := old
	entry := DocumentStatusHistory{
		ID:         uuid.New(),
		DocumentID: documentID,
		SupplierID: supplierID,
		OldStatus:  &oldCopy,
		NewStatus:  new,
		Actor:      actor,
		Notes:      notes,
		CreatedAt:  now,
	}
	if err := r.history.AppendDocument(ctx, entry); err != nil {
		return fmt.Errorf("append document history: %w", err)
	}
	r.metrics.HistoryAppended.WithLabelValues("document").Inc()

	activity := ActivityLogEntry{
		ID:          uuid.New(),
		SupplierID:  supplierID,
		Type:        ActivityStatusChange,
		Title:       "Document verification updated",
		Description: fmt.Sprintf("Document %s changed from %s to %s", docType, old, new),
		Actor:       actor,
		Metadata: Metadata{
			Version: MetadataVersion,
			Kind:    ActivityStatusChange,
			StatusChange: &StatusChangeMeta{
				Entity:    "document",
				EntityID:  documentID.String(),
				OldStatus: string(old),
				NewStatus: string(new),
			},
		},
		CreatedAt: now,
	}
	return r.appendActivity(ctx, activity)
}

// LogActivity appends a non-transition activity entry (uploads, alert
// creation, purges). Same failure contract: an error is fatal to the
// caller's transaction.
func (r *Recorder) LogActivity(ctx context.Context, entry ActivityLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	if entry.Metadata.Version == 0 {
		entry.Metadata.Version = MetadataVersion
	}
	if entry.Metadata.Kind == "" {
		entry.Metadata.Kind = entry.Type
	}
	return r.appendActivity(ctx, entry)
}

// SupplierHistory lists status transitions for one supplier, newest first.
func (r *Recorder) SupplierHistory(ctx context.Context, supplierID uuid.UUID) ([]SupplierStatusHistory, error) {
	return r.history.ListSupplier(ctx, supplierID)
}

// DocumentHistory lists verification transitions for one document, newest first.
func (r *Recorder) DocumentHistory(ctx context.Context, documentID uuid.UUID) ([]DocumentStatusHistory, error) {
	return r.history.ListDocument(ctx, documentID)
}

// Timeline lists recent activity for one supplier, newest first.
func (r *Recorder) Timeline(ctx context.Context, supplierID uuid.UUID, limit int) ([]ActivityLogEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return r.activity.ListBySupplier(ctx, supplierID, limit)
}

func (r *Recorder) appendActivity(ctx context.Context, entry ActivityLogEntry) error {
	if err := r.activity.Append(ctx, entry); err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	r.metrics.ActivityAppended.Inc()

	if r.outbox != nil {
		if err := r.outbox.Enqueue(ctx, entry); err != nil {
			return fmt.Errorf("enqueue activity outbox: %w", err)
		}
	}
	return nil
}
