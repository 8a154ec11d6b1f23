// Package handler exposes the expiry scheduler over HTTP: vendor-facing
// dashboard and acknowledgement endpoints, and the admin surface used by
// operations and the external notifier.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vendorhub/internal/expiry"
	"vendorhub/internal/platform/middleware"
	dErrors "vendorhub/pkg/domain-errors"
	"vendorhub/pkg/platform/httputil"
	"vendorhub/pkg/requestcontext"
)

// Scheduler is the slice of the expiry service the admin endpoints need.
type Scheduler interface {
	SweepAll(ctx context.Context) (expiry.SweepResult, error)
	PendingAlerts(ctx context.Context, limit int) ([]expiry.PendingAlert, error)
	MarkSent(ctx context.Context, alertID uuid.UUID) (bool, error)
	Stats(ctx context.Context) (expiry.Stats, error)
	SupplierExpiring(ctx context.Context, supplierID uuid.UUID, withinDays int) ([]expiry.SupplierExpiringDocument, error)
}

// Dashboard is the vendor-facing slice; the cached decorator satisfies it as
// well as the bare service.
type Dashboard interface {
	Dashboard(ctx context.Context, supplierID uuid.UUID) (expiry.DashboardSummary, error)
	Acknowledge(ctx context.Context, alertID, supplierID uuid.UUID) (bool, error)
}

// Handler wires expiry endpoints to the scheduler.
type Handler struct {
	scheduler Scheduler
	dashboard Dashboard
	validator middleware.JWTValidator
	logger    *slog.Logger
}

func New(scheduler Scheduler, dashboard Dashboard, validator middleware.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		scheduler: scheduler,
		dashboard: dashboard,
		validator: validator,
		logger:    logger,
	}
}

// Register mounts the expiry endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger, middleware.RoleVendor))
		r.Get("/vendor/dashboard/expiry", h.HandleVendorDashboard)
		r.Get("/vendor/documents/expiring", h.HandleVendorExpiring)
		r.Post("/vendor/alerts/{alertID}/acknowledge", h.HandleAcknowledge)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger, middleware.RoleAdmin))
		r.Get("/admin/expiry/stats", h.HandleStats)
		r.Get("/admin/expiry/alerts/pending", h.HandlePendingAlerts)
		r.Post("/admin/expiry/alerts/{alertID}/sent", h.HandleMarkSent)
		r.Post("/admin/expiry/sweep", h.HandleSweep)
		r.Get("/admin/suppliers/{supplierID}/expiring", h.HandleSupplierExpiring)
	})
}

// HandleVendorDashboard handles GET /vendor/dashboard/expiry.
func (h *Handler) HandleVendorDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supplierID, ok := authenticatedSupplier(w, ctx)
	if !ok {
		return
	}

	summary, err := h.dashboard.Dashboard(ctx, supplierID)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"supplier_id", supplierID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDashboard(summary))
}

// HandleVendorExpiring handles GET /vendor/documents/expiring?within_days=N.
func (h *Handler) HandleVendorExpiring(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supplierID, ok := authenticatedSupplier(w, ctx)
	if !ok {
		return
	}

	withinDays, _ := strconv.Atoi(r.URL.Query().Get("within_days"))
	docs, err := h.scheduler.SupplierExpiring(ctx, supplierID, withinDays)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromExpiringDocuments(docs))
}

// HandleAcknowledge handles POST /vendor/alerts/{alertID}/acknowledge. The
// alert must belong to the calling supplier; anything else is a 404.
func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supplierID, ok := authenticatedSupplier(w, ctx)
	if !ok {
		return
	}
	alertID, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid alert id"))
		return
	}

	found, err := h.dashboard.Acknowledge(ctx, alertID, supplierID)
	if err != nil {
		h.logger.ErrorContext(ctx, "acknowledge failed",
			"request_id", requestcontext.RequestID(ctx),
			"alert_id", alertID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !found {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "alert not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ackResponse{Acknowledged: true})
}

// HandleStats handles GET /admin/expiry/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.scheduler.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromStats(stats))
}

// HandlePendingAlerts handles GET /admin/expiry/alerts/pending?limit=N.
func (h *Handler) HandlePendingAlerts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	alerts, err := h.scheduler.PendingAlerts(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromPendingAlerts(alerts))
}

// HandleMarkSent handles POST /admin/expiry/alerts/{alertID}/sent, the
// notifier's delivery confirmation callback.
func (h *Handler) HandleMarkSent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	alertID, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid alert id"))
		return
	}

	found, err := h.scheduler.MarkSent(ctx, alertID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !found {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "alert not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sentResponse{Sent: true})
}

// HandleSweep handles POST /admin/expiry/sweep, the manual trigger for the
// scheduled evaluation.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	result, err := h.scheduler.SweepAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual sweep failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "manual sweep completed",
		"request_id", requestcontext.RequestID(ctx),
		"documents_processed", result.DocumentsProcessed,
		"alerts_created", result.AlertsCreated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, fromSweepResult(result))
}

// HandleSupplierExpiring handles GET /admin/suppliers/{supplierID}/expiring.
func (h *Handler) HandleSupplierExpiring(w http.ResponseWriter, r *http.Request) {
	supplierID, err := uuid.Parse(chi.URLParam(r, "supplierID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid supplier id"))
		return
	}

	withinDays, _ := strconv.Atoi(r.URL.Query().Get("within_days"))
	docs, err := h.scheduler.SupplierExpiring(r.Context(), supplierID, withinDays)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromExpiringDocuments(docs))
}

func authenticatedSupplier(w http.ResponseWriter, ctx context.Context) (uuid.UUID, bool) {
	supplierID, err := uuid.Parse(middleware.GetSubjectID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, false
	}
	return supplierID, true
}
