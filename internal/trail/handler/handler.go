// Package handler exposes the audit trail over HTTP: vendors read their own
// activity timeline, admins read any supplier's timeline and the raw status
// history of suppliers and documents.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vendorhub/internal/platform/middleware"
	"vendorhub/internal/trail"
	dErrors "vendorhub/pkg/domain-errors"
	"vendorhub/pkg/platform/httputil"
)

// Trail is the read side of the recorder.
type Trail interface {
	SupplierHistory(ctx context.Context, supplierID uuid.UUID) ([]trail.SupplierStatusHistory, error)
	DocumentHistory(ctx context.Context, documentID uuid.UUID) ([]trail.DocumentStatusHistory, error)
	Timeline(ctx context.Context, supplierID uuid.UUID, limit int) ([]trail.ActivityLogEntry, error)
}

type Handler struct {
	trail     Trail
	validator middleware.JWTValidator
	logger    *slog.Logger
}

func New(trail Trail, validator middleware.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{trail: trail, validator: validator, logger: logger}
}

// Register mounts the trail endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger, middleware.RoleVendor))
		r.Get("/vendor/activity", h.HandleVendorTimeline)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger, middleware.RoleAdmin))
		r.Get("/admin/suppliers/{supplierID}/timeline", h.HandleSupplierTimeline)
		r.Get("/admin/suppliers/{supplierID}/status-history", h.HandleSupplierHistory)
		r.Get("/admin/documents/{documentID}/status-history", h.HandleDocumentHistory)
	})
}

// HandleVendorTimeline handles GET /vendor/activity?limit=N for the calling
// supplier.
func (h *Handler) HandleVendorTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supplierID, err := uuid.Parse(middleware.GetSubjectID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	h.writeTimeline(w, r, supplierID)
}

// HandleSupplierTimeline handles GET /admin/suppliers/{supplierID}/timeline.
func (h *Handler) HandleSupplierTimeline(w http.ResponseWriter, r *http.Request) {
	supplierID, err := uuid.Parse(chi.URLParam(r, "supplierID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid supplier id"))
		return
	}
	h.writeTimeline(w, r, supplierID)
}

// HandleSupplierHistory handles GET /admin/suppliers/{supplierID}/status-history.
func (h *Handler) HandleSupplierHistory(w http.ResponseWriter, r *http.Request) {
	supplierID, err := uuid.Parse(chi.URLParam(r, "supplierID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid supplier id"))
		return
	}

	history, err := h.trail.SupplierHistory(r.Context(), supplierID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "supplier history lookup failed",
			"supplier_id", supplierID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSupplierHistory(history))
}

// HandleDocumentHistory handles GET /admin/documents/{documentID}/status-history.
func (h *Handler) HandleDocumentHistory(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid document id"))
		return
	}

	history, err := h.trail.DocumentHistory(r.Context(), documentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDocumentHistory(history))
}

func (h *Handler) writeTimeline(w http.ResponseWriter, r *http.Request, supplierID uuid.UUID) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.trail.Timeline(r.Context(), supplierID, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "timeline lookup failed",
			"supplier_id", supplierID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromTimeline(entries))
}
