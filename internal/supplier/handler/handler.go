// Package handler exposes the supplier lifecycle over HTTP: vendor
// registration and submission, and the admin review queue.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vendorhub/internal/domain"
	"vendorhub/internal/platform/middleware"
	dErrors "vendorhub/pkg/domain-errors"
	"vendorhub/pkg/platform/httputil"
	"vendorhub/pkg/requestcontext"
)

// Lifecycle is the slice of the supplier service the handler drives.
type Lifecycle interface {
	Register(ctx context.Context, companyName, email string, category domain.BusinessCategory) (domain.Supplier, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Supplier, error)
	List(ctx context.Context, status domain.SupplierStatus, limit int) ([]domain.Supplier, error)
	Submit(ctx context.Context, supplierID uuid.UUID) (domain.Supplier, error)
	Review(ctx context.Context, supplierID uuid.UUID, newStatus domain.SupplierStatus, adminID uuid.UUID, adminName, notes string) (domain.Supplier, error)
	RequestProfileChange(ctx context.Context, supplierID uuid.UUID, changes map[string]string) (domain.ProfileChange, error)
	ReviewProfileChange(ctx context.Context, changeID uuid.UUID, approve bool, adminID uuid.UUID, adminName, notes string) (domain.ProfileChange, error)
	ListProfileChanges(ctx context.Context, status domain.ProfileChangeStatus, limit int) ([]domain.ProfileChange, error)
	SupplierProfileChanges(ctx context.Context, supplierID uuid.UUID, limit int) ([]domain.ProfileChange, error)
}

type Handler struct {
	suppliers Lifecycle
	validator middleware.JWTValidator
	logger    *slog.Logger
}

func New(suppliers Lifecycle, validator middleware.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{suppliers: suppliers, validator: validator, logger: logger}
}

// Register mounts the supplier endpoints. Registration is unauthenticated;
// everything else requires a vendor or admin token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/suppliers/register", h.HandleRegister)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger, middleware.RoleVendor))
		r.Get("/vendor/profile", h.HandleProfile)
		r.Post("/vendor/submit", h.HandleSubmit)
		r.Post("/vendor/profile/changes", h.HandleRequestProfileChange)
		r.Get("/vendor/profile/changes", h.HandleVendorProfileChanges)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger, middleware.RoleAdmin))
		r.Get("/admin/suppliers", h.HandleList)
		r.Get("/admin/suppliers/{supplierID}", h.HandleGet)
		r.Post("/admin/suppliers/{supplierID}/review", h.HandleReview)
		r.Get("/admin/profile-changes", h.HandleListProfileChanges)
		r.Post("/admin/profile-changes/{changeID}/review", h.HandleReviewProfileChange)
	})
}

type registerRequest struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Category    string `json:"category"`
}

// HandleRegister handles POST /suppliers/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[registerRequest](w, r, h.logger)
	if !ok {
		return
	}

	sup, err := h.suppliers.Register(r.Context(), req.CompanyName, req.Email, domain.BusinessCategory(req.Category))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromSupplier(sup))
}

// HandleProfile handles GET /vendor/profile for the calling supplier.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supplierID, ok := authenticatedSupplier(w, ctx)
	if !ok {
		return
	}

	sup, err := h.suppliers.Get(ctx, supplierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSupplier(sup))
}

// HandleSubmit handles POST /vendor/submit, moving the calling supplier's
// application from INCOMPLETE to SUBMITTED.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supplierID, ok := authenticatedSupplier(w, ctx)
	if !ok {
		return
	}

	sup, err := h.suppliers.Submit(ctx, supplierID)
	if err != nil {
		h.logger.WarnContext(ctx, "submission rejected",
			"request_id", requestcontext.RequestID(ctx),
			"supplier_id", supplierID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSupplier(sup))
}

// HandleList handles GET /admin/suppliers?status=S&limit=N.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := domain.SupplierStatus(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	suppliers, err := h.suppliers.List(r.Context(), status, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSuppliers(suppliers))
}

// HandleGet handles GET /admin/suppliers/{supplierID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	supplierID, err := uuid.Parse(chi.URLParam(r, "supplierID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid supplier id"))
		return
	}

	sup, err := h.suppliers.Get(r.Context(), supplierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSupplier(sup))
}

type reviewRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// HandleReview handles POST /admin/suppliers/{supplierID}/review.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	supplierID, err := uuid.Parse(chi.URLParam(r, "supplierID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid supplier id"))
		return
	}
	adminID, err := uuid.Parse(middleware.GetSubjectID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.Decode[reviewRequest](w, r, h.logger)
	if !ok {
		return
	}

	sup, err := h.suppliers.Review(ctx, supplierID, domain.SupplierStatus(req.Status), adminID, requestcontext.ActorName(ctx), req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "supplier reviewed",
		"request_id", requestcontext.RequestID(ctx),
		"supplier_id", supplierID,
		"status", sup.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, fromSupplier(sup))
}

type profileChangeRequest struct {
	Changes map[string]string `json:"changes"`
}

// HandleRequestProfileChange handles POST /vendor/profile/changes.
func (h *Handler) HandleRequestProfileChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supplierID, ok := authenticatedSupplier(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.Decode[profileChangeRequest](w, r, h.logger)
	if !ok {
		return
	}

	change, err := h.suppliers.RequestProfileChange(ctx, supplierID, req.Changes)
	if err != nil {
		h.logger.WarnContext(ctx, "profile change rejected",
			"request_id", requestcontext.RequestID(ctx),
			"supplier_id", supplierID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromProfileChange(change))
}

// HandleVendorProfileChanges handles GET /vendor/profile/changes for the
// calling supplier.
func (h *Handler) HandleVendorProfileChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supplierID, ok := authenticatedSupplier(w, ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	changes, err := h.suppliers.SupplierProfileChanges(ctx, supplierID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromProfileChanges(changes))
}

// HandleListProfileChanges handles GET /admin/profile-changes?status=S&limit=N.
func (h *Handler) HandleListProfileChanges(w http.ResponseWriter, r *http.Request) {
	status := domain.ProfileChangeStatus(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	changes, err := h.suppliers.ListProfileChanges(r.Context(), status, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromProfileChanges(changes))
}

type profileReviewRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

// HandleReviewProfileChange handles POST /admin/profile-changes/{changeID}/review.
func (h *Handler) HandleReviewProfileChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	changeID, err := uuid.Parse(chi.URLParam(r, "changeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid change id"))
		return
	}
	adminID, err := uuid.Parse(middleware.GetSubjectID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.Decode[profileReviewRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Action != "approve" && req.Action != "reject" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "action must be approve or reject"))
		return
	}

	change, err := h.suppliers.ReviewProfileChange(ctx, changeID, req.Action == "approve", adminID, requestcontext.ActorName(ctx), req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "profile change reviewed",
		"request_id", requestcontext.RequestID(ctx),
		"change_id", changeID,
		"status", change.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, fromProfileChange(change))
}

func authenticatedSupplier(w http.ResponseWriter, ctx context.Context) (uuid.UUID, bool) {
	supplierID, err := uuid.Parse(middleware.GetSubjectID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, false
	}
	return supplierID, true
}
