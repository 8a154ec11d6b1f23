// Package handler exposes document operations over HTTP: vendor uploads and
// the admin verification surface.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vendorhub/internal/domain"
	"vendorhub/internal/platform/middleware"
	dErrors "vendorhub/pkg/domain-errors"
	"vendorhub/pkg/platform/httputil"
	"vendorhub/pkg/requestcontext"
)

// Documents is the slice of the document service the handler drives.
type Documents interface {
	Upload(ctx context.Context, supplierID uuid.UUID, docType domain.DocumentType, storageKey string, expiryDate *time.Time) (domain.Document, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Document, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]domain.Document, error)
	MissingDocuments(ctx context.Context, supplierID uuid.UUID) ([]domain.DocumentType, error)
	Verify(ctx context.Context, documentID, adminID uuid.UUID, adminName string, expiryDate *time.Time, notes string) (domain.Document, error)
	Reject(ctx context.Context, documentID, adminID uuid.UUID, adminName, notes string) (domain.Document, error)
	SetExpiryDate(ctx context.Context, documentID uuid.UUID, expiryDate time.Time) (domain.Document, error)
}

type Handler struct {
	documents Documents
	validator middleware.JWTValidator
	logger    *slog.Logger
}

func New(documents Documents, validator middleware.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{documents: documents, validator: validator, logger: logger}
}

// Register mounts the document endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger, middleware.RoleVendor))
		r.Post("/vendor/documents", h.HandleUpload)
		r.Get("/vendor/documents", h.HandleVendorList)
		r.Get("/vendor/documents/missing", h.HandleMissing)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger, middleware.RoleAdmin))
		r.Get("/admin/suppliers/{supplierID}/documents", h.HandleAdminList)
		r.Post("/admin/documents/{documentID}/verify", h.HandleVerify)
		r.Post("/admin/documents/{documentID}/reject", h.HandleReject)
		r.Put("/admin/documents/{documentID}/expiry-date", h.HandleSetExpiryDate)
	})
}

type uploadRequest struct {
	DocumentType string `json:"document_type"`
	StorageKey   string `json:"storage_key"`
	ExpiryDate   string `json:"expiry_date,omitempty"`
}

// HandleUpload handles POST /vendor/documents for the calling supplier.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supplierID, ok := authenticatedSupplier(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.Decode[uploadRequest](w, r, h.logger)
	if !ok {
		return
	}
	expiryDate, ok := parseOptionalDate(w, req.ExpiryDate)
	if !ok {
		return
	}

	doc, err := h.documents.Upload(ctx, supplierID, domain.DocumentType(req.DocumentType), req.StorageKey, expiryDate)
	if err != nil {
		h.logger.WarnContext(ctx, "upload failed",
			"request_id", requestcontext.RequestID(ctx),
			"supplier_id", supplierID,
			"document_type", req.DocumentType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromDocument(doc))
}

// HandleVendorList handles GET /vendor/documents.
func (h *Handler) HandleVendorList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supplierID, ok := authenticatedSupplier(w, ctx)
	if !ok {
		return
	}

	docs, err := h.documents.ListBySupplier(ctx, supplierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDocuments(docs))
}

// HandleMissing handles GET /vendor/documents/missing, the checklist of
// still-required uploads for the supplier's category.
func (h *Handler) HandleMissing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supplierID, ok := authenticatedSupplier(w, ctx)
	if !ok {
		return
	}

	missing, err := h.documents.MissingDocuments(ctx, supplierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, missingResponse{Missing: fromDocumentTypes(missing)})
}

// HandleAdminList handles GET /admin/suppliers/{supplierID}/documents.
func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	supplierID, err := uuid.Parse(chi.URLParam(r, "supplierID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid supplier id"))
		return
	}

	docs, err := h.documents.ListBySupplier(r.Context(), supplierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDocuments(docs))
}

type verifyRequest struct {
	ExpiryDate string `json:"expiry_date,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// HandleVerify handles POST /admin/documents/{documentID}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID, adminID, ok := adminAndDocument(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[verifyRequest](w, r, h.logger)
	if !ok {
		return
	}
	expiryDate, ok := parseOptionalDate(w, req.ExpiryDate)
	if !ok {
		return
	}

	doc, err := h.documents.Verify(ctx, documentID, adminID, requestcontext.ActorName(ctx), expiryDate, req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDocument(doc))
}

type rejectRequest struct {
	Notes string `json:"notes,omitempty"`
}

// HandleReject handles POST /admin/documents/{documentID}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID, adminID, ok := adminAndDocument(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[rejectRequest](w, r, h.logger)
	if !ok {
		return
	}

	doc, err := h.documents.Reject(ctx, documentID, adminID, requestcontext.ActorName(ctx), req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDocument(doc))
}

type expiryDateRequest struct {
	ExpiryDate string `json:"expiry_date"`
}

// HandleSetExpiryDate handles PUT /admin/documents/{documentID}/expiry-date.
func (h *Handler) HandleSetExpiryDate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid document id"))
		return
	}
	req, ok := httputil.Decode[expiryDateRequest](w, r, h.logger)
	if !ok {
		return
	}
	expiryDate, err := time.Parse(dateLayout, req.ExpiryDate)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expiry_date must be YYYY-MM-DD"))
		return
	}

	doc, err := h.documents.SetExpiryDate(ctx, documentID, expiryDate)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDocument(doc))
}

func adminAndDocument(w http.ResponseWriter, r *http.Request) (documentID, adminID uuid.UUID, ok bool) {
	documentID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid document id"))
		return uuid.Nil, uuid.Nil, false
	}
	adminID, err = uuid.Parse(middleware.GetSubjectID(r.Context()))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, uuid.Nil, false
	}
	return documentID, adminID, true
}

func parseOptionalDate(w http.ResponseWriter, v string) (*time.Time, bool) {
	if v == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expiry_date must be YYYY-MM-DD"))
		return nil, false
	}
	return &t, true
}

func authenticatedSupplier(w http.ResponseWriter, ctx context.Context) (uuid.UUID, bool) {
	supplierID, err := uuid.Parse(middleware.GetSubjectID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, false
	}
	return supplierID, true
}
