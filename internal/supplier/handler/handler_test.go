package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vendorhub/internal/domain"
	"vendorhub/internal/platform/logger"
	"vendorhub/internal/platform/metrics"
	"vendorhub/internal/platform/middleware"
	"vendorhub/internal/supplier"
	"vendorhub/internal/trail"
	txpkg "vendorhub/pkg/platform/tx"
)

type stubValidator struct {
	tokens map[string]*middleware.JWTClaims
}

func (v *stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	claims, ok := v.tokens[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return claims, nil
}

const adminToken = "admin-token"

type fixture struct {
	router    chi.Router
	service   *supplier.Service
	validator *stubValidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.New("supplier-handler-test", "error")
	m := metrics.NewForTesting()
	mem := trail.NewMemoryStore()
	recorder := trail.NewRecorder(mem, mem, log, m)
	service := supplier.NewService(supplier.NewMemoryStore(), recorder, txpkg.NewMemoryRunner(), log)

	validator := &stubValidator{tokens: map[string]*middleware.JWTClaims{
		adminToken: {SubjectID: uuid.New().String(), Role: middleware.RoleAdmin, Name: "Ops Admin"},
	}}

	router := chi.NewRouter()
	New(service, validator, log).Register(router)

	return &fixture{router: router, service: service, validator: validator}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// vendorToken registers the supplier as an authenticated vendor principal.
func (f *fixture) vendorToken(sup domain.Supplier) string {
	token := "vendor-" + sup.ID.String()
	f.validator.tokens[token] = &middleware.JWTClaims{
		SubjectID: sup.ID.String(),
		Role:      middleware.RoleVendor,
		Name:      sup.CompanyName,
	}
	return token
}

func TestRegisterSupplier(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/suppliers/register", "",
		`{"company_name":"Acme Mining","email":"ops@acme.test","category":"MANUFACTURING"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	if resp.Status != "INCOMPLETE" {
		t.Fatalf("expected INCOMPLETE, got %q", resp.Status)
	}

	// Same email again is a conflict.
	rec = f.do(t, http.MethodPost, "/suppliers/register", "",
		`{"company_name":"Acme Again","email":"OPS@ACME.TEST","category":"OTHER"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 duplicate email, got %d", rec.Code)
	}
}

func TestSubmitAndReviewFlow(t *testing.T) {
	f := newFixture(t)
	sup, err := f.service.Register(context.Background(), "Acme Mining", "ops@acme.test", domain.CategoryConstruction)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token := f.vendorToken(sup)

	rec := f.do(t, http.MethodPost, "/vendor/submit", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 submitting, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/admin/suppliers/"+sup.ID.String()+"/review", adminToken,
		`{"status":"UNDER_REVIEW","notes":"picked up"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 reviewing, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status     string  `json:"status"`
		ReviewedBy *string `json:"reviewed_by"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if resp.Status != "UNDER_REVIEW" || resp.ReviewedBy == nil {
		t.Fatalf("unexpected review response: %+v", resp)
	}

	// Skipping straight back to SUBMITTED is not a legal transition.
	rec = f.do(t, http.MethodPost, "/admin/suppliers/"+sup.ID.String()+"/review", adminToken,
		`{"status":"SUBMITTED"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 invalid transition, got %d", rec.Code)
	}
}

func TestAuthBoundaries(t *testing.T) {
	f := newFixture(t)
	sup, err := f.service.Register(context.Background(), "Acme Mining", "ops@acme.test", domain.CategoryOther)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token := f.vendorToken(sup)

	if rec := f.do(t, http.MethodPost, "/vendor/submit", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/admin/suppliers", token, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor on admin route, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/vendor/profile", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on own profile, got %d", rec.Code)
	}
}

func TestAdminList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, email := range []string{"a@test", "b@test"} {
		sup, err := f.service.Register(ctx, "Supplier "+email, email, domain.CategoryITServices)
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if _, err := f.service.Submit(ctx, sup.ID); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	rec := f.do(t, http.MethodGet, "/admin/suppliers?status=SUBMITTED", adminToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp []struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 submitted suppliers, got %d", len(resp))
	}
}

func TestProfileChangeFlow(t *testing.T) {
	f := newFixture(t)
	sup, err := f.service.Register(context.Background(), "Acme Mining", "ops@acme.test", domain.CategoryManufacturing)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token := f.vendorToken(sup)

	rec := f.do(t, http.MethodPost, "/vendor/profile/changes", token,
		`{"changes":{"company_name":"Acme Mining Ltd"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 requesting change, got %d: %s", rec.Code, rec.Body.String())
	}
	var change struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&change); err != nil {
		t.Fatalf("decode change: %v", err)
	}
	if change.Status != "PENDING" {
		t.Fatalf("expected PENDING change, got %+v", change)
	}

	// A second request while one is pending conflicts.
	rec = f.do(t, http.MethodPost, "/vendor/profile/changes", token,
		`{"changes":{"email":"billing@acme.test"}}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second pending request, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/admin/profile-changes?status=PENDING", adminToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing queue, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/admin/profile-changes/"+change.ID+"/review", adminToken,
		`{"action":"approve","notes":"verified"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 approving, got %d: %s", rec.Code, rec.Body.String())
	}
	var reviewed struct {
		Status     string  `json:"status"`
		ReviewedBy *string `json:"reviewed_by"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&reviewed); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if reviewed.Status != "APPROVED" || reviewed.ReviewedBy == nil {
		t.Fatalf("unexpected review response: %+v", reviewed)
	}

	got, err := f.service.Get(context.Background(), sup.ID)
	if err != nil {
		t.Fatalf("get supplier: %v", err)
	}
	if got.CompanyName != "Acme Mining Ltd" {
		t.Fatalf("expected applied company name, got %q", got.CompanyName)
	}

	// Anything other than approve/reject is a bad request.
	rec = f.do(t, http.MethodPost, "/admin/profile-changes/"+uuid.New().String()+"/review", adminToken,
		`{"action":"defer"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on unknown action, got %d", rec.Code)
	}
}
