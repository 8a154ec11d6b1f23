package handler

import (
	"time"

	"vendorhub/internal/domain"
)

type supplierResponse struct {
	ID          string  `json:"id"`
	CompanyName string  `json:"company_name"`
	Email       string  `json:"email"`
	Category    string  `json:"category"`
	Status      string  `json:"status"`
	Active      bool    `json:"active"`
	ReviewedBy  *string `json:"reviewed_by,omitempty"`
	SubmittedAt *string `json:"submitted_at,omitempty"`
	ReviewedAt  *string `json:"reviewed_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func fromSupplier(s domain.Supplier) supplierResponse {
	resp := supplierResponse{
		ID:          s.ID.String(),
		CompanyName: s.CompanyName,
		Email:       s.Email,
		Category:    string(s.Category),
		Status:      string(s.Status),
		Active:      s.Active,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
	if s.ReviewedBy != nil {
		v := s.ReviewedBy.String()
		resp.ReviewedBy = &v
	}
	if s.SubmittedAt != nil {
		v := s.SubmittedAt.Format(time.RFC3339)
		resp.SubmittedAt = &v
	}
	if s.ReviewedAt != nil {
		v := s.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &v
	}
	return resp
}

func fromSuppliers(suppliers []domain.Supplier) []supplierResponse {
	out := make([]supplierResponse, 0, len(suppliers))
	for _, s := range suppliers {
		out = append(out, fromSupplier(s))
	}
	return out
}

type profileChangeResponse struct {
	ID          string            `json:"id"`
	SupplierID  string            `json:"supplier_id"`
	Requested   map[string]string `json:"requested"`
	Previous    map[string]string `json:"previous"`
	Status      string            `json:"status"`
	ReviewedBy  *string           `json:"reviewed_by,omitempty"`
	ReviewNotes string            `json:"review_notes,omitempty"`
	CreatedAt   string            `json:"created_at"`
	ReviewedAt  *string           `json:"reviewed_at,omitempty"`
}

func fromProfileChange(c domain.ProfileChange) profileChangeResponse {
	resp := profileChangeResponse{
		ID:          c.ID.String(),
		SupplierID:  c.SupplierID.String(),
		Requested:   c.Requested,
		Previous:    c.Previous,
		Status:      string(c.Status),
		ReviewNotes: c.ReviewNotes,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
	if c.ReviewedBy != nil {
		v := c.ReviewedBy.String()
		resp.ReviewedBy = &v
	}
	if c.ReviewedAt != nil {
		v := c.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &v
	}
	return resp
}

func fromProfileChanges(changes []domain.ProfileChange) []profileChangeResponse {
	out := make([]profileChangeResponse, 0, len(changes))
	for _, c := range changes {
		out = append(out, fromProfileChange(c))
	}
	return out
}
