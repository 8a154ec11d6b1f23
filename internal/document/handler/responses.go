package handler

import (
	"time"

	"vendorhub/internal/domain"
)

const dateLayout = "2006-01-02"

type documentResponse struct {
	ID           string  `json:"id"`
	SupplierID   string  `json:"supplier_id"`
	DocumentType string  `json:"document_type"`
	Status       string  `json:"status"`
	ExpiryDate   *string `json:"expiry_date,omitempty"`
	StorageKey   string  `json:"storage_key"`
	VerifiedBy   *string `json:"verified_by,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func fromDocument(d domain.Document) documentResponse {
	resp := documentResponse{
		ID:           d.ID.String(),
		SupplierID:   d.SupplierID.String(),
		DocumentType: string(d.Type),
		Status:       string(d.Status),
		StorageKey:   d.StorageKey,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    d.UpdatedAt.Format(time.RFC3339),
	}
	if d.ExpiryDate != nil {
		v := d.ExpiryDate.Format(dateLayout)
		resp.ExpiryDate = &v
	}
	if d.VerifiedBy != nil {
		v := d.VerifiedBy.String()
		resp.VerifiedBy = &v
	}
	return resp
}

func fromDocuments(docs []domain.Document) []documentResponse {
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDocument(d))
	}
	return out
}

type missingResponse struct {
	Missing []string `json:"missing"`
}

func fromDocumentTypes(types []domain.DocumentType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}
