package domain

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatus is the review state of an uploaded document.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// DocumentType enumerates the compliance artifacts a supplier can upload.
type DocumentType string

const (
	DocCompanyProfile   DocumentType = "COMPANY_PROFILE"
	DocIncorporation    DocumentType = "CERTIFICATE_OF_INCORPORATION"
	DocCR14OrCR6        DocumentType = "CR14_OR_CR6"
	DocVATCertificate   DocumentType = "VAT_CERTIFICATE"
	DocTaxClearance     DocumentType = "TAX_CLEARANCE"
	DocFDMSCompliance   DocumentType = "FDMS_COMPLIANCE"
	DocHealthCert       DocumentType = "HEALTH_CERTIFICATE"
	DocISO9001          DocumentType = "ISO_9001"
	DocISO45001         DocumentType = "ISO_45001"
	DocISO14000         DocumentType = "ISO_14000"
	DocInternalQMS      DocumentType = "INTERNAL_QMS"
	DocSHEQPolicy       DocumentType = "SHEQ_POLICY"
	DocEvaluationForm   DocumentType = "EVALUATION_FORM"
)

// Document is an uploaded compliance artifact. It lives as long as its
// supplier does; deletion cascades only on supplier purge.
type Document struct {
	ID         uuid.UUID
	SupplierID uuid.UUID
	Type       DocumentType
	Status     VerificationStatus
	// ExpiryDate is a calendar date; nil for documents that do not expire.
	ExpiryDate *time.Time
	StorageKey string
	// VerifiedBy holds the admin who last verified or rejected the document.
	VerifiedBy *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DaysUntilExpiry returns whole days between today and the expiry date,
// negative when already expired. The calculation truncates both sides to
// calendar days so a document expiring later today counts as zero days out.
func (d Document) DaysUntilExpiry(today time.Time) (int, bool) {
	if d.ExpiryDate == nil {
		return 0, false
	}
	t := today.Truncate(24 * time.Hour)
	e := d.ExpiryDate.Truncate(24 * time.Hour)
	return int(e.Sub(t).Hours() / 24), true
}
