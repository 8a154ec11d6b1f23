package trail

import (
	"time"

	"github.com/google/uuid"

	"vendorhub/internal/domain"
)

// SupplierStatusHistory is an immutable record of one supplier status
// transition. Rows are append-only; nothing updates or deletes them.
type SupplierStatusHistory struct {
	ID         uuid.UUID
	SupplierID uuid.UUID
	OldStatus  *domain.SupplierStatus
	NewStatus  domain.SupplierStatus
	Actor      domain.Actor
	Notes      string
	CreatedAt  time.Time
}

// DocumentStatusHistory is the document-side variant.
type DocumentStatusHistory struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	SupplierID uuid.UUID
	OldStatus  *domain.VerificationStatus
	NewStatus  domain.VerificationStatus
	Actor      domain.Actor
	Notes      string
	CreatedAt  time.Time
}

// ActivityType tags an activity log entry and selects which metadata variant
// is populated.
type ActivityType string

const (
	ActivityStatusChange   ActivityType = "status_change"
	ActivityDocumentUpload ActivityType = "document_upload"
	ActivityAlertCreated   ActivityType = "alert_created"
	ActivityProfileReview  ActivityType = "profile_change_review"
	ActivitySupplierPurged ActivityType = "supplier_purged"
)

// ActivityLogEntry is the supplier-scoped, human-readable narration of a
// tracked event. Append-only.
type ActivityLogEntry struct {
	ID          uuid.UUID
	SupplierID  uuid.UUID
	Type        ActivityType
	Title       string
	Description string
	Actor       domain.Actor
	Metadata    Metadata
	CreatedAt   time.Time
}

// Metadata is the tagged, versioned payload attached to an activity entry.
// Exactly one variant matching Kind is set; Extra round-trips arbitrary
// key/value context without widening the schema.
type Metadata struct {
	Version int          `json:"version"`
	Kind    ActivityType `json:"kind"`

	StatusChange   *StatusChangeMeta   `json:"status_change,omitempty"`
	DocumentUpload *DocumentUploadMeta `json:"document_upload,omitempty"`
	AlertCreated   *AlertCreatedMeta   `json:"alert_created,omitempty"`
	ProfileReview  *ProfileReviewMeta  `json:"profile_review,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// MetadataVersion is bumped when a variant changes shape incompatibly.
const MetadataVersion = 1

type StatusChangeMeta struct {
	Entity    string `json:"entity"`
	EntityID  string `json:"entity_id"`
	OldStatus string `json:"old_status,omitempty"`
	NewStatus string `json:"new_status"`
}

type DocumentUploadMeta struct {
	DocumentID   string `json:"document_id"`
	DocumentType string `json:"document_type"`
	StorageKey   string `json:"storage_key"`
}

// ProfileReviewMeta covers the profile-change lifecycle: the vendor's
// request and the admin's decision on it.
type ProfileReviewMeta struct {
	ChangeID string   `json:"change_id"`
	Fields   []string `json:"fields"`
	Decision string   `json:"decision"`
}

type AlertCreatedMeta struct {
	DocumentID   string `json:"document_id"`
	DocumentType string `json:"document_type"`
	Bucket       string `json:"bucket"`
	ExpiryDate   string `json:"expiry_date"`
}
