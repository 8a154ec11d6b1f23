package expiry

import (
	"time"

	"github.com/google/uuid"

	"vendorhub/internal/domain"
)

// Alert is one expiry reminder for a (document, bucket) pair. At most one
// exists per pair; everything but the delivery and acknowledgement fields is
// immutable after creation.
type Alert struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	SupplierID uuid.UUID
	Bucket     Bucket
	// ExpiryDate is the document's expiry date as of alert creation. A later
	// correction of the document date does not rewrite history here.
	ExpiryDate time.Time

	EmailSent   bool
	EmailSentAt *time.Time

	Acknowledged   bool
	AcknowledgedAt *time.Time
	AcknowledgedBy *uuid.UUID

	ReminderCount  int
	LastReminderAt *time.Time

	CreatedAt time.Time
}

// PendingAlert is the hand-off record for the external notifier.
type PendingAlert struct {
	AlertID         uuid.UUID
	DocumentID      uuid.UUID
	SupplierID      uuid.UUID
	CompanyName     string
	Email           string
	DocumentType    domain.DocumentType
	ExpiryDate      time.Time
	Bucket          Bucket
	DaysUntilExpiry int
}

// EvaluationResult reports what EvaluateDocument did.
type EvaluationResult struct {
	// Applicable is false when the document has no eligible bucket (not
	// verified, no expiry date, more than 90 days out, or its supplier is
	// not in an actionable status).
	Applicable bool
	Bucket     Bucket
	// Created is true when a new alert row was inserted; false for the
	// duplicate no-op case.
	Created bool
	AlertID uuid.UUID
}

// SweepResult summarizes one SweepAll run.
type SweepResult struct {
	DocumentsProcessed int
	AlertsCreated      int
}

// Stats aggregates alert counts for the admin dashboard.
type Stats struct {
	TotalAlerts        int
	PendingAlerts      int
	SentAlerts         int
	AcknowledgedAlerts int
	ExpiredDocuments   int
	CriticalAlerts     int
	WarningAlerts      int
}

// SupplierExpiringDocument is the vendor-facing view of one expiring document.
type SupplierExpiringDocument struct {
	DocumentID      uuid.UUID
	DocumentType    domain.DocumentType
	ExpiryDate      time.Time
	DaysUntilExpiry int
	AlertCount      int
	LastAlertAt     *time.Time
	Acknowledged    bool
}

// DashboardSummary classifies a supplier's expiring documents by severity.
type DashboardSummary struct {
	CriticalCount int `json:"critical_count"` // expiring in 7 days or less
	WarningCount  int `json:"warning_count"`  // 8-30 days
	InfoCount     int `json:"info_count"`     // 31-90 days
	ExpiredCount  int `json:"expired_count"`

	Documents []SupplierExpiringDocument `json:"documents"`
}
