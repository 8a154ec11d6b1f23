package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProfileChangeStatus is the review state of a profile change request.
type ProfileChangeStatus string

const (
	ProfileChangePending  ProfileChangeStatus = "PENDING"
	ProfileChangeApproved ProfileChangeStatus = "APPROVED"
	ProfileChangeRejected ProfileChangeStatus = "REJECTED"
)

// Profile fields a vendor may request to change. All of them affect company
// identity, so none apply until an admin approves the request.
const (
	ProfileFieldCompanyName = "company_name"
	ProfileFieldEmail       = "email"
	ProfileFieldCategory    = "category"
)

// ProfileChange is a vendor's request to alter approval-gated profile
// fields. Requested holds the proposed values, Previous the snapshot taken
// at request time; an approval applies Requested onto the supplier row.
type ProfileChange struct {
	ID         uuid.UUID
	SupplierID uuid.UUID
	Requested  map[string]string
	Previous   map[string]string
	Status     ProfileChangeStatus

	ReviewedBy  *uuid.UUID
	ReviewNotes string
	CreatedAt   time.Time
	ReviewedAt  *time.Time
}
