package domain

import (
	"time"

	"github.com/google/uuid"
)

// SupplierStatus is the lifecycle state of an onboarding application.
type SupplierStatus string

const (
	StatusIncomplete   SupplierStatus = "INCOMPLETE"
	StatusSubmitted    SupplierStatus = "SUBMITTED"
	StatusUnderReview  SupplierStatus = "UNDER_REVIEW"
	StatusNeedMoreInfo SupplierStatus = "NEED_MORE_INFO"
	StatusApproved     SupplierStatus = "APPROVED"
	StatusRejected     SupplierStatus = "REJECTED"
)

// Actionable reports whether expiry alerts are still meaningful for a
// supplier in this status. Alert creation and delivery are restricted to
// actionable suppliers.
func (s SupplierStatus) Actionable() bool {
	return s == StatusApproved || s == StatusUnderReview
}

// ActionableForReads additionally admits NEED_MORE_INFO, which vendor
// dashboard read paths still surface.
func (s SupplierStatus) ActionableForReads() bool {
	return s.Actionable() || s == StatusNeedMoreInfo
}

// BusinessCategory classifies a supplier's line of business and drives the
// set of documents the application must carry.
type BusinessCategory string

const (
	CategoryConstruction     BusinessCategory = "CONSTRUCTION"
	CategoryManufacturing    BusinessCategory = "MANUFACTURING"
	CategoryFoodBeverage     BusinessCategory = "FOOD_BEVERAGE"
	CategoryHealthcare       BusinessCategory = "HEALTHCARE"
	CategoryITServices       BusinessCategory = "IT_SERVICES"
	CategoryLogistics        BusinessCategory = "LOGISTICS"
	CategoryConsulting       BusinessCategory = "CONSULTING"
	CategoryCleaningServices BusinessCategory = "CLEANING_SERVICES"
	CategorySecurityServices BusinessCategory = "SECURITY_SERVICES"
	CategoryGeneralSupplies  BusinessCategory = "GENERAL_SUPPLIES"
	CategoryOther            BusinessCategory = "OTHER"
)

// Supplier is the onboarding applicant. Rejected applications are retained
// for a configured window before purge; nothing is hard-deleted earlier.
type Supplier struct {
	ID          uuid.UUID
	CompanyName string
	Email       string
	Category    BusinessCategory
	Status      SupplierStatus
	Active      bool
	// ReviewedBy holds the admin who last acted on the application; a change
	// of this field alongside a status change attributes the transition to
	// that admin.
	ReviewedBy  *uuid.UUID
	SubmittedAt *time.Time
	ReviewedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
