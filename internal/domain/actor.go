package domain

import "github.com/google/uuid"

// ActorType classifies who caused a state transition.
type ActorType string

const (
	ActorSystem ActorType = "system"
	ActorAdmin  ActorType = "admin"
	ActorVendor ActorType = "vendor"
)

// Actor identifies the party behind a transition for audit attribution.
type Actor struct {
	Type ActorType
	ID   *uuid.UUID
	Name string
}

// SystemActor is the fallback attribution for transitions nobody claimed.
func SystemActor() Actor {
	return Actor{Type: ActorSystem, Name: "system"}
}

// ClassifySupplierActor attributes a supplier status transition.
//
// An admin identity that newly accompanies the change wins; the one
// self-service transition a vendor can make is submitting an INCOMPLETE
// application; everything else is the system's doing.
func ClassifySupplierActor(old, new SupplierStatus, prevReviewedBy, reviewedBy *uuid.UUID, adminName string) Actor {
	if reviewedBy != nil && !sameID(prevReviewedBy, reviewedBy) {
		return Actor{Type: ActorAdmin, ID: reviewedBy, Name: adminName}
	}
	if old == StatusIncomplete && new == StatusSubmitted {
		return Actor{Type: ActorVendor, Name: "supplier"}
	}
	return SystemActor()
}

// ClassifyDocumentActor attributes a document verification transition using
// the same pattern keyed on the verifying admin. A reset back to PENDING with
// no admin attached is the vendor re-uploading.
func ClassifyDocumentActor(old, new VerificationStatus, prevVerifiedBy, verifiedBy *uuid.UUID, adminName string) Actor {
	if verifiedBy != nil && !sameID(prevVerifiedBy, verifiedBy) {
		return Actor{Type: ActorAdmin, ID: verifiedBy, Name: adminName}
	}
	if new == VerificationPending {
		return Actor{Type: ActorVendor, Name: "supplier"}
	}
	return SystemActor()
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
