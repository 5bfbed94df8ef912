package types

import "time"

// ClaimStatus is the lifecycle state of a claim.
//
// The state machine is:
//
//	pending -> approved -> completed
//	pending -> rejected
//
// rejected and completed are terminal.
type ClaimStatus string

// Supported claim statuses.
const (
	// ClaimStatusPending is the initial state of every claim.
	ClaimStatusPending ClaimStatus = "pending"

	// ClaimStatusApproved means the item owner or an admin accepted the claim.
	ClaimStatusApproved ClaimStatus = "approved"

	// ClaimStatusRejected means the item owner or an admin declined the claim.
	ClaimStatusRejected ClaimStatus = "rejected"

	// ClaimStatusCompleted means the handover following an approval finished.
	ClaimStatusCompleted ClaimStatus = "completed"
)

// Valid reports whether the status is one of the supported values.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected, ClaimStatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed by
// the claim state machine. It is the single source of truth for the
// transition table; status updates are validated against it.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	switch s {
	case ClaimStatusPending:
		return next == ClaimStatusApproved || next == ClaimStatusRejected
	case ClaimStatusApproved:
		return next == ClaimStatusCompleted
	}
	return false
}

// Claim represents a user's assertion of ownership or discovery
// against an item reported by someone else.
type Claim struct {
	// ID is the unique identifier of the claim.
	ID int `json:"id" db:"id"`

	// ItemID identifies the item this claim targets.
	ItemID int `json:"item_id" db:"item_id"`

	// ClaimerID identifies the user who authored the claim.
	// Never equal to the item's owner.
	ClaimerID int `json:"claimer_id" db:"claimer_id"`

	// Message is the claimer's free-text justification.
	Message string `json:"message" db:"message"`

	// Status is the lifecycle state of the claim.
	Status ClaimStatus `json:"status" db:"status"`

	// AdminNotes carries optional notes recorded with a status decision.
	AdminNotes string `json:"admin_notes,omitempty" db:"admin_notes"`

	// CreatedAt is the timestamp when the claim was filed.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent status change.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ClaimFilter is the conjunctive filter applied when listing claims in
// the admin retrieval mode. Zero values mean "no constraint".
type ClaimFilter struct {
	// Status restricts results to a lifecycle state.
	Status ClaimStatus

	// ItemType restricts results to claims against lost or found items,
	// resolved through a join on the items table.
	ItemType ItemType

	// ClaimerID restricts results to claims authored by one user.
	ClaimerID int

	// Limit and Offset paginate the creation-time-descending ordering.
	Limit  int
	Offset int
}

// ClaimStats aggregates claim counts for the statistics endpoint.
type ClaimStats struct {
	TotalClaims     int `json:"total_claims"`
	PendingClaims   int `json:"pending_claims"`
	ApprovedClaims  int `json:"approved_claims"`
	RejectedClaims  int `json:"rejected_claims"`
	CompletedClaims int `json:"completed_claims"`

	// ClaimsThisMonth counts claims created within the trailing
	// 30-day window.
	ClaimsThisMonth int `json:"claims_this_month"`

	// AverageResponseTimeHours is null: the dimension is not tracked.
	AverageResponseTimeHours *float64 `json:"average_response_time_hours"`
}
