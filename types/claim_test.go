package types

import "testing"

func TestClaimStatusCanTransitionTo(t *testing.T) {
	all := []ClaimStatus{ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected, ClaimStatusCompleted}

	allowed := map[ClaimStatus]map[ClaimStatus]bool{
		ClaimStatusPending: {
			ClaimStatusApproved: true,
			ClaimStatusRejected: true,
		},
		ClaimStatusApproved: {
			ClaimStatusCompleted: true,
		},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("CanTransitionTo(%q -> %q) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestClaimStatusValid(t *testing.T) {
	for _, status := range []ClaimStatus{ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected, ClaimStatusCompleted} {
		if !status.Valid() {
			t.Errorf("Valid(%q) = false, want true", status)
		}
	}
	for _, status := range []ClaimStatus{"", "open", "PENDING"} {
		if status.Valid() {
			t.Errorf("Valid(%q) = true, want false", status)
		}
	}
}
