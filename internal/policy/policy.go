// Package policy holds the authorization decision functions for items
// and claims. Every lifecycle operation consults these functions
// instead of repeating role checks inline, so the rules cannot drift
// between endpoints. The functions are pure: they take the actor and
// the already-loaded resource attributes and touch no storage.
//
// Item reads are public and need no decision function. The self-scoped
// claim listing (every authenticated user may list claims they authored
// plus claims against their items) is a retrieval mode, not a policy
// decision, and lives in the claim service.
package policy

import "github.com/findly-app/apiserver/types"

// CanModifyItem reports whether the actor may mutate the item.
// Admins always may; otherwise only the owner.
func CanModifyItem(actor types.Actor, item types.Item) bool {
	return actor.IsAdmin() || actor.ID == item.OwnerID
}

// CanDeleteItem reports whether the actor may delete the item.
// Same rule as modification.
func CanDeleteItem(actor types.Actor, item types.Item) bool {
	return CanModifyItem(actor, item)
}

// CanViewClaim reports whether the actor may read a single claim:
// admins, the claimer, or the owner of the referenced item.
func CanViewClaim(actor types.Actor, claim types.Claim, itemOwnerID int) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.ID == claim.ClaimerID || actor.ID == itemOwnerID
}

// CanViewItemClaims reports whether the actor may list every claim
// against an item: admins or the item owner only. A claimer is denied
// even if the set includes claims they authored.
func CanViewItemClaims(actor types.Actor, itemOwnerID int) bool {
	return actor.IsAdmin() || actor.ID == itemOwnerID
}

// CanUpdateClaimStatus reports whether the actor may decide a claim.
// Admins and the item owner may, but never the claimer themselves.
// The claimer guard is kept standalone even though the no-self-claim
// invariant currently makes an owner-claimer impossible.
func CanUpdateClaimStatus(actor types.Actor, claim types.Claim, itemOwnerID int) bool {
	if actor.ID == claim.ClaimerID {
		return false
	}
	return actor.IsAdmin() || actor.ID == itemOwnerID
}

// CanDeleteClaim reports whether the actor may delete a claim:
// admins, the claimer, or the item owner.
func CanDeleteClaim(actor types.Actor, claim types.Claim, itemOwnerID int) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.ID == claim.ClaimerID || actor.ID == itemOwnerID
}
