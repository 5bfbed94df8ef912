package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/findly-app/apiserver/internal/policy"
	"github.com/findly-app/apiserver/internal/store"
	"github.com/findly-app/apiserver/types"
)

const maxClaimMessageLen = 500

// ClaimRepository defines persistence operations for claims.
type ClaimRepository interface {
	Get(ctx context.Context, id int) (types.Claim, error)
	Create(ctx context.Context, claim types.Claim) (types.Claim, error)
	UpdateStatus(ctx context.Context, id int, status types.ClaimStatus, adminNotes string) (types.Claim, error)
	Delete(ctx context.Context, id int) error
	ListForItem(ctx context.Context, itemID int) ([]types.Claim, error)
	ListByClaimer(ctx context.Context, claimerID int) ([]types.Claim, error)
	List(ctx context.Context, filter types.ClaimFilter) ([]types.Claim, error)
	Stats(ctx context.Context) (types.ClaimStats, error)
}

// ClaimListFilter carries the query parameters of the claim listing
// endpoint. Admins filter at the store; everyone else gets the
// self-scoped union.
type ClaimListFilter struct {
	Status   types.ClaimStatus
	ItemType types.ItemType
	MyClaims bool
	Limit    int
	Offset   int
}

// ClaimService encapsulates claim lifecycle use-cases.
type ClaimService struct {
	repo   ClaimRepository
	items  ItemRepository
	events *Events
}

func NewClaimService(repo ClaimRepository, items ItemRepository, events *Events) *ClaimService {
	return &ClaimService{
		repo:   repo,
		items:  items,
		events: events,
	}
}

// Create files a pending claim by the actor against the item. The item
// must exist and be active, the actor must not own it, and the actor
// must not already have a claim against it. The duplicate check is
// additionally backed by a uniqueness constraint at the storage layer,
// so concurrent duplicates surface as a conflict rather than racing
// past the check.
func (s *ClaimService) Create(ctx context.Context, actor types.Actor, itemID int, message string) (types.Claim, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return types.Claim{}, fmt.Errorf("message is required: %w", ErrValidation)
	}
	if len(message) > maxClaimMessageLen {
		return types.Claim{}, fmt.Errorf("message exceeds %d characters: %w", maxClaimMessageLen, ErrValidation)
	}

	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return types.Claim{}, err
	}
	if item.Status != types.ItemStatusActive {
		return types.Claim{}, fmt.Errorf("cannot claim inactive items: %w", ErrInvalidState)
	}
	if item.OwnerID == actor.ID {
		return types.Claim{}, fmt.Errorf("cannot claim your own item: %w", ErrForbidden)
	}

	existing, err := s.repo.ListForItem(ctx, itemID)
	if err != nil {
		return types.Claim{}, err
	}
	for _, claim := range existing {
		if claim.ClaimerID == actor.ID {
			return types.Claim{}, fmt.Errorf("you have already claimed this item: %w", store.ErrConflict)
		}
	}

	created, err := s.repo.Create(ctx, types.Claim{
		ItemID:    itemID,
		ClaimerID: actor.ID,
		Message:   message,
		Status:    types.ClaimStatusPending,
	})
	if err != nil {
		return types.Claim{}, err
	}

	s.events.Publish(ctx, Event{
		Type:    EventClaimCreated,
		UserID:  item.OwnerID,
		ItemID:  item.ID,
		ClaimID: created.ID,
	})
	return created, nil
}

// List returns claims visible to the actor. Admins filter and paginate
// at the store. Everyone else receives the union of claims they
// authored and claims against their items, deduplicated by claim id,
// with the status filter and pagination applied to the combined set.
// Page boundaries are therefore not comparable between the two modes.
func (s *ClaimService) List(ctx context.Context, actor types.Actor, filter ClaimListFilter) ([]types.Claim, error) {
	limit := clampLimit(filter.Limit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	if actor.IsAdmin() {
		storeFilter := types.ClaimFilter{
			Status:   filter.Status,
			ItemType: filter.ItemType,
			Limit:    limit,
			Offset:   offset,
		}
		if filter.MyClaims {
			storeFilter.ClaimerID = actor.ID
		}
		return s.repo.List(ctx, storeFilter)
	}

	authored, err := s.repo.ListByClaimer(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	ownedItems, err := s.items.List(ctx, types.ItemFilter{OwnerID: actor.ID})
	if err != nil {
		return nil, err
	}

	combined := make([]types.Claim, 0, len(authored))
	seen := make(map[int]bool, len(authored))
	for _, claim := range authored {
		combined = append(combined, claim)
		seen[claim.ID] = true
	}
	for _, item := range ownedItems {
		itemClaims, err := s.repo.ListForItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		for _, claim := range itemClaims {
			if !seen[claim.ID] {
				combined = append(combined, claim)
				seen[claim.ID] = true
			}
		}
	}

	if filter.Status != "" {
		filtered := combined[:0]
		for _, claim := range combined {
			if claim.Status == filter.Status {
				filtered = append(filtered, claim)
			}
		}
		combined = filtered
	}

	if offset >= len(combined) {
		return []types.Claim{}, nil
	}
	combined = combined[offset:]
	if len(combined) > limit {
		combined = combined[:limit]
	}
	return combined, nil
}

// Get returns a single claim if the actor is an admin, the claimer, or
// the owner of the referenced item.
func (s *ClaimService) Get(ctx context.Context, actor types.Actor, id int) (types.Claim, error) {
	claim, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Claim{}, err
	}

	ownerID, err := s.itemOwner(ctx, claim.ItemID)
	if err != nil {
		return types.Claim{}, err
	}
	if !policy.CanViewClaim(actor, claim, ownerID) {
		return types.Claim{}, fmt.Errorf("not authorized to view this claim: %w", ErrForbidden)
	}
	return claim, nil
}

// ListForItem returns every claim against the item for its owner or an
// admin. Plain claimers are denied even when the set includes their
// own claims.
func (s *ClaimService) ListForItem(ctx context.Context, actor types.Actor, itemID int) ([]types.Claim, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewItemClaims(actor, item.OwnerID) {
		return nil, fmt.Errorf("not authorized to view claims for this item: %w", ErrForbidden)
	}
	return s.repo.ListForItem(ctx, itemID)
}

// UpdateStatus records a decision on the claim. Only the item owner or
// an admin may decide, never the claimer, and the new status must be
// reachable from the current one in the claim state machine.
func (s *ClaimService) UpdateStatus(ctx context.Context, actor types.Actor, id int, status types.ClaimStatus, adminNotes string) (types.Claim, error) {
	if !status.Valid() {
		return types.Claim{}, fmt.Errorf("invalid claim status %q: %w", status, ErrValidation)
	}

	claim, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Claim{}, err
	}
	item, err := s.items.Get(ctx, claim.ItemID)
	if err != nil {
		return types.Claim{}, err
	}

	if !policy.CanUpdateClaimStatus(actor, claim, item.OwnerID) {
		return types.Claim{}, fmt.Errorf("not authorized to update this claim: %w", ErrForbidden)
	}
	if !claim.Status.CanTransitionTo(status) {
		return types.Claim{}, fmt.Errorf("cannot transition claim from %q to %q: %w", claim.Status, status, ErrInvalidState)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status, adminNotes)
	if err != nil {
		return types.Claim{}, err
	}

	s.events.Publish(ctx, Event{
		Type:    EventClaimStatusChanged,
		UserID:  updated.ClaimerID,
		ItemID:  updated.ItemID,
		ClaimID: updated.ID,
		Status:  updated.Status,
	})
	return updated, nil
}

// Delete removes a claim on behalf of an admin, the claimer, or the
// item owner.
func (s *ClaimService) Delete(ctx context.Context, actor types.Actor, id int) error {
	claim, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	ownerID, err := s.itemOwner(ctx, claim.ItemID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteClaim(actor, claim, ownerID) {
		return fmt.Errorf("not authorized to delete this claim: %w", ErrForbidden)
	}
	return s.repo.Delete(ctx, id)
}

// Stats computes the aggregate claim statistics.
func (s *ClaimService) Stats(ctx context.Context) (types.ClaimStats, error) {
	return s.repo.Stats(ctx)
}

// itemOwner resolves the owner of the claim's item. A missing item
// (only possible mid-delete) grants ownership rights to nobody.
func (s *ClaimService) itemOwner(ctx context.Context, itemID int) (int, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return item.OwnerID, nil
}
