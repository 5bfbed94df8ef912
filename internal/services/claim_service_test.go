package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/findly-app/apiserver/internal/mq"
	"github.com/findly-app/apiserver/internal/store"
	"github.com/findly-app/apiserver/types"
)

type claimFixture struct {
	items  *fakeItemRepo
	claims *fakeClaimRepo
	broker *fakeBroker
	svc    *ClaimService
	item   types.Item
}

func newClaimFixture() *claimFixture {
	items := newFakeItemRepo()
	claims := newFakeClaimRepo()
	broker := &fakeBroker{}
	item := items.add(types.Item{
		Name:        "Gold ring",
		Description: "Plain gold ring",
		Type:        types.ItemTypeFound,
		Status:      types.ItemStatusActive,
		OwnerID:     testOwner.ID,
	})
	return &claimFixture{
		items:  items,
		claims: claims,
		broker: broker,
		svc:    NewClaimService(claims, items, NewEvents(mq.New(broker))),
		item:   item,
	}
}

func TestClaimCreate(t *testing.T) {
	f := newClaimFixture()

	claim, err := f.svc.Create(context.Background(), testClaimer, f.item.ID, "That ring is mine, it has my initials")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if claim.Status != types.ClaimStatusPending {
		t.Errorf("status = %q, want pending", claim.Status)
	}
	if claim.ClaimerID != testClaimer.ID {
		t.Errorf("claimer = %d, want %d", claim.ClaimerID, testClaimer.ID)
	}

	events := f.broker.types()
	if len(events) != 1 || events[0] != EventClaimCreated {
		t.Errorf("published events = %v, want one %q", events, EventClaimCreated)
	}
	var event Event
	if err := json.Unmarshal(f.broker.published[0].Data, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.UserID != testOwner.ID {
		t.Errorf("event addressed to %d, want item owner %d", event.UserID, testOwner.ID)
	}
}

func TestClaimCreateRejections(t *testing.T) {
	f := newClaimFixture()
	inactive := f.items.add(types.Item{
		Name:    "Scarf",
		Type:    types.ItemTypeFound,
		Status:  types.ItemStatusClaimed,
		OwnerID: testOwner.ID,
	})

	tests := []struct {
		name    string
		actor   types.Actor
		itemID  int
		message string
		want    error
	}{
		{"empty message", testClaimer, f.item.ID, "   ", ErrValidation},
		{"missing item", testClaimer, 999, "mine", store.ErrNotFound},
		{"inactive item", testClaimer, inactive.ID, "mine", ErrInvalidState},
		{"own item", testOwner, f.item.ID, "mine", ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.actor, tt.itemID, tt.message)
			if !errors.Is(err, tt.want) {
				t.Errorf("Create = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClaimCreateDuplicate(t *testing.T) {
	f := newClaimFixture()

	if _, err := f.svc.Create(context.Background(), testClaimer, f.item.ID, "mine"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := f.svc.Create(context.Background(), testClaimer, f.item.ID, "mine again")
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("duplicate Create = %v, want ErrConflict", err)
	}
}

func TestClaimUpdateStatus(t *testing.T) {
	f := newClaimFixture()
	claim := f.claims.add(types.Claim{
		ItemID:    f.item.ID,
		ClaimerID: testClaimer.ID,
		Message:   "mine",
		Status:    types.ClaimStatusPending,
	})

	updated, err := f.svc.UpdateStatus(context.Background(), testOwner, claim.ID, types.ClaimStatusApproved, "verified initials")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != types.ClaimStatusApproved {
		t.Errorf("status = %q, want approved", updated.Status)
	}
	if updated.AdminNotes != "verified initials" {
		t.Errorf("admin notes = %q", updated.AdminNotes)
	}

	events := f.broker.types()
	if len(events) != 1 || events[0] != EventClaimStatusChanged {
		t.Errorf("published events = %v, want one %q", events, EventClaimStatusChanged)
	}
	var event Event
	if err := json.Unmarshal(f.broker.published[0].Data, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.UserID != testClaimer.ID {
		t.Errorf("event addressed to %d, want claimer %d", event.UserID, testClaimer.ID)
	}

	completed, err := f.svc.UpdateStatus(context.Background(), testOwner, claim.ID, types.ClaimStatusCompleted, "")
	if err != nil {
		t.Fatalf("UpdateStatus to completed: %v", err)
	}
	if completed.Status != types.ClaimStatusCompleted {
		t.Errorf("status = %q, want completed", completed.Status)
	}
}

func TestClaimUpdateStatusRejections(t *testing.T) {
	f := newClaimFixture()
	pending := f.claims.add(types.Claim{ItemID: f.item.ID, ClaimerID: testClaimer.ID, Status: types.ClaimStatusPending})
	rejected := f.claims.add(types.Claim{ItemID: f.item.ID, ClaimerID: testStranger.ID, Status: types.ClaimStatusRejected})

	tests := []struct {
		name    string
		actor   types.Actor
		claimID int
		status  types.ClaimStatus
		want    error
	}{
		{"invalid status", testOwner, pending.ID, "bogus", ErrValidation},
		{"claimer decides own claim", testClaimer, pending.ID, types.ClaimStatusApproved, ErrForbidden},
		{"stranger decides", types.Actor{ID: 9, Role: types.RoleUser}, pending.ID, types.ClaimStatusApproved, ErrForbidden},
		{"skip approval", testOwner, pending.ID, types.ClaimStatusCompleted, ErrInvalidState},
		{"revive rejected", testOwner, rejected.ID, types.ClaimStatusApproved, ErrInvalidState},
		{"missing claim", testOwner, 999, types.ClaimStatusApproved, store.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateStatus(context.Background(), tt.actor, tt.claimID, tt.status, "")
			if !errors.Is(err, tt.want) {
				t.Errorf("UpdateStatus = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClaimGetVisibility(t *testing.T) {
	f := newClaimFixture()
	claim := f.claims.add(types.Claim{ItemID: f.item.ID, ClaimerID: testClaimer.ID, Status: types.ClaimStatusPending})

	for _, actor := range []types.Actor{testAdmin, testOwner, testClaimer} {
		if _, err := f.svc.Get(context.Background(), actor, claim.ID); err != nil {
			t.Errorf("Get as %d = %v, want nil", actor.ID, err)
		}
	}
	if _, err := f.svc.Get(context.Background(), testStranger, claim.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Get as stranger = %v, want ErrForbidden", err)
	}
}

func TestClaimListForItem(t *testing.T) {
	f := newClaimFixture()
	f.claims.add(types.Claim{ItemID: f.item.ID, ClaimerID: testClaimer.ID, Status: types.ClaimStatusPending})
	f.claims.add(types.Claim{ItemID: f.item.ID, ClaimerID: testStranger.ID, Status: types.ClaimStatusPending})

	claims, err := f.svc.ListForItem(context.Background(), testOwner, f.item.ID)
	if err != nil {
		t.Fatalf("ListForItem: %v", err)
	}
	if len(claims) != 2 {
		t.Errorf("claims = %d, want 2", len(claims))
	}

	// Claimers see their claim through Get, not through the item view.
	if _, err := f.svc.ListForItem(context.Background(), testClaimer, f.item.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("ListForItem as claimer = %v, want ErrForbidden", err)
	}
}

func TestClaimListSelfScoped(t *testing.T) {
	f := newClaimFixture()
	otherItem := f.items.add(types.Item{
		Name:    "Glasses",
		Type:    types.ItemTypeLost,
		Status:  types.ItemStatusActive,
		OwnerID: testStranger.ID,
	})

	authored := f.claims.add(types.Claim{ItemID: otherItem.ID, ClaimerID: testOwner.ID, Status: types.ClaimStatusPending})
	received := f.claims.add(types.Claim{ItemID: f.item.ID, ClaimerID: testClaimer.ID, Status: types.ClaimStatusApproved})
	unrelated := f.claims.add(types.Claim{ItemID: otherItem.ID, ClaimerID: testClaimer.ID, Status: types.ClaimStatusPending})

	claims, err := f.svc.List(context.Background(), testOwner, ClaimListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ids := make(map[int]bool, len(claims))
	for _, claim := range claims {
		ids[claim.ID] = true
	}
	if len(claims) != 2 || !ids[authored.ID] || !ids[received.ID] {
		t.Errorf("claims = %v, want authored %d and received %d", ids, authored.ID, received.ID)
	}
	if ids[unrelated.ID] {
		t.Errorf("unrelated claim %d leaked into listing", unrelated.ID)
	}

	approvedOnly, err := f.svc.List(context.Background(), testOwner, ClaimListFilter{Status: types.ClaimStatusApproved})
	if err != nil {
		t.Fatalf("List with status: %v", err)
	}
	if len(approvedOnly) != 1 || approvedOnly[0].ID != received.ID {
		t.Errorf("approved claims = %v, want only %d", approvedOnly, received.ID)
	}

	paged, err := f.svc.List(context.Background(), testOwner, ClaimListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("List paged: %v", err)
	}
	if len(paged) != 1 {
		t.Errorf("paged claims = %d, want 1", len(paged))
	}

	beyond, err := f.svc.List(context.Background(), testOwner, ClaimListFilter{Offset: 50})
	if err != nil {
		t.Fatalf("List beyond: %v", err)
	}
	if len(beyond) != 0 {
		t.Errorf("claims beyond range = %d, want 0", len(beyond))
	}
}

func TestClaimListAdmin(t *testing.T) {
	f := newClaimFixture()
	f.claims.add(types.Claim{ItemID: f.item.ID, ClaimerID: testClaimer.ID, Status: types.ClaimStatusPending})
	f.claims.add(types.Claim{ItemID: f.item.ID, ClaimerID: testStranger.ID, Status: types.ClaimStatusApproved})
	mine := f.claims.add(types.Claim{ItemID: f.item.ID, ClaimerID: testAdmin.ID, Status: types.ClaimStatusPending})

	all, err := f.svc.List(context.Background(), testAdmin, ClaimListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("claims = %d, want 3", len(all))
	}

	own, err := f.svc.List(context.Background(), testAdmin, ClaimListFilter{MyClaims: true})
	if err != nil {
		t.Fatalf("List my_claims: %v", err)
	}
	if len(own) != 1 || own[0].ID != mine.ID {
		t.Errorf("my claims = %v, want only %d", own, mine.ID)
	}
}

func TestClaimDelete(t *testing.T) {
	f := newClaimFixture()
	claim := f.claims.add(types.Claim{ItemID: f.item.ID, ClaimerID: testClaimer.ID, Status: types.ClaimStatusPending})

	if err := f.svc.Delete(context.Background(), testStranger, claim.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete as stranger = %v, want ErrForbidden", err)
	}
	if err := f.svc.Delete(context.Background(), testClaimer, claim.ID); err != nil {
		t.Fatalf("Delete as claimer: %v", err)
	}
	if _, err := f.claims.Get(context.Background(), claim.ID); !errors.Is(err, store.ErrNotFound) {
		t.Error("claim still present after delete")
	}
}
