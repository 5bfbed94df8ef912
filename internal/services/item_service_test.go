package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/findly-app/apiserver/internal/mq"
	"github.com/findly-app/apiserver/internal/storage"
	"github.com/findly-app/apiserver/types"
)

var (
	testOwner    = types.Actor{ID: 2, Role: types.RoleUser}
	testClaimer  = types.Actor{ID: 3, Role: types.RoleUser}
	testAdmin    = types.Actor{ID: 1, Role: types.RoleAdmin}
	testStranger = types.Actor{ID: 4, Role: types.RoleUser}
)

func newItemService(repo *fakeItemRepo, objects *fakeObjectStorage) *ItemService {
	return NewItemService(repo, storage.NewStorage(objects), NewEvents(nil))
}

func validInput() ItemInput {
	return ItemInput{
		Name:        "Blue backpack",
		Description: "Navy blue backpack with a broken zipper",
		Type:        types.ItemTypeLost,
		Location:    "Central Station",
		Date:        time.Now().AddDate(0, 0, -1),
	}
}

func TestItemCreate(t *testing.T) {
	repo := newFakeItemRepo()
	svc := newItemService(repo, newFakeObjectStorage())

	item, err := svc.Create(context.Background(), testOwner, validInput(), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.ID == 0 {
		t.Error("created item has no id")
	}
	if item.Status != types.ItemStatusActive {
		t.Errorf("status = %q, want active", item.Status)
	}
	if item.OwnerID != testOwner.ID {
		t.Errorf("owner = %d, want %d", item.OwnerID, testOwner.ID)
	}
}

func TestItemCreateValidation(t *testing.T) {
	svc := newItemService(newFakeItemRepo(), newFakeObjectStorage())

	tests := []struct {
		name   string
		mutate func(*ItemInput)
	}{
		{"missing name", func(in *ItemInput) { in.Name = "  " }},
		{"missing description", func(in *ItemInput) { in.Description = "" }},
		{"missing location", func(in *ItemInput) { in.Location = "" }},
		{"bad type", func(in *ItemInput) { in.Type = "stolen" }},
		{"zero date", func(in *ItemInput) { in.Date = time.Time{} }},
		{"future date", func(in *ItemInput) { in.Date = time.Now().AddDate(0, 0, 2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)
			_, err := svc.Create(context.Background(), testOwner, input, nil)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Create = %v, want ErrValidation", err)
			}
		})
	}
}

func TestItemCreateWithImage(t *testing.T) {
	repo := newFakeItemRepo()
	objects := newFakeObjectStorage()
	svc := newItemService(repo, objects)

	image := &ImageUpload{Filename: "photo.png", Data: []byte("png-bytes")}
	item, err := svc.Create(context.Background(), testOwner, validInput(), image)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.ImageKey == "" {
		t.Fatal("created item has no image key")
	}
	if _, ok := objects.objects[item.ImageKey]; !ok {
		t.Errorf("object %q not stored", item.ImageKey)
	}
}

func TestItemCreateRejectsBadImage(t *testing.T) {
	svc := newItemService(newFakeItemRepo(), newFakeObjectStorage())

	tests := []struct {
		name  string
		image ImageUpload
	}{
		{"bad extension", ImageUpload{Filename: "malware.exe", Data: []byte("x")}},
		{"empty file", ImageUpload{Filename: "photo.jpg", Data: nil}},
		{"oversized", ImageUpload{Filename: "photo.jpg", Data: make([]byte, MaxImageBytes+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), testOwner, validInput(), &tt.image)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Create = %v, want ErrValidation", err)
			}
		})
	}
}

func TestItemCreateCleansUpImageOnFailure(t *testing.T) {
	repo := newFakeItemRepo()
	repo.failCreate = true
	objects := newFakeObjectStorage()
	svc := newItemService(repo, objects)

	image := &ImageUpload{Filename: "photo.jpg", Data: []byte("jpeg-bytes")}
	_, err := svc.Create(context.Background(), testOwner, validInput(), image)
	if err == nil {
		t.Fatal("Create succeeded, want error")
	}
	if len(objects.objects) != 0 {
		t.Errorf("orphaned objects left behind: %d", len(objects.objects))
	}
}

func TestItemUpdate(t *testing.T) {
	repo := newFakeItemRepo()
	svc := newItemService(repo, newFakeObjectStorage())
	item := repo.add(types.Item{
		Name:        "Umbrella",
		Description: "Black umbrella",
		Type:        types.ItemTypeLost,
		Location:    "Library",
		Date:        time.Now().AddDate(0, 0, -3),
		Status:      types.ItemStatusActive,
		OwnerID:     testOwner.ID,
	})

	name := "Large umbrella"
	status := types.ItemStatusReturned
	updated, err := svc.Update(context.Background(), testOwner, item.ID, types.ItemPatch{Name: &name, Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != name {
		t.Errorf("name = %q, want %q", updated.Name, name)
	}
	if updated.Status != status {
		t.Errorf("status = %q, want %q", updated.Status, status)
	}
	if updated.Description != item.Description {
		t.Errorf("description changed: %q", updated.Description)
	}
	if updated.OwnerID != testOwner.ID {
		t.Errorf("owner changed: %d", updated.OwnerID)
	}
}

func TestItemUpdateForbiddenForStranger(t *testing.T) {
	repo := newFakeItemRepo()
	svc := newItemService(repo, newFakeObjectStorage())
	item := repo.add(types.Item{Name: "Wallet", OwnerID: testOwner.ID, Status: types.ItemStatusActive})

	name := "Leather wallet"
	_, err := svc.Update(context.Background(), testStranger, item.ID, types.ItemPatch{Name: &name})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("Update = %v, want ErrForbidden", err)
	}

	if _, err := svc.Update(context.Background(), testAdmin, item.ID, types.ItemPatch{Name: &name}); err != nil {
		t.Errorf("admin Update = %v, want nil", err)
	}
}

func TestItemDeleteRemovesImage(t *testing.T) {
	repo := newFakeItemRepo()
	objects := newFakeObjectStorage()
	objects.objects["items/key.jpg"] = []byte("jpeg-bytes")
	svc := newItemService(repo, objects)
	item := repo.add(types.Item{Name: "Keys", OwnerID: testOwner.ID, ImageKey: "items/key.jpg"})

	if err := svc.Delete(context.Background(), testOwner, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := objects.objects["items/key.jpg"]; ok {
		t.Error("image not removed with item")
	}
	if _, err := repo.Get(context.Background(), item.ID); err == nil {
		t.Error("item still present after delete")
	}
}

func TestItemReplaceImageSwapsObjects(t *testing.T) {
	repo := newFakeItemRepo()
	objects := newFakeObjectStorage()
	objects.objects["items/old.jpg"] = []byte("old")
	svc := newItemService(repo, objects)
	item := repo.add(types.Item{Name: "Phone", OwnerID: testOwner.ID, ImageKey: "items/old.jpg"})

	updated, err := svc.ReplaceImage(context.Background(), testOwner, item.ID, ImageUpload{Filename: "new.png", Data: []byte("new")})
	if err != nil {
		t.Fatalf("ReplaceImage: %v", err)
	}
	if updated.ImageKey == "items/old.jpg" || updated.ImageKey == "" {
		t.Errorf("image key not replaced: %q", updated.ImageKey)
	}
	if _, ok := objects.objects["items/old.jpg"]; ok {
		t.Error("old image not removed")
	}
	if _, ok := objects.objects[updated.ImageKey]; !ok {
		t.Error("new image not stored")
	}
}

func TestItemGetImage(t *testing.T) {
	repo := newFakeItemRepo()
	objects := newFakeObjectStorage()
	objects.objects["items/photo.png"] = []byte("png-bytes")
	svc := newItemService(repo, objects)
	withImage := repo.add(types.Item{Name: "Camera", OwnerID: testOwner.ID, ImageKey: "items/photo.png"})
	withoutImage := repo.add(types.Item{Name: "Charger", OwnerID: testOwner.ID})

	reader, contentType, err := svc.GetImage(context.Background(), withImage.ID)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	reader.Close()
	if contentType != "image/png" {
		t.Errorf("content type = %q, want image/png", contentType)
	}

	if _, _, err := svc.GetImage(context.Background(), withoutImage.ID); err == nil {
		t.Error("GetImage succeeded for item without image")
	}
}

func TestItemFindSimilar(t *testing.T) {
	repo := newFakeItemRepo()
	broker := &fakeBroker{}
	svc := NewItemService(repo, storage.NewStorage(newFakeObjectStorage()), NewEvents(mq.New(broker)))

	lost := repo.add(types.Item{
		Name:        "blue backpack",
		Description: "navy backpack with zipper",
		Type:        types.ItemTypeLost,
		Status:      types.ItemStatusActive,
		OwnerID:     testOwner.ID,
	})
	match := repo.add(types.Item{
		Name:        "blue backpack",
		Description: "navy backpack with zipper",
		Type:        types.ItemTypeFound,
		Status:      types.ItemStatusActive,
		OwnerID:     testClaimer.ID,
	})
	repo.add(types.Item{
		Name:        "red bicycle",
		Description: "city bike",
		Type:        types.ItemTypeFound,
		Status:      types.ItemStatusActive,
		OwnerID:     testClaimer.ID,
	})
	repo.add(types.Item{
		Name:        "blue backpack",
		Description: "navy backpack with zipper",
		Type:        types.ItemTypeLost,
		Status:      types.ItemStatusActive,
		OwnerID:     testStranger.ID,
	})

	matches, err := svc.FindSimilar(context.Background(), lost.ID, 0.5)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Item.ID != match.ID {
		t.Errorf("matched item = %d, want %d", matches[0].Item.ID, match.ID)
	}
	if matches[0].Score != 1 {
		t.Errorf("score = %v, want 1", matches[0].Score)
	}
	if got := broker.types(); len(got) != 1 || got[0] != EventItemMatched {
		t.Errorf("published events = %v, want one %q", got, EventItemMatched)
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "blue backpack", "blue backpack", 1},
		{"disjoint", "red bike", "blue backpack", 0},
		{"partial", "blue leather wallet", "blue wallet", 2.0 / 3.0},
		{"both empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jaccard(wordSet(tt.a), wordSet(tt.b))
			if got != tt.want {
				t.Errorf("jaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 25},
		{-3, 25},
		{10, 10},
		{100, 100},
		{500, 100},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
