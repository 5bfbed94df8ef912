package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/findly-app/apiserver/internal/mq"
	"github.com/findly-app/apiserver/internal/store"
	"github.com/findly-app/apiserver/types"
)

// fakeItemRepo is an in-memory ItemRepository.
type fakeItemRepo struct {
	items  map[int]types.Item
	nextID int

	failCreate bool
	failUpdate bool
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: map[int]types.Item{}, nextID: 1}
}

func (f *fakeItemRepo) add(item types.Item) types.Item {
	if item.ID == 0 {
		item.ID = f.nextID
		f.nextID++
	} else if item.ID >= f.nextID {
		f.nextID = item.ID + 1
	}
	f.items[item.ID] = item
	return item
}

func (f *fakeItemRepo) Get(_ context.Context, id int) (types.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return types.Item{}, store.ErrNotFound
	}
	return item, nil
}

func (f *fakeItemRepo) Create(_ context.Context, item types.Item) (types.Item, error) {
	if f.failCreate {
		return types.Item{}, errors.New("create failed")
	}
	return f.add(item), nil
}

func (f *fakeItemRepo) Update(_ context.Context, item types.Item) (types.Item, error) {
	if f.failUpdate {
		return types.Item{}, errors.New("update failed")
	}
	if _, ok := f.items[item.ID]; !ok {
		return types.Item{}, store.ErrNotFound
	}
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeItemRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeItemRepo) List(_ context.Context, filter types.ItemFilter) ([]types.Item, error) {
	result := make([]types.Item, 0)
	for _, item := range f.items {
		if filter.Type != "" && item.Type != filter.Type {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.OwnerID != 0 && item.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Search != "" {
			haystack := strings.ToLower(item.Name + " " + item.Description)
			if !strings.Contains(haystack, strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []types.Item{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (f *fakeItemRepo) Stats(_ context.Context) (types.ItemStats, error) {
	return types.ItemStats{TotalItems: len(f.items)}, nil
}

// fakeClaimRepo is an in-memory ClaimRepository.
type fakeClaimRepo struct {
	claims map[int]types.Claim
	nextID int
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{claims: map[int]types.Claim{}, nextID: 1}
}

func (f *fakeClaimRepo) add(claim types.Claim) types.Claim {
	if claim.ID == 0 {
		claim.ID = f.nextID
		f.nextID++
	} else if claim.ID >= f.nextID {
		f.nextID = claim.ID + 1
	}
	f.claims[claim.ID] = claim
	return claim
}

func (f *fakeClaimRepo) Get(_ context.Context, id int) (types.Claim, error) {
	claim, ok := f.claims[id]
	if !ok {
		return types.Claim{}, store.ErrNotFound
	}
	return claim, nil
}

func (f *fakeClaimRepo) Create(_ context.Context, claim types.Claim) (types.Claim, error) {
	for _, existing := range f.claims {
		if existing.ItemID == claim.ItemID && existing.ClaimerID == claim.ClaimerID {
			return types.Claim{}, store.ErrConflict
		}
	}
	return f.add(claim), nil
}

func (f *fakeClaimRepo) UpdateStatus(_ context.Context, id int, status types.ClaimStatus, adminNotes string) (types.Claim, error) {
	claim, ok := f.claims[id]
	if !ok {
		return types.Claim{}, store.ErrNotFound
	}
	claim.Status = status
	claim.AdminNotes = adminNotes
	f.claims[id] = claim
	return claim, nil
}

func (f *fakeClaimRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.claims[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.claims, id)
	return nil
}

func (f *fakeClaimRepo) ListForItem(_ context.Context, itemID int) ([]types.Claim, error) {
	result := make([]types.Claim, 0)
	for _, claim := range f.claims {
		if claim.ItemID == itemID {
			result = append(result, claim)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeClaimRepo) ListByClaimer(_ context.Context, claimerID int) ([]types.Claim, error) {
	result := make([]types.Claim, 0)
	for _, claim := range f.claims {
		if claim.ClaimerID == claimerID {
			result = append(result, claim)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeClaimRepo) List(_ context.Context, filter types.ClaimFilter) ([]types.Claim, error) {
	result := make([]types.Claim, 0)
	for _, claim := range f.claims {
		if filter.Status != "" && claim.Status != filter.Status {
			continue
		}
		if filter.ClaimerID != 0 && claim.ClaimerID != filter.ClaimerID {
			continue
		}
		result = append(result, claim)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []types.Claim{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (f *fakeClaimRepo) Stats(_ context.Context) (types.ClaimStats, error) {
	return types.ClaimStats{TotalClaims: len(f.claims)}, nil
}

// fakeObjectStorage is an in-memory object store backend.
type fakeObjectStorage struct {
	objects map[string][]byte

	failPut bool
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: map[string][]byte{}}
}

func (f *fakeObjectStorage) EnsureBucket(_ context.Context) error { return nil }

func (f *fakeObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.failPut {
		return errors.New("put failed")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s missing", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStorage) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStorage) Bucket() string { return "test-bucket" }

// fakeBroker records published messages.
type fakeBroker struct {
	mu        sync.Mutex
	published []mq.Message
}

func (f *fakeBroker) Publish(_ context.Context, _ string, data []byte, attrs map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, mq.Message{Data: data, Attributes: attrs})
	return fmt.Sprintf("msg-%d", len(f.published)), nil
}

func (f *fakeBroker) Subscribe(_ context.Context, _ string, _ mq.Handler) error { return nil }

func (f *fakeBroker) Close() error { return nil }

func (f *fakeBroker) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]string, 0, len(f.published))
	for _, msg := range f.published {
		result = append(result, msg.Attributes["type"])
	}
	return result
}
