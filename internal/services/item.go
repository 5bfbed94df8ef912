package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/findly-app/apiserver/internal/policy"
	"github.com/findly-app/apiserver/internal/storage"
	"github.com/findly-app/apiserver/internal/store"
	"github.com/findly-app/apiserver/types"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 25
	maxListLimit     = 100

	maxNameLen        = 100
	maxDescriptionLen = 500
	maxLocationLen    = 100

	// MaxImageBytes is the upload size cap for item images.
	MaxImageBytes = 5 << 20
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ItemRepository defines persistence operations for items.
type ItemRepository interface {
	Get(ctx context.Context, id int) (types.Item, error)
	Create(ctx context.Context, item types.Item) (types.Item, error)
	Update(ctx context.Context, item types.Item) (types.Item, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, filter types.ItemFilter) ([]types.Item, error)
	Stats(ctx context.Context) (types.ItemStats, error)
}

// ItemInput is the validated payload for creating an item.
type ItemInput struct {
	Name        string
	Description string
	Type        types.ItemType
	Location    string
	Date        time.Time
}

// ImageUpload is an image file received from the client.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// ItemService encapsulates item lifecycle use-cases.
type ItemService struct {
	repo    ItemRepository
	storage *storage.Storage
	events  *Events
}

func NewItemService(repo ItemRepository, imageStore *storage.Storage, events *Events) *ItemService {
	return &ItemService{
		repo:    repo,
		storage: imageStore,
		events:  events,
	}
}

// Create validates the input, stores the optional image, and persists
// the item owned by the actor. If record persistence fails after the
// image was stored, the stored object is removed again so no orphaned
// files remain.
func (s *ItemService) Create(ctx context.Context, actor types.Actor, input ItemInput, image *ImageUpload) (types.Item, error) {
	if err := validateItemInput(input); err != nil {
		return types.Item{}, err
	}

	item := types.Item{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Type:        input.Type,
		Location:    strings.TrimSpace(input.Location),
		Date:        input.Date,
		Status:      types.ItemStatusActive,
		OwnerID:     actor.ID,
	}

	if image != nil {
		key, err := s.storeImage(ctx, item.Type, actor.ID, *image)
		if err != nil {
			return types.Item{}, err
		}
		item.ImageKey = key
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		if item.ImageKey != "" {
			if cleanupErr := s.storage.Delete(ctx, item.ImageKey); cleanupErr != nil {
				slog.Warn("failed to remove orphaned image", "key", item.ImageKey, "error", cleanupErr)
			}
		}
		return types.Item{}, err
	}
	return created, nil
}

// List applies the conjunctive filter with clamped pagination.
func (s *ItemService) List(ctx context.Context, filter types.ItemFilter) ([]types.Item, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

func (s *ItemService) Get(ctx context.Context, id int) (types.Item, error) {
	return s.repo.Get(ctx, id)
}

// GetImage opens a reader for the item's stored image and returns its
// content type.
func (s *ItemService) GetImage(ctx context.Context, id int) (io.ReadCloser, string, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if item.ImageKey == "" {
		return nil, "", fmt.Errorf("item has no image: %w", store.ErrNotFound)
	}

	reader, err := s.storage.Get(ctx, item.ImageKey)
	if err != nil {
		return nil, "", err
	}
	return reader, storage.ContentTypeForKey(item.ImageKey), nil
}

// Update applies a partial patch to the item. Absent fields are left
// untouched; the owner cannot change because the patch carries no
// owner field.
func (s *ItemService) Update(ctx context.Context, actor types.Actor, id int, patch types.ItemPatch) (types.Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Item{}, err
	}
	if !policy.CanModifyItem(actor, item) {
		return types.Item{}, fmt.Errorf("not authorized to update this item: %w", ErrForbidden)
	}

	if err := applyItemPatch(&item, patch); err != nil {
		return types.Item{}, err
	}
	return s.repo.Update(ctx, item)
}

// ReplaceImage stores the new image, persists its key, and then
// removes the previous object. A failed deletion of the old object is
// logged and ignored; a failed record update removes the new object
// again and leaves the item unchanged.
func (s *ItemService) ReplaceImage(ctx context.Context, actor types.Actor, id int, image ImageUpload) (types.Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Item{}, err
	}
	if !policy.CanModifyItem(actor, item) {
		return types.Item{}, fmt.Errorf("not authorized to update this item: %w", ErrForbidden)
	}

	oldKey := item.ImageKey
	newKey, err := s.storeImage(ctx, item.Type, actor.ID, image)
	if err != nil {
		return types.Item{}, err
	}

	item.ImageKey = newKey
	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		if cleanupErr := s.storage.Delete(ctx, newKey); cleanupErr != nil {
			slog.Warn("failed to remove orphaned image", "key", newKey, "error", cleanupErr)
		}
		return types.Item{}, err
	}

	if oldKey != "" {
		if err := s.storage.Delete(ctx, oldKey); err != nil {
			slog.Warn("failed to delete replaced image", "key", oldKey, "error", err)
		}
	}
	return updated, nil
}

// Delete removes the item's image (best-effort) and then the record.
// Dependent claims are removed by the storage layer's cascade.
func (s *ItemService) Delete(ctx context.Context, actor types.Actor, id int) error {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteItem(actor, item) {
		return fmt.Errorf("not authorized to delete this item: %w", ErrForbidden)
	}

	if item.ImageKey != "" {
		if err := s.storage.Delete(ctx, item.ImageKey); err != nil {
			slog.Warn("failed to delete item image", "key", item.ImageKey, "error", err)
		}
	}
	return s.repo.Delete(ctx, id)
}

// Stats computes the aggregate item statistics.
func (s *ItemService) Stats(ctx context.Context) (types.ItemStats, error) {
	return s.repo.Stats(ctx)
}

// FindSimilar scores opposite-type items against the reference item by
// the Jaccard similarity of the lower-cased word sets of name and
// description, and returns the ones at or above threshold, best score
// first. A best-effort heuristic, not an exact matcher.
func (s *ItemService) FindSimilar(ctx context.Context, id int, threshold float64) ([]types.SimilarItem, error) {
	reference, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	candidates, err := s.repo.List(ctx, types.ItemFilter{Type: reference.Type.Opposite()})
	if err != nil {
		return nil, err
	}

	referenceWords := wordSet(reference.Name + " " + reference.Description)
	matches := make([]types.SimilarItem, 0)
	for _, candidate := range candidates {
		if candidate.ID == reference.ID {
			continue
		}
		score := jaccard(referenceWords, wordSet(candidate.Name+" "+candidate.Description))
		if score >= threshold {
			matches = append(matches, types.SimilarItem{Item: candidate, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	for _, match := range matches {
		s.events.Publish(ctx, Event{
			Type:          EventItemMatched,
			UserID:        reference.OwnerID,
			ItemID:        reference.ID,
			MatchedItemID: match.Item.ID,
		})
	}
	return matches, nil
}

func (s *ItemService) storeImage(ctx context.Context, itemType types.ItemType, ownerID int, image ImageUpload) (string, error) {
	ext := strings.ToLower(filepath.Ext(image.Filename))
	if !allowedImageExts[ext] {
		return "", fmt.Errorf("invalid image type %q: %w", ext, ErrValidation)
	}
	if len(image.Data) == 0 {
		return "", fmt.Errorf("empty image upload: %w", ErrValidation)
	}
	if len(image.Data) > MaxImageBytes {
		return "", fmt.Errorf("image too large (max 5MB): %w", ErrValidation)
	}

	key := fmt.Sprintf("items/%s_%d_%s%s", itemType, ownerID, uuid.NewString(), ext)
	contentType := storage.ContentTypeForKey(key)
	if err := s.storage.Put(ctx, key, bytes.NewReader(image.Data), int64(len(image.Data)), contentType); err != nil {
		return "", err
	}
	return key, nil
}

func validateItemInput(input ItemInput) error {
	if !input.Type.Valid() {
		return fmt.Errorf("invalid item_type %q, must be 'lost' or 'found': %w", input.Type, ErrValidation)
	}
	if err := validateTextField("name", input.Name, maxNameLen); err != nil {
		return err
	}
	if err := validateTextField("description", input.Description, maxDescriptionLen); err != nil {
		return err
	}
	if err := validateTextField("location", input.Location, maxLocationLen); err != nil {
		return err
	}
	return validateEventDate(input.Type, input.Date)
}

func validateTextField(name, value string, max int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s is required: %w", name, ErrValidation)
	}
	if len(value) > max {
		return fmt.Errorf("%s exceeds %d characters: %w", name, max, ErrValidation)
	}
	return nil
}

// validateEventDate rejects future dates. The found-specific message
// exists because a found report's date is the day of discovery, which
// cannot lie ahead, while a lost report's date is a best-guess.
func validateEventDate(itemType types.ItemType, date time.Time) error {
	if date.IsZero() {
		return fmt.Errorf("date is required: %w", ErrValidation)
	}
	if date.After(time.Now()) {
		if itemType == types.ItemTypeFound {
			return fmt.Errorf("found date cannot be in the future: %w", ErrValidation)
		}
		return fmt.Errorf("date cannot be in the future: %w", ErrValidation)
	}
	return nil
}

func applyItemPatch(item *types.Item, patch types.ItemPatch) error {
	if patch.Name != nil {
		if err := validateTextField("name", *patch.Name, maxNameLen); err != nil {
			return err
		}
		item.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		if err := validateTextField("description", *patch.Description, maxDescriptionLen); err != nil {
			return err
		}
		item.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return fmt.Errorf("invalid item_type %q: %w", *patch.Type, ErrValidation)
		}
		item.Type = *patch.Type
	}
	if patch.Location != nil {
		if err := validateTextField("location", *patch.Location, maxLocationLen); err != nil {
			return err
		}
		item.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.Date != nil {
		if err := validateEventDate(item.Type, *patch.Date); err != nil {
			return err
		}
		item.Date = *patch.Date
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return fmt.Errorf("invalid status %q: %w", *patch.Status, ErrValidation)
		}
		item.Status = *patch.Status
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func wordSet(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, word := range words {
		set[word] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for word := range a {
		if b[word] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
