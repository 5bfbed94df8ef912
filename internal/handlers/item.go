package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/findly-app/apiserver/internal/services"
	"github.com/findly-app/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ItemHandler exposes the item CRUD, image, stats, and matching
// endpoints.
type ItemHandler struct {
	itemService *services.ItemService
}

func NewItemHandler(itemService *services.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

// ItemRouter registers item routes. Reads are public (listing gains
// owner filtering when authenticated); writes require authentication.
func ItemRouter(r chi.Router, itemService *services.ItemService, jwtSecret string) {
	handler := NewItemHandler(itemService)
	auth := RequireAuth(jwtSecret)

	r.With(OptionalAuth(jwtSecret)).Get("/", handler.List)
	r.Get("/{itemID}", handler.Get)
	r.Get("/{itemID}/image", handler.GetImage)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/", handler.Create)
		r.Get("/stats", handler.Stats)
		r.Get("/{itemID}/similar", handler.FindSimilar)
		r.Put("/{itemID}", handler.Update)
		r.Put("/{itemID}/image", handler.ReplaceImage)
		r.Delete("/{itemID}", handler.Delete)
	})
}

// Create reports a new lost or found item. The request is multipart
// form data so an image can be attached in the same call.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	if err := r.ParseMultipartForm(services.MaxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(r.FormValue("date")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	input := services.ItemInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Type:        types.ItemType(strings.TrimSpace(r.FormValue("item_type"))),
		Location:    r.FormValue("location"),
		Date:        date,
	}

	image, err := formImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.itemService.Create(r.Context(), actor, input, image)
	if err != nil {
		writeServiceError(w, err, "item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// List returns items matching the query filters, newest event date
// first. owner_only restricts to the caller's reports and therefore
// needs authentication.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := types.ItemFilter{
		Location: strings.TrimSpace(query.Get("location")),
		Search:   strings.TrimSpace(query.Get("search")),
	}

	if raw := strings.TrimSpace(query.Get("item_type")); raw != "" {
		itemType := types.ItemType(raw)
		if !itemType.Valid() {
			writeError(w, http.StatusBadRequest, "invalid item_type, must be 'lost' or 'found'")
			return
		}
		filter.Type = itemType
	}

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := types.ItemStatus(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = status
	}

	dateFrom, err := parseDateQuery(r, "date_from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dateTo, err := parseDateQuery(r, "date_to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !dateFrom.IsZero() && !dateTo.IsZero() && dateTo.Before(dateFrom) {
		writeError(w, http.StatusBadRequest, "date_to is before date_from")
		return
	}
	filter.DateFrom = dateFrom
	filter.DateTo = dateTo

	if query.Get("owner_only") == "true" {
		actor := actorFromContext(r.Context())
		if actor.Anonymous() {
			writeError(w, http.StatusUnauthorized, "authentication required for owner_only")
			return
		}
		filter.OwnerID = actor.ID
	}

	filter.Limit, filter.Offset, err = parseLimitOffset(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.itemService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "item")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Stats returns the aggregate item statistics.
func (h *ItemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.itemService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, "item")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Get returns a single item by id.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseURLID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.itemService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// GetImage streams the item's image.
func (h *ItemHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseURLID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reader, contentType, err := h.itemService.GetImage(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "item image")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

// FindSimilar returns opposite-type items scored against this one, best
// match first. threshold defaults to 0.5.
func (h *ItemHandler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	id, err := parseURLID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	threshold := 0.5
	if raw := strings.TrimSpace(r.URL.Query().Get("threshold")); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			writeError(w, http.StatusBadRequest, "invalid threshold, must be in [0, 1]")
			return
		}
	}

	matches, err := h.itemService.FindSimilar(r.Context(), id, threshold)
	if err != nil {
		writeServiceError(w, err, "item")
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

type ItemUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,min=1,max=500"`
	ItemType    *string `json:"item_type" validate:"omitempty,oneof=lost found"`
	Location    *string `json:"location" validate:"omitempty,min=1,max=100"`
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status      *string `json:"status" validate:"omitempty,oneof=active claimed returned"`
}

// Update applies a partial update to the item. Only the owner or an
// admin may update; absent fields are left untouched.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	id, err := parseURLID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ItemUpdateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	patch := types.ItemPatch{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
	}
	if req.ItemType != nil {
		itemType := types.ItemType(*req.ItemType)
		patch.Type = &itemType
	}
	if req.Status != nil {
		status := types.ItemStatus(*req.Status)
		patch.Status = &status
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		patch.Date = &date
	}

	item, err := h.itemService.Update(r.Context(), actor, id, patch)
	if err != nil {
		writeServiceError(w, err, "item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ReplaceImage swaps the item's image for the uploaded one.
func (h *ItemHandler) ReplaceImage(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	id, err := parseURLID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(services.MaxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	image, err := formImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if image == nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}

	item, err := h.itemService.ReplaceImage(r.Context(), actor, id, *image)
	if err != nil {
		writeServiceError(w, err, "item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete removes the item, its image, and all claims against it.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	id, err := parseURLID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.itemService.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, err, "item")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "item deleted"})
}

// formImage extracts the optional "image" upload from a parsed
// multipart form. Returns nil when no file was attached.
func formImage(r *http.Request) (*services.ImageUpload, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, errors.New("invalid image upload")
	}
	defer file.Close()

	data, err := readFileLimited(file, services.MaxImageBytes)
	if err != nil {
		return nil, err
	}
	return &services.ImageUpload{Filename: fileName(header), Data: data}, nil
}

func fileName(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	return header.Filename
}
