package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/findly-app/apiserver/internal/services"
	"github.com/findly-app/apiserver/internal/store"
	"github.com/findly-app/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ClaimHandler exposes the claim lifecycle endpoints.
type ClaimHandler struct {
	claimService *services.ClaimService
}

func NewClaimHandler(claimService *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

// ClaimRouter registers claim routes. Every claim operation requires
// authentication.
func ClaimRouter(r chi.Router, claimService *services.ClaimService, jwtSecret string) {
	handler := NewClaimHandler(claimService)

	r.Use(RequireAuth(jwtSecret))

	r.Post("/", handler.Create)
	r.Get("/", handler.List)
	r.With(RequireAdmin).Get("/stats/overview", handler.Stats)
	r.Get("/item/{itemID}", handler.ListForItem)
	r.Get("/{claimID}", handler.Get)
	r.Put("/{claimID}/status", handler.UpdateStatus)
	r.Delete("/{claimID}", handler.Delete)
}

type ClaimCreateRequest struct {
	ItemID  int    `json:"item_id" validate:"required,gt=0"`
	Message string `json:"message" validate:"required,min=1,max=500"`
}

// Create files a pending claim against an item. Claiming your own item
// and claiming the same item twice are both request errors, not
// authorization or conflict responses.
func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	var req ClaimCreateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claim, err := h.claimService.Create(r.Context(), actor, req.ItemID, req.Message)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) || errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeServiceError(w, err, "item")
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

// List returns claims visible to the caller: everything for admins,
// otherwise the claims they filed plus claims against their items.
func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	query := r.URL.Query()

	filter := services.ClaimListFilter{
		MyClaims: query.Get("my_claims") == "true",
	}

	if raw := strings.TrimSpace(query.Get("status_filter")); raw != "" {
		status := types.ClaimStatus(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status_filter")
			return
		}
		filter.Status = status
	}

	if raw := strings.TrimSpace(query.Get("item_type")); raw != "" {
		itemType := types.ItemType(raw)
		if !itemType.Valid() {
			writeError(w, http.StatusBadRequest, "invalid item_type, must be 'lost' or 'found'")
			return
		}
		filter.ItemType = itemType
	}

	var err error
	filter.Limit, filter.Offset, err = parseLimitOffset(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := h.claimService.List(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, err, "claim")
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// Stats returns the aggregate claim statistics. Admin only.
func (h *ClaimHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.claimService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, "claim")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListForItem returns all claims against one item for its owner or an
// admin.
func (h *ClaimHandler) ListForItem(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	itemID, err := parseURLID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := h.claimService.ListForItem(r.Context(), actor, itemID)
	if err != nil {
		writeServiceError(w, err, "item")
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// Get returns a single claim for the claimer, the item owner, or an
// admin.
func (h *ClaimHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	id, err := parseURLID(r, "claimID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claim, err := h.claimService.Get(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err, "claim")
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

type ClaimStatusUpdateRequest struct {
	Status     string `json:"status" validate:"required,oneof=pending approved rejected completed"`
	AdminNotes string `json:"admin_notes" validate:"omitempty,max=300"`
}

// UpdateStatus records a decision on the claim by the item owner or an
// admin.
func (h *ClaimHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	id, err := parseURLID(r, "claimID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ClaimStatusUpdateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claim, err := h.claimService.UpdateStatus(r.Context(), actor, id, types.ClaimStatus(req.Status), strings.TrimSpace(req.AdminNotes))
	if err != nil {
		writeServiceError(w, err, "claim")
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// Delete withdraws or removes a claim.
func (h *ClaimHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	id, err := parseURLID(r, "claimID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.claimService.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, err, "claim")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "claim deleted"})
}
