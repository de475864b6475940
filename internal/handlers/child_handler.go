package handlers

import (
	"net/http"

	"airjump/internal/models"
	"airjump/internal/service"
)

// ChildHandler serves a parent's children and their entry tokens
type ChildHandler struct {
	childService *service.ChildService
	entryService *service.EntryService
}

// NewChildHandler creates a new child handler
func NewChildHandler(childService *service.ChildService, entryService *service.EntryService) *ChildHandler {
	return &ChildHandler{
		childService: childService,
		entryService: entryService,
	}
}

// ListChildren returns the parent's children with age and tags
func (h *ChildHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	children, err := h.childService.ListChildren(user.ID)
	if err != nil {
		respondWithServiceError(w, "Error listing children", err)
		return
	}
	respondJSON(w, http.StatusOK, children)
}

// CreateChild registers a child
func (h *ChildHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var input service.ChildInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	child, err := h.childService.AddChild(user.ID, input)
	if err != nil {
		respondWithServiceError(w, "Error creating child", err)
		return
	}
	respondJSON(w, http.StatusCreated, child)
}

// GetChild returns one of the parent's children
func (h *ChildHandler) GetChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	childID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	child, err := h.childService.GetChild(user.ID, childID)
	if err != nil {
		respondWithServiceError(w, "Error getting child", err)
		return
	}
	respondJSON(w, http.StatusOK, child)
}

// UpdateChild replaces the editable fields of a child
func (h *ChildHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	childID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	var input service.ChildInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	child, err := h.childService.UpdateChild(user.ID, childID, input)
	if err != nil {
		respondWithServiceError(w, "Error updating child", err)
		return
	}
	respondJSON(w, http.StatusOK, child)
}

// DeleteChild removes a child
func (h *ChildHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	childID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	if err := h.childService.DeleteChild(user.ID, childID); err != nil {
		respondWithServiceError(w, "Error deleting child", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IssueToken returns the token the app renders as a QR code. While the child is
// inside, the open visit's token is returned (200) so it can be scanned on the way out.
func (h *ChildHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	childID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	visit, err := h.entryService.IssueToken(user.ID, childID)
	if err != nil {
		respondWithServiceError(w, "Error issuing token", err)
		return
	}

	status := http.StatusCreated
	if visit.State() == models.VisitActive {
		status = http.StatusOK
	}
	respondJSON(w, status, visit)
}
