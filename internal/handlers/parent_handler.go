package handlers

import (
	"net/http"

	"airjump/internal/models"
	"airjump/internal/service"
)

// ParentHandler serves the parent's loyalty card, parties, tickets and alerts
type ParentHandler struct {
	loyaltyService *service.LoyaltyService
	partyService   *service.PartyService
	supportService *service.SupportService
	alertService   *service.AlertService
}

// NewParentHandler creates a new parent handler
func NewParentHandler(
	loyaltyService *service.LoyaltyService,
	partyService *service.PartyService,
	supportService *service.SupportService,
	alertService *service.AlertService,
) *ParentHandler {
	return &ParentHandler{
		loyaltyService: loyaltyService,
		partyService:   partyService,
		supportService: supportService,
		alertService:   alertService,
	}
}

type loyaltyResponse struct {
	models.LoyaltyProgram
	SealsPerFreeEntry int `json:"seals_per_free_entry"`
	SealsToNextFree   int `json:"seals_to_next_free"`
}

// GetLoyalty returns the parent's punch card
func (h *ParentHandler) GetLoyalty(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	program, err := h.loyaltyService.GetProgram(user.ID)
	if err != nil {
		respondWithServiceError(w, "Error getting loyalty program", err)
		return
	}
	respondJSON(w, http.StatusOK, loyaltyResponse{
		LoyaltyProgram:    *program,
		SealsPerFreeEntry: models.SealsPerFreeEntry,
		SealsToNextFree:   program.SealsToNextFree(),
	})
}

// PartyPackages returns the catalog and bookable time slots
func (h *ParentHandler) PartyPackages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"packages":   h.partyService.Packages(),
		"time_slots": models.PartyTimeSlots,
	})
}

// ListParties returns the parent's bookings
func (h *ParentHandler) ListParties(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	bookings, err := h.partyService.ListForParent(user.ID)
	if err != nil {
		respondWithServiceError(w, "Error listing parties", err)
		return
	}
	respondJSON(w, http.StatusOK, bookings)
}

// BookParty creates a pending booking
func (h *ParentHandler) BookParty(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var input service.PartyInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	booking, err := h.partyService.Book(user.ID, input)
	if err != nil {
		respondWithServiceError(w, "Error booking party", err)
		return
	}
	respondJSON(w, http.StatusCreated, booking)
}

// CancelParty cancels one of the parent's pending bookings
func (h *ParentHandler) CancelParty(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	bookingID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	booking, err := h.partyService.Cancel(user.ID, bookingID)
	if err != nil {
		respondWithServiceError(w, "Error cancelling party", err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// ListTickets returns the parent's support tickets
func (h *ParentHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	tickets, err := h.supportService.ListForParent(user.ID)
	if err != nil {
		respondWithServiceError(w, "Error listing tickets", err)
		return
	}
	respondJSON(w, http.StatusOK, tickets)
}

// CreateTicket opens a support ticket
func (h *ParentHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var input service.TicketInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	ticket, err := h.supportService.CreateTicket(user.ID, input)
	if err != nil {
		respondWithServiceError(w, "Error creating ticket", err)
		return
	}
	respondJSON(w, http.StatusCreated, ticket)
}

// ListAlerts returns the alerts raised about the parent's children
func (h *ParentHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	alerts, err := h.alertService.ListForParent(user.ID)
	if err != nil {
		respondWithServiceError(w, "Error listing alerts", err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}
