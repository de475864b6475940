package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"airjump/internal/service"
	"airjump/internal/validation"
)

// AdminHandler serves the desk scanner and the staff dashboard
type AdminHandler struct {
	entryService   *service.EntryService
	childService   *service.ChildService
	partyService   *service.PartyService
	supportService *service.SupportService
	alertService   *service.AlertService
	backupService  *service.BackupService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	entryService *service.EntryService,
	childService *service.ChildService,
	partyService *service.PartyService,
	supportService *service.SupportService,
	alertService *service.AlertService,
	backupService *service.BackupService,
) *AdminHandler {
	return &AdminHandler{
		entryService:   entryService,
		childService:   childService,
		partyService:   partyService,
		supportService: supportService,
		alertService:   alertService,
		backupService:  backupService,
	}
}

type scanRequest struct {
	Token        string `json:"token"`
	UseFreeEntry bool   `json:"use_free_entry"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type alertRequest struct {
	ChildID int64  `json:"child_id"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Scan validates a token and tells the desk what it can be used for
func (h *AdminHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	result, err := h.entryService.ValidateToken(req.Token)
	if err != nil {
		respondWithServiceError(w, "Error validating token", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CheckIn lets the child in, optionally spending one of the parent's free entries
func (h *AdminHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	result, err := h.entryService.CheckIn(req.Token, req.UseFreeEntry)
	if err != nil {
		respondWithServiceError(w, "Error checking in", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CheckOut closes the visit and stamps the loyalty card
func (h *AdminHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	result, err := h.entryService.CheckOut(req.Token)
	if err != nil {
		respondWithServiceError(w, "Error checking out", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ActiveChildren lists the children currently inside
func (h *AdminHandler) ActiveChildren(w http.ResponseWriter, r *http.Request) {
	visits, err := h.entryService.ActiveChildren()
	if err != nil {
		respondWithServiceError(w, "Error listing active children", err)
		return
	}
	respondJSON(w, http.StatusOK, visits)
}

// RecentVisits lists the latest visits, ?limit= bounded by the service
func (h *AdminHandler) RecentVisits(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit", "", nil)
			return
		}
		limit = n
	}

	visits, err := h.entryService.RecentVisits(limit)
	if err != nil {
		respondWithServiceError(w, "Error listing visits", err)
		return
	}
	respondJSON(w, http.StatusOK, visits)
}

// DailyStats summarizes ?date=YYYY-MM-DD, today at the venue when omitted
func (h *AdminHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	var day time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := validation.ParseDate("date", raw)
		if err != nil {
			respondWithServiceError(w, "", err)
			return
		}
		day = parsed
	}

	stats, err := h.entryService.DailyStats(day)
	if err != nil {
		respondWithServiceError(w, "Error computing daily stats", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ListChildren lists every registered child with parent contact details
func (h *AdminHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.childService.ListAllChildren()
	if err != nil {
		respondWithServiceError(w, "Error listing children", err)
		return
	}
	respondJSON(w, http.StatusOK, children)
}

// ListParties lists every booking
func (h *AdminHandler) ListParties(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.partyService.ListAll()
	if err != nil {
		respondWithServiceError(w, "Error listing parties", err)
		return
	}
	respondJSON(w, http.StatusOK, bookings)
}

// UpdatePartyStatus confirms or cancels a booking
func (h *AdminHandler) UpdatePartyStatus(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	booking, err := h.partyService.UpdateStatus(bookingID, req.Status)
	if err != nil {
		respondWithServiceError(w, "Error updating party status", err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// ListTickets lists every support ticket
func (h *AdminHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.supportService.ListAll()
	if err != nil {
		respondWithServiceError(w, "Error listing tickets", err)
		return
	}
	respondJSON(w, http.StatusOK, tickets)
}

// UpdateTicketStatus moves a ticket along open, in_progress, closed
func (h *AdminHandler) UpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	ticketID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	ticket, err := h.supportService.UpdateStatus(ticketID, req.Status)
	if err != nil {
		respondWithServiceError(w, "Error updating ticket status", err)
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

// ListAlerts lists the unresolved alerts
func (h *AdminHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alertService.ListActive()
	if err != nil {
		respondWithServiceError(w, "Error listing alerts", err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// RaiseAlert records an emergency about a child and notifies the parent
func (h *AdminHandler) RaiseAlert(w http.ResponseWriter, r *http.Request) {
	operator := GetUserFromContext(r.Context())

	var req alertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	alert, err := h.alertService.Raise(r.Context(), operator.ID, req.ChildID, req.Type, req.Message)
	if err != nil {
		respondWithServiceError(w, "Error raising alert", err)
		return
	}
	respondJSON(w, http.StatusCreated, alert)
}

// ResolveAlert marks an alert as handled
func (h *AdminHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	alertID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	alert, err := h.alertService.Resolve(alertID)
	if err != nil {
		respondWithServiceError(w, "Error resolving alert", err)
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

// ExportDatabase sends a JSON backup as a file download. The backup is encoded in
// memory first so a database error still becomes a 500 instead of a truncated file.
func (h *AdminHandler) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var buf bytes.Buffer
	if _, err := h.backupService.ExportToWriter(&buf); err != nil {
		respondWithServiceError(w, "Error exporting database", err)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("airjump_backup_%s.json", timestamp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Warnf("Failed to send database export: %v", err)
		return
	}

	log.Infof("Database exported by admin user %s", user.Email)
}
