package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"airjump/internal/models"
	"airjump/internal/service"
)

func TestChildRoutes(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "admin@example.com")
	parentToken := s.signUp(t, "parent@example.com")
	otherToken := s.signUp(t, "other@example.com")
	childID := s.addChild(t, parentToken, "Lucas")
	childPath := fmt.Sprintf("/api/children/%d", childID)

	rec := s.request(t, http.MethodPost, "/api/children", service.ChildInput{Name: "Sem Data", EmergencyContact: "Mãe"}, parentToken)
	expectStatus(t, rec, http.StatusBadRequest)
	var verr errorResponse
	decodeBody(t, rec, &verr)
	if verr.Field != "birth_date" {
		t.Errorf("validation field = %q, want birth_date", verr.Field)
	}

	expectStatus(t, s.request(t, http.MethodGet, childPath, nil, otherToken), http.StatusNotFound)
	expectStatus(t, s.request(t, http.MethodGet, "/api/children/abc", nil, parentToken), http.StatusBadRequest)

	rec = s.request(t, http.MethodPut, childPath, service.ChildInput{
		Name:             "Lucas Silva",
		BirthDate:        "2019-03-15",
		EmergencyContact: "+55 11 98888-0000",
		HasDisability:    true,
	}, parentToken)
	expectStatus(t, rec, http.StatusOK)
	var updated models.ChildProfile
	decodeBody(t, rec, &updated)
	if updated.Name != "Lucas Silva" || len(updated.Tags) == 0 || updated.Tags[0] != models.TagDisability {
		t.Errorf("updated child = %+v", updated)
	}

	rec = s.request(t, http.MethodGet, "/api/children", nil, parentToken)
	expectStatus(t, rec, http.StatusOK)
	var children []models.ChildProfile
	decodeBody(t, rec, &children)
	if len(children) != 1 {
		t.Errorf("children = %d, want 1", len(children))
	}

	expectStatus(t, s.request(t, http.MethodDelete, childPath, nil, otherToken), http.StatusNotFound)
	expectStatus(t, s.request(t, http.MethodDelete, childPath, nil, parentToken), http.StatusNoContent)
	expectStatus(t, s.request(t, http.MethodGet, childPath, nil, parentToken), http.StatusNotFound)
}

func TestPartyRoutes(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signUp(t, "admin@example.com")
	parentToken := s.signUp(t, "parent@example.com")

	rec := s.request(t, http.MethodGet, "/api/parties/packages", nil, parentToken)
	expectStatus(t, rec, http.StatusOK)
	var catalog struct {
		Packages  []models.PartyPackage `json:"packages"`
		TimeSlots []string              `json:"time_slots"`
	}
	decodeBody(t, rec, &catalog)
	if len(catalog.Packages) != len(models.PartyPackages) || len(catalog.TimeSlots) != len(models.PartyTimeSlots) {
		t.Errorf("catalog = %+v", catalog)
	}

	input := service.PartyInput{ChildName: "Lucas", PartyDate: "2099-06-20", TimeSlot: "15:00", Guests: 12, Package: "standard"}
	rec = s.request(t, http.MethodPost, "/api/parties", input, parentToken)
	expectStatus(t, rec, http.StatusCreated)
	var booking models.PartyBooking
	decodeBody(t, rec, &booking)
	if booking.Status != models.PartyPending || booking.TotalPriceCents != 44900 {
		t.Errorf("booking = %+v", booking)
	}

	tooMany := input
	tooMany.Package = "basic"
	expectStatus(t, s.request(t, http.MethodPost, "/api/parties", tooMany, parentToken), http.StatusBadRequest)

	statusPath := fmt.Sprintf("/api/admin/parties/%d/status", booking.ID)
	expectStatus(t, s.request(t, http.MethodPost, statusPath, statusRequest{Status: models.PartyConfirmed}, adminToken), http.StatusOK)
	expectStatus(t, s.request(t, http.MethodPost, statusPath, statusRequest{Status: models.PartyCancelled}, adminToken), http.StatusConflict)

	cancelPath := fmt.Sprintf("/api/parties/%d/cancel", booking.ID)
	expectStatus(t, s.request(t, http.MethodPost, cancelPath, nil, parentToken), http.StatusConflict)
	expectStatus(t, s.request(t, http.MethodPost, "/api/admin/parties/999/status", statusRequest{Status: models.PartyConfirmed}, adminToken), http.StatusNotFound)

	rec = s.request(t, http.MethodGet, "/api/admin/parties", nil, adminToken)
	expectStatus(t, rec, http.StatusOK)
	var all []models.PartyBooking
	decodeBody(t, rec, &all)
	if len(all) != 1 || all[0].Status != models.PartyConfirmed {
		t.Errorf("all bookings = %+v", all)
	}
}

func TestTicketRoutes(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signUp(t, "admin@example.com")
	parentToken := s.signUp(t, "parent@example.com")

	rec := s.request(t, http.MethodGet, "/api/tickets", nil, parentToken)
	expectStatus(t, rec, http.StatusOK)
	var tickets []models.SupportTicket
	decodeBody(t, rec, &tickets)
	if tickets == nil || len(tickets) != 0 {
		t.Errorf("empty ticket list = %v, want []", tickets)
	}

	rec = s.request(t, http.MethodPost, "/api/tickets", service.TicketInput{
		Type: models.TicketComplaint, Subject: "Cold water", Description: "The fountain is broken",
	}, parentToken)
	expectStatus(t, rec, http.StatusCreated)
	var ticket models.SupportTicket
	decodeBody(t, rec, &ticket)
	if ticket.Priority != models.PriorityHigh || ticket.Status != models.TicketOpen {
		t.Errorf("ticket = %+v", ticket)
	}

	statusPath := fmt.Sprintf("/api/admin/tickets/%d/status", ticket.ID)
	expectStatus(t, s.request(t, http.MethodPost, statusPath, statusRequest{Status: models.TicketInProgress}, adminToken), http.StatusOK)
	expectStatus(t, s.request(t, http.MethodPost, statusPath, statusRequest{Status: models.TicketClosed}, adminToken), http.StatusOK)
	expectStatus(t, s.request(t, http.MethodPost, statusPath, statusRequest{Status: models.TicketOpen}, adminToken), http.StatusConflict)

	rec = s.request(t, http.MethodGet, "/api/admin/tickets", nil, adminToken)
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &tickets)
	if len(tickets) != 1 || tickets[0].Status != models.TicketClosed {
		t.Errorf("admin tickets = %+v", tickets)
	}
}

func TestAlertRoutes(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signUp(t, "admin@example.com")
	parentToken := s.signUp(t, "parent@example.com")
	childID := s.addChild(t, parentToken, "Lucas")

	expectStatus(t, s.request(t, http.MethodPost, "/api/admin/alerts", alertRequest{ChildID: childID, Type: "injury"}, adminToken), http.StatusBadRequest)
	expectStatus(t, s.request(t, http.MethodPost, "/api/admin/alerts", alertRequest{ChildID: 999, Type: "lost", Message: "Missing"}, adminToken), http.StatusNotFound)

	rec := s.request(t, http.MethodPost, "/api/admin/alerts", alertRequest{ChildID: childID, Type: "injury", Message: "Bumped head"}, adminToken)
	expectStatus(t, rec, http.StatusCreated)
	var alert models.EmergencyAlert
	decodeBody(t, rec, &alert)

	rec = s.request(t, http.MethodGet, "/api/alerts", nil, parentToken)
	expectStatus(t, rec, http.StatusOK)
	var mine []models.EmergencyAlert
	decodeBody(t, rec, &mine)
	if len(mine) != 1 || mine[0].ID != alert.ID {
		t.Errorf("parent alerts = %+v", mine)
	}

	rec = s.request(t, http.MethodGet, "/api/admin/alerts", nil, adminToken)
	expectStatus(t, rec, http.StatusOK)
	var active []models.EmergencyAlert
	decodeBody(t, rec, &active)
	if len(active) != 1 {
		t.Errorf("active alerts = %d, want 1", len(active))
	}

	resolvePath := fmt.Sprintf("/api/admin/alerts/%d/resolve", alert.ID)
	rec = s.request(t, http.MethodPost, resolvePath, nil, adminToken)
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &alert)
	if alert.Status != models.AlertResolved || alert.ResolvedAt == nil {
		t.Errorf("resolved alert = %+v", alert)
	}
	expectStatus(t, s.request(t, http.MethodPost, resolvePath, nil, adminToken), http.StatusConflict)
}
