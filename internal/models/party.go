package models

import "time"

// Party booking statuses
const (
	PartyPending   = "pending"
	PartyConfirmed = "confirmed"
	PartyCancelled = "cancelled"
)

// PartyPackage is one entry of the venue's party catalog
type PartyPackage struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PriceCents      int64  `json:"price_cents"`
	MaxKids         int    `json:"max_kids"`
	DurationMinutes int    `json:"duration_minutes"`
}

// PartyPackages is the catalog offered to parents, cheapest first
var PartyPackages = []PartyPackage{
	{ID: "basic", Name: "Básico", PriceCents: 29900, MaxKids: 10, DurationMinutes: 60},
	{ID: "standard", Name: "Padrão", PriceCents: 44900, MaxKids: 15, DurationMinutes: 90},
	{ID: "premium", Name: "Premium", PriceCents: 64900, MaxKids: 20, DurationMinutes: 120},
	{ID: "deluxe", Name: "Deluxe", PriceCents: 89900, MaxKids: 25, DurationMinutes: 150},
}

// PartyTimeSlots are the start times parties can be booked for
var PartyTimeSlots = []string{"14:00", "15:00", "16:00", "17:00", "18:00"}

// FindPartyPackage looks up a package by id
func FindPartyPackage(id string) (PartyPackage, bool) {
	for _, p := range PartyPackages {
		if p.ID == id {
			return p, true
		}
	}
	return PartyPackage{}, false
}

// IsPartyTimeSlot reports whether slot is one of the bookable start times
func IsPartyTimeSlot(slot string) bool {
	for _, s := range PartyTimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// PartyBooking is a parent's party reservation
type PartyBooking struct {
	ID              int64     `json:"id"`
	ParentID        int64     `json:"parent_id"`
	ChildName       string    `json:"child_name"`
	PartyDate       time.Time `json:"party_date"`
	TimeSlot        string    `json:"time_slot"`
	Guests          int       `json:"guests"`
	Package         string    `json:"package"`
	Notes           string    `json:"notes"`
	Status          string    `json:"status"`
	TotalPriceCents int64     `json:"total_price_cents"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CanTransitionTo reports whether the booking may move to status
func (b *PartyBooking) CanTransitionTo(status string) bool {
	if b.Status != PartyPending {
		return false
	}
	return status == PartyConfirmed || status == PartyCancelled
}
