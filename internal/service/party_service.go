package service

import (
	"errors"
	"strings"
	"time"

	"airjump/internal/events"
	"airjump/internal/models"
	"airjump/internal/repository"
	"airjump/internal/validation"

	log "github.com/sirupsen/logrus"
)

var (
	ErrBookingNotFound     = errors.New("party booking not found")
	ErrInvalidStatusChange = errors.New("status change not allowed")
)

const maxPartyNotesLength = 1000

// PartyInput is a booking request from a parent
type PartyInput struct {
	ChildName string `json:"child_name"`
	PartyDate string `json:"party_date"`
	TimeSlot  string `json:"time_slot"`
	Guests    int    `json:"guests"`
	Package   string `json:"package"`
	Notes     string `json:"notes"`
}

// PartyService handles party reservations
type PartyService struct {
	partyRepo *repository.PartyRepository
	publisher events.Publisher
	now       func() time.Time
}

// NewPartyService creates a new party service. A nil publisher drops events.
// Booking dates are checked against today in loc, UTC when nil.
func NewPartyService(partyRepo *repository.PartyRepository, publisher events.Publisher, loc *time.Location) *PartyService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &PartyService{
		partyRepo: partyRepo,
		publisher: publisher,
		now:       venueClock(loc),
	}
}

// Packages returns the party catalog
func (s *PartyService) Packages() []models.PartyPackage {
	return models.PartyPackages
}

// Book creates a pending booking priced from the catalog
func (s *PartyService) Book(parentID int64, input PartyInput) (*models.PartyBooking, error) {
	childName := strings.TrimSpace(input.ChildName)
	if err := validation.ValidateName(childName); err != nil {
		return nil, err
	}

	pkg, ok := models.FindPartyPackage(input.Package)
	if !ok {
		ids := make([]string, 0, len(models.PartyPackages))
		for _, p := range models.PartyPackages {
			ids = append(ids, p.ID)
		}
		return nil, validation.ValidateOneOf("package", input.Package, ids...)
	}

	date, err := validation.ParseDate("party_date", input.PartyDate)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePartyDate(date, s.now()); err != nil {
		return nil, err
	}
	if !models.IsPartyTimeSlot(input.TimeSlot) {
		return nil, validation.ValidateOneOf("time_slot", input.TimeSlot, models.PartyTimeSlots...)
	}
	if err := validation.ValidateGuests(input.Guests, pkg); err != nil {
		return nil, err
	}

	notes := strings.TrimSpace(input.Notes)
	if len(notes) > maxPartyNotesLength {
		return nil, validation.ValidationError{Field: "notes", Message: "notes are too long"}
	}

	booking := &models.PartyBooking{
		ParentID:        parentID,
		ChildName:       childName,
		PartyDate:       date,
		TimeSlot:        input.TimeSlot,
		Guests:          input.Guests,
		Package:         pkg.ID,
		Notes:           notes,
		Status:          models.PartyPending,
		TotalPriceCents: pkg.PriceCents,
	}
	if err := s.partyRepo.CreateBooking(booking); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(events.PartyBooked, booking); err != nil {
		log.Warnf("Failed to publish %s: %v", events.PartyBooked, err)
	}
	return booking, nil
}

// ListForParent returns a parent's bookings, newest first
func (s *PartyService) ListForParent(parentID int64) ([]models.PartyBooking, error) {
	return s.partyRepo.GetParentBookings(parentID)
}

// ListAll returns every booking ordered by party date
func (s *PartyService) ListAll() ([]models.PartyBooking, error) {
	return s.partyRepo.GetAllBookings()
}

// UpdateStatus confirms or cancels a pending booking
func (s *PartyService) UpdateStatus(bookingID int64, status string) (*models.PartyBooking, error) {
	booking, err := s.partyRepo.GetBookingByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return s.transition(booking, status)
}

// Cancel cancels one of the parent's own pending bookings
func (s *PartyService) Cancel(parentID, bookingID int64) (*models.PartyBooking, error) {
	booking, err := s.partyRepo.GetBookingByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil || booking.ParentID != parentID {
		return nil, ErrBookingNotFound
	}
	return s.transition(booking, models.PartyCancelled)
}

func (s *PartyService) transition(booking *models.PartyBooking, status string) (*models.PartyBooking, error) {
	if !booking.CanTransitionTo(status) {
		return nil, ErrInvalidStatusChange
	}

	ok, err := s.partyRepo.UpdateStatus(booking.ID, booking.Status, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Changed by someone else since it was read
		return nil, ErrInvalidStatusChange
	}

	booking.Status = status
	booking.UpdatedAt = s.now()
	return booking, nil
}
