package service

import (
	"errors"
	"testing"
	"time"

	"airjump/internal/models"
	"airjump/internal/validation"
)

func TestBookParty(t *testing.T) {
	env := newTestEnv(t)
	parent := env.register(t, "parent@example.com")
	env.party.now = func() time.Time { return time.Date(2025, time.June, 1, 15, 0, 0, 0, time.UTC) }

	valid := PartyInput{ChildName: "Lucas", PartyDate: "2025-06-01", TimeSlot: "15:00", Guests: 15, Package: "standard"}

	tests := []struct {
		name   string
		modify func(*PartyInput)
		field  string
	}{
		{"unknown package", func(in *PartyInput) { in.Package = "mega" }, "package"},
		{"past date", func(in *PartyInput) { in.PartyDate = "2025-05-31" }, "party_date"},
		{"bad slot", func(in *PartyInput) { in.TimeSlot = "13:00" }, "time_slot"},
		{"slot with seconds", func(in *PartyInput) { in.TimeSlot = "15:00:00" }, "time_slot"},
		{"too many guests", func(in *PartyInput) { in.Guests = 16 }, "guests"},
		{"no guests", func(in *PartyInput) { in.Guests = 0 }, "guests"},
		{"missing child name", func(in *PartyInput) { in.ChildName = "" }, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.modify(&input)
			var verr validation.ValidationError
			if _, err := env.party.Book(parent.ID, input); !errors.As(err, &verr) {
				t.Fatalf("Book() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("ValidationError.Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}

	booking, err := env.party.Book(parent.ID, valid)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if booking.Status != models.PartyPending || booking.TotalPriceCents != 44900 {
		t.Errorf("Book() = %+v, want pending booking at 44900", booking)
	}

	list, err := env.party.ListForParent(parent.ID)
	if err != nil {
		t.Fatalf("ListForParent() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != booking.ID {
		t.Errorf("ListForParent() = %+v", list)
	}
}

func TestPartyStatusChanges(t *testing.T) {
	env := newTestEnv(t)
	parent := env.register(t, "parent@example.com")
	other := env.register(t, "other@example.com")

	date := time.Now().UTC().AddDate(0, 0, 7).Format(validation.DateLayout)
	book := func() *models.PartyBooking {
		b, err := env.party.Book(parent.ID, PartyInput{ChildName: "Lucas", PartyDate: date, TimeSlot: "14:00", Guests: 5, Package: "basic"})
		if err != nil {
			t.Fatalf("Book() error = %v", err)
		}
		return b
	}

	confirmed := book()
	if _, err := env.party.UpdateStatus(confirmed.ID, models.PartyConfirmed); err != nil {
		t.Fatalf("UpdateStatus(confirmed) error = %v", err)
	}
	if _, err := env.party.UpdateStatus(confirmed.ID, models.PartyCancelled); !errors.Is(err, ErrInvalidStatusChange) {
		t.Errorf("UpdateStatus() on confirmed booking error = %v, want ErrInvalidStatusChange", err)
	}
	if _, err := env.party.UpdateStatus(9999, models.PartyConfirmed); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("UpdateStatus(unknown) error = %v, want ErrBookingNotFound", err)
	}

	pending := book()
	if _, err := env.party.Cancel(other.ID, pending.ID); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("Cancel() by other parent error = %v, want ErrBookingNotFound", err)
	}
	cancelled, err := env.party.Cancel(parent.ID, pending.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != models.PartyCancelled {
		t.Errorf("Cancel() status = %s, want cancelled", cancelled.Status)
	}
	if _, err := env.party.Cancel(parent.ID, pending.ID); !errors.Is(err, ErrInvalidStatusChange) {
		t.Errorf("second Cancel() error = %v, want ErrInvalidStatusChange", err)
	}

	all, err := env.party.ListAll()
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListAll() returned %d bookings, want 2", len(all))
	}
}
