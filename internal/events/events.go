// Package events carries venue activity (check-ins, check-outs, alerts) to the
// live admin feed and, when configured, to a NATS subject tree.
package events

import (
	"encoding/json"
	"errors"
	"time"
)

// Event types published by the services
const (
	TokenIssued     = "visit.token_issued"
	CheckedIn       = "visit.checked_in"
	CheckedOut      = "visit.checked_out"
	VisitsAbandoned = "visit.abandoned"
	FreeEntryEarned = "loyalty.free_entry_earned"
	AlertRaised     = "alert.raised"
	AlertResolved   = "alert.resolved"
	PartyBooked     = "party.booked"
	TicketCreated   = "ticket.created"
)

// Event is the envelope sent to every subscriber
type Event struct {
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(eventType string, data interface{}) error
}

// NewEvent wraps data in an envelope stamped with the current time
func NewEvent(eventType string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, At: time.Now().UTC(), Data: raw}, nil
}

// Noop drops every event
type Noop struct{}

func (Noop) Publish(string, interface{}) error { return nil }

// Multi fans an event out to several publishers
type Multi []Publisher

// Publish sends to every publisher and joins their errors
func (m Multi) Publish(eventType string, data interface{}) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(eventType, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
