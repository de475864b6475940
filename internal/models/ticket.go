package models

import "time"

// Ticket types
const (
	TicketDoubt      = "doubt"
	TicketSuggestion = "suggestion"
	TicketComplaint  = "complaint"
)

// Ticket statuses
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketClosed     = "closed"
)

// Ticket priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// SupportTicket is a question, suggestion or complaint sent by a parent
type SupportTicket struct {
	ID          int64     `json:"id"`
	ParentID    int64     `json:"parent_id"`
	Type        string    `json:"type"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultPriority is used when the parent does not pick one
func DefaultPriority(ticketType string) string {
	if ticketType == TicketComplaint {
		return PriorityHigh
	}
	return PriorityMedium
}

// CanTransitionTo reports whether the ticket may move to status. Closed tickets are final.
func (t *SupportTicket) CanTransitionTo(status string) bool {
	switch t.Status {
	case TicketOpen:
		return status == TicketInProgress || status == TicketClosed
	case TicketInProgress:
		return status == TicketClosed
	default:
		return false
	}
}
