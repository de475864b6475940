package service

import (
	"errors"
	"strings"

	"airjump/internal/events"
	"airjump/internal/models"
	"airjump/internal/repository"
	"airjump/internal/validation"

	log "github.com/sirupsen/logrus"
)

var ErrTicketNotFound = errors.New("ticket not found")

const (
	maxTicketSubjectLength     = 200
	maxTicketDescriptionLength = 5000
)

// TicketInput is a support request from a parent
type TicketInput struct {
	Type        string `json:"type"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// SupportService handles parents' questions, suggestions and complaints
type SupportService struct {
	ticketRepo *repository.TicketRepository
	publisher  events.Publisher
}

// NewSupportService creates a new support service. A nil publisher drops events.
func NewSupportService(ticketRepo *repository.TicketRepository, publisher events.Publisher) *SupportService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &SupportService{ticketRepo: ticketRepo, publisher: publisher}
}

// CreateTicket opens a ticket, deriving the priority from the type when none is given
func (s *SupportService) CreateTicket(parentID int64, input TicketInput) (*models.SupportTicket, error) {
	if err := validation.ValidateOneOf("type", input.Type,
		models.TicketDoubt, models.TicketSuggestion, models.TicketComplaint); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(input.Subject)
	if err := validation.ValidateRequired("subject", subject, maxTicketSubjectLength); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if err := validation.ValidateRequired("description", description, maxTicketDescriptionLength); err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = models.DefaultPriority(input.Type)
	}
	if err := validation.ValidateOneOf("priority", priority,
		models.PriorityLow, models.PriorityMedium, models.PriorityHigh); err != nil {
		return nil, err
	}

	ticket := &models.SupportTicket{
		ParentID:    parentID,
		Type:        input.Type,
		Subject:     subject,
		Description: description,
		Status:      models.TicketOpen,
		Priority:    priority,
	}
	if err := s.ticketRepo.CreateTicket(ticket); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(events.TicketCreated, ticket); err != nil {
		log.Warnf("Failed to publish %s: %v", events.TicketCreated, err)
	}
	return ticket, nil
}

// ListForParent returns a parent's tickets, newest first
func (s *SupportService) ListForParent(parentID int64) ([]models.SupportTicket, error) {
	return s.ticketRepo.GetParentTickets(parentID)
}

// ListAll returns every ticket, newest first
func (s *SupportService) ListAll() ([]models.SupportTicket, error) {
	return s.ticketRepo.GetAllTickets()
}

// UpdateStatus moves a ticket forward through open, in_progress and closed
func (s *SupportService) UpdateStatus(ticketID int64, status string) (*models.SupportTicket, error) {
	ticket, err := s.ticketRepo.GetTicketByID(ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	if !ticket.CanTransitionTo(status) {
		return nil, ErrInvalidStatusChange
	}

	ok, err := s.ticketRepo.UpdateStatus(ticket.ID, ticket.Status, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStatusChange
	}

	updated, err := s.ticketRepo.GetTicketByID(ticket.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrTicketNotFound
	}
	return updated, nil
}
