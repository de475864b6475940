package service

import (
	"errors"
	"testing"

	"airjump/internal/models"
	"airjump/internal/validation"
)

func TestCreateTicket(t *testing.T) {
	env := newTestEnv(t)
	parent := env.register(t, "parent@example.com")

	tests := []struct {
		name         string
		input        TicketInput
		wantPriority string
		wantErr      bool
	}{
		{"complaint defaults high", TicketInput{Type: "complaint", Subject: "Dirty socks area", Description: "Please clean it"}, models.PriorityHigh, false},
		{"doubt defaults medium", TicketInput{Type: "doubt", Subject: "Opening hours", Description: "Open on holidays?"}, models.PriorityMedium, false},
		{"explicit priority", TicketInput{Type: "suggestion", Subject: "Snacks", Description: "More fruit", Priority: "low"}, models.PriorityLow, false},
		{"unknown type", TicketInput{Type: "praise", Subject: "Great", Description: "Loved it"}, "", true},
		{"missing subject", TicketInput{Type: "doubt", Description: "Hello"}, "", true},
		{"bad priority", TicketInput{Type: "doubt", Subject: "Hi", Description: "Hello", Priority: "urgent"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket, err := env.support.CreateTicket(parent.ID, tt.input)
			if tt.wantErr {
				var verr validation.ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("CreateTicket() error = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateTicket() error = %v", err)
			}
			if ticket.Priority != tt.wantPriority || ticket.Status != models.TicketOpen {
				t.Errorf("CreateTicket() = priority %s status %s, want %s open", ticket.Priority, ticket.Status, tt.wantPriority)
			}
		})
	}

	mine, err := env.support.ListForParent(parent.ID)
	if err != nil {
		t.Fatalf("ListForParent() error = %v", err)
	}
	if len(mine) != 3 {
		t.Errorf("ListForParent() returned %d tickets, want 3", len(mine))
	}
}

func TestTicketStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	parent := env.register(t, "parent@example.com")

	ticket, err := env.support.CreateTicket(parent.ID, TicketInput{Type: "doubt", Subject: "Parking", Description: "Is there parking?"})
	if err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}

	steps := []struct {
		status  string
		wantErr error
	}{
		{models.TicketOpen, ErrInvalidStatusChange},
		{models.TicketInProgress, nil},
		{models.TicketInProgress, ErrInvalidStatusChange},
		{models.TicketClosed, nil},
		{models.TicketOpen, ErrInvalidStatusChange},
	}
	for i, step := range steps {
		updated, err := env.support.UpdateStatus(ticket.ID, step.status)
		if step.wantErr != nil {
			if !errors.Is(err, step.wantErr) {
				t.Errorf("step %d UpdateStatus(%s) error = %v, want %v", i, step.status, err, step.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("step %d UpdateStatus(%s) error = %v", i, step.status, err)
		}
		if updated.Status != step.status {
			t.Errorf("step %d status = %s, want %s", i, updated.Status, step.status)
		}
	}

	if _, err := env.support.UpdateStatus(9999, models.TicketClosed); !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("UpdateStatus(unknown) error = %v, want ErrTicketNotFound", err)
	}
}
