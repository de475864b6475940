package repository

import (
	"database/sql"
	"fmt"
	"time"

	"airjump/internal/database"
	"airjump/internal/models"
)

const ticketColumns = `id, parent_id, type, subject, description, status, priority, created_at, updated_at`

// TicketRepository handles database operations for support tickets
type TicketRepository struct {
	db database.DBTX
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db database.DBTX) *TicketRepository {
	return &TicketRepository{db: db}
}

func scanTicket(row rowScanner) (*models.SupportTicket, error) {
	t := &models.SupportTicket{}
	err := row.Scan(
		&t.ID,
		&t.ParentID,
		&t.Type,
		&t.Subject,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

func (r *TicketRepository) queryTickets(query string, args ...interface{}) ([]models.SupportTicket, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	tickets := []models.SupportTicket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// CreateTicket inserts a ticket and fills in its ID and timestamps
func (r *TicketRepository) CreateTicket(t *models.SupportTicket) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO support_tickets (parent_id, type, subject, description, status, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, t.ParentID, t.Type, t.Subject, t.Description, t.Status, t.Priority, now, now)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetTicketByID retrieves a ticket by ID
func (r *TicketRepository) GetTicketByID(id int64) (*models.SupportTicket, error) {
	t, err := scanTicket(r.db.QueryRow("SELECT "+ticketColumns+" FROM support_tickets WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

// GetParentTickets lists a parent's tickets, newest first
func (r *TicketRepository) GetParentTickets(parentID int64) ([]models.SupportTicket, error) {
	return r.queryTickets("SELECT "+ticketColumns+" FROM support_tickets WHERE parent_id = ? ORDER BY created_at DESC, id DESC", parentID)
}

// GetAllTickets lists every ticket, newest first
func (r *TicketRepository) GetAllTickets() ([]models.SupportTicket, error) {
	return r.queryTickets("SELECT " + ticketColumns + " FROM support_tickets ORDER BY created_at DESC, id DESC")
}

// UpdateStatus moves a ticket from one status to another, reporting false if it was no longer in from
func (r *TicketRepository) UpdateStatus(id int64, from, to string) (bool, error) {
	query := "UPDATE support_tickets SET status = ?, updated_at = ? WHERE id = ? AND status = ?"
	result, err := r.db.Exec(query, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update ticket: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read ticket update: %w", err)
	}
	return rows == 1, nil
}
