package repository

import (
	"database/sql"
	"fmt"
	"time"

	"airjump/internal/database"
	"airjump/internal/models"
)

const partyColumns = `id, parent_id, child_name, party_date, time_slot, guests, package, notes, status,
	total_price_cents, created_at, updated_at`

// PartyRepository handles database operations for party bookings
type PartyRepository struct {
	db database.DBTX
}

// NewPartyRepository creates a new party repository
func NewPartyRepository(db database.DBTX) *PartyRepository {
	return &PartyRepository{db: db}
}

func scanParty(row rowScanner) (*models.PartyBooking, error) {
	b := &models.PartyBooking{}
	err := row.Scan(
		&b.ID,
		&b.ParentID,
		&b.ChildName,
		&b.PartyDate,
		&b.TimeSlot,
		&b.Guests,
		&b.Package,
		&b.Notes,
		&b.Status,
		&b.TotalPriceCents,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

func (r *PartyRepository) queryParties(query string, args ...interface{}) ([]models.PartyBooking, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query party bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.PartyBooking{}
	for rows.Next() {
		b, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan party booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// CreateBooking inserts a booking and fills in its ID and timestamps
func (r *PartyRepository) CreateBooking(b *models.PartyBooking) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO party_bookings (parent_id, child_name, party_date, time_slot, guests, package, notes, status, total_price_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, b.ParentID, b.ChildName, b.PartyDate.UTC(), b.TimeSlot, b.Guests,
		b.Package, b.Notes, b.Status, b.TotalPriceCents, now, now)
	if err != nil {
		return fmt.Errorf("failed to create party booking: %w", err)
	}
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// GetBookingByID retrieves a booking by ID
func (r *PartyRepository) GetBookingByID(id int64) (*models.PartyBooking, error) {
	b, err := scanParty(r.db.QueryRow("SELECT "+partyColumns+" FROM party_bookings WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party booking: %w", err)
	}
	return b, nil
}

// GetParentBookings lists a parent's bookings, newest first
func (r *PartyRepository) GetParentBookings(parentID int64) ([]models.PartyBooking, error) {
	return r.queryParties("SELECT "+partyColumns+" FROM party_bookings WHERE parent_id = ? ORDER BY created_at DESC, id DESC", parentID)
}

// GetAllBookings lists every booking by party date
func (r *PartyRepository) GetAllBookings() ([]models.PartyBooking, error) {
	return r.queryParties("SELECT " + partyColumns + " FROM party_bookings ORDER BY party_date ASC, time_slot ASC, id ASC")
}

// UpdateStatus moves a booking from one status to another, reporting false if it was no longer in from
func (r *PartyRepository) UpdateStatus(id int64, from, to string) (bool, error) {
	query := "UPDATE party_bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?"
	result, err := r.db.Exec(query, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update party booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read party booking update: %w", err)
	}
	return rows == 1, nil
}
