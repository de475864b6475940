package repository

import (
	"database/sql"
	"fmt"
	"time"

	"airjump/internal/database"
	"airjump/internal/models"
)

// LoyaltyRepository handles database operations for loyalty cards
type LoyaltyRepository struct {
	db database.DBTX
}

// NewLoyaltyRepository creates a new loyalty repository
func NewLoyaltyRepository(db database.DBTX) *LoyaltyRepository {
	return &LoyaltyRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *LoyaltyRepository) WithTx(tx *database.Tx) *LoyaltyRepository {
	return &LoyaltyRepository{db: tx}
}

// GetProgram retrieves a parent's loyalty card
func (r *LoyaltyRepository) GetProgram(parentID int64) (*models.LoyaltyProgram, error) {
	query := "SELECT id, parent_id, seals, free_entries, last_updated FROM loyalty_programs WHERE parent_id = ?"
	p := &models.LoyaltyProgram{}
	err := r.db.QueryRow(query, parentID).Scan(&p.ID, &p.ParentID, &p.Seals, &p.FreeEntries, &p.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loyalty program: %w", err)
	}
	return p, nil
}

// CreateProgram inserts an empty card. It fails with a unique violation when the parent already has one.
func (r *LoyaltyRepository) CreateProgram(parentID int64) (*models.LoyaltyProgram, error) {
	now := time.Now().UTC()
	query := "INSERT INTO loyalty_programs (parent_id, seals, free_entries, last_updated) VALUES (?, 0, 0, ?)"
	id, err := r.db.ExecReturningID(query, parentID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create loyalty program: %w", err)
	}
	return &models.LoyaltyProgram{ID: id, ParentID: parentID, LastUpdated: now}, nil
}

// AddSeal adds exactly one seal, turning a full card into a free entry.
// free_entries is assigned first because MySQL evaluates SET clauses left to right.
func (r *LoyaltyRepository) AddSeal(parentID int64, now time.Time) (bool, error) {
	query := `
		UPDATE loyalty_programs
		SET free_entries = free_entries + CASE WHEN seals + 1 >= ? THEN 1 ELSE 0 END,
			seals = (seals + 1) % ?,
			last_updated = ?
		WHERE parent_id = ?
	`
	result, err := r.db.Exec(query, models.SealsPerFreeEntry, models.SealsPerFreeEntry, now.UTC(), parentID)
	if err != nil {
		return false, fmt.Errorf("failed to add loyalty seal: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read loyalty update: %w", err)
	}
	return rows == 1, nil
}

// RedeemFreeEntry consumes one free entry, reporting false when the parent has none
func (r *LoyaltyRepository) RedeemFreeEntry(parentID int64, now time.Time) (bool, error) {
	query := `
		UPDATE loyalty_programs
		SET free_entries = free_entries - 1, last_updated = ?
		WHERE parent_id = ? AND free_entries > 0
	`
	result, err := r.db.Exec(query, now.UTC(), parentID)
	if err != nil {
		return false, fmt.Errorf("failed to redeem free entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read loyalty update: %w", err)
	}
	return rows == 1, nil
}
