package repository

import (
	"database/sql"
	"fmt"
	"time"

	"airjump/internal/database"
	"airjump/internal/models"
)

const childColumns = `c.id, c.parent_id, c.name, c.birth_date, c.medical_notes, c.emergency_contact,
	c.has_disability, c.visits, c.created_at, c.updated_at`

// ChildRepository handles database operations for children
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ChildRepository) WithTx(tx *database.Tx) *ChildRepository {
	return &ChildRepository{db: tx}
}

func scanChild(row rowScanner, extra ...interface{}) (*models.Child, error) {
	c := &models.Child{}
	dest := []interface{}{
		&c.ID,
		&c.ParentID,
		&c.Name,
		&c.BirthDate,
		&c.MedicalNotes,
		&c.EmergencyContact,
		&c.HasDisability,
		&c.Visits,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return c, err
}

// CreateChild inserts a child and fills in its ID and timestamps
func (r *ChildRepository) CreateChild(c *models.Child) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO children (parent_id, name, birth_date, medical_notes, emergency_contact, has_disability, visits, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, c.ParentID, c.Name, c.BirthDate.UTC(), c.MedicalNotes,
		c.EmergencyContact, c.HasDisability, now, now)
	if err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}

	c.ID = id
	c.Visits = 0
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// GetChildByID retrieves a child by ID
func (r *ChildRepository) GetChildByID(id int64) (*models.Child, error) {
	c, err := scanChild(r.db.QueryRow("SELECT "+childColumns+" FROM children c WHERE c.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return c, nil
}

// GetParentChildren retrieves a parent's children, newest first
func (r *ChildRepository) GetParentChildren(parentID int64) ([]models.Child, error) {
	query := "SELECT " + childColumns + " FROM children c WHERE c.parent_id = ? ORDER BY c.created_at DESC, c.id DESC"
	rows, err := r.db.Query(query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

// ChildParentRow is a child with its parent's contact details
type ChildParentRow struct {
	Child       models.Child
	ParentName  string
	ParentEmail string
	ParentPhone string
}

// GetAllChildrenWithParents retrieves every child with parent contact details, newest first
func (r *ChildRepository) GetAllChildrenWithParents() ([]ChildParentRow, error) {
	query := `
		SELECT ` + childColumns + `, u.name, u.email, u.phone
		FROM children c
		JOIN users u ON u.id = c.parent_id
		ORDER BY c.created_at DESC, c.id DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var result []ChildParentRow
	for rows.Next() {
		var row ChildParentRow
		c, err := scanChild(rows, &row.ParentName, &row.ParentEmail, &row.ParentPhone)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		row.Child = *c
		result = append(result, row)
	}
	return result, rows.Err()
}

// UpdateChild updates the editable fields of a child owned by c.ParentID
func (r *ChildRepository) UpdateChild(c *models.Child) (bool, error) {
	now := time.Now().UTC()
	query := `
		UPDATE children
		SET name = ?, birth_date = ?, medical_notes = ?, emergency_contact = ?, has_disability = ?, updated_at = ?
		WHERE id = ? AND parent_id = ?
	`
	result, err := r.db.Exec(query, c.Name, c.BirthDate.UTC(), c.MedicalNotes, c.EmergencyContact,
		c.HasDisability, now, c.ID, c.ParentID)
	if err != nil {
		return false, fmt.Errorf("failed to update child: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read child update: %w", err)
	}
	c.UpdatedAt = now
	return rows == 1, nil
}

// DeleteChild deletes a child owned by parentID
func (r *ChildRepository) DeleteChild(parentID, childID int64) (bool, error) {
	result, err := r.db.Exec("DELETE FROM children WHERE id = ? AND parent_id = ?", childID, parentID)
	if err != nil {
		return false, fmt.Errorf("failed to delete child: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read child delete: %w", err)
	}
	return rows == 1, nil
}

// IncrementVisits adds one completed visit to a child's counter
func (r *ChildRepository) IncrementVisits(childID int64) error {
	if _, err := r.db.Exec("UPDATE children SET visits = visits + 1 WHERE id = ?", childID); err != nil {
		return fmt.Errorf("failed to increment visits: %w", err)
	}
	return nil
}
