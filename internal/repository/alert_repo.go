package repository

import (
	"database/sql"
	"fmt"
	"time"

	"airjump/internal/database"
	"airjump/internal/models"
)

const alertColumns = `a.id, a.child_id, c.name, a.type, a.message, a.operator_id, a.status, a.created_at, a.resolved_at`

// AlertRepository handles database operations for emergency alerts
type AlertRepository struct {
	db database.DBTX
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db database.DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

func scanAlert(row rowScanner) (*models.EmergencyAlert, error) {
	a := &models.EmergencyAlert{}
	var resolvedAt sql.NullTime
	err := row.Scan(
		&a.ID,
		&a.ChildID,
		&a.ChildName,
		&a.Type,
		&a.Message,
		&a.OperatorID,
		&a.Status,
		&a.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return a, nil
}

func (r *AlertRepository) queryAlerts(query string, args ...interface{}) ([]models.EmergencyAlert, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.EmergencyAlert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// CreateAlert inserts an active alert and fills in its ID
func (r *AlertRepository) CreateAlert(a *models.EmergencyAlert) error {
	query := `
		INSERT INTO emergency_alerts (child_id, type, message, operator_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, a.ChildID, a.Type, a.Message, a.OperatorID, a.Status, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	a.ID = id
	return nil
}

// GetAlertByID retrieves an alert by ID
func (r *AlertRepository) GetAlertByID(id int64) (*models.EmergencyAlert, error) {
	query := "SELECT " + alertColumns + " FROM emergency_alerts a JOIN children c ON c.id = a.child_id WHERE a.id = ?"
	a, err := scanAlert(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

// GetActiveAlerts lists unresolved alerts, newest first
func (r *AlertRepository) GetActiveAlerts() ([]models.EmergencyAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM emergency_alerts a
		JOIN children c ON c.id = a.child_id
		WHERE a.status = ?
		ORDER BY a.created_at DESC, a.id DESC
	`
	return r.queryAlerts(query, models.AlertActive)
}

// GetParentAlerts lists every alert about a parent's children, newest first
func (r *AlertRepository) GetParentAlerts(parentID int64) ([]models.EmergencyAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM emergency_alerts a
		JOIN children c ON c.id = a.child_id
		WHERE c.parent_id = ?
		ORDER BY a.created_at DESC, a.id DESC
	`
	return r.queryAlerts(query, parentID)
}

// ResolveAlert marks an active alert resolved, reporting false if it was not active
func (r *AlertRepository) ResolveAlert(id int64, now time.Time) (bool, error) {
	query := "UPDATE emergency_alerts SET status = ?, resolved_at = ? WHERE id = ? AND status = ?"
	result, err := r.db.Exec(query, models.AlertResolved, now.UTC(), id, models.AlertActive)
	if err != nil {
		return false, fmt.Errorf("failed to resolve alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read alert update: %w", err)
	}
	return rows == 1, nil
}
