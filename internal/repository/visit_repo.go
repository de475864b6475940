package repository

import (
	"database/sql"
	"fmt"
	"time"

	"airjump/internal/database"
	"airjump/internal/models"
)

const visitColumns = `v.id, v.child_id, v.token, v.is_active, v.is_free, v.entry_time, v.exit_time, v.expires_at, v.created_at`

// VisitRepository handles database operations for entry tokens and the visits they open
type VisitRepository struct {
	db database.DBTX
}

// NewVisitRepository creates a new visit repository
func NewVisitRepository(db database.DBTX) *VisitRepository {
	return &VisitRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *VisitRepository) WithTx(tx *database.Tx) *VisitRepository {
	return &VisitRepository{db: tx}
}

func scanVisit(row rowScanner, extra ...interface{}) (*models.Visit, error) {
	v := &models.Visit{}
	var entry, exit sql.NullTime
	dest := []interface{}{
		&v.ID,
		&v.ChildID,
		&v.Token,
		&v.IsActive,
		&v.IsFree,
		&entry,
		&exit,
		&v.ExpiresAt,
		&v.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if entry.Valid {
		t := entry.Time
		v.EntryTime = &t
	}
	if exit.Valid {
		t := exit.Time
		v.ExitTime = &t
	}
	return v, nil
}

// CreateVisit inserts a pending visit and fills in its ID
func (r *VisitRepository) CreateVisit(v *models.Visit) error {
	query := `
		INSERT INTO visits (child_id, token, is_active, is_free, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, v.ChildID, v.Token, false, false, v.ExpiresAt.UTC(), v.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	v.ID = id
	return nil
}

// GetVisitByToken retrieves the visit a token belongs to
func (r *VisitRepository) GetVisitByToken(token string) (*models.Visit, error) {
	v, err := scanVisit(r.db.QueryRow("SELECT "+visitColumns+" FROM visits v WHERE v.token = ?", token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return v, nil
}

// GetActiveVisitForChild retrieves the child's open visit, if any
func (r *VisitRepository) GetActiveVisitForChild(childID int64) (*models.Visit, error) {
	query := "SELECT " + visitColumns + " FROM visits v WHERE v.child_id = ? AND v.is_active = ?"
	v, err := scanVisit(r.db.QueryRow(query, childID, true))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active visit: %w", err)
	}
	return v, nil
}

// DeletePendingVisits removes tokens of the child that were never used to enter
func (r *VisitRepository) DeletePendingVisits(childID int64) (int64, error) {
	result, err := r.db.Exec("DELETE FROM visits WHERE child_id = ? AND entry_time IS NULL", childID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending visits: %w", err)
	}
	return result.RowsAffected()
}

// MarkCheckedIn opens the visit if it is still pending and unexpired at now.
// It reports false when another scan got there first or the token expired.
// A unique violation means the child already has another open visit.
func (r *VisitRepository) MarkCheckedIn(visitID int64, now time.Time, isFree bool) (bool, error) {
	query := `
		UPDATE visits
		SET is_active = ?, entry_time = ?, is_free = ?
		WHERE id = ? AND entry_time IS NULL AND expires_at > ?
	`
	result, err := r.db.Exec(query, true, now.UTC(), isFree, visitID, now.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to check in: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read check-in result: %w", err)
	}
	return rows == 1, nil
}

// MarkCheckedOut closes the visit if it is still open. It reports false on a repeated scan.
func (r *VisitRepository) MarkCheckedOut(visitID int64, now time.Time) (bool, error) {
	query := "UPDATE visits SET is_active = ?, exit_time = ? WHERE id = ? AND is_active = ?"
	result, err := r.db.Exec(query, false, now.UTC(), visitID, true)
	if err != nil {
		return false, fmt.Errorf("failed to check out: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read check-out result: %w", err)
	}
	return rows == 1, nil
}

// VisitChildRow is a visit joined with its child
type VisitChildRow struct {
	Visit models.Visit
	Child models.Child
}

func (r *VisitRepository) queryVisitsWithChildren(query string, args ...interface{}) ([]VisitChildRow, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var result []VisitChildRow
	for rows.Next() {
		var c models.Child
		v, err := scanVisit(rows,
			&c.ID, &c.ParentID, &c.Name, &c.BirthDate, &c.MedicalNotes, &c.EmergencyContact,
			&c.HasDisability, &c.Visits, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		result = append(result, VisitChildRow{Visit: *v, Child: c})
	}
	return result, rows.Err()
}

// GetActiveVisits lists the children currently inside, longest stay first
func (r *VisitRepository) GetActiveVisits() ([]VisitChildRow, error) {
	query := `
		SELECT ` + visitColumns + `, ` + childColumns + `
		FROM visits v
		JOIN children c ON c.id = v.child_id
		WHERE v.is_active = ?
		ORDER BY v.entry_time ASC
	`
	return r.queryVisitsWithChildren(query, true)
}

// GetRecentVisits lists the latest visits that reached the desk, newest first
func (r *VisitRepository) GetRecentVisits(limit int) ([]VisitChildRow, error) {
	query := `
		SELECT ` + visitColumns + `, ` + childColumns + `
		FROM visits v
		JOIN children c ON c.id = v.child_id
		WHERE v.entry_time IS NOT NULL
		ORDER BY v.entry_time DESC, v.id DESC
		LIMIT ?
	`
	return r.queryVisitsWithChildren(query, limit)
}

// CloseAbandonedVisits closes visits that were opened before cutoff and never checked out.
// No loyalty seal or visit count is granted for them.
func (r *VisitRepository) CloseAbandonedVisits(cutoff, now time.Time) (int64, error) {
	query := "UPDATE visits SET is_active = ?, exit_time = ? WHERE is_active = ? AND entry_time < ?"
	result, err := r.db.Exec(query, false, now.UTC(), true, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to close abandoned visits: %w", err)
	}
	return result.RowsAffected()
}

// DeleteStalePendingVisits removes unused tokens that expired before cutoff
func (r *VisitRepository) DeleteStalePendingVisits(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM visits WHERE entry_time IS NULL AND expires_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale tokens: %w", err)
	}
	return result.RowsAffected()
}

// GetDailyStats counts the entries made in [start, end) and the children inside now
func (r *VisitRepository) GetDailyStats(start, end time.Time) (*models.DailyStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN v.is_free THEN 0 ELSE 1 END), 0),
			COALESCE(SUM(CASE WHEN v.is_free THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN c.has_disability THEN 1 ELSE 0 END), 0)
		FROM visits v
		JOIN children c ON c.id = v.child_id
		WHERE v.entry_time >= ? AND v.entry_time < ?
	`
	stats := &models.DailyStats{Date: start.Format("2006-01-02")}
	err := r.db.QueryRow(query, start.UTC(), end.UTC()).Scan(
		&stats.TotalEntries,
		&stats.PaidEntries,
		&stats.FreeEntries,
		&stats.DisabilityEntries,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily stats: %w", err)
	}

	if err := r.db.QueryRow("SELECT COUNT(*) FROM visits WHERE is_active = ?", true).Scan(&stats.CurrentlyInside); err != nil {
		return nil, fmt.Errorf("failed to count active visits: %w", err)
	}
	return stats, nil
}
