package service

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"airjump/internal/database"

	log "github.com/sirupsen/logrus"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

var ErrDatabaseNotEmpty = errors.New("target database already has users; import needs an empty database")

// BackupData represents the complete database backup structure.
// Sessions and reset tokens are transient and not exported.
type BackupData struct {
	Version      string          `json:"version"`
	ExportedAt   time.Time       `json:"exported_at"`
	DatabaseType string          `json:"database_type"`
	Users        []UserBackup    `json:"users"`
	Children     []ChildBackup   `json:"children"`
	Visits       []VisitBackup   `json:"visits"`
	Loyalty      []LoyaltyBackup `json:"loyalty_programs"`
	Parties      []PartyBackup   `json:"party_bookings"`
	Tickets      []TicketBackup  `json:"support_tickets"`
	Alerts       []AlertBackup   `json:"emergency_alerts"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Role          string    `json:"role"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChildBackup represents a child record for backup
type ChildBackup struct {
	ID               int64     `json:"id"`
	ParentID         int64     `json:"parent_id"`
	Name             string    `json:"name"`
	BirthDate        time.Time `json:"birth_date"`
	MedicalNotes     string    `json:"medical_notes"`
	EmergencyContact string    `json:"emergency_contact"`
	HasDisability    bool      `json:"has_disability"`
	Visits           int       `json:"visits"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// VisitBackup represents a visit record for backup
type VisitBackup struct {
	ID        int64      `json:"id"`
	ChildID   int64      `json:"child_id"`
	Token     string     `json:"token"`
	IsActive  bool       `json:"is_active"`
	IsFree    bool       `json:"is_free"`
	EntryTime *time.Time `json:"entry_time"`
	ExitTime  *time.Time `json:"exit_time"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// LoyaltyBackup represents a loyalty card for backup
type LoyaltyBackup struct {
	ID          int64     `json:"id"`
	ParentID    int64     `json:"parent_id"`
	Seals       int       `json:"seals"`
	FreeEntries int       `json:"free_entries"`
	LastUpdated time.Time `json:"last_updated"`
}

// PartyBackup represents a party booking for backup
type PartyBackup struct {
	ID              int64     `json:"id"`
	ParentID        int64     `json:"parent_id"`
	ChildName       string    `json:"child_name"`
	PartyDate       time.Time `json:"party_date"`
	TimeSlot        string    `json:"time_slot"`
	Guests          int       `json:"guests"`
	Package         string    `json:"package"`
	Notes           string    `json:"notes"`
	Status          string    `json:"status"`
	TotalPriceCents int64     `json:"total_price_cents"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TicketBackup represents a support ticket for backup
type TicketBackup struct {
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

// AlertBackup represents an emergency alert for backup
type AlertBackup struct {
	ID         int64      `json:"id"`
	ChildID    int64      `json:"child_id"`
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	OperatorID int64      `json:"operator_id"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

// backupTables lists the tables in insert order
var backupTables = []string{
	"users", "children", "visits", "loyalty_programs", "party_bookings", "support_tickets", "emergency_alerts",
}

// clearTables lists every table in delete order, children before parents
var clearTables = []string{
	"emergency_alerts", "support_tickets", "party_bookings", "loyalty_programs", "visits", "children",
	"password_reset_tokens", "sessions", "users",
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	log.Info("Starting database export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(file)
	if err != nil {
		return err
	}

	log.Infof("Database exported successfully to %s", outputPath)
	log.Infof("Exported: %d users, %d children, %d visits, %d loyalty cards, %d parties, %d tickets, %d alerts",
		len(backup.Users), len(backup.Children), len(backup.Visits), len(backup.Loyalty),
		len(backup.Parties), len(backup.Tickets), len(backup.Alerts))
	return nil
}

// ExportToWriter writes the backup as indented JSON (used for HTTP downloads)
func (s *BackupService) ExportToWriter(w io.Writer) (*BackupData, error) {
	backup, err := s.collect()
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

func (s *BackupService) collect() (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.MigrationsSubdir(),
	}

	steps := []struct {
		name string
		fn   func(*BackupData) error
	}{
		{"users", s.exportUsers},
		{"children", s.exportChildren},
		{"visits", s.exportVisits},
		{"loyalty programs", s.exportLoyalty},
		{"party bookings", s.exportParties},
		{"support tickets", s.exportTickets},
		{"emergency alerts", s.exportAlerts},
	}
	for _, step := range steps {
		if err := step.fn(backup); err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", step.name, err)
		}
	}
	return backup, nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	log.Infof("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader. Everything is
// inserted in one transaction, so a failed import leaves the database empty.
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	log.Infof("Backup version: %s, exported at: %s from %s", backup.Version, backup.ExportedAt, backup.DatabaseType)

	var users int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&users); err != nil {
		return fmt.Errorf("failed to inspect target database: %w", err)
	}
	if users > 0 {
		return ErrDatabaseNotEmpty
	}

	err := s.db.WithTx(func(tx *database.Tx) error {
		steps := []struct {
			name string
			fn   func(*database.Tx, *BackupData) error
		}{
			{"users", importUsers},
			{"children", importChildren},
			{"visits", importVisits},
			{"loyalty programs", importLoyalty},
			{"party bookings", importParties},
			{"support tickets", importTickets},
			{"emergency alerts", importAlerts},
		}
		for _, step := range steps {
			if err := step.fn(tx, &backup); err != nil {
				return fmt.Errorf("failed to import %s: %w", step.name, err)
			}
		}

		for _, table := range backupTables {
			if query := tx.GetDialect().ResetSequenceQuery(table); query != "" {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to reset %s sequence: %w", table, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Infof("Database import completed: %d users, %d children, %d visits",
		len(backup.Users), len(backup.Children), len(backup.Visits))
	return nil
}

// Clear deletes all data, including sessions, so a backup can be imported over it
func (s *BackupService) Clear() error {
	return s.db.WithTx(func(tx *database.Tx) error {
		for _, table := range clearTables {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			log.Debugf("Cleared table: %s", table)
		}
		return nil
	})
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := `SELECT id, email, password_hash, name, phone, role, COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''),
		created_at, updated_at FROM users ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role, &u.OAuthProvider,
			&u.OAuthSubject, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportChildren(backup *BackupData) error {
	query := `SELECT id, parent_id, name, birth_date, medical_notes, emergency_contact, has_disability, visits,
		created_at, updated_at FROM children ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ChildBackup
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &c.BirthDate, &c.MedicalNotes, &c.EmergencyContact,
			&c.HasDisability, &c.Visits, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		backup.Children = append(backup.Children, c)
	}
	return rows.Err()
}

func (s *BackupService) exportVisits(backup *BackupData) error {
	query := `SELECT id, child_id, token, is_active, is_free, entry_time, exit_time, expires_at, created_at
		FROM visits ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var v VisitBackup
		var entry, exit sql.NullTime
		if err := rows.Scan(&v.ID, &v.ChildID, &v.Token, &v.IsActive, &v.IsFree, &entry, &exit,
			&v.ExpiresAt, &v.CreatedAt); err != nil {
			return err
		}
		v.EntryTime = timePtr(entry)
		v.ExitTime = timePtr(exit)
		backup.Visits = append(backup.Visits, v)
	}
	return rows.Err()
}

func (s *BackupService) exportLoyalty(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, parent_id, seals, free_entries, last_updated FROM loyalty_programs ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l LoyaltyBackup
		if err := rows.Scan(&l.ID, &l.ParentID, &l.Seals, &l.FreeEntries, &l.LastUpdated); err != nil {
			return err
		}
		backup.Loyalty = append(backup.Loyalty, l)
	}
	return rows.Err()
}

func (s *BackupService) exportParties(backup *BackupData) error {
	query := `SELECT id, parent_id, child_name, party_date, time_slot, guests, package, notes, status,
		total_price_cents, created_at, updated_at FROM party_bookings ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p PartyBackup
		if err := rows.Scan(&p.ID, &p.ParentID, &p.ChildName, &p.PartyDate, &p.TimeSlot, &p.Guests, &p.Package,
			&p.Notes, &p.Status, &p.TotalPriceCents, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		backup.Parties = append(backup.Parties, p)
	}
	return rows.Err()
}

func (s *BackupService) exportTickets(backup *BackupData) error {
	query := `SELECT id, parent_id, type, subject, description, status, priority, created_at, updated_at
		FROM support_tickets ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var t TicketBackup
		if err := rows.Scan(&t.ID, &t.ParentID, &t.Type, &t.Subject, &t.Description, &t.Status, &t.Priority,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return err
		}
		backup.Tickets = append(backup.Tickets, t)
	}
	return rows.Err()
}

func (s *BackupService) exportAlerts(backup *BackupData) error {
	query := `SELECT id, child_id, type, message, operator_id, status, created_at, resolved_at
		FROM emergency_alerts ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a AlertBackup
		var resolved sql.NullTime
		if err := rows.Scan(&a.ID, &a.ChildID, &a.Type, &a.Message, &a.OperatorID, &a.Status, &a.CreatedAt,
			&resolved); err != nil {
			return err
		}
		a.ResolvedAt = timePtr(resolved)
		backup.Alerts = append(backup.Alerts, a)
	}
	return rows.Err()
}

func importUsers(tx *database.Tx, backup *BackupData) error {
	log.Infof("Importing %d users...", len(backup.Users))
	query := `INSERT INTO users (id, email, password_hash, name, phone, role, oauth_provider, oauth_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, u := range backup.Users {
		if _, err := tx.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, u.Role,
			nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), u.CreatedAt.UTC(), u.UpdatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importChildren(tx *database.Tx, backup *BackupData) error {
	log.Infof("Importing %d children...", len(backup.Children))
	query := `INSERT INTO children (id, parent_id, name, birth_date, medical_notes, emergency_contact, has_disability, visits, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, c := range backup.Children {
		if _, err := tx.Exec(query, c.ID, c.ParentID, c.Name, c.BirthDate.UTC(), c.MedicalNotes, c.EmergencyContact,
			c.HasDisability, c.Visits, c.CreatedAt.UTC(), c.UpdatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to import child %d: %w", c.ID, err)
		}
	}
	return nil
}

func importVisits(tx *database.Tx, backup *BackupData) error {
	log.Infof("Importing %d visits...", len(backup.Visits))
	query := `INSERT INTO visits (id, child_id, token, is_active, is_free, entry_time, exit_time, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, v := range backup.Visits {
		if _, err := tx.Exec(query, v.ID, v.ChildID, v.Token, v.IsActive, v.IsFree, nullTime(v.EntryTime),
			nullTime(v.ExitTime), v.ExpiresAt.UTC(), v.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to import visit %d: %w", v.ID, err)
		}
	}
	return nil
}

func importLoyalty(tx *database.Tx, backup *BackupData) error {
	log.Infof("Importing %d loyalty programs...", len(backup.Loyalty))
	query := "INSERT INTO loyalty_programs (id, parent_id, seals, free_entries, last_updated) VALUES (?, ?, ?, ?, ?)"
	for _, l := range backup.Loyalty {
		if _, err := tx.Exec(query, l.ID, l.ParentID, l.Seals, l.FreeEntries, l.LastUpdated.UTC()); err != nil {
			return fmt.Errorf("failed to import loyalty program %d: %w", l.ID, err)
		}
	}
	return nil
}

func importParties(tx *database.Tx, backup *BackupData) error {
	log.Infof("Importing %d party bookings...", len(backup.Parties))
	query := `INSERT INTO party_bookings (id, parent_id, child_name, party_date, time_slot, guests, package, notes, status, total_price_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, p := range backup.Parties {
		if _, err := tx.Exec(query, p.ID, p.ParentID, p.ChildName, p.PartyDate.UTC(), p.TimeSlot, p.Guests, p.Package,
			p.Notes, p.Status, p.TotalPriceCents, p.CreatedAt.UTC(), p.UpdatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to import party booking %d: %w", p.ID, err)
		}
	}
	return nil
}

func importTickets(tx *database.Tx, backup *BackupData) error {
	log.Infof("Importing %d support tickets...", len(backup.Tickets))
	query := `INSERT INTO support_tickets (id, parent_id, type, subject, description, status, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, t := range backup.Tickets {
		if _, err := tx.Exec(query, t.ID, t.ParentID, t.Type, t.Subject, t.Description, t.Status, t.Priority,
			t.CreatedAt.UTC(), t.UpdatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to import ticket %d: %w", t.ID, err)
		}
	}
	return nil
}

func importAlerts(tx *database.Tx, backup *BackupData) error {
	log.Infof("Importing %d emergency alerts...", len(backup.Alerts))
	query := `INSERT INTO emergency_alerts (id, child_id, type, message, operator_id, status, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, a := range backup.Alerts {
		if _, err := tx.Exec(query, a.ID, a.ChildID, a.Type, a.Message, a.OperatorID, a.Status, a.CreatedAt.UTC(),
			nullTime(a.ResolvedAt)); err != nil {
			return fmt.Errorf("failed to import alert %d: %w", a.ID, err)
		}
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
