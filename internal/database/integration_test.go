package database

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var errRollback = errors.New("rollback")

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "airjump_test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func insertParent(t *testing.T, db DBTX, email string) int64 {
	t.Helper()
	id, err := db.ExecReturningID(
		"INSERT INTO users (email, password_hash, name, role) VALUES (?, ?, ?, ?)",
		email, "hashedpass", "Parent", "parent")
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	return id
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	db := openTestDB(t)

	tables := []string{
		"users", "sessions", "password_reset_tokens", "children", "visits",
		"loyalty_programs", "party_bookings", "support_tickets", "emergency_alerts",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Running again must be a no-op
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Second RunMigrations failed: %v", err)
	}
}

// TestWithTx tests commit and rollback through the transaction helper
func TestWithTx(t *testing.T) {
	db := openTestDB(t)

	err := db.WithTx(func(tx *Tx) error {
		insertParent(t, tx, "committed@example.com")
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	rollbackErr := db.WithTx(func(tx *Tx) error {
		insertParent(t, tx, "rolledback@example.com")
		return errRollback
	})
	if rollbackErr != errRollback {
		t.Fatalf("WithTx returned %v, want errRollback", rollbackErr)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", "committed@example.com").Scan(&count); err != nil {
		t.Fatalf("Failed to query after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 committed user, got %d", count)
	}

	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", "rolledback@example.com").Scan(&count); err != nil {
		t.Fatalf("Failed to query after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 users after rollback, got %d", count)
	}
}

// TestOneActiveVisitPerChild checks the partial unique index on open visits
func TestOneActiveVisitPerChild(t *testing.T) {
	db := openTestDB(t)
	parentID := insertParent(t, db, "parent@example.com")

	childID, err := db.ExecReturningID(
		"INSERT INTO children (parent_id, name, birth_date) VALUES (?, ?, ?)",
		parentID, "Ana", time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Failed to insert child: %v", err)
	}

	expires := time.Now().UTC().Add(time.Hour)
	insert := "INSERT INTO visits (child_id, token, is_active, expires_at) VALUES (?, ?, ?, ?)"

	if _, err := db.Exec(insert, childID, "AJ-0000000000000001", true, expires); err != nil {
		t.Fatalf("Failed to insert first active visit: %v", err)
	}
	// Pending visits are not constrained
	if _, err := db.Exec(insert, childID, "AJ-0000000000000002", false, expires); err != nil {
		t.Fatalf("Failed to insert pending visit: %v", err)
	}

	_, err = db.Exec(insert, childID, "AJ-0000000000000003", true, expires)
	if err == nil {
		t.Fatal("Expected second active visit to be rejected")
	}
	if !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("Expected unique violation, got %v", err)
	}

	_, err = db.Exec(insert, childID, "AJ-0000000000000002", false, expires)
	if !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("Expected duplicate token to be a unique violation, got %v", err)
	}
}

// TestForeignKeysEnforced verifies the DSN turns on foreign keys for every pooled connection
func TestForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("INSERT INTO children (parent_id, name, birth_date) VALUES (?, ?, ?)",
		int64(9999), "Orphan", time.Now().UTC())
	if err == nil {
		t.Error("Expected foreign key violation for unknown parent")
	}
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	db := openTestDB(t)
	insertParent(t, db, "concurrent@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var name string
			err := db.QueryRow("SELECT name FROM users WHERE email = ?", "concurrent@example.com").Scan(&name)
			if err != nil {
				t.Errorf("Concurrent read failed: %v", err)
				return
			}
			if name != "Parent" {
				t.Errorf("Expected name 'Parent', got '%s'", name)
			}
		}()
	}
	wg.Wait()
}
