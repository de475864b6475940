package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if result {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO users (name, email) VALUES (?, ?)",
			expected: "INSERT INTO users (name, email) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE users SET name = ?, email = ? WHERE id = ?",
			expected: "UPDATE users SET name = ?, email = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "adds both parameters",
			url:      "user:pass@tcp(localhost:3306)/airjump",
			expected: "user:pass@tcp(localhost:3306)/airjump?parseTime=true&multiStatements=true",
		},
		{
			name:     "appends to existing query",
			url:      "user:pass@tcp(localhost:3306)/airjump?charset=utf8mb4",
			expected: "user:pass@tcp(localhost:3306)/airjump?charset=utf8mb4&parseTime=true&multiStatements=true",
		},
		{
			name:     "keeps explicit settings",
			url:      "user:pass@tcp(localhost:3306)/airjump?parseTime=true&multiStatements=true",
			expected: "user:pass@tcp(localhost:3306)/airjump?parseTime=true&multiStatements=true",
		},
	}

	dialect := NewMySQLDialect()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dialect.DSN(DialectConfig{URL: tt.url}); got != tt.expected {
				t.Errorf("DSN() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsUniqueViolationForeignErrors(t *testing.T) {
	err := errors.New("duplicate key")
	for _, dialect := range []Dialect{NewSQLiteDialect(), NewPostgresDialect(), NewMySQLDialect()} {
		if dialect.IsUniqueViolation(err) {
			t.Errorf("%s: IsUniqueViolation() = true for plain error", dialect.DriverName())
		}
		if dialect.IsUniqueViolation(nil) {
			t.Errorf("%s: IsUniqueViolation() = true for nil", dialect.DriverName())
		}
	}

	pgErr := &pq.Error{Code: "23505"}
	if !NewPostgresDialect().IsUniqueViolation(fmt.Errorf("insert: %w", pgErr)) {
		t.Error("postgres: wrapped 23505 should be a unique violation")
	}

	myErr := &mysql.MySQLError{Number: 1062}
	if !NewMySQLDialect().IsUniqueViolation(myErr) {
		t.Error("mysql: 1062 should be a unique violation")
	}
}

func TestResetSequenceQuery(t *testing.T) {
	if got := NewSQLiteDialect().ResetSequenceQuery("users"); got != "" {
		t.Errorf("sqlite ResetSequenceQuery() = %q, want empty", got)
	}
	if got := NewMySQLDialect().ResetSequenceQuery("users"); got != "" {
		t.Errorf("mysql ResetSequenceQuery() = %q, want empty", got)
	}
	want := "SELECT setval(pg_get_serial_sequence('users', 'id'), COALESCE(MAX(id), 1), MAX(id) IS NOT NULL) FROM users"
	if got := NewPostgresDialect().ResetSequenceQuery("users"); got != want {
		t.Errorf("postgres ResetSequenceQuery() = %q, want %q", got, want)
	}
}

func TestLockTableQuery(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		want    string
	}{
		{"sqlite", NewSQLiteDialect(), ""},
		{"postgres", NewPostgresDialect(), "LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE"},
		{"mysql", NewMySQLDialect(), "SELECT id FROM users FOR UPDATE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.LockTableQuery("users"); got != tt.want {
				t.Errorf("LockTableQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}
