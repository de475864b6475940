package service

import (
	"path/filepath"
	"testing"
	"time"

	"airjump/internal/database"
	"airjump/internal/events"
	"airjump/internal/metrics"
	"airjump/internal/models"
	"airjump/internal/qrtoken"
	"airjump/internal/repository"
)

// testEnv wires every service against a fresh sqlite database
type testEnv struct {
	db      *database.DB
	hub     *events.Hub
	metrics *metrics.Metrics

	users    *repository.UserRepository
	children *repository.ChildRepository
	visits   *repository.VisitRepository
	cards    *repository.LoyaltyRepository

	auth    *AuthService
	child   *ChildService
	loyalty *LoyaltyService
	entry   *EntryService
	party   *PartyService
	support *SupportService
	alerts  *AlertService
	backup  *BackupService
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service_test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	issuer, err := qrtoken.NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}
	emailService, err := NewEmailService("us-east-1", "", "Air Jump", "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}

	env := &testEnv{
		db:       db,
		hub:      events.NewHub(),
		metrics:  metrics.New(),
		users:    repository.NewUserRepository(db),
		children: repository.NewChildRepository(db),
		visits:   repository.NewVisitRepository(db),
		cards:    repository.NewLoyaltyRepository(db),
	}
	env.auth = NewAuthService(db, env.users, emailService, time.Hour)
	env.child = NewChildService(env.children, nil)
	env.loyalty = NewLoyaltyService(db, env.cards)
	env.entry = NewEntryService(db, env.children, env.visits, env.cards, env.loyalty, issuer, env.hub, env.metrics,
		EntryOptions{TokenTTL: 2 * time.Hour, MaxVisitDuration: 24 * time.Hour})
	env.party = NewPartyService(repository.NewPartyRepository(db), env.hub, nil)
	env.support = NewSupportService(repository.NewTicketRepository(db), env.hub)
	env.alerts = NewAlertService(repository.NewAlertRepository(db), env.children, env.users, emailService, env.hub, env.metrics)
	env.backup = NewBackupService(db)
	return env
}

func (e *testEnv) register(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := e.auth.Register(email, "password123", "Test Parent", "+55 11 99999-0000")
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	return user
}

func (e *testEnv) addChild(t *testing.T, parentID int64, name string) *models.ChildProfile {
	t.Helper()
	child, err := e.child.AddChild(parentID, ChildInput{
		Name:             name,
		BirthDate:        "2019-03-15",
		EmergencyContact: "+55 11 98888-0000",
	})
	if err != nil {
		t.Fatalf("AddChild(%s) error = %v", name, err)
	}
	return child
}
