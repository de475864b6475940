package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"airjump/internal/database"
	"airjump/internal/events"
	"airjump/internal/metrics"
	"airjump/internal/qrtoken"
	"airjump/internal/repository"
	"airjump/internal/security"
	"airjump/internal/service"
)

// testServer is the full API mounted on a mux over a temporary sqlite database
type testServer struct {
	db      *database.DB
	mux     *http.ServeMux
	hub     *events.Hub
	users   *repository.UserRepository
	limiter *security.RateLimiter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers_test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	issuer, err := qrtoken.NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}
	emailService, err := service.NewEmailService("us-east-1", "", "Air Jump", "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}

	hub := events.NewHub()
	m := metrics.New()

	userRepo := repository.NewUserRepository(db)
	childRepo := repository.NewChildRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	loyaltyRepo := repository.NewLoyaltyRepository(db)

	authService := service.NewAuthService(db, userRepo, emailService, time.Hour)
	childService := service.NewChildService(childRepo, nil)
	loyaltyService := service.NewLoyaltyService(db, loyaltyRepo)
	entryService := service.NewEntryService(db, childRepo, visitRepo, loyaltyRepo, loyaltyService, issuer, hub, m,
		service.EntryOptions{TokenTTL: 2 * time.Hour, MaxVisitDuration: 24 * time.Hour})
	partyService := service.NewPartyService(repository.NewPartyRepository(db), hub, nil)
	supportService := service.NewSupportService(repository.NewTicketRepository(db), hub)
	alertService := service.NewAlertService(repository.NewAlertRepository(db), childRepo, userRepo, emailService, hub, m)
	backupService := service.NewBackupService(db)

	csrf := security.NewCSRFGenerator("test-csrf-secret")
	limiter := security.NewRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)

	h := &Handlers{
		Middleware: NewMiddleware(authService, csrf, limiter, nil),
		Auth:       NewAuthHandler(authService, emailService, csrf, nil, "", "http://localhost:3000"),
		Child:      NewChildHandler(childService, entryService),
		Parent:     NewParentHandler(loyaltyService, partyService, supportService, alertService),
		Admin:      NewAdminHandler(entryService, childService, partyService, supportService, alertService, backupService),
		Live:       NewLiveHandler(hub, []string{"http://localhost:3000"}),
	}
	mux := http.NewServeMux()
	h.Register(mux)

	return &testServer{db: db, mux: mux, hub: hub, users: userRepo, limiter: limiter}
}

// request sends a JSON request authenticated with a bearer token when token is set
func (s *testServer) request(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

// signUp registers an account and returns its session token
func (s *testServer) signUp(t *testing.T, email string) string {
	t.Helper()
	rec := s.request(t, http.MethodPost, "/api/auth/register", registerRequest{
		Email:    email,
		Password: "password123",
		Name:     "Test Parent",
		Phone:    "+55 11 99999-0000",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	decodeBody(t, rec, &resp)
	return resp.SessionToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

// addChild registers a child through the API and returns its id
func (s *testServer) addChild(t *testing.T, token, name string) int64 {
	t.Helper()
	rec := s.request(t, http.MethodPost, "/api/children", service.ChildInput{
		Name:             name,
		BirthDate:        "2019-03-15",
		EmergencyContact: "+55 11 98888-0000",
	}, token)
	expectStatus(t, rec, http.StatusCreated)

	var child struct {
		ID   int64    `json:"id"`
		Tags []string `json:"tags"`
	}
	decodeBody(t, rec, &child)
	if child.ID == 0 || len(child.Tags) == 0 {
		t.Fatalf("unexpected child response %+v", child)
	}
	return child.ID
}
