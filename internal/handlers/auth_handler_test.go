package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"airjump/internal/models"
	"airjump/internal/security"
)

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(t, http.MethodPost, "/api/auth/register", registerRequest{
		Email: "Admin@Example.com", Password: "password123", Name: "Ana",
	}, "")
	expectStatus(t, rec, http.StatusCreated)

	var session sessionResponse
	decodeBody(t, rec, &session)
	if session.SessionToken == "" || session.CSRFToken == "" {
		t.Fatalf("register response missing tokens: %+v", session)
	}
	if session.User.Email != "admin@example.com" || session.User.Role != models.RoleAdmin {
		t.Errorf("first account = %+v, want normalized admin", session.User)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), security.SessionCookieName+"=") {
		t.Errorf("register did not set the session cookie")
	}

	rec = s.request(t, http.MethodPost, "/api/auth/register", registerRequest{
		Email: "admin@example.com", Password: "password123", Name: "Ana",
	}, "")
	expectStatus(t, rec, http.StatusConflict)

	rec = s.request(t, http.MethodPost, "/api/auth/register", registerRequest{
		Email: "second@example.com", Password: "short", Name: "Bia",
	}, "")
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.request(t, http.MethodPost, "/api/auth/login", loginRequest{Email: "admin@example.com", Password: "wrong-password"}, "")
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = s.request(t, http.MethodPost, "/api/auth/login", loginRequest{Email: "admin@example.com", Password: "password123"}, "")
	expectStatus(t, rec, http.StatusOK)
}

func TestMeAndLogout(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "parent@example.com")

	expectStatus(t, s.request(t, http.MethodGet, "/api/me", nil, ""), http.StatusUnauthorized)
	expectStatus(t, s.request(t, http.MethodGet, "/api/me", nil, "not-a-session"), http.StatusUnauthorized)

	rec := s.request(t, http.MethodGet, "/api/me", nil, token)
	expectStatus(t, rec, http.StatusOK)
	var me models.User
	decodeBody(t, rec, &me)
	if me.Email != "parent@example.com" {
		t.Errorf("me = %+v", me)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("password hash leaked: %s", rec.Body.String())
	}

	rec = s.request(t, http.MethodPut, "/api/me", map[string]string{"name": "Carla Souza", "phone": "+55 21 97777-1111"}, token)
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &me)
	if me.Name != "Carla Souza" || me.Phone != "+55 21 97777-1111" {
		t.Errorf("updated me = %+v", me)
	}

	expectStatus(t, s.request(t, http.MethodPost, "/api/auth/logout", nil, token), http.StatusNoContent)
	expectStatus(t, s.request(t, http.MethodGet, "/api/me", nil, token), http.StatusUnauthorized)
}

func TestPasswordResetOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "parent@example.com")

	rec := s.request(t, http.MethodPost, "/api/auth/password-reset", map[string]string{"email": "nobody@example.com"}, "")
	expectStatus(t, rec, http.StatusAccepted)
	rec = s.request(t, http.MethodPost, "/api/auth/password-reset", map[string]string{"email": "parent@example.com"}, "")
	expectStatus(t, rec, http.StatusAccepted)

	user, err := s.users.GetUserByEmail("parent@example.com")
	if err != nil || user == nil {
		t.Fatalf("GetUserByEmail() = %v, %v", user, err)
	}
	resetToken, err := security.GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken() error = %v", err)
	}
	if err := s.users.CreatePasswordResetToken(resetToken, user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreatePasswordResetToken() error = %v", err)
	}

	expectStatus(t, s.request(t, http.MethodGet, "/api/auth/password-reset/validate?token=bogus", nil, ""), http.StatusGone)
	expectStatus(t, s.request(t, http.MethodGet, "/api/auth/password-reset/validate?token="+resetToken, nil, ""), http.StatusOK)

	confirm := map[string]string{"token": resetToken, "password": "new-password-1"}
	expectStatus(t, s.request(t, http.MethodPost, "/api/auth/password-reset/confirm", confirm, ""), http.StatusOK)
	expectStatus(t, s.request(t, http.MethodPost, "/api/auth/password-reset/confirm", confirm, ""), http.StatusGone)

	rec = s.request(t, http.MethodPost, "/api/auth/login", loginRequest{Email: "parent@example.com", Password: "password123"}, "")
	expectStatus(t, rec, http.StatusUnauthorized)
	rec = s.request(t, http.MethodPost, "/api/auth/login", loginRequest{Email: "parent@example.com", Password: "new-password-1"}, "")
	expectStatus(t, rec, http.StatusOK)
}

func TestOAuthStartUnconfiguredProvider(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/start", nil))
	expectStatus(t, rec, http.StatusNotFound)

	rec = s.request(t, http.MethodGet, "/api/auth/providers", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("providers = %s, want empty list", rec.Body.String())
	}
}
