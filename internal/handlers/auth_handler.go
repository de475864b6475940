package handlers

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"airjump/internal/models"
	"airjump/internal/security"
	"airjump/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	emailService         *service.EmailService
	csrf                 *security.CSRFGenerator
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	appBaseURL           string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService *service.AuthService,
	emailService *service.EmailService,
	csrf *security.CSRFGenerator,
	oauthProviders map[string]OAuthProvider,
	oauthRedirectBaseURL string,
	appBaseURL string,
) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		emailService:         emailService,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		appBaseURL:           appBaseURL,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is returned on login. Mobile apps send SessionToken as a bearer token,
// browsers use the cookie and echo CSRFToken on mutations.
type sessionResponse struct {
	User         *models.User `json:"user"`
	SessionToken string       `json:"session_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	CSRFToken    string       `json:"csrf_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// startSession sets the session cookie and writes the session response
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, session *models.Session, user *models.User) {
	csrfToken, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error generating CSRF token", err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, session.ID, session.ExpiresAt))
	respondJSON(w, status, sessionResponse{
		User:         user,
		SessionToken: session.ID,
		ExpiresAt:    session.ExpiresAt,
		CSRFToken:    csrfToken,
	})
}

// Register creates a parent account and signs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	user, err := h.authService.Register(req.Email, req.Password, req.Name, req.Phone)
	if err != nil {
		respondWithServiceError(w, "Error registering user", err)
		return
	}

	if h.emailService.IsEnabled() {
		if err := h.emailService.SendWelcomeEmail(r.Context(), user.Email, user.Name); err != nil {
			log.Warnf("Failed to send welcome email to %s: %v", user.Email, err)
		}
	}

	session, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, "Error creating session after registration", err)
		return
	}

	h.startSession(w, r, http.StatusCreated, session, user)
}

// Login handles email and password sign in
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	session, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, "Error logging in", err)
		return
	}

	h.startSession(w, r, http.StatusOK, session, user)
}

// Logout ends the current session, if any
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, _ := security.SessionIDFromRequest(r); sessionID != "" {
		if err := h.authService.Logout(sessionID); err != nil {
			log.Errorf("Error deleting session: %v", err)
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
	w.WriteHeader(http.StatusNoContent)
}

// RequestPasswordReset emails a reset link. The answer is the same whether or not the email exists.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondWithServiceError(w, "Error requesting password reset", err)
		return
	}

	respondJSON(w, http.StatusAccepted, messageResponse{
		Message: "If an account exists for that email, a reset link has been sent",
	})
}

// ValidatePasswordReset reports whether the reset link in ?token= can still be used
func (h *AuthHandler) ValidatePasswordReset(w http.ResponseWriter, r *http.Request) {
	valid, err := h.authService.ValidatePasswordResetToken(r.URL.Query().Get("token"))
	if err != nil {
		respondWithServiceError(w, "Error validating reset token", err)
		return
	}
	if !valid {
		respondWithServiceError(w, "", service.ErrInvalidResetToken)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// ConfirmPasswordReset sets a new password with a reset token
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	if err := h.authService.ResetPassword(req.Token, req.Password); err != nil {
		respondWithServiceError(w, "Error resetting password", err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "Password updated, please sign in again"})
}

// Me returns the signed-in account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GetUserFromContext(r.Context()))
}

// UpdateMe changes the signed-in account's name and phone
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	updated, err := h.authService.UpdateProfile(user.ID, req.Name, req.Phone)
	if err != nil {
		respondWithServiceError(w, "Error updating profile", err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// CSRFToken returns the CSRF token for the current session
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	session, _ := r.Context().Value(SessionContextKey).(sessionInfo)
	token, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error generating CSRF token", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}
