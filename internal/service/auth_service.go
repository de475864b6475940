package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"airjump/internal/database"
	"airjump/internal/models"
	"airjump/internal/repository"
	"airjump/internal/security"
	"airjump/internal/validation"

	log "github.com/sirupsen/logrus"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrResetTokenUsed     = errors.New("this reset link has already been used")
	ErrOAuthIncomplete    = errors.New("missing oauth provider information")
)

// passwordResetTTL is how long a reset link stays valid
const passwordResetTTL = time.Hour

// AuthService handles accounts, sessions and password resets
type AuthService struct {
	db              *database.DB
	userRepo        *repository.UserRepository
	emailService    *EmailService
	sessionDuration time.Duration
}

// NewAuthService creates a new auth service. emailService may be nil.
func NewAuthService(db *database.DB, userRepo *repository.UserRepository, emailService *EmailService, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		db:              db,
		userRepo:        userRepo,
		emailService:    emailService,
		sessionDuration: sessionDuration,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// createUser runs the first-admin check and the insert in one transaction
func (s *AuthService) createUser(email, passwordHash, name, phone string) (*models.User, error) {
	var user *models.User
	err := s.db.WithTx(func(tx *database.Tx) error {
		var err error
		user, err = s.userRepo.WithTx(tx).CreateUser(email, passwordHash, name, phone)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Register creates a new parent account
func (s *AuthService) Register(email, password, name, phone string) (*models.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePhone("phone", phone); err != nil {
		return nil, err
	}

	existingUser, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.createUser(email, passwordHash, name, phone)
	if err != nil {
		if s.db.Dialect.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if user.IsAdmin() {
		log.Infof("First account %s registered as venue admin", user.Email)
	}
	return user, nil
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(email, password string) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByEmail(normalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) createSession(userID int64) (*models.Session, error) {
	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().UTC().Add(s.sessionDuration)

	session, err := s.userRepo.CreateSession(sessionID, userID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	session, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.userRepo.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.userRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions and reset tokens
func (s *AuthService) CleanupExpiredSessions() error {
	now := time.Now().UTC()
	removed, err := s.userRepo.DeleteExpiredSessions(now)
	if err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	if removed > 0 {
		log.Debugf("Removed %d expired sessions", removed)
	}
	if err := s.userRepo.DeleteExpiredPasswordResetTokens(now); err != nil {
		return fmt.Errorf("failed to cleanup reset tokens: %w", err)
	}
	return nil
}

// UpdateProfile changes the name and phone of an account
func (s *AuthService) UpdateProfile(userID int64, name, phone string) (*models.User, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePhone("phone", phone); err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateProfile(userID, name, phone); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// OAuthLogin authenticates or creates a user using an OAuth provider
func (s *AuthService) OAuthLogin(provider, subject, email, name string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, ErrOAuthIncomplete
	}
	email = normalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existingUser, err := s.userRepo.GetUserByEmail(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existingUser != nil {
			if existingUser.OAuthProvider != "" && existingUser.OAuthProvider != provider {
				return nil, nil, ErrEmailTaken
			}
			if err := s.userRepo.LinkOAuthProvider(existingUser.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			user = existingUser
		} else {
			if strings.TrimSpace(name) == "" {
				name = strings.Split(email, "@")[0]
			}
			// OAuth-only accounts get an unusable random password
			randomPasswordHash, err := security.HashPassword(security.GenerateSessionID())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to generate oauth password hash: %w", err)
			}
			newUser, err := s.createUser(email, randomPasswordHash, name, "")
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create oauth user: %w", err)
			}
			if err := s.userRepo.LinkOAuthProvider(newUser.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			newUser.OAuthProvider = provider
			newUser.OAuthSubject = subject
			user = newUser
		}
	}

	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// RequestPasswordReset creates a password reset token and emails the link.
// Unknown addresses succeed silently so the endpoint does not reveal which emails exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetUserByEmail(normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil
	}

	token, err := security.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.userRepo.DeleteUserPasswordResetTokens(user.ID); err != nil {
		log.Warnf("Failed to clear old reset tokens for user %d: %v", user.ID, err)
	}

	expiresAt := time.Now().UTC().Add(passwordResetTTL)
	if err := s.userRepo.CreatePasswordResetToken(token, user.ID, expiresAt); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	if s.emailService != nil && s.emailService.IsEnabled() {
		if err := s.emailService.SendPasswordResetEmail(ctx, user.Email, user.Name, token); err != nil {
			return fmt.Errorf("failed to send reset email: %w", err)
		}
	} else {
		log.Warnf("Email is not configured, password reset for %s cannot be delivered", user.Email)
	}
	return nil
}

// ValidatePasswordResetToken checks if a reset token can still be used
func (s *AuthService) ValidatePasswordResetToken(token string) (bool, error) {
	resetToken, err := s.userRepo.GetPasswordResetToken(token)
	if err != nil {
		return false, fmt.Errorf("failed to get reset token: %w", err)
	}
	if resetToken == nil || resetToken.Used || resetToken.IsExpired() {
		return false, nil
	}
	return true, nil
}

// ResetPassword sets a new password using a valid token and signs the user out everywhere
func (s *AuthService) ResetPassword(token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	resetToken, err := s.userRepo.GetPasswordResetToken(token)
	if err != nil {
		return fmt.Errorf("failed to get reset token: %w", err)
	}
	if resetToken == nil || resetToken.IsExpired() {
		return ErrInvalidResetToken
	}
	if resetToken.Used {
		return ErrResetTokenUsed
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.WithTx(func(tx *database.Tx) error {
		users := s.userRepo.WithTx(tx)

		consumed, err := users.MarkPasswordResetTokenAsUsed(token)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrResetTokenUsed
		}
		if err := users.UpdatePassword(resetToken.UserID, passwordHash); err != nil {
			return err
		}
		return users.DeleteUserSessions(resetToken.UserID)
	})
}
