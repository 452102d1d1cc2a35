package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/mail"
	"fintrack/internal/storage"
)

const (
	ActivationTokenTTL = 48 * time.Hour
	ResetTokenTTL      = 24 * time.Hour
)

// Session is a signed-in browser session.
type Session struct {
	ID        string
	User      core.User
	ExpiresAt time.Time
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccountService handles registration, activation, sessions and password resets.
type AccountService struct {
	repo       *storage.SQLiteRepository
	mailer     mail.Sender
	baseURL    string
	sessionTTL time.Duration
	now        func() time.Time
}

func NewAccountService(repo *storage.SQLiteRepository, mailer mail.Sender, baseURL string, sessionTTL time.Duration) *AccountService {
	return &AccountService{
		repo:       repo,
		mailer:     mailer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// CheckUsername reports auth.ErrInvalidUsername or auth.ErrUsernameTaken.
func (s *AccountService) CheckUsername(ctx context.Context, username string) error {
	if err := auth.ValidateUsername(username); err != nil {
		return err
	}
	taken, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return auth.ErrUsernameTaken
	}
	return nil
}

// CheckEmail reports auth.ErrInvalidEmail or auth.ErrEmailTaken.
func (s *AccountService) CheckEmail(ctx context.Context, email string) error {
	if err := auth.ValidateEmail(email); err != nil {
		return err
	}
	taken, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return auth.ErrEmailTaken
	}
	return nil
}

// Register creates an inactive user and mails the activation link. A mail
// failure is logged; the account stays registered.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (core.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.CheckUsername(ctx, in.Username); err != nil {
		return core.User{}, err
	}
	if err := s.CheckEmail(ctx, in.Email); err != nil {
		return core.User{}, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return core.User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return core.User{}, err
	}

	token := auth.NewToken()
	u, err := s.repo.CreateUser(ctx, core.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}, token, s.now().Add(ActivationTokenTTL))
	if errors.Is(err, storage.ErrDuplicate) {
		// Lost a race with another registration.
		if taken, _ := s.repo.EmailExists(ctx, in.Email); taken {
			return core.User{}, auth.ErrEmailTaken
		}
		return core.User{}, auth.ErrUsernameTaken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("register user: %w", err)
	}

	link := fmt.Sprintf("%s/auth/activate/%s", s.baseURL, token)
	if err := s.mailer.Send(ctx, mail.ActivationEmail(u.Email, u.Username, link)); err != nil {
		slog.ErrorContext(ctx, "Failed to send activation email", "user_id", u.ID, "error", err)
	}
	return u, nil
}

func (s *AccountService) Activate(ctx context.Context, token string) (core.User, error) {
	u, err := s.repo.ActivateUser(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, auth.ErrInvalidToken
	}
	if err != nil {
		return core.User{}, err
	}
	slog.InfoContext(ctx, "User activated", "user_id", u.ID)
	return u, nil
}

// Login checks credentials and opens a session for an active user.
func (s *AccountService) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.repo.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return Session{}, auth.ErrInvalidCredentials
	}
	if !u.Active {
		return Session{}, auth.ErrInactiveAccount
	}

	sess := Session{ID: auth.NewSessionID(), User: u, ExpiresAt: s.now().Add(s.sessionTTL)}
	if err := s.repo.CreateSession(ctx, sess.ID, u.ID, sess.ExpiresAt); err != nil {
		return Session{}, err
	}
	slog.InfoContext(ctx, "User logged in", "user_id", u.ID)
	return sess, nil
}

func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	return s.repo.DeleteSession(ctx, sessionID)
}

// Authenticate resolves a session id to its user.
func (s *AccountService) Authenticate(ctx context.Context, sessionID string) (core.User, error) {
	if sessionID == "" {
		return core.User{}, auth.ErrUnauthenticated
	}
	u, err := s.repo.SessionUser(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, auth.ErrUnauthenticated
	}
	return u, err
}

// RequestPasswordReset mails a reset link when email belongs to an active
// user. Unknown addresses are not reported.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.repo.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !u.Active {
		return nil
	}

	token := auth.NewToken()
	if err := s.repo.CreateToken(ctx, u.ID, token, storage.PurposePasswordReset, s.now().Add(ResetTokenTTL)); err != nil {
		return err
	}
	link := fmt.Sprintf("%s/auth/set-password?token=%s", s.baseURL, url.QueryEscape(token))
	if err := s.mailer.Send(ctx, mail.PasswordResetEmail(u.Email, u.Username, link)); err != nil {
		slog.ErrorContext(ctx, "Failed to send password reset email", "user_id", u.ID, "error", err)
	}
	return nil
}

// SetPassword consumes a reset token and stores the new password. Existing
// sessions of the user are closed.
func (s *AccountService) SetPassword(ctx context.Context, token, password string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u, err := s.repo.ResetPassword(ctx, token, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return auth.ErrInvalidToken
	}
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Password updated", "user_id", u.ID)
	return nil
}

// PurgeExpiredSessions deletes stale sessions.
func (s *AccountService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx)
}
