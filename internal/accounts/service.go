// Package accounts implements registration, email verification and login.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studyshare/backend/internal/auth"
	"github.com/studyshare/backend/internal/logging"
	"github.com/studyshare/backend/internal/mail"
	"github.com/studyshare/backend/internal/models"
	"github.com/studyshare/backend/internal/repositories"
)

// SessionIssuer creates and revokes login sessions.
type SessionIssuer interface {
	Issue(ctx context.Context, userID string) (auth.Session, error)
	Revoke(ctx context.Context, id string)
}

// Config controls account policies.
type Config struct {
	// AdminEmail registers pre-verified with admin rights.
	AdminEmail string
	// VerifyURL is the link prefix the token is appended to.
	VerifyURL string
	// VerificationTTL bounds token validity. Zero means tokens never expire.
	VerificationTTL time.Duration
}

// Service implements the credential store and verification flow.
type Service struct {
	users    repositories.UserRepository
	sessions SessionIssuer
	mailer   mail.Sender
	cfg      Config
	now      func() time.Time
}

// NewService wires the account service.
func NewService(users repositories.UserRepository, sessions SessionIssuer, mailer mail.Sender, cfg Config) *Service {
	cfg.AdminEmail = NormalizeEmail(cfg.AdminEmail)
	cfg.VerifyURL = strings.TrimSuffix(cfg.VerifyURL, "/")
	return &Service{
		users:    users,
		sessions: sessions,
		mailer:   mailer,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// RegisterResult describes the outcome of a registration.
type RegisterResult struct {
	User models.User
	// Session is set when the account was activated immediately (admin email).
	Session *auth.Session
	// VerificationPending is true when the user must redeem a token before logging in.
	VerificationPending bool
	// VerificationSent reports whether the verification email was dispatched.
	VerificationSent bool
}

// LoginResult is returned on successful login.
type LoginResult struct {
	User    models.User
	Session auth.Session
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Register creates an account. For non-admin accounts a verification email is
// sent; when sending fails the account still exists and the returned error
// wraps mail.ErrDeliveryFailed alongside a result with VerificationSent=false.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	ctx, span := logging.StartSpan(ctx, "accounts.register")
	defer span.End()
	logger := logging.FromContext(ctx)

	email := NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return RegisterResult{}, ErrDuplicateEmail
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return RegisterResult{}, fmt.Errorf("lookup existing account: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	now := s.now()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Friends:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if s.cfg.AdminEmail != "" && email == s.cfg.AdminEmail {
		user.IsVerified = true
		user.IsAdmin = true
		if err := s.create(ctx, user); err != nil {
			return RegisterResult{}, err
		}

		session, err := s.sessions.Issue(ctx, user.ID)
		if err != nil {
			return RegisterResult{}, fmt.Errorf("issue admin session: %w", err)
		}
		logger.Info("admin account registered", "userId", user.ID)
		return RegisterResult{User: user, Session: &session}, nil
	}

	token, err := auth.VerificationToken()
	if err != nil {
		return RegisterResult{}, err
	}
	user.VerificationToken = token
	user.VerificationExpiresAt = s.tokenExpiry(now)

	if err := s.create(ctx, user); err != nil {
		return RegisterResult{}, err
	}

	result := RegisterResult{User: user, VerificationPending: true}
	if err := s.sendVerification(ctx, user); err != nil {
		logger.Error("verification email not delivered", "userId", user.ID, "error", err)
		return result, err
	}

	result.VerificationSent = true
	logger.Info("account registered", "userId", user.ID)
	return result, nil
}

// Verify redeems a verification token. Unknown, already redeemed or expired
// tokens fail with ErrInvalidToken and leave every record untouched.
func (s *Service) Verify(ctx context.Context, token string) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "accounts.verify")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return models.User{}, ErrInvalidToken
	}

	user, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, fmt.Errorf("lookup verification token: %w", err)
	}

	now := s.now()
	if user.VerificationExpiresAt != nil && now.After(*user.VerificationExpiresAt) {
		logging.FromContext(ctx).Warn("expired verification token", "userId", user.ID)
		return models.User{}, ErrInvalidToken
	}

	if err := s.users.MarkVerified(ctx, user.ID, token, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, fmt.Errorf("mark verified: %w", err)
	}

	user.IsVerified = true
	user.VerificationToken = ""
	user.VerificationExpiresAt = nil
	user.UpdatedAt = now
	return user, nil
}

// ResendVerification rotates the token of a pending account and mails a new link.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	ctx, span := logging.StartSpan(ctx, "accounts.resend_verification")
	defer span.End()

	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNoSuchAccount
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	token, err := auth.VerificationToken()
	if err != nil {
		return err
	}
	now := s.now()
	expiresAt := s.tokenExpiry(now)

	if err := s.users.SetVerificationToken(ctx, user.ID, token, expiresAt, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAlreadyVerified
		}
		return fmt.Errorf("rotate verification token: %w", err)
	}

	user.VerificationToken = token
	user.VerificationExpiresAt = expiresAt
	return s.sendVerification(ctx, user)
}

// Login checks credentials and issues a session.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return LoginResult{}, ErrNoSuchAccount
		}
		return LoginResult{}, fmt.Errorf("lookup account: %w", err)
	}

	if !user.CanLogIn() {
		return LoginResult{}, ErrNotVerified
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return LoginResult{}, ErrBadCredential
		}
		return LoginResult{}, err
	}

	session, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue session: %w", err)
	}

	return LoginResult{User: user, Session: session}, nil
}

// Logout destroys the session. Calling it for an unknown session is a no-op.
func (s *Service) Logout(ctx context.Context, sessionID string) {
	s.sessions.Revoke(ctx, sessionID)
}

// CurrentUser loads the account bound to a session.
func (s *Service) CurrentUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, ErrNoSuchAccount
		}
		return models.User{}, fmt.Errorf("load account: %w", err)
	}
	return user, nil
}

func (s *Service) create(ctx context.Context, user models.User) error {
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *Service) tokenExpiry(now time.Time) *time.Time {
	if s.cfg.VerificationTTL <= 0 {
		return nil
	}
	expiresAt := now.Add(s.cfg.VerificationTTL)
	return &expiresAt
}

func (s *Service) sendVerification(ctx context.Context, user models.User) error {
	if s.mailer == nil {
		return fmt.Errorf("%w: mailer not configured", mail.ErrDeliveryFailed)
	}

	msg, err := mail.VerificationMessage(user.Email, user.Username, s.cfg.VerifyURL+"/"+user.VerificationToken)
	if err != nil {
		return fmt.Errorf("%w: %v", mail.ErrDeliveryFailed, err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrDeliveryFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", mail.ErrDeliveryFailed, err)
	}
	return nil
}
