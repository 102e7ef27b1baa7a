package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/zenith-hq/zenith-calendar/internal/mail"
	"github.com/zenith-hq/zenith-calendar/internal/store"
	"github.com/zenith-hq/zenith-calendar/internal/zerrors"
)

// UserStore is the slice of the user store the auth flows need.
type UserStore interface {
	ByID(ctx context.Context, id int64) (*store.User, error)
	ByEmail(ctx context.Context, email string) (*store.User, error)
	ByConfirmationToken(ctx context.Context, token string) (*store.User, error)
	ByRecoveryToken(ctx context.Context, token string) (*store.User, error)
	CountUsernameLike(ctx context.Context, usernameUnique string) (int64, error)
	Create(ctx context.Context, user *store.User) error
	Save(ctx context.Context, user *store.User) error
}

// Service handles signup, login and password recovery.
type Service struct {
	users  UserStore
	tokens *TokenService
	mailer mail.Sender
	logger *zap.Logger

	baseURL     string
	signupTTL   time.Duration
	recoveryTTL time.Duration
}

func NewService(users UserStore, tokens *TokenService, mailer mail.Sender, baseURL string, signupTTL, recoveryTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		logger:      logger,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		signupTTL:   signupTTL,
		recoveryTTL: recoveryTTL,
	}
}

// Signup registers an inactive account and mails a confirmation link.
// Display names collide like calendar names do: the collision count is
// appended.
func (s *Service) Signup(ctx context.Context, email, password, firstName, lastName string) (*store.PublicUser, error) {
	if _, err := s.users.ByEmail(ctx, email); err == nil {
		return nil, zerrors.Conflictf("email %q already taken", email)
	} else if !errors.Is(err, zerrors.ErrNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(fmt.Sprintf("%s %s", firstName, lastName))
	taken, err := s.users.CountUsernameLike(ctx, store.UniqueName(name))
	if err != nil {
		return nil, err
	}
	if taken > 0 {
		name = fmt.Sprintf("%s %d", name, taken)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &store.User{
		Email:                   email,
		Username:                name,
		UsernameUnique:          store.UniqueName(name),
		FirstName:               firstName,
		LastName:                lastName,
		Name:                    name,
		Password:                string(hashed),
		ConfirmationToken:       SecureToken(),
		ConfirmationTokenSentAt: &now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.mailer.Send(email, mail.TemplateSignupConfirm, map[string]string{
		"ConfirmLink": fmt.Sprintf("%s/auth/verify?type=signup&token=%s", s.baseURL, user.ConfirmationToken),
	})

	public := user.Public()
	return &public, nil
}

// Login verifies the password and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, zerrors.ErrNotFound) {
			return "", zerrors.Unauthorizedf("invalid credentials")
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", zerrors.Unauthorizedf("invalid credentials")
	}
	if !user.IsActive {
		return "", zerrors.Unauthorizedf("account not confirmed")
	}
	return s.tokens.Sign(user.ID, user.Email)
}

// VerifySignup activates the account behind a confirmation token. The token
// is single-use and expires after the signup TTL.
func (s *Service) VerifySignup(ctx context.Context, token string) error {
	if token == "" {
		return zerrors.Unauthorizedf("missing confirmation token")
	}
	user, err := s.users.ByConfirmationToken(ctx, token)
	if err != nil {
		if errors.Is(err, zerrors.ErrNotFound) {
			return zerrors.Unauthorizedf("invalid confirmation token")
		}
		return err
	}
	if user.ConfirmationTokenSentAt == nil || time.Since(*user.ConfirmationTokenSentAt) > s.signupTTL {
		return zerrors.Unauthorizedf("confirmation token expired")
	}

	user.IsActive = true
	user.ConfirmationToken = ""
	return s.users.Save(ctx, user)
}

// RecoverPassword mails a reset link. An unknown address is logged, not
// surfaced, so the endpoint does not reveal which emails exist.
func (s *Service) RecoverPassword(ctx context.Context, email string) error {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, zerrors.ErrNotFound) {
			s.logger.Info("password recovery for unknown email", zap.String("email", email))
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	user.RecoveryToken = SecureToken()
	user.RecoverySentAt = &now
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}

	s.mailer.Send(email, mail.TemplatePasswordRecovery, map[string]string{
		"RecoveryLink": fmt.Sprintf("%s/auth/reset-password?token=%s", s.baseURL, user.RecoveryToken),
	})
	return nil
}

// ResetPassword sets a new password behind a recovery token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return zerrors.Unauthorizedf("missing recovery token")
	}
	user, err := s.users.ByRecoveryToken(ctx, token)
	if err != nil {
		if errors.Is(err, zerrors.ErrNotFound) {
			return zerrors.Unauthorizedf("invalid recovery token")
		}
		return err
	}
	if user.RecoverySentAt == nil || time.Since(*user.RecoverySentAt) > s.recoveryTTL {
		return zerrors.Unauthorizedf("recovery token expired")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)
	user.RecoveryToken = ""
	user.RecoverySentAt = nil
	return s.users.Save(ctx, user)
}
