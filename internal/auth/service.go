package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/core/common/validation"
	"github.com/frahmantamala/user-management/internal/user"
)

// UserStore is the part of the user service the auth flow depends on.
type UserStore interface {
	FindByID(ctx context.Context, id string) (user.User, error)
	FindByUsername(ctx context.Context, username string) (user.User, error)
	Create(ctx context.Context, dto user.CreateUserDTO) (user.User, error)
	CheckPassword(plain, hash string) bool
}

// ServiceAPI performs authentication-related business logic.
type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	Register(ctx context.Context, dto RegisterDTO) error
	Refresh(ctx context.Context, p Payload) (AuthTokens, error)
}

// Service is the main auth service with dependencies
type Service struct {
	users  UserStore
	tokens TokenService
	logger *slog.Logger
}

// NewService creates a new auth service
func NewService(users UserStore, tokens TokenService, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Login checks the credentials and returns a fresh token pair. Unknown
// usernames fail with ErrUserNotFound, wrong passwords with
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if verr := validation.Struct(dto); verr != nil {
		return AuthTokens{}, verr
	}

	u, err := s.users.FindByUsername(ctx, dto.Username)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			loginAttempts.WithLabelValues("unknown_user").Inc()
		} else {
			loginAttempts.WithLabelValues("error").Inc()
		}
		return AuthTokens{}, err
	}

	if !s.users.CheckPassword(dto.Password, u.Password) {
		loginAttempts.WithLabelValues("bad_password").Inc()
		s.logger.WarnContext(ctx, "login rejected: wrong password", "username", dto.Username)
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	tokens, err := IssuePair(s.tokens, payloadFor(u))
	if err != nil {
		loginAttempts.WithLabelValues("error").Inc()
		return AuthTokens{}, err
	}

	loginAttempts.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "user logged in", "user_id", u.ID)
	return tokens, nil
}

// Register creates an account with the default role. It never issues tokens.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) error {
	u, err := s.users.Create(ctx, user.CreateUserDTO{
		Username: dto.Username,
		Password: dto.Password,
	})
	if err != nil {
		if errors.Is(err, internal.ErrUserAlreadyExists) {
			return internal.ErrUserAlreadyExists
		}
		s.logger.ErrorContext(ctx, "registration failed", "username", dto.Username, "error", err)
		return err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return nil
}

// Refresh re-reads the account behind p so that deleted or renamed users
// cannot keep refreshing a stale identity.
func (s *Service) Refresh(ctx context.Context, p Payload) (AuthTokens, error) {
	u, err := s.users.FindByID(ctx, p.Sub)
	if err != nil {
		return AuthTokens{}, err
	}
	return IssuePair(s.tokens, payloadFor(u))
}

func payloadFor(u user.User) Payload {
	return Payload{Sub: u.ID, Username: u.Username}
}
