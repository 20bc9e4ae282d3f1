package user

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/core/common/validation"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

type ServiceAPI interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindAll(ctx context.Context) ([]User, error)
	Create(ctx context.Context, dto CreateUserDTO) (User, error)
	Update(ctx context.Context, id string, dto UpdateUserDTO) (User, error)
	Delete(ctx context.Context, id string) error
	CheckPassword(plain, hash string) bool
}

type Service struct {
	repo        Repository
	hasher      PasswordHasher
	publisher   EventPublisher
	defaultRole RoleName
	logger      *slog.Logger
}

// NewService wires the user service. publisher may be nil.
func NewService(repo Repository, hasher PasswordHasher, publisher EventPublisher, defaultRole RoleName, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultRole == "" {
		defaultRole = RoleUser
	}
	return &Service{
		repo:        repo,
		hasher:      hasher,
		publisher:   publisher,
		defaultRole: defaultRole,
		logger:      logger,
	}
}

func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, storeError("find user by id", err)
	}
	return u, nil
}

func (s *Service) FindByUsername(ctx context.Context, username string) (User, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return User{}, storeError("find user by username", err)
	}
	return u, nil
}

func (s *Service) FindAll(ctx context.Context) ([]User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	return users, nil
}

// Create hashes the password and stores a new active user. Without explicit
// roles the user receives the configured default role.
func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (User, error) {
	if verr := validation.Struct(dto); verr != nil {
		return User{}, verr
	}

	names := dto.Roles
	if len(names) == 0 {
		names = []RoleName{s.defaultRole}
	}
	roles, err := resolveRoles(names)
	if err != nil {
		return User{}, err
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return User{}, internal.NewInternalError("failed to hash password", err)
	}

	saved, err := s.repo.Save(ctx, NewUser(Props{
		Username: dto.Username,
		Password: hash,
		Roles:    roles,
	}))
	if err != nil {
		return User{}, storeError("save user", err)
	}

	s.publish(ctx, EventUserCreated, saved)
	return saved, nil
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateUserDTO) (User, error) {
	if verr := validation.Struct(dto); verr != nil {
		return User{}, verr
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, storeError("find user by id", err)
	}

	changes := Changes{
		Username:      dto.Username,
		AccountStatus: dto.AccountStatus,
	}
	if dto.Password != nil {
		hash, err := s.hasher.Hash(*dto.Password)
		if err != nil {
			return User{}, internal.NewInternalError("failed to hash password", err)
		}
		changes.Password = &hash
	}
	if dto.Roles != nil {
		roles, err := resolveRoles(dto.Roles)
		if err != nil {
			return User{}, err
		}
		changes.Roles = roles
	}

	updated, err := s.repo.Update(ctx, id, current.WithChanges(changes, time.Now()))
	if err != nil {
		return User{}, storeError("update user", err)
	}

	s.publish(ctx, EventUserUpdated, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeError("find user by id", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError("delete user", err)
	}

	// the record is already gone, so subscribers run off the request path
	if s.publisher != nil {
		s.publisher.PublishAsync(ctx, newLifecycleEvent(EventUserDeleted, current, internal.UserIDFromContext(ctx)))
	}
	return nil
}

func (s *Service) CheckPassword(plain, hash string) bool {
	return s.hasher.Verify(plain, hash)
}

// EnsureAdmin creates an admin account named username unless one already
// exists. The boolean reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (User, bool, error) {
	existing, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, internal.ErrUserNotFound) {
		return User{}, false, storeError("find user by username", err)
	}

	created, err := s.Create(ctx, CreateUserDTO{
		Username: username,
		Password: password,
		Roles:    []RoleName{RoleAdmin},
	})
	if err != nil {
		return User{}, false, err
	}
	return created, true, nil
}

func (s *Service) publish(ctx context.Context, kind string, u User) {
	if s.publisher == nil {
		return
	}
	actorID := internal.UserIDFromContext(ctx)
	if err := s.publisher.Publish(ctx, newLifecycleEvent(kind, u, actorID)); err != nil {
		s.logger.WarnContext(ctx, "failed to publish user event", "event", kind, "user_id", u.ID, "error", err)
	}
}

func resolveRoles(names []RoleName) ([]Role, error) {
	roles := make([]Role, 0, len(names))
	seen := make(map[RoleName]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		r, ok := FindRole(n)
		if !ok {
			return nil, internal.ErrRoleNotFound.WithMessage("Role not found: " + string(n))
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// storeError passes AppErrors through untouched and wraps anything else as
// an internal failure.
func storeError(op string, err error) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewInternalError("failed to "+op, err)
}
