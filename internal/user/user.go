package user

import (
	"context"
	"slices"
	"time"

	"github.com/frahmantamala/user-management/internal/ability"
	"github.com/google/uuid"
)

type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
	StatusBanned   AccountStatus = "banned"
)

type RoleName string

const (
	RoleAdmin RoleName = "admin"
	RoleUser  RoleName = "user"
)

type PermissionName string

const (
	PermissionCreateUser PermissionName = "permission.create.user"
	PermissionReadUser   PermissionName = "permission.read.user"
	PermissionUpdateUser PermissionName = "permission.update.user"
	PermissionDeleteUser PermissionName = "permission.delete.user"
)

type Permission struct {
	ID   int64          `json:"id"`
	Name PermissionName `json:"name"`
}

type Role struct {
	ID          int64        `json:"id"`
	Name        RoleName     `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// User is a value type. Mutations go through WithChanges, which returns a
// new value, so a User read from a store can be shared freely.
type User struct {
	ID            string        `json:"id"`
	Username      string        `json:"username"`
	Password      string        `json:"-"`
	AccountStatus AccountStatus `json:"account_status"`
	Roles         []Role        `json:"roles"`
	Permissions   []Permission  `json:"permissions"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     *time.Time    `json:"updated_at,omitempty"`
}

type Props struct {
	ID            string
	Username      string
	Password      string
	AccountStatus AccountStatus
	Roles         []Role
	Permissions   []Permission
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// NewUser fills in a random id, active status and the current time for any
// of those left empty.
func NewUser(p Props) User {
	u := User{
		ID:            p.ID,
		Username:      p.Username,
		Password:      p.Password,
		AccountStatus: p.AccountStatus,
		Roles:         cloneRoles(p.Roles),
		Permissions:   slices.Clone(p.Permissions),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     cloneTime(p.UpdatedAt),
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.AccountStatus == "" {
		u.AccountStatus = StatusActive
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Roles == nil {
		u.Roles = []Role{}
	}
	if u.Permissions == nil {
		u.Permissions = []Permission{}
	}
	return u
}

// Clone returns a deep copy with the same identity.
func (u User) Clone() User {
	cp := u
	cp.Roles = cloneRoles(u.Roles)
	cp.Permissions = slices.Clone(u.Permissions)
	cp.UpdatedAt = cloneTime(u.UpdatedAt)
	return cp
}

// CloneWithID returns a deep copy carrying id, or a fresh random id when id
// is empty.
func (u User) CloneWithID(id string) User {
	cp := u.Clone()
	if id == "" {
		id = uuid.NewString()
	}
	cp.ID = id
	return cp
}

type Changes struct {
	Username      *string
	Password      *string
	AccountStatus *AccountStatus
	Roles         []Role
}

// WithChanges applies the non-nil fields of c and stamps UpdatedAt.
func (u User) WithChanges(c Changes, at time.Time) User {
	next := u.Clone()
	if c.Username != nil {
		next.Username = *c.Username
	}
	if c.Password != nil {
		next.Password = *c.Password
	}
	if c.AccountStatus != nil {
		next.AccountStatus = *c.AccountStatus
	}
	if c.Roles != nil {
		next.Roles = cloneRoles(c.Roles)
	}
	at = at.UTC()
	next.UpdatedAt = &at
	return next
}

func (u User) IsActive() bool {
	return u.AccountStatus == StatusActive
}

// EffectivePermissions is the union of role-derived and direct permission
// names, rebuilt on every call.
func (u User) EffectivePermissions() map[PermissionName]struct{} {
	set := make(map[PermissionName]struct{})
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			set[p.Name] = struct{}{}
		}
	}
	for _, p := range u.Permissions {
		set[p.Name] = struct{}{}
	}
	return set
}

func (u User) PermissionNames() []PermissionName {
	set := u.EffectivePermissions()
	names := make([]PermissionName, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (u User) RoleNames() []RoleName {
	names := make([]RoleName, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

func (u User) HasAnyRole(roles ...RoleName) bool {
	for _, r := range u.Roles {
		if slices.Contains(roles, r.Name) {
			return true
		}
	}
	return false
}

func (u User) HasAnyPermission(permissions ...PermissionName) bool {
	effective := u.EffectivePermissions()
	for _, p := range permissions {
		if _, ok := effective[p]; ok {
			return true
		}
	}
	return false
}

func (User) SubjectType() ability.Subject {
	return ability.SubjectUser
}

// Repository is the user store. Implementations return the sentinel
// AppErrors ErrUserNotFound, ErrUserAlreadyExists and ErrUsernameInUse.
type Repository interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindAll(ctx context.Context) ([]User, error)
	Save(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, id string, u User) (User, error)
	Delete(ctx context.Context, id string) error
}

func cloneRoles(roles []Role) []Role {
	if roles == nil {
		return nil
	}
	out := make([]Role, len(roles))
	for i, r := range roles {
		out[i] = Role{ID: r.ID, Name: r.Name, Permissions: slices.Clone(r.Permissions)}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
