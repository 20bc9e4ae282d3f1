package auth

import (
	"github.com/frahmantamala/user-management/internal/user"
)

type PermissionChecker interface {
	HasAnyRole(actor user.User, required []user.RoleName) bool
	HasAnyPermission(actor user.User, required []user.PermissionName) bool
}

// DefaultPermissionChecker treats an empty requirement as satisfied and
// otherwise needs one match. Permissions are the union of the actor's role
// permissions and direct grants, read fresh on each call.
type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) HasAnyRole(actor user.User, required []user.RoleName) bool {
	if len(required) == 0 {
		return true
	}
	return actor.HasAnyRole(required...)
}

func (c *DefaultPermissionChecker) HasAnyPermission(actor user.User, required []user.PermissionName) bool {
	if len(required) == 0 {
		return true
	}
	return actor.HasAnyPermission(required...)
}
