package auth

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/user"
)

// RBACAuthorization runs the role and permission stages of a route policy
// against an already authenticated actor. It performs no I/O.
type RBACAuthorization struct {
	checker PermissionChecker
	logger  *slog.Logger
}

func NewRBACAuthorization(checker PermissionChecker, logger *slog.Logger) *RBACAuthorization {
	if checker == nil {
		checker = NewPermissionChecker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RBACAuthorization{
		checker: checker,
		logger:  logger,
	}
}

// Authorize returns nil when actor satisfies both the role and the
// permission requirement of policy.
func (ra *RBACAuthorization) Authorize(ctx context.Context, actor user.User, policy RoutePolicy) error {
	if err := ra.CheckRoles(ctx, actor, policy.Roles); err != nil {
		return err
	}
	return ra.CheckPermissions(ctx, actor, policy.Permissions)
}

func (ra *RBACAuthorization) CheckRoles(ctx context.Context, actor user.User, required []user.RoleName) error {
	if !ra.checker.HasAnyRole(actor, required) {
		guardDecisions.WithLabelValues("role", "deny").Inc()
		ra.logger.WarnContext(ctx, "access denied: insufficient role",
			"user_id", actor.ID,
			"required_roles", required,
			"user_roles", actor.RoleNames())
		return internal.ErrInsufficientRole
	}
	guardDecisions.WithLabelValues("role", "allow").Inc()
	return nil
}

func (ra *RBACAuthorization) CheckPermissions(ctx context.Context, actor user.User, required []user.PermissionName) error {
	if !ra.checker.HasAnyPermission(actor, required) {
		guardDecisions.WithLabelValues("permission", "deny").Inc()
		ra.logger.WarnContext(ctx, "access denied: insufficient permissions",
			"user_id", actor.ID,
			"required_permissions", required,
			"user_permissions", actor.PermissionNames())
		return internal.ErrInsufficientPermission
	}
	guardDecisions.WithLabelValues("permission", "allow").Inc()
	return nil
}
