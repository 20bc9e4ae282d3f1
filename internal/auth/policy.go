package auth

import "github.com/frahmantamala/user-management/internal/user"

// RoutePolicy declares what a route requires. Policies are plain values
// attached to routes when the router is built.
type RoutePolicy struct {
	Public      bool
	Token       TokenKind
	Roles       []user.RoleName
	Permissions []user.PermissionName
}

func PublicRoute() RoutePolicy {
	return RoutePolicy{Public: true}
}

// RequireAuth accepts any active user holding a valid access token.
func RequireAuth() RoutePolicy {
	return RoutePolicy{Token: TokenAccess}
}

// RequireRefresh accepts any active user holding a valid refresh token.
func RequireRefresh() RoutePolicy {
	return RoutePolicy{Token: TokenRefresh}
}

func RequireRoles(roles ...user.RoleName) RoutePolicy {
	return RequireAuth().WithRoles(roles...)
}

func RequirePermissions(perms ...user.PermissionName) RoutePolicy {
	return RequireAuth().WithPermissions(perms...)
}

func (p RoutePolicy) WithRoles(roles ...user.RoleName) RoutePolicy {
	p.Roles = append(append([]user.RoleName(nil), p.Roles...), roles...)
	return p
}

func (p RoutePolicy) WithPermissions(perms ...user.PermissionName) RoutePolicy {
	p.Permissions = append(append([]user.PermissionName(nil), p.Permissions...), perms...)
	return p
}

// TokenKind returns the token the route authenticates with, access unless
// stated otherwise.
func (p RoutePolicy) TokenKind() TokenKind {
	if p.Token == "" {
		return TokenAccess
	}
	return p.Token
}
