package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/transport"
	"github.com/frahmantamala/user-management/internal/user"
	"github.com/frahmantamala/user-management/pkg/logger"
)

// UserLookup resolves the subject of a verified token.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (user.User, error)
}

// Guard enforces a RoutePolicy in three stages: authenticate, then role
// any-of, then permission any-of. The first failure ends the request with
// 401 for stage one and 403 for the others.
type Guard struct {
	*transport.BaseHandler
	tokens TokenService
	users  UserLookup
	rbac   *RBACAuthorization
}

func NewGuard(base *transport.BaseHandler, tokens TokenService, users UserLookup, rbac *RBACAuthorization) *Guard {
	if base == nil {
		base = transport.NewBaseHandler(nil)
	}
	if rbac == nil {
		rbac = NewRBACAuthorization(nil, base.Logger)
	}
	return &Guard{
		BaseHandler: base,
		tokens:      tokens,
		users:       users,
		rbac:        rbac,
	}
}

// Authenticate verifies the bearer token as kind and loads the active user
// it names.
func (g *Guard) Authenticate(r *http.Request, kind TokenKind) (user.User, Payload, error) {
	token := g.ExtractTokenFromHeader(r)
	if token == "" {
		return user.User{}, Payload{}, internal.ErrMissingToken
	}

	var (
		payload Payload
		err     error
	)
	if kind == TokenRefresh {
		payload, err = g.tokens.VerifyRefreshToken(token)
	} else {
		payload, err = g.tokens.VerifyAccessToken(token)
	}
	if err != nil {
		return user.User{}, Payload{}, err
	}

	actor, err := g.users.FindByID(r.Context(), payload.Sub)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return user.User{}, Payload{}, internal.ErrInvalidToken.WithMessage("User no longer exists").WithCause(err)
		}
		return user.User{}, Payload{}, err
	}

	if !actor.IsActive() {
		return user.User{}, Payload{}, internal.NewAccountInactiveError(actor.Username, string(actor.AccountStatus))
	}

	return actor, payload, nil
}

func (g *Guard) Middleware(policy RoutePolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if policy.Public {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, payload, err := g.Authenticate(r, policy.TokenKind())
			if err != nil {
				guardDecisions.WithLabelValues("authenticate", "deny").Inc()
				g.Logger.WarnContext(r.Context(), "authentication failed",
					"path", r.URL.Path,
					"token_kind", policy.TokenKind(),
					"error", err)
				g.HandleServiceError(w, r, err)
				return
			}
			guardDecisions.WithLabelValues("authenticate", "allow").Inc()

			ctx := user.ContextWithActor(r.Context(), actor)
			ctx = ContextWithPayload(ctx, payload)
			ctx = internal.ContextWithUserID(ctx, actor.ID)
			ctx = logger.With(ctx, "user_id", actor.ID)

			if err := g.rbac.Authorize(ctx, actor, policy); err != nil {
				g.HandleServiceError(w, r.WithContext(ctx), err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
