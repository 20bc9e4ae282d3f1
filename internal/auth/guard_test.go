package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/auth"
	"github.com/frahmantamala/user-management/internal/transport"
	"github.com/frahmantamala/user-management/internal/user"
	"github.com/frahmantamala/user-management/internal/user/memory"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = ginkgo.Describe("Guard", func() {
	var (
		ctx      context.Context
		store    *memory.Store
		tokenGen *auth.JWTTokenGenerator
		guard    *auth.Guard
		reached  bool
		seen     user.User
	)

	save := func(props user.Props) user.User {
		u, err := store.Save(ctx, user.NewUser(props))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return u
	}

	role := func(name user.RoleName) user.Role {
		r, ok := user.FindRole(name)
		gomega.Expect(ok).To(gomega.BeTrue())
		return r
	}

	accessFor := func(u user.User) string {
		token, err := tokenGen.IssueAccessToken(auth.Payload{Sub: u.ID, Username: u.Username})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return token
	}

	refreshFor := func(u user.User) string {
		token, err := tokenGen.IssueRefreshToken(auth.Payload{Sub: u.ID, Username: u.Username})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return token
	}

	serve := func(policy auth.RoutePolicy, bearer string) *httptest.ResponseRecorder {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			seen, _ = user.ActorFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		w := httptest.NewRecorder()
		guard.Middleware(policy)(next).ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) errorBody {
		var body errorBody
		gomega.Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(gomega.Succeed())
		return body
	}

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		store = memory.NewStore()
		tokenGen = newTokenGenerator()
		logger := discardLogger()
		guard = auth.NewGuard(
			transport.NewBaseHandler(logger),
			tokenGen,
			store,
			auth.NewRBACAuthorization(auth.NewPermissionChecker(), logger),
		)
		reached = false
		seen = user.User{}
	})

	ginkgo.Describe("public routes", func() {
		ginkgo.It("should pass without a token", func() {
			w := serve(auth.PublicRoute(), "")

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(reached).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("authentication stage", func() {
		var alice user.User

		ginkgo.BeforeEach(func() {
			alice = save(user.Props{Username: "alice", Roles: []user.Role{role(user.RoleUser)}})
		})

		ginkgo.It("should put the actor on the request context", func() {
			w := serve(auth.RequireAuth(), accessFor(alice))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(seen.ID).To(gomega.Equal(alice.ID))
		})

		ginkgo.It("should reject a missing token with 401", func() {
			w := serve(auth.RequireAuth(), "")

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decode(w).Error.Code).To(gomega.Equal(string(internal.ErrCodeMissingToken)))
			gomega.Expect(reached).To(gomega.BeFalse())
		})

		ginkgo.It("should reject a refresh token on an access route", func() {
			w := serve(auth.RequireAuth(), refreshFor(alice))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(reached).To(gomega.BeFalse())
		})

		ginkgo.It("should reject an access token on a refresh route", func() {
			gomega.Expect(serve(auth.RequireRefresh(), accessFor(alice)).Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(serve(auth.RequireRefresh(), refreshFor(alice)).Code).To(gomega.Equal(http.StatusNoContent))
		})

		ginkgo.It("should reject tokens of deleted users", func() {
			token := accessFor(alice)
			gomega.Expect(store.Delete(ctx, alice.ID)).To(gomega.Succeed())

			w := serve(auth.RequireAuth(), token)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should reject inactive accounts and name the status", func() {
			banned := save(user.Props{Username: "mallory", AccountStatus: user.StatusBanned})

			w := serve(auth.RequireAuth(), accessFor(banned))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decode(w).Error.Message).To(gomega.Equal("mallory, account banned"))
		})

		ginkgo.It("should apply the active check to refresh routes too", func() {
			inactive := save(user.Props{Username: "dormant", AccountStatus: user.StatusInactive})

			w := serve(auth.RequireRefresh(), refreshFor(inactive))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})

	ginkgo.Describe("role stage", func() {
		ginkgo.It("should return 403 when no role matches", func() {
			member := save(user.Props{Username: "alice", Roles: []user.Role{role(user.RoleUser)}})

			w := serve(auth.RequireRoles(user.RoleAdmin), accessFor(member))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(decode(w).Error.Code).To(gomega.Equal(string(internal.ErrCodeInsufficientRole)))
		})

		ginkgo.It("should pass when any role matches", func() {
			admin := save(user.Props{Username: "root", Roles: []user.Role{role(user.RoleAdmin)}})

			w := serve(auth.RequireRoles(user.RoleUser, user.RoleAdmin), accessFor(admin))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusNoContent))
		})
	})

	ginkgo.Describe("permission stage", func() {
		ginkgo.It("should return 403 when no permission matches", func() {
			member := save(user.Props{Username: "alice", Roles: []user.Role{role(user.RoleUser)}})

			w := serve(auth.RequirePermissions(user.PermissionCreateUser), accessFor(member))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(decode(w).Error.Code).To(gomega.Equal(string(internal.ErrCodeInsufficientPermission)))
		})

		ginkgo.It("should count directly granted permissions", func() {
			granted := save(user.Props{Username: "carol", Permissions: []user.Permission{user.CreateUser}})

			w := serve(auth.RequirePermissions(user.PermissionCreateUser), accessFor(granted))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusNoContent))
		})

		ginkgo.It("should check roles before permissions", func() {
			granted := save(user.Props{Username: "carol", Permissions: []user.Permission{user.CreateUser}})
			policy := auth.RequireRoles(user.RoleAdmin).WithPermissions(user.PermissionCreateUser)

			w := serve(policy, accessFor(granted))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(decode(w).Error.Code).To(gomega.Equal(string(internal.ErrCodeInsufficientRole)))
		})
	})

	ginkgo.Describe("repeated evaluation", func() {
		ginkgo.It("should give the same answer until the actor's grants change", func() {
			// Given a plain user and an admin-only policy
			bob := save(user.Props{Username: "bob", Roles: []user.Role{role(user.RoleUser)}})
			token := accessFor(bob)
			policy := auth.RequireRoles(user.RoleAdmin).WithPermissions(user.PermissionCreateUser)

			// When the chain runs several times
			for i := 0; i < 3; i++ {
				gomega.Expect(serve(policy, token).Code).To(gomega.Equal(http.StatusForbidden))
			}

			// Then promoting bob changes the outcome for the same token
			promoted := bob.WithChanges(user.Changes{Roles: []user.Role{role(user.RoleAdmin)}}, bob.CreatedAt)
			_, err := store.Update(ctx, bob.ID, promoted)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			for i := 0; i < 3; i++ {
				gomega.Expect(serve(policy, token).Code).To(gomega.Equal(http.StatusNoContent))
			}

			// and demoting bob again restores the denial
			_, err = store.Update(ctx, bob.ID, bob)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(serve(policy, token).Code).To(gomega.Equal(http.StatusForbidden))
		})
	})
})

var _ = ginkgo.Describe("RoutePolicy", func() {
	ginkgo.It("should default to access tokens", func() {
		gomega.Expect(auth.RequireRoles(user.RoleAdmin).TokenKind()).To(gomega.Equal(auth.TokenAccess))
		gomega.Expect(auth.RequireRefresh().TokenKind()).To(gomega.Equal(auth.TokenRefresh))
		gomega.Expect(auth.RoutePolicy{}.TokenKind()).To(gomega.Equal(auth.TokenAccess))
	})

	ginkgo.It("should not share requirement slices between derived policies", func() {
		base := auth.RequireRoles(user.RoleAdmin)

		withCreate := base.WithPermissions(user.PermissionCreateUser)
		withDelete := base.WithPermissions(user.PermissionDeleteUser)

		gomega.Expect(withCreate.Permissions).To(gomega.Equal([]user.PermissionName{user.PermissionCreateUser}))
		gomega.Expect(withDelete.Permissions).To(gomega.Equal([]user.PermissionName{user.PermissionDeleteUser}))
		gomega.Expect(base.Permissions).To(gomega.BeEmpty())
	})
})

var _ = ginkgo.Describe("DefaultPermissionChecker", func() {
	checker := auth.NewPermissionChecker()
	nobody := user.NewUser(user.Props{Username: "nobody"})

	ginkgo.It("should treat empty requirements as satisfied", func() {
		gomega.Expect(checker.HasAnyRole(nobody, nil)).To(gomega.BeTrue())
		gomega.Expect(checker.HasAnyPermission(nobody, nil)).To(gomega.BeTrue())
	})

	ginkgo.It("should fail non-empty requirements for a user with no grants", func() {
		gomega.Expect(checker.HasAnyRole(nobody, []user.RoleName{user.RoleUser})).To(gomega.BeFalse())
		gomega.Expect(checker.HasAnyPermission(nobody, []user.PermissionName{user.PermissionReadUser})).To(gomega.BeFalse())
	})
})
