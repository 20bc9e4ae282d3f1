package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/user-management/internal/transport"
	"github.com/frahmantamala/user-management/internal/user"
	"github.com/frahmantamala/user-management/internal/user/memory"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("User Handler", func() {
	var (
		ctx     context.Context
		svc     *user.Service
		handler *user.Handler
		router  *chi.Mux
		admin   user.User
		alice   user.User
		bob     user.User
		actor   *user.User
	)

	asActor := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if actor != nil {
				r = r.WithContext(user.ContextWithActor(r.Context(), *actor))
			}
			next(w, r)
		}
	}

	do := func(method, target string, body interface{}) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(raw)
		}
		req := httptest.NewRequest(method, target, reader)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc = user.NewService(memory.NewStore(), fakeHasher{}, nil, user.RoleUser, logger)
		handler = user.NewHandler(transport.NewBaseHandler(logger), svc)

		admin, err = svc.Create(ctx, user.CreateUserDTO{Username: "root", Password: "password", Roles: []user.RoleName{user.RoleAdmin}})
		Expect(err).NotTo(HaveOccurred())
		alice, err = svc.Create(ctx, user.CreateUserDTO{Username: "alice", Password: "password"})
		Expect(err).NotTo(HaveOccurred())
		bob, err = svc.Create(ctx, user.CreateUserDTO{Username: "bob", Password: "password"})
		Expect(err).NotTo(HaveOccurred())
		actor = &alice

		router = chi.NewRouter()
		router.Post("/users", asActor(handler.Create))
		router.Get("/users/all", asActor(handler.FindAll))
		router.Get("/users", asActor(handler.FindByUsername))
		router.Get("/users/{id}", asActor(handler.FindByID))
		router.Put("/users/{id}", asActor(handler.Update))
		router.Delete("/users/{id}", asActor(handler.Delete))
	})

	Describe("reads", func() {
		It("should list every user without exposing passwords", func() {
			w := do(http.MethodGet, "/users/all", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).NotTo(ContainSubstring("hashed:"))

			var users []map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &users)).To(Succeed())
			Expect(users).To(HaveLen(3))
		})

		It("should find by id and 404 on unknown ids", func() {
			Expect(do(http.MethodGet, "/users/"+bob.ID, nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/users/nope", nil).Code).To(Equal(http.StatusNotFound))
		})

		It("should find by username and require the parameter", func() {
			w := do(http.MethodGet, "/users?username=bob", nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			var found user.User
			Expect(json.Unmarshal(w.Body.Bytes(), &found)).To(Succeed())
			Expect(found.ID).To(Equal(bob.ID))

			Expect(do(http.MethodGet, "/users", nil).Code).To(Equal(http.StatusBadRequest))
			Expect(do(http.MethodGet, "/users?username=carol", nil).Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Create", func() {
		It("should return 201 with the stored user", func() {
			w := do(http.MethodPost, "/users", map[string]any{"username": "carol", "password": "password"})

			Expect(w.Code).To(Equal(http.StatusCreated))
			var created user.User
			Expect(json.Unmarshal(w.Body.Bytes(), &created)).To(Succeed())
			Expect(created.Username).To(Equal("carol"))
			Expect(created.AccountStatus).To(Equal(user.StatusActive))
		})

		It("should reject malformed bodies and duplicates with 400", func() {
			Expect(do(http.MethodPost, "/users", map[string]any{"username": "carol", "pass": "x"}).Code).To(Equal(http.StatusBadRequest))
			Expect(do(http.MethodPost, "/users", map[string]any{"username": "bob", "password": "password"}).Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Update", func() {
		It("should let a user update themselves", func() {
			w := do(http.MethodPut, "/users/"+alice.ID, map[string]any{"username": "alicia"})

			Expect(w.Code).To(Equal(http.StatusOK))
			var updated user.User
			Expect(json.Unmarshal(w.Body.Bytes(), &updated)).To(Succeed())
			Expect(updated.Username).To(Equal("alicia"))
		})

		It("should forbid updating someone else", func() {
			w := do(http.MethodPut, "/users/"+bob.ID, map[string]any{"username": "robert"})

			Expect(w.Code).To(Equal(http.StatusForbidden))
			unchanged, err := svc.FindByID(ctx, bob.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(unchanged.Username).To(Equal("bob"))
		})

		It("should forbid non-admins from changing their own status", func() {
			w := do(http.MethodPut, "/users/"+alice.ID, map[string]any{"account_status": "active"})

			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("should let an admin update anyone, including status", func() {
			actor = &admin

			w := do(http.MethodPut, "/users/"+bob.ID, map[string]any{"account_status": "banned"})

			Expect(w.Code).To(Equal(http.StatusOK))
			banned, err := svc.FindByID(ctx, bob.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(banned.AccountStatus).To(Equal(user.StatusBanned))
		})

		It("should map a case-insensitive collision to 400", func() {
			w := do(http.MethodPut, "/users/"+alice.ID, map[string]any{"username": "BOB"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("USERNAME_IN_USE"))
		})

		It("should return 404 for unknown targets", func() {
			Expect(do(http.MethodPut, "/users/nope", map[string]any{"username": "x"}).Code).To(Equal(http.StatusNotFound))
		})

		It("should return 401 without an actor", func() {
			actor = nil
			Expect(do(http.MethodPut, "/users/"+alice.ID, map[string]any{"username": "x"}).Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("Delete", func() {
		It("should let a user delete themselves with 204", func() {
			w := do(http.MethodDelete, "/users/"+alice.ID, nil)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(w.Body.Len()).To(BeZero())
		})

		It("should forbid deleting someone else", func() {
			Expect(do(http.MethodDelete, "/users/"+bob.ID, nil).Code).To(Equal(http.StatusForbidden))
		})

		It("should let an admin delete anyone", func() {
			actor = &admin
			Expect(do(http.MethodDelete, "/users/"+bob.ID, nil).Code).To(Equal(http.StatusNoContent))
			Expect(do(http.MethodGet, "/users/"+bob.ID, nil).Code).To(Equal(http.StatusNotFound))
		})
	})
})
