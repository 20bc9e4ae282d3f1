package user_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/core/events"
	"github.com/frahmantamala/user-management/internal/user"
	"github.com/frahmantamala/user-management/internal/user/memory"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (fakeHasher) Verify(plain, hash string) bool    { return hash == "hashed:"+plain }

// failingRepository wraps a store and can be told to fail every call.
type failingRepository struct {
	*memory.Store
	returnError   bool
	errorToReturn error
}

func (m *failingRepository) setError(err error) {
	m.returnError = true
	m.errorToReturn = err
}

func (m *failingRepository) clearError() {
	m.returnError = false
	m.errorToReturn = nil
}

func (m *failingRepository) Save(ctx context.Context, u user.User) (user.User, error) {
	if m.returnError {
		return user.User{}, m.errorToReturn
	}
	return m.Store.Save(ctx, u)
}

func (m *failingRepository) FindByUsername(ctx context.Context, username string) (user.User, error) {
	if m.returnError {
		return user.User{}, m.errorToReturn
	}
	return m.Store.FindByUsername(ctx, username)
}

type recordedEvents struct {
	types []string
}

func (r *recordedEvents) handler(_ context.Context, e events.Event) error {
	r.types = append(r.types, e.EventType())
	return nil
}

var _ = ginkgo.Describe("Service", func() {
	var (
		ctx      context.Context
		repo     *failingRepository
		bus      *events.Bus
		recorded *recordedEvents
		svc      *user.Service
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		repo = &failingRepository{Store: memory.NewStore()}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		bus = events.NewBus(logger)
		recorded = &recordedEvents{}
		bus.Subscribe(recorded.handler, user.EventUserCreated, user.EventUserUpdated, user.EventUserDeleted)
		svc = user.NewService(repo, fakeHasher{}, bus, user.RoleUser, logger)
	})

	ginkgo.Describe("Create", func() {
		ginkgo.It("should hash the password and assign the default role", func() {
			// When
			u, err := svc.Create(ctx, user.CreateUserDTO{Username: "alice", Password: "password"})

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(u.Password).To(gomega.Equal("hashed:password"))
			gomega.Expect(u.RoleNames()).To(gomega.ConsistOf(user.RoleUser))
			gomega.Expect(u.IsActive()).To(gomega.BeTrue())
			gomega.Expect(recorded.types).To(gomega.Equal([]string{user.EventUserCreated}))
		})

		ginkgo.It("should honour explicit roles", func() {
			u, err := svc.Create(ctx, user.CreateUserDTO{Username: "root", Password: "password", Roles: []user.RoleName{user.RoleAdmin, user.RoleAdmin}})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(u.RoleNames()).To(gomega.Equal([]user.RoleName{user.RoleAdmin}))
		})

		ginkgo.It("should report validation failures", func() {
			_, err := svc.Create(ctx, user.CreateUserDTO{Username: "", Password: "x"})

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeValidation))
		})

		ginkgo.It("should pass duplicate usernames through as a bad request", func() {
			_, err := svc.Create(ctx, user.CreateUserDTO{Username: "alice", Password: "password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = svc.Create(ctx, user.CreateUserDTO{Username: "alice", Password: "password"})

			gomega.Expect(errors.Is(err, internal.ErrUserAlreadyExists)).To(gomega.BeTrue())
		})

		ginkgo.It("should wrap unexpected store failures as internal errors", func() {
			repo.setError(errors.New("disk full"))
			defer repo.clearError()

			_, err := svc.Create(ctx, user.CreateUserDTO{Username: "alice", Password: "password"})

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeInternal))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("disk full"))
		})
	})

	ginkgo.Describe("Update", func() {
		var alice user.User

		ginkgo.BeforeEach(func() {
			var err error
			alice, err = svc.Create(ctx, user.CreateUserDTO{Username: "alice", Password: "password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})

		ginkgo.It("should rehash a new password and keep the id", func() {
			pw := "another-password"

			u, err := svc.Update(ctx, alice.ID, user.UpdateUserDTO{Password: &pw})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(u.ID).To(gomega.Equal(alice.ID))
			gomega.Expect(svc.CheckPassword("another-password", u.Password)).To(gomega.BeTrue())
			gomega.Expect(u.UpdatedAt).ToNot(gomega.BeNil())
		})

		ginkgo.It("should reject a case-insensitive username collision", func() {
			_, err := svc.Create(ctx, user.CreateUserDTO{Username: "bob", Password: "password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			name := strings.ToUpper("bob")

			_, err = svc.Update(ctx, alice.ID, user.UpdateUserDTO{Username: &name})

			gomega.Expect(errors.Is(err, internal.ErrUsernameInUse)).To(gomega.BeTrue())
		})

		ginkgo.It("should report a missing user", func() {
			_, err := svc.Update(ctx, "missing", user.UpdateUserDTO{})
			gomega.Expect(errors.Is(err, internal.ErrUserNotFound)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("Delete", func() {
		ginkgo.It("should remove the user and publish an event", func() {
			alice, err := svc.Create(ctx, user.CreateUserDTO{Username: "alice", Password: "password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(svc.Delete(ctx, alice.ID)).To(gomega.Succeed())

			_, err = svc.FindByID(ctx, alice.ID)
			gomega.Expect(errors.Is(err, internal.ErrUserNotFound)).To(gomega.BeTrue())
			bus.Wait()
			gomega.Expect(recorded.types).To(gomega.Equal([]string{user.EventUserCreated, user.EventUserDeleted}))
		})
	})

	ginkgo.Describe("EnsureAdmin", func() {
		ginkgo.It("should create the admin once", func() {
			first, created, err := svc.EnsureAdmin(ctx, "root", "password")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(created).To(gomega.BeTrue())
			gomega.Expect(first.HasAnyRole(user.RoleAdmin)).To(gomega.BeTrue())

			second, created, err := svc.EnsureAdmin(ctx, "root", "password")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(created).To(gomega.BeFalse())
			gomega.Expect(second.ID).To(gomega.Equal(first.ID))
		})

		ginkgo.It("should surface lookup failures", func() {
			repo.setError(errors.New("connection reset"))
			defer repo.clearError()

			_, _, err := svc.EnsureAdmin(ctx, "root", "password")
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})
})
