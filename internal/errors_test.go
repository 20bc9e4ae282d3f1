package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("AppError", func() {
	ginkgo.Describe("errors.Is", func() {
		ginkgo.It("should match copies made with WithCause by code", func() {
			// Given
			err := ErrUserNotFound.WithCause(errors.New("record not found"))

			// Then
			gomega.Expect(errors.Is(err, ErrUserNotFound)).To(gomega.BeTrue())
			gomega.Expect(errors.Is(err, ErrUsernameInUse)).To(gomega.BeFalse())
		})

		ginkgo.It("should see through fmt wrapping", func() {
			err := fmt.Errorf("lookup: %w", ErrTokenExpired)

			gomega.Expect(errors.Is(err, ErrTokenExpired)).To(gomega.BeTrue())
			appErr, ok := IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should not mutate the shared sentinel", func() {
			_ = ErrInvalidToken.WithMessage("something else")

			gomega.Expect(ErrInvalidToken.Message).To(gomega.Equal("Invalid token"))
		})
	})

	ginkgo.Describe("NewAccountInactiveError", func() {
		ginkgo.It("should name the user and the status", func() {
			err := NewAccountInactiveError("alice", "banned")

			gomega.Expect(err.Error()).To(gomega.Equal("alice, account banned"))
			gomega.Expect(err.StatusCode).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(err.Code).To(gomega.Equal(ErrCodeAccountInactive))
		})
	})

	ginkgo.Describe("MarshalJSON", func() {
		ginkgo.It("should hide status code and cause", func() {
			err := NewInternalError("boom", errors.New("db down"))

			raw, mErr := json.Marshal(err)
			gomega.Expect(mErr).ToNot(gomega.HaveOccurred())

			var body map[string]any
			gomega.Expect(json.Unmarshal(raw, &body)).To(gomega.Succeed())
			gomega.Expect(body).To(gomega.HaveKeyWithValue("code", "INTERNAL_ERROR"))
			gomega.Expect(body).To(gomega.HaveKeyWithValue("message", "boom"))
			gomega.Expect(body).ToNot(gomega.HaveKey("cause"))
		})
	})

	ginkgo.Describe("GetDetailedMessage", func() {
		ginkgo.It("should join every field message", func() {
			err := NewValidationError("Validation failed", ErrCodeValidationFailed).WithDetails(ValidationErrors{
				Errors: []ValidationError{
					{Field: "username", Message: "username is required"},
					{Field: "password", Message: "password is required"},
				},
			})

			gomega.Expect(err.GetDetailedMessage()).To(gomega.Equal("username is required; password is required"))
		})
	})
})
