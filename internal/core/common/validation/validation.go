package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	apperrors "github.com/frahmantamala/user-management/internal"
	"github.com/go-playground/validator/v10"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the process-wide validator. Field names in errors are
// taken from json tags so messages match the request payload.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := instance.RegisterValidation("bcryptlen", bcryptLength); err != nil {
			panic(err)
		}
	})
	return instance
}

// bcryptLength counts bytes, not runes: "max" would let multi-byte
// passwords through that bcrypt then refuses to hash.
func bcryptLength(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxPasswordBytes
}

// Struct validates s and converts failures into a VALIDATION_ERROR AppError
// with one entry per offending field.
func Struct(s interface{}) *apperrors.AppError {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), apperrors.ErrCodeValidationFailed)
	}

	details := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: message(fe),
			Code:    strings.ToUpper(fe.Tag()),
		})
	}

	return apperrors.NewValidationError("Validation failed", apperrors.ErrCodeValidationFailed).
		WithDetails(apperrors.ValidationErrors{Errors: details})
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", fe.Field(), fe.Param())
	case "bcryptlen":
		return fmt.Sprintf("%s must not exceed %d bytes", fe.Field(), MaxPasswordBytes)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "dive":
		return fmt.Sprintf("%s contains an invalid entry", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
