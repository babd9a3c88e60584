package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"linkshelf/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator and converts failures to VALIDATION_ERROR.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the application's custom tags registered:
// username, password and httpurl.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" || name == "-" {
			return fld.Name
		}
		if i := strings.IndexByte(name, ','); i >= 0 {
			return name[:i]
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidateUsername(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return ValidatePassword(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return ValidateHTTPURL(fl.Field().String(), 0) == nil
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a *models.AppError on failure.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return models.NewValidationError(err.Error())
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msgs = append(msgs, e.Field()+" "+v.friendlyMessage(e))
	}
	sort.Strings(msgs)
	return models.NewValidationError(strings.Join(msgs, "; "))
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "url", "httpurl":
		return "must be a valid http(s) URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "username":
		return "must be 3-30 letters, digits, underscores or hyphens and not reserved"
	case "password":
		return fmt.Sprintf("must be %d-%d characters with at least one letter and one digit", MinPasswordLength, MaxPasswordLength)
	default:
		return "is invalid"
	}
}
