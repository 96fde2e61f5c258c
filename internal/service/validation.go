package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	msgRequired        = "This field is required."
	msgInvalidUsername = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	msgInvalidEmail    = "Enter a valid email address."
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// newValidator builds the rule set shared by every request type. Failures are
// reported under the field's JSON name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return msgRequired
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "email":
		return msgInvalidEmail
	case "username":
		return msgInvalidUsername
	case "oneof":
		return fmt.Sprintf("\"%v\" is not a valid choice.", fe.Value())
	default:
		return "Invalid value."
	}
}

// check runs the struct rules of in and returns the failures keyed by field.
// The result is never nil so callers can add their own findings.
func (s *Service) check(in interface{}) *ValidationError {
	v := &ValidationError{}
	err := s.validate.Struct(in)
	if err == nil {
		return v
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		v.Add("non_field_errors", err.Error())
		return v
	}
	for _, fe := range errs {
		v.Add(fe.Field(), fieldMessage(fe))
	}
	return v
}
