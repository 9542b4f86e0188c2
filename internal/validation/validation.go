// Package validation checks request payloads against their `validate` tags
// and reports every failing field at once.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/mentor-match/internal/apperror"
)

const (
	PasswordMinBytes = 8
	PasswordMaxBytes = 72
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result is either OK or the list of failing fields.
type Result struct {
	Fields []FieldError
}

func (r Result) OK() bool {
	return len(r.Fields) == 0
}

// Err converts a failed result into a validation error carrying the fields.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return apperror.Validation("request validation failed").WithDetail("fields", r.Fields)
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	// registration only fails on an empty tag
	_ = v.RegisterValidation("password", validatePassword)
	return &Validator{v: v}
}

// Struct validates s. Non-struct input is reported as a single failure.
func (v *Validator) Struct(s interface{}) Result {
	err := v.v.Struct(s)
	if err == nil {
		return Result{}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Result{Fields: []FieldError{{Field: "", Rule: "invalid", Message: err.Error()}}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fieldPath(fe),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	return Result{Fields: fields}
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "password":
		return fmt.Sprintf("must be %d-%d bytes and contain upper and lower case letters, a digit and a special character", PasswordMinBytes, PasswordMaxBytes)
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " items"
		}
		return "must be at least " + fe.Param() + " characters"
	case "max":
		if fe.Kind() == reflect.Slice {
			return "must contain at most " + fe.Param() + " items"
		}
		return "must be at most " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func validatePassword(fl validator.FieldLevel) bool {
	return PasswordStrong(fl.Field().String())
}

// PasswordStrong reports whether pw satisfies the password policy.
func PasswordStrong(pw string) bool {
	if len(pw) < PasswordMinBytes || len(pw) > PasswordMaxBytes {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsSpace(r):
			special = true
		}
	}
	return upper && lower && digit && special
}
