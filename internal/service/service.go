// Package service implements the application use cases on top of the
// storage interfaces declared in model.
package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mentor-match/internal/apperror"
)

var (
	ErrEmailTaken         = apperror.New(apperror.KindConflict, "EMAIL_TAKEN", "email already registered")
	ErrInvalidCredentials = apperror.New(apperror.KindAuthentication, "INVALID_CREDENTIALS", "invalid email or password")
	ErrUserNotFound       = apperror.New(apperror.KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrMentorNotFound     = apperror.New(apperror.KindNotFound, "MENTOR_NOT_FOUND", "mentor not found")
	ErrMatchNotFound      = apperror.New(apperror.KindNotFound, "MATCH_REQUEST_NOT_FOUND", "match request not found")
	ErrImageNotFound      = apperror.New(apperror.KindNotFound, "IMAGE_NOT_FOUND", "image not found")
	ErrNotMentee          = apperror.New(apperror.KindAuthorization, "MENTEE_ONLY", "only mentees can send match requests")
	ErrForbidden          = apperror.New(apperror.KindAuthorization, "FORBIDDEN", "not allowed to act on this match request")
	ErrDuplicateRequest   = apperror.New(apperror.KindConflict, "DUPLICATE_MATCH_REQUEST", "a match request for this mentor already exists")
	ErrInvalidState       = apperror.New(apperror.KindConflict, "INVALID_STATE", "match request is no longer pending")
	ErrInvalidImage       = apperror.New(apperror.KindValidation, "INVALID_IMAGE", "image must be a base64 data URL of an allowed type and size")
	ErrInvalidOrder       = apperror.New(apperror.KindValidation, "INVALID_ORDER", "order_by must be one of id, name, skill")
)

type options struct {
	now func() time.Time
	log zerolog.Logger
}

// Option configures a service.
type Option func(*options)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func buildOptions(component string, opts []Option) options {
	o := options{
		now: func() time.Time { return time.Now().UTC() },
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.With().Str("component", component).Logger()
	return o
}
