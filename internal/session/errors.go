package session

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidCredentials is returned by Login for any rejected attempt.
	// The backend's own reason stays available through errors.Unwrap.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrRegistrationFailed is returned by Register when the backend gives
	// no field-level detail
	ErrRegistrationFailed = errors.New("registration failed, please try again")
	// ErrNoSession is returned by a Store holding no session
	ErrNoSession = errors.New("session: nothing stored")

	errMissingToken = errors.New("auth response carried no token")
)

type credentialsError struct {
	cause error
}

func (e *credentialsError) Error() string        { return ErrInvalidCredentials.Error() }
func (e *credentialsError) Is(target error) bool { return target == ErrInvalidCredentials }
func (e *credentialsError) Unwrap() error        { return e.cause }

type registrationError struct {
	cause error
}

func (e *registrationError) Error() string        { return ErrRegistrationFailed.Error() }
func (e *registrationError) Is(target error) bool { return target == ErrRegistrationFailed }
func (e *registrationError) Unwrap() error        { return e.cause }

// FieldErrors maps form fields to the first message reported for each
type FieldErrors struct {
	Fields map[string]string
}

func (e *FieldErrors) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return strings.Join(parts, "; ")
}

// Get returns the message for field, if any
func (e *FieldErrors) Get(field string) string {
	return e.Fields[field]
}

var registerMessages = map[string]map[string]string{
	"username": {
		"required": "Username is required",
		"min":      "Username must be at least 3 characters",
	},
	"email": {
		"required": "Email is required",
		"email":    "Enter a valid email address",
	},
	"password": {
		"required": "Password is required",
		"min":      "Password must be at least 6 characters",
	},
	"password2": {
		"eqfield": "Passwords do not match",
	},
}

func fieldErrorsFromValidation(errs validator.ValidationErrors) *FieldErrors {
	out := &FieldErrors{Fields: make(map[string]string, len(errs))}
	for _, fe := range errs {
		field := fe.Field()
		if _, seen := out.Fields[field]; seen {
			continue
		}
		msg, ok := registerMessages[field][fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		out.Fields[field] = msg
	}
	return out
}

func fieldErrorsFromBackend(fields map[string][]string) *FieldErrors {
	out := &FieldErrors{Fields: make(map[string]string, len(fields))}
	for name, msgs := range fields {
		if len(msgs) > 0 {
			out.Fields[name] = msgs[0]
		}
	}
	return out
}
