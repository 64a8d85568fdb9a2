package signup

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrRequired         = errors.New("field is required")
	ErrInvalidLogin     = errors.New("must contain only letters, digits and underscores")
	ErrInvalidEmail     = errors.New("must be a valid email address")
	ErrPasswordTooShort = errors.New("must be at least 8 characters")
	ErrLoginBusy        = errors.New("login is already taken")
	ErrEmailBusy        = errors.New("email is already registered")

	// ErrIncomplete is returned by Submit before the last step is reached.
	ErrIncomplete = errors.New("signup: earlier steps are not complete")
	// ErrCommitted is returned by any transition after a successful Submit.
	ErrCommitted = errors.New("signup: registration already committed")
)

// FieldErrors reports per-field validation failures for one step. Each value
// is one of the field sentinels above, so errors.Is works on the whole set.
type FieldErrors struct {
	Fields map[string]error
}

func (e *FieldErrors) add(field string, err error) {
	if e.Fields == nil {
		e.Fields = make(map[string]error)
	}
	e.Fields[field] = err
}

// Field returns the error recorded for field, or nil.
func (e *FieldErrors) Field(field string) error {
	return e.Fields[field]
}

func (e *FieldErrors) empty() bool { return len(e.Fields) == 0 }

func (e *FieldErrors) names() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *FieldErrors) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range e.names() {
		parts = append(parts, name+": "+e.Fields[name].Error())
	}
	return "signup: " + strings.Join(parts, ", ")
}

// Unwrap exposes every field error to errors.Is and errors.As.
func (e *FieldErrors) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, name := range e.names() {
		errs = append(errs, e.Fields[name])
	}
	return errs
}
