package authsdk

import (
	"regexp"
	"sort"
	"strings"
)

// MinPasswordLength matches the backend's password policy.
const MinPasswordLength = 8

var loginPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidLogin reports whether login uses only letters, digits and
// underscores.
func ValidLogin(login string) bool {
	return loginPattern.MatchString(login)
}

// Validate checks the request before it leaves the client. It returns a map
// of field names to error messages, or nil if the request is valid.
func (r RegisterRequest) Validate() map[string]string {
	errs := make(map[string]string)

	if r.Login == "" {
		errs["login"] = "required"
	} else if !ValidLogin(r.Login) {
		errs["login"] = "must contain only letters, digits and underscores"
	}

	if r.Email == "" {
		errs["email"] = "required"
	} else if !strings.Contains(r.Email, "@") {
		errs["email"] = "must be a valid email address"
	}

	if r.Password == "" {
		errs["password"] = "required"
	} else if len(r.Password) < MinPasswordLength {
		errs["password"] = "must be at least 8 characters"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks that the credentials are present.
func (r LoginRequest) Validate() map[string]string {
	errs := make(map[string]string)

	if r.Login == "" {
		errs["login"] = "required"
	}
	if r.Password == "" {
		errs["password"] = "required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// joinFieldErrors renders a field error map in a stable order.
func joinFieldErrors(errs map[string]string) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+errs[f])
	}
	return strings.Join(parts, ", ")
}
