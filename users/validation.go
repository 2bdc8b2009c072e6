package users

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// FieldErrors maps a form field to the message shown next to it. It is
// returned by the pre-submit checks so nothing is sent to the backend.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return strings.Join(parts, "; ")
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper || !hasLower || !hasNumber {
		return fmt.Errorf("password must contain at least one uppercase letter, one lowercase letter, and one number")
	}

	return nil
}

// ValidateRegistration runs the registration form checks. It returns nil
// when the input may be submitted.
func ValidateRegistration(in ProfileInput) error {
	errs := FieldErrors{}

	firstName := strings.TrimSpace(in.FirstName)
	switch {
	case firstName == "":
		errs["first_name"] = "First name is required"
	case len(firstName) < 2:
		errs["first_name"] = "First name must be at least 2 characters"
	}

	if lastName := strings.TrimSpace(in.LastName); lastName != "" && len(lastName) < 2 {
		errs["last_name"] = "Last name must be at least 2 characters"
	}

	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		errs["username"] = "Username is required"
	case len(username) < 3:
		errs["username"] = "Username must be at least 3 characters"
	case !usernamePattern.MatchString(in.Username):
		errs["username"] = "Username can only contain letters, numbers, and underscores"
	}

	switch {
	case strings.TrimSpace(in.Email) == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(in.Email):
		errs["email"] = "Please enter a valid email address"
	}

	if in.Password == "" {
		errs["password"] = "Password is required"
	} else if err := ValidatePasswordStrength(in.Password); err != nil {
		errs["password"] = capitalise(err.Error())
	}

	switch {
	case in.Password2 == "":
		errs["password2"] = "Please confirm your password"
	case in.Password != in.Password2:
		errs["password2"] = "Passwords do not match"
	}

	if in.Role != "" && !in.Role.Valid() {
		errs["role"] = "Unknown role"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateLogin runs the login form checks.
func ValidateLogin(username, password string) error {
	errs := FieldErrors{}
	if strings.TrimSpace(username) == "" {
		errs["username"] = "Username is required"
	}
	switch {
	case password == "":
		errs["password"] = "Password is required"
	case len(password) < 6:
		errs["password"] = "Password must be at least 6 characters"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
