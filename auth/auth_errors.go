package auth

import (
	"net/http"

	"github.com/jrsteele09/go-blog-client/api"
)

// User facing messages
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgAccountLocked      = "Account is locked. Please contact support."
	MsgRateLimited        = "Too many login attempts. Please try again later."
	MsgCannotConnect      = "Unable to connect to server. Please check your internet connection."
	MsgLoginFailed        = "Login failed. Please try again."
	MsgAlreadyExists      = "Username or email already exists"
	MsgRegisterFailed     = "Registration failed. Please try again."
	MsgProfileFailed      = "Profile update failed"
	MsgPasswordFailed     = "Password change failed"
)

const nonFieldErrors = "non_field_errors"

// registrationFields is the order registration field errors are reported
// in; the first one present wins.
var registrationFields = []struct {
	field string
	label string
}{
	{"username", "Username"},
	{"email", "Email"},
	{"password", "Password"},
	{"first_name", "First name"},
	{"last_name", "Last name"},
	{"role", "Role"},
}

// Error is what the Manager returns for a failed operation: a message fit
// to show the user, wrapping the underlying cause (usually an *api.Error).
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(message string, cause error) *Error {
	return &Error{Message: message, Cause: cause}
}

func loginError(err error) error {
	apiErr, ok := api.AsError(err)
	if !ok {
		return newError(MsgLoginFailed, err)
	}

	switch apiErr.StatusCode {
	case http.StatusBadRequest:
		if msg, ok := apiErr.Field(nonFieldErrors); ok && msg != "" {
			return newError(msg, err)
		}
		if apiErr.HasField("username") || apiErr.HasField("password") {
			return newError(MsgInvalidCredentials, err)
		}
	case http.StatusUnauthorized:
		return newError(MsgInvalidCredentials, err)
	case http.StatusForbidden:
		return newError(MsgAccountLocked, err)
	case http.StatusTooManyRequests:
		return newError(MsgRateLimited, err)
	case 0:
		return newError(MsgCannotConnect, err)
	}
	return newError(serverMessage(apiErr, MsgLoginFailed), err)
}

func registerError(err error) error {
	apiErr, ok := api.AsError(err)
	if !ok {
		return newError(MsgRegisterFailed, err)
	}

	switch apiErr.StatusCode {
	case http.StatusBadRequest:
		for _, f := range registrationFields {
			if msg, ok := apiErr.Field(f.field); ok {
				return newError(f.label+": "+msg, err)
			}
		}
		if msg, ok := apiErr.Field(nonFieldErrors); ok && msg != "" {
			return newError(msg, err)
		}
	case http.StatusConflict:
		return newError(MsgAlreadyExists, err)
	case 0:
		return newError(MsgCannotConnect, err)
	}
	return newError(serverMessage(apiErr, MsgRegisterFailed), err)
}

// proxyError covers the profile and password calls: the server's message
// when it sent one, else fallback.
func proxyError(err error, fallback string) error {
	apiErr, ok := api.AsError(err)
	if !ok {
		return newError(fallback, err)
	}
	return newError(serverMessage(apiErr, fallback), err)
}

func serverMessage(apiErr *api.Error, fallback string) string {
	if msg := apiErr.Message(); msg != "" {
		return msg
	}
	return fallback
}
