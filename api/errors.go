package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"github.com/jrsteele09/go-blog-client/internal/utils"
)

// Error is returned for every non-2xx response and for requests that never
// got a response. StatusCode is 0 when the backend could not be reached;
// Err then holds the transport failure.
type Error struct {
	StatusCode int
	Fields     map[string][]string
	Body       []byte
	Err        error

	message string
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("request failed: %v", e.Err)
	case e.message != "":
		return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.message)
	default:
		return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the server supplied "error" (or "detail") text, if any.
func (e *Error) Message() string {
	return e.message
}

// Field returns the first message reported for a request field.
func (e *Error) Field(name string) (string, bool) {
	msgs, ok := e.Fields[name]
	if !ok {
		return "", false
	}
	return utils.FirstOr(msgs, ""), true
}

// HasField reports whether the server flagged the named field at all.
func (e *Error) HasField(name string) bool {
	_, ok := e.Fields[name]
	return ok
}

// SessionExpired reports whether the request failed because the stored
// session could not be refreshed.
func (e *Error) SessionExpired() bool {
	return clienterrors.Is(e.Err, clienterrors.ErrSessionExpired)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not
// an *Error.
func StatusCode(err error) int {
	var apiErr *Error
	if clienterrors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// AsError unwraps err to an *Error.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	ok := clienterrors.As(err, &apiErr)
	return apiErr, ok
}

// newResponseError builds an Error from a non-2xx response body. Bodies that
// are not JSON objects leave Fields empty; nothing about the shape is assumed.
func newResponseError(status int, body []byte) *Error {
	e := &Error{
		StatusCode: status,
		Body:       body,
		Fields:     map[string][]string{},
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return e
	}
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			e.Fields[key] = []string{v}
		case []any:
			e.Fields[key] = utils.ToStringSlice(v)
		}
	}
	if msg, ok := e.Field("error"); ok {
		e.message = msg
	} else if msg, ok := e.Field("detail"); ok {
		e.message = msg
	}
	return e
}
