// internal/pkg/commerce/errors.go
package commerce

import (
	"errors"
	"fmt"
)

// NetworkError is a transport failure or timeout. It is always retryable by
// the user; the client never retries on its own.
type NetworkError struct {
	Op      string
	Err     error
	Timeout bool
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: request timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response. Message is surfaced verbatim.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// ParseError is a response shape that could not be understood
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a timed out network error
func IsTimeout(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr) && netErr.Timeout
}

// errorMessage picks the user-facing message of an error body:
// message, then error, then errors[0], then "HTTP <status>".
func errorMessage(body map[string]any, status int) string {
	if s, ok := nonEmptyString(body["message"]); ok {
		return s
	}
	if s, ok := nonEmptyString(body["error"]); ok {
		return s
	}
	if list, ok := body["errors"].([]any); ok && len(list) > 0 {
		if s, ok := nonEmptyString(list[0]); ok {
			return s
		}
		// {"errors": [{"message": "..."}]}
		if obj, ok := list[0].(map[string]any); ok {
			if s, ok := nonEmptyString(obj["message"]); ok {
				return s
			}
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
