package remote

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned without touching the network when a
// call that needs a bearer token is made with none configured.
var ErrUnauthenticated = errors.New("no credential configured")

// ErrNotFound is returned when the service answers 404.
var ErrNotFound = errors.New("not found")

// AuthError indicates that the service rejected the credential (401/403).
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%d): %s", e.StatusCode, e.Message)
}

// StatusError is any other non-2xx response.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(
		"unexpected status %d on %s %s: %s",
		e.StatusCode, e.Method, e.Path, e.Message,
	)
}

// IsAuthError reports whether err (or any error in its chain) means the
// caller has no usable identity: either no token or a rejected one.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrUnauthenticated) {
		return true
	}
	var authErr *AuthError
	return errors.As(err, &authErr)
}
