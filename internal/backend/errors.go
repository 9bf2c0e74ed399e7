package backend

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrUnavailable marks transport failures reaching the backend.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrMalformed marks responses that could not be decoded into the expected shape.
	ErrMalformed = errors.New("malformed backend response")
)

// StatusError reports a non-success HTTP status from the backend.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.Code)
}

// IsUnavailable reports whether err is a transport-level failure.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == 404
}
