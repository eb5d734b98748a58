package httperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

type Error struct {
	Err       error
	Status    int
	Path      string
	RequestID string
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		switch target {
		case ErrUnauthorized:
			return e.Status == http.StatusUnauthorized
		case ErrForbidden:
			return e.Status == http.StatusForbidden
		case ErrNotFound:
			return e.Status == http.StatusNotFound
		}
		return errors.Is(e.Err, target)
	}
	return t.Status == e.Status && (t.Err == nil || errors.Is(e.Err, t.Err))
}

func (e *Error) As(target any) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	*t = *e
	return true
}

func New(err error, status int) error {
	return &Error{
		Err:    err,
		Status: status,
	}
}

func NotFound(err error) error {
	return New(err, http.StatusNotFound)
}

func BadRequest(err error) error {
	return New(err, http.StatusBadRequest)
}

func Unauthorized(err error) error {
	return New(err, http.StatusUnauthorized)
}

func Forbidden(err error) error {
	return New(err, http.StatusForbidden)
}

func TooManyRequests(err error) error {
	return New(err, http.StatusTooManyRequests)
}

func InternalServerError(err error) error {
	return New(err, http.StatusInternalServerError)
}

// Status returns the http status carried by err or 0 if err is not an *Error.
func Status(err error) int {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

func IsStatus(err error, status int) bool {
	return Status(err) == status
}
