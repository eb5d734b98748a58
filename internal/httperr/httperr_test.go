package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "not found sentinel",
			err:    NotFound(errors.New("template missing")),
			target: ErrNotFound,
			want:   true,
		},
		{
			name:   "unauthorized sentinel",
			err:    fmt.Errorf("failed to get templates: %w", Unauthorized(errors.New("token expired"))),
			target: ErrUnauthorized,
			want:   true,
		},
		{
			name:   "status mismatch",
			err:    BadRequest(errors.New("invalid body")),
			target: ErrNotFound,
			want:   false,
		},
		{
			name:   "same status any cause",
			err:    Forbidden(errors.New("nope")),
			target: &Error{Status: http.StatusForbidden},
			want:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestStatus(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", TooManyRequests(errors.New("slow down")))
	assert.Equal(t, http.StatusTooManyRequests, Status(err))
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	assert.Equal(t, 0, Status(errors.New("plain")))

	var httpErr *Error
	assert.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "slow down", httpErr.Error())
	assert.Equal(t, "500 Internal Server Error", (&Error{Status: http.StatusInternalServerError}).Error())
}
