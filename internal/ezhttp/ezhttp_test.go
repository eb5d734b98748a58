package ezhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifier-app/notifier/internal/httperr"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestClientDo(t *testing.T) {
	var (
		gotAuth string
		gotUA   string
		gotBody item
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(HeaderAuthorization)
		gotUA = r.Header.Get(HeaderUserAgent)
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		w.Header().Set(HeaderContentType, ContentTypeJSON)
		_ = json.NewEncoder(w).Encode(item{ID: "1", Name: "created"})
	}))
	defer srv.Close()

	client := New(Config{
		Server:    srv.URL + "/",
		UserAgent: "notifier/test",
		Tokens: TokenSourceFunc(func(ctx context.Context) (string, error) {
			return "id-token", nil
		}),
	})

	var rs item
	require.NoError(t, client.Post(context.Background(), "/things", item{Name: "new"}, &rs))
	assert.Equal(t, item{ID: "1", Name: "created"}, rs)
	assert.Equal(t, "new", gotBody.Name)
	assert.Equal(t, "Bearer id-token", gotAuth)
	assert.Equal(t, "notifier/test", gotUA)
}

func TestClientWithoutToken(t *testing.T) {
	var (
		called  bool
		hasAuth bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, hasAuth = r.Header[HeaderAuthorization]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	tests := []struct {
		name   string
		tokens TokenSource
	}{
		{name: "nil token source", tokens: nil},
		{name: "empty token", tokens: TokenSourceFunc(func(ctx context.Context) (string, error) { return "", nil })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called, hasAuth = false, false
			client := New(Config{Server: srv.URL, Tokens: tt.tokens})
			require.NoError(t, client.Delete(context.Background(), "/things/1"))
			assert.True(t, called)
			assert.False(t, hasAuth)
		})
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "json message",
			status:     http.StatusBadRequest,
			body:       `{"message":"name must not be empty"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "failed to GET /things: name must not be empty",
		},
		{
			name:       "plain text",
			status:     http.StatusInternalServerError,
			body:       "boom",
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "failed to GET /things: 500 boom",
		},
		{
			name:       "empty body",
			status:     http.StatusNotFound,
			wantStatus: http.StatusNotFound,
			wantMsg:    "failed to GET /things: 404 Not Found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var rs []item
			err := New(Config{Server: srv.URL}).Get(context.Background(), "/things", &rs)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, tt.wantStatus, httperr.Status(err))
		})
	}
}

func TestClientTokenError(t *testing.T) {
	client := New(Config{
		Server: "http://127.0.0.1:0",
		Tokens: TokenSourceFunc(func(ctx context.Context) (string, error) {
			return "", errors.New("refresh failed")
		}),
	})
	err := client.Get(context.Background(), "/things", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh failed")
}
