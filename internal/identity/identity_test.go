package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, subject string, email string, expiry time.Time) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte("test-secret-test-secret")}, nil)
	require.NoError(t, err)

	token, err := jwt.Signed(signer).Claims(tokenClaims{
		Claims: jwt.Claims{
			Subject: subject,
			Expiry:  jwt.NewNumericDate(expiry),
		},
		Email: email,
	}).CompactSerialize()
	require.NoError(t, err)
	return token
}

type fakeProvider struct {
	t          *testing.T
	expiry     time.Time
	refreshes  atomic.Int32
	refreshErr string
	lastBody   map[string]any
}

func (p *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()
	writeErr := func(w http.ResponseWriter, status int, message string) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": message}})
	}
	mux.HandleFunc("/v1/accounts:signInWithPassword", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(p.t, "api-key", r.URL.Query().Get("key"))
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.lastBody = body
		if body["password"] != "correct-horse" {
			writeErr(w, http.StatusBadRequest, "INVALID_LOGIN_CREDENTIALS")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"idToken":      signToken(p.t, "user-1", "me@example.com", p.expiry),
			"refreshToken": "refresh-1",
			"expiresIn":    "3600",
			"localId":      "user-1",
			"email":        "me@example.com",
		})
	})
	mux.HandleFunc("/v1/accounts:signUp", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusBadRequest, "WEAK_PASSWORD : Password should be at least 6 characters")
	})
	mux.HandleFunc("/v1/accounts:sendOobCode", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.lastBody = body
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "me@example.com"})
	})
	mux.HandleFunc("/v1/accounts:update", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.lastBody = body
		_ = json.NewEncoder(w).Encode(map[string]string{
			"idToken":      signToken(p.t, "user-1", "me@example.com", p.expiry),
			"refreshToken": "refresh-2",
			"expiresIn":    "3600",
			"localId":      "user-1",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		p.refreshes.Add(1)
		require.NoError(p.t, r.ParseForm())
		assert.Equal(p.t, "refresh_token", r.PostForm.Get("grant_type"))
		if p.refreshErr != "" {
			writeErr(w, http.StatusBadRequest, p.refreshErr)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id_token":      signToken(p.t, "user-1", "", time.Now().Add(time.Hour)),
			"refresh_token": "refresh-3",
			"expires_in":    "3600",
			"user_id":       "user-1",
		})
	})
	return mux
}

func newTestStore(t *testing.T, provider *fakeProvider, session *Session) (*Store, *[]*Session) {
	t.Helper()
	srv := httptest.NewServer(provider.handler())
	t.Cleanup(srv.Close)

	var saved []*Session
	client := New(Config{
		APIKey:      "api-key",
		IdentityURL: srv.URL + "/v1",
		TokenURL:    srv.URL + "/token",
	})
	store := NewStore(client, PersisterFunc(func(session *Session) error {
		saved = append(saved, session)
		return nil
	}), session)
	store.backoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}
	return store, &saved
}

func TestSignIn(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	provider := &fakeProvider{t: t, expiry: expiry}
	store, saved := newTestStore(t, provider, nil)

	token, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)

	_, err = store.SignIn(context.Background(), "me@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := store.SignIn(context.Background(), "me@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "me@example.com", session.Email)
	assert.True(t, expiry.Equal(session.ExpiresAt))
	assert.Equal(t, true, provider.lastBody["returnSecureToken"])

	token, err = store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.IDToken, token)
	assert.EqualValues(t, 0, provider.refreshes.Load())

	require.Len(t, *saved, 1)
	require.NoError(t, store.SignOut())
	assert.Nil(t, store.Session())
	assert.Nil(t, (*saved)[1])
}

func TestSignUpErrors(t *testing.T) {
	store, _ := newTestStore(t, &fakeProvider{t: t}, nil)

	_, err := store.SignUp(context.Background(), "me@example.com", "123")
	require.ErrorIs(t, err, ErrWeakPassword)

	var idErr *Error
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, "WEAK_PASSWORD", idErr.Code)
	assert.Equal(t, "Password should be at least 6 characters", idErr.Message)
}

func TestTokenRefresh(t *testing.T) {
	provider := &fakeProvider{t: t}
	store, saved := newTestStore(t, provider, &Session{
		IDToken:      "expired",
		RefreshToken: "refresh-1",
		Email:        "me@example.com",
		ExpiresAt:    time.Now().Add(30 * time.Second),
	})

	token, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "expired", token)
	assert.EqualValues(t, 1, provider.refreshes.Load())

	session := store.Session()
	assert.Equal(t, "refresh-3", session.RefreshToken)
	assert.Equal(t, "me@example.com", session.Email)
	require.Len(t, *saved, 1)

	again, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, again)
	assert.EqualValues(t, 1, provider.refreshes.Load())
}

func TestTokenRefreshRejected(t *testing.T) {
	provider := &fakeProvider{t: t, refreshErr: "INVALID_REFRESH_TOKEN"}
	store, saved := newTestStore(t, provider, &Session{
		IDToken:      "expired",
		RefreshToken: "revoked",
		ExpiresAt:    time.Now().Add(-time.Hour),
	})

	_, err := store.Token(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	// permanent errors are not retried
	assert.EqualValues(t, 1, provider.refreshes.Load())
	assert.Nil(t, store.Session())
	require.Len(t, *saved, 1)
	assert.Nil(t, (*saved)[0])
}

func TestChangePasswordAndReset(t *testing.T) {
	provider := &fakeProvider{t: t, expiry: time.Now().Add(time.Hour)}
	store, _ := newTestStore(t, provider, nil)

	assert.ErrorIs(t, store.ChangePassword(context.Background(), "correct-horse", "battery-staple"), ErrNotLoggedIn)

	_, err := store.SignIn(context.Background(), "me@example.com", "correct-horse")
	require.NoError(t, err)

	err = store.ChangePassword(context.Background(), "wrong", "battery-staple")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to re-authenticate"))

	require.NoError(t, store.ChangePassword(context.Background(), "correct-horse", "battery-staple"))
	assert.Equal(t, "battery-staple", provider.lastBody["password"])
	assert.Equal(t, "refresh-2", store.Session().RefreshToken)
	assert.Equal(t, "me@example.com", store.Session().Email)

	require.NoError(t, store.SendPasswordReset(context.Background(), "me@example.com"))
	assert.Equal(t, "PASSWORD_RESET", provider.lastBody["requestType"])
}

func TestSessionFromConfig(t *testing.T) {
	assert.Nil(t, SessionFromConfig(func(string) string { return "" }))

	token := signToken(t, "user-9", "cfg@example.com", time.Now().Add(time.Hour))
	values := map[string]string{"id_token": token, "refresh_token": "r"}
	session := SessionFromConfig(func(key string) string { return values[key] })
	require.NotNil(t, session)
	assert.Equal(t, "user-9", session.UserID)
	assert.Equal(t, "cfg@example.com", session.Email)
	assert.False(t, session.Expired(time.Now(), time.Minute))
	assert.True(t, session.Expired(time.Now().Add(2*time.Hour), time.Minute))
}
