package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/topi314/tint"

	"github.com/notifier-app/notifier/internal/cfg"
)

const refreshLeeway = time.Minute

const (
	KeyIDToken      = "ID_TOKEN"
	KeyRefreshToken = "REFRESH_TOKEN"
	KeyEmail        = "EMAIL"
	KeyUserID       = "USER_ID"
)

// Persister stores the session between invocations. A nil session clears it.
type Persister interface {
	Save(session *Session) error
}

type PersisterFunc func(session *Session) error

func (f PersisterFunc) Save(session *Session) error {
	return f(session)
}

// ConfigPersister keeps the session in the notifier config file.
var ConfigPersister = PersisterFunc(func(session *Session) error {
	_, err := cfg.Update(func(m map[string]string) {
		if session == nil {
			delete(m, KeyIDToken)
			delete(m, KeyRefreshToken)
			delete(m, KeyEmail)
			delete(m, KeyUserID)
			return
		}
		m[KeyIDToken] = session.IDToken
		m[KeyRefreshToken] = session.RefreshToken
		m[KeyEmail] = session.Email
		m[KeyUserID] = session.UserID
	})
	return err
})

// SessionFromConfig restores the session from config values, get is usually viper.GetString.
func SessionFromConfig(get func(key string) string) *Session {
	idToken := get("id_token")
	refreshToken := get("refresh_token")
	if idToken == "" && refreshToken == "" {
		return nil
	}
	return newSession(idToken, refreshToken, get("email"), get("user_id"), "")
}

func NewStore(client *Client, persister Persister, session *Session) *Store {
	return &Store{
		client:    client,
		persister: persister,
		session:   session,
		now:       time.Now,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxElapsedTime = 15 * time.Second
			return b
		},
	}
}

// Store owns the current session and hands out fresh id tokens.
type Store struct {
	client    *Client
	persister Persister
	now       func() time.Time
	backoff   func() backoff.BackOff

	mu      sync.Mutex
	session *Session
}

func (s *Store) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Token returns the current id token, refreshing it shortly before it expires.
// Without a session it returns an empty token so requests are sent unauthenticated.
func (s *Store) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return "", nil
	}
	if !s.session.Expired(s.now(), refreshLeeway) {
		return s.session.IDToken, nil
	}
	if s.session.RefreshToken == "" {
		return "", ErrSessionExpired
	}

	var refreshed *Session
	err := backoff.Retry(func() error {
		var err error
		refreshed, err = s.client.Refresh(ctx, s.session.RefreshToken)
		var idErr *Error
		if errors.As(err, &idErr) && idErr.Status < http.StatusInternalServerError && idErr.Status != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(s.backoff(), ctx))
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			s.clear()
		}
		return "", fmt.Errorf("failed to refresh session: %w", err)
	}

	if refreshed.Email == "" {
		refreshed.Email = s.session.Email
	}
	s.session = refreshed
	s.save(refreshed)
	return refreshed.IDToken, nil
}

func (s *Store) SignIn(ctx context.Context, email string, password string) (*Session, error) {
	session, err := s.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.set(session)
	return session, nil
}

func (s *Store) SignUp(ctx context.Context, email string, password string) (*Session, error) {
	session, err := s.client.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.set(session)
	return session, nil
}

func (s *Store) SendPasswordReset(ctx context.Context, email string) error {
	return s.client.SendPasswordReset(ctx, email)
}

func (s *Store) ChangePassword(ctx context.Context, current string, password string) error {
	session := s.Session()
	if session == nil {
		return ErrNotLoggedIn
	}
	updated, err := s.client.ChangePassword(ctx, session.Email, current, password)
	if err != nil {
		return err
	}
	s.set(updated)
	return nil
}

func (s *Store) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	if s.persister == nil {
		return nil
	}
	return s.persister.Save(nil)
}

func (s *Store) set(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.save(session)
}

func (s *Store) clear() {
	s.session = nil
	s.save(nil)
}

func (s *Store) save(session *Session) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(session); err != nil {
		slog.Error("failed to persist session", tint.Err(err))
	}
}
