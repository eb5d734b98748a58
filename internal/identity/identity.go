package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/notifier-app/notifier/internal/ezhttp"
)

const (
	DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL    = "https://securetoken.googleapis.com/v1/token"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrTooManyAttempts    = errors.New("too many attempts, try again later")
	ErrUserDisabled       = errors.New("account has been disabled")
	ErrSessionExpired     = errors.New("session expired, please login again")
	ErrNotLoggedIn        = errors.New("not logged in")
)

// Error is a failed identity provider call.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Message != "" {
		return fmt.Sprintf("identity provider error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("identity provider error %s", e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(status int, message string) *Error {
	code, detail, _ := strings.Cut(message, " : ")
	code = strings.TrimSpace(code)
	e := &Error{
		Status:  status,
		Code:    code,
		Message: strings.TrimSpace(detail),
	}
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "MISSING_PASSWORD":
		e.Err = ErrInvalidCredentials
	case "EMAIL_EXISTS":
		e.Err = ErrEmailExists
	case "WEAK_PASSWORD":
		e.Err = ErrWeakPassword
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		e.Err = ErrTooManyAttempts
	case "USER_DISABLED":
		e.Err = ErrUserDisabled
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "INVALID_ID_TOKEN", "USER_NOT_FOUND", "CREDENTIAL_TOO_OLD_LOGIN_AGAIN":
		e.Err = ErrSessionExpired
	}
	return e
}

type Config struct {
	APIKey      string
	IdentityURL string
	TokenURL    string
	Timeout     time.Duration
	Transport   http.RoundTripper
}

func New(cfg Config) *Client {
	if cfg.IdentityURL == "" {
		cfg.IdentityURL = DefaultIdentityURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	return &Client{
		apiKey:      cfg.APIKey,
		identityURL: strings.TrimSuffix(cfg.IdentityURL, "/"),
		tokenURL:    cfg.TokenURL,
		http:        ezhttp.NewHTTPClient(cfg.Timeout, cfg.Transport),
	}
}

// Client talks to the email/password endpoints of the identity provider.
type Client struct {
	apiKey      string
	identityURL string
	tokenURL    string
	http        *http.Client
}

type passwordRequest struct {
	Email             string `json:"email,omitempty"`
	Password          string `json:"password,omitempty"`
	IDToken           string `json:"idToken,omitempty"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type authResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) SignIn(ctx context.Context, email string, password string) (*Session, error) {
	var rs authResponse
	if err := c.post(ctx, "accounts:signInWithPassword", passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &rs); err != nil {
		return nil, err
	}
	return newSession(rs.IDToken, rs.RefreshToken, rs.Email, rs.LocalID, rs.ExpiresIn), nil
}

func (c *Client) SignUp(ctx context.Context, email string, password string) (*Session, error) {
	var rs authResponse
	if err := c.post(ctx, "accounts:signUp", passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &rs); err != nil {
		return nil, err
	}
	return newSession(rs.IDToken, rs.RefreshToken, rs.Email, rs.LocalID, rs.ExpiresIn), nil
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.post(ctx, "accounts:sendOobCode", map[string]string{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

// ChangePassword re-authenticates with the current password before setting the new one.
func (c *Client) ChangePassword(ctx context.Context, email string, current string, password string) (*Session, error) {
	session, err := c.SignIn(ctx, email, current)
	if err != nil {
		return nil, fmt.Errorf("failed to re-authenticate: %w", err)
	}

	var rs authResponse
	if err = c.post(ctx, "accounts:update", passwordRequest{
		IDToken:           session.IDToken,
		Password:          password,
		ReturnSecureToken: true,
	}, &rs); err != nil {
		return nil, err
	}
	if rs.Email == "" {
		rs.Email = email
	}
	return newSession(rs.IDToken, rs.RefreshToken, rs.Email, rs.LocalID, rs.ExpiresIn), nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	rq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL+"?key="+url.QueryEscape(c.apiKey), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	rq.Header.Set(ezhttp.HeaderContentType, "application/x-www-form-urlencoded")

	var rs refreshResponse
	if err = c.do(rq, &rs); err != nil {
		return nil, err
	}
	return newSession(rs.IDToken, rs.RefreshToken, "", rs.UserID, rs.ExpiresIn), nil
}

func (c *Client) post(ctx context.Context, method string, body any, rs any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	rq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.identityURL+"/"+method+"?key="+url.QueryEscape(c.apiKey), bytes.NewReader(data))
	if err != nil {
		return err
	}
	rq.Header.Set(ezhttp.HeaderContentType, ezhttp.ContentTypeJSON)
	return c.do(rq, rs)
}

func (c *Client) do(rq *http.Request, rs any) error {
	resp, err := c.http.Do(rq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		var errRs errorResponse
		if json.Unmarshal(data, &errRs) == nil && errRs.Error.Message != "" {
			return newError(resp.StatusCode, errRs.Error.Message)
		}
		return &Error{Status: resp.StatusCode, Code: strconv.Itoa(resp.StatusCode), Message: strings.TrimSpace(string(data))}
	}

	if rs == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(rs); err != nil {
		return fmt.Errorf("failed to decode identity response: %w", err)
	}
	return nil
}
