package ezhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/notifier-app/notifier/internal/httperr"
	"github.com/notifier-app/notifier/internal/log"
)

const (
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderRetryAfter    = "Retry-After"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=UTF-8"
)

type ErrorResponse struct {
	Message   string `json:"message"`
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Path      string `json:"path"`
	RequestID string `json:"request_id"`
}

// TokenSource provides the bearer credential for a request.
// An empty token without error results in an unauthenticated request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

type Config struct {
	Server    string
	Timeout   time.Duration
	UserAgent string
	Tokens    TokenSource
	Transport http.RoundTripper
}

// NewHTTPClient returns a traced http client which logs requests on debug level.
func NewHTTPClient(timeout time.Duration, next http.RoundTripper) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(log.NewTransport(next),
			otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
				return otelhttptrace.NewClientTrace(ctx)
			}),
		),
	}
}

func New(cfg Config) *Client {
	return &Client{
		server:    strings.TrimSuffix(cfg.Server, "/"),
		userAgent: cfg.UserAgent,
		tokens:    cfg.Tokens,
		http:      NewHTTPClient(cfg.Timeout, cfg.Transport),
	}
}

type Client struct {
	server    string
	userAgent string
	tokens    TokenSource
	http      *http.Client
}

func (c *Client) Server() string {
	return c.server
}

// Do sends body as json to path and decodes a successful response into rs.
// rs may be nil for responses without a body.
func (c *Client) Do(ctx context.Context, method string, path string, body any, rs any) error {
	var rqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rqBody = bytes.NewReader(data)
	}

	rq, err := http.NewRequestWithContext(ctx, method, c.server+path, rqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	rq.Header.Set(HeaderAccept, ContentTypeJSON)
	if body != nil {
		rq.Header.Set(HeaderContentType, ContentTypeJSON)
	}
	if c.userAgent != "" {
		rq.Header.Set(HeaderUserAgent, c.userAgent)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to get token: %w", err)
		}
		if token != "" {
			rq.Header.Set(HeaderAuthorization, "Bearer "+token)
		}
	}

	resp, err := c.http.Do(rq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return ProcessBody(method+" "+path, resp, rs)
}

func (c *Client) Get(ctx context.Context, path string, rs any) error {
	return c.Do(ctx, http.MethodGet, path, nil, rs)
}

func (c *Client) Post(ctx context.Context, path string, body any, rs any) error {
	return c.Do(ctx, http.MethodPost, path, body, rs)
}

func (c *Client) Put(ctx context.Context, path string, body any, rs any) error {
	return c.Do(ctx, http.MethodPut, path, body, rs)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// ProcessBody decodes a 2xx response into body or turns any other status into an *httperr.Error.
func ProcessBody(action string, rs *http.Response, body any) error {
	if rs.StatusCode >= http.StatusOK && rs.StatusCode < http.StatusMultipleChoices {
		if body == nil || rs.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, rs.Body)
			return nil
		}
		if err := json.NewDecoder(rs.Body).Decode(body); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	data, err := io.ReadAll(rs.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	httpErr := &httperr.Error{
		Status:    rs.StatusCode,
		RequestID: rs.Header.Get(HeaderRequestID),
	}
	if rs.Request != nil {
		httpErr.Path = rs.Request.URL.Path
	}
	var errRs ErrorResponse
	if json.Unmarshal(data, &errRs) == nil && (errRs.Message != "" || errRs.Error != "") {
		msg := errRs.Message
		if msg == "" {
			msg = errRs.Error
		}
		httpErr.Err = fmt.Errorf("failed to %s: %s", action, msg)
		if errRs.RequestID != "" {
			httpErr.RequestID = errRs.RequestID
		}
	} else if text := strings.TrimSpace(string(data)); text != "" {
		httpErr.Err = fmt.Errorf("failed to %s: %d %s", action, rs.StatusCode, text)
	} else {
		httpErr.Err = fmt.Errorf("failed to %s: %d %s", action, rs.StatusCode, http.StatusText(rs.StatusCode))
	}
	return httpErr
}
