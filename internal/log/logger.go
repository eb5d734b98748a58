package log

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/topi314/tint"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	Level     slog.Level `cfg:"level"`
	Format    string     `cfg:"format"`
	AddSource bool       `cfg:"add_source"`
	NoColor   bool       `cfg:"no_color"`
}

func (c Config) String() string {
	return fmt.Sprintf("\n  Level: %s\n  Format: %s\n  AddSource: %t\n  NoColor: %t\n",
		c.Level,
		c.Format,
		c.AddSource,
		c.NoColor,
	)
}

// Setup installs the default slog logger. A nil writer logs to stderr.
func Setup(w io.Writer, cfg Config) *slog.Logger {
	if w == nil {
		w = colorable.NewColorableStderr()
		if cfg.NoColor {
			w = os.Stderr
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: cfg.AddSource,
			Level:     cfg.Level,
		})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			AddSource:  cfg.AddSource,
			Level:      cfg.Level,
			NoColor:    cfg.NoColor,
			TimeFormat: time.TimeOnly,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// NewTransport wraps next and logs every outgoing request on debug level.
func NewTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{next: next}
}

type transport struct {
	next http.RoundTripper
}

func (t *transport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	attrs := []slog.Attr{
		slog.String("http_method", r.Method),
		slog.String("http_proto", r.Proto),
		slog.String("uri", r.URL.Redacted()),
	}
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		attrs = append(attrs, slog.String("req_id", reqID))
	}
	slog.LogAttrs(ctx, slog.LevelDebug, "request started", attrs...)

	start := time.Now()
	rs, err := t.next.RoundTrip(r)
	elapsed := slog.Float64("resp_elapsed_ms", float64(time.Since(start).Nanoseconds())/1000000.0)
	if err != nil {
		slog.LogAttrs(ctx, slog.LevelDebug, "request failed", append(attrs, elapsed, tint.Err(err))...)
		return nil, err
	}

	slog.LogAttrs(ctx, slog.LevelDebug, "request complete",
		append(attrs,
			slog.Int("resp_status", rs.StatusCode),
			slog.Int64("resp_byte_length", rs.ContentLength),
			elapsed,
		)...,
	)
	return rs, nil
}
