package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportLogsRequests(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	buf := new(bytes.Buffer)
	Setup(buf, Config{Level: slog.LevelDebug, Format: FormatJSON})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil)}
	rs, err := client.Get(srv.URL + "/templates")
	require.NoError(t, err)
	_ = rs.Body.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var complete map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &complete))
	assert.Equal(t, "request complete", complete["msg"])
	assert.Equal(t, "GET", complete["http_method"])
	assert.Equal(t, float64(http.StatusTeapot), complete["resp_status"])
	assert.Equal(t, srv.URL+"/templates", complete["uri"])
}

func TestSetupText(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	buf := new(bytes.Buffer)
	logger := Setup(buf, Config{Level: slog.LevelInfo, Format: FormatText, NoColor: true})
	logger.Debug("hidden")
	logger.Info("shown", slog.String("key", "value"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown key=value")
}
