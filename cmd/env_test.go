package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvAssignments(t *testing.T) {
	values, err := parseEnvAssignments([]string{"server=http://localhost:8080/api/v1", "LOG_LEVEL=debug", "EMPTY="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"SERVER":    "http://localhost:8080/api/v1",
		"LOG_LEVEL": "debug",
		"EMPTY":     "",
	}, values)

	_, err = parseEnvAssignments([]string{"SERVER"})
	assert.Error(t, err)

	_, err = parseEnvAssignments([]string{"=value"})
	assert.Error(t, err)
}
