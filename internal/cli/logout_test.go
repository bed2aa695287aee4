package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogoutClearsKeyKeepsServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, saveConfig(CLIConfig{APIKey: validKey, ServerURL: "http://myhost:9090"}))

	var out bytes.Buffer
	require.NoError(t, runLogout(&out))
	assert.Contains(t, out.String(), "API key removed")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, CLIConfig{ServerURL: "http://myhost:9090"}, cfg)
}

func TestLogoutWithoutKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	require.NoError(t, runLogout(&out))
	assert.Contains(t, out.String(), "No API key stored")
}
