package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args and captures its output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	out, err := executeCommand("--help")
	require.NoError(t, err)
	for _, name := range []string{"serve", "listings", "leads", "email", "login", "logout", "status", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	format := root.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	assert.NotNil(t, root.PersistentFlags().Lookup("db"))
}

func TestVersionCommand(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	t.Cleanup(func() { Version = old })

	out, err := executeCommand("version")
	require.NoError(t, err)
	assert.Equal(t, "sf v1.2.3\n", out)
}

func TestStatusCommandWritesToCommandOutput(t *testing.T) {
	srv := statusServer(t, validKey)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SF_SERVER_URL", srv.URL)
	t.Setenv("SF_API_KEY", "")

	out, err := executeCommand("status")
	require.NoError(t, err)
	assert.Contains(t, out, "server is up")
}
