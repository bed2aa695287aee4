package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/evcraddock/space-finder/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the server connection and the stored admin key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout())
		},
	}
}

// runStatus reports problems in its output rather than as an error, so the
// command still exits 0 when the server is down.
func runStatus(out io.Writer) error {
	server := serverURLSetting()
	key := apiKeySetting()

	_, _ = fmt.Fprintf(out, "Server:  %s (%s)\n", server.Value, server.Source)

	c := client.New(server.Value, key.Value)
	if err := c.Health(); err != nil {
		_, _ = fmt.Fprintf(out, "Status:  ✗ cannot reach server (%v)\n", err)
		return nil
	}

	if key.Value == "" {
		_, _ = fmt.Fprintln(out, "API Key: not configured")
		_, _ = fmt.Fprintln(out, "Status:  ✓ server is up")
		_, _ = fmt.Fprintln(out, "\nRun 'sf login' to store the admin API key.")
		return nil
	}
	_, _ = fmt.Fprintf(out, "API Key: %s… (%s)\n", truncateKey(key.Value), key.Source)

	// Listing leads needs the admin key, so one lead is enough to test it.
	_, err := c.ListLeads(client.LeadOptions{Limit: 1})
	var serr *client.StatusError
	switch {
	case err == nil:
		_, _ = fmt.Fprintln(out, "Status:  ✓ connected and authenticated")
	case !errors.As(err, &serr):
		_, _ = fmt.Fprintf(out, "Status:  ✗ cannot reach server (%v)\n", err)
	case serr.Code == http.StatusUnauthorized:
		_, _ = fmt.Fprintln(out, "Status:  ✗ invalid API key")
		_, _ = fmt.Fprintln(out, "\nRun 'sf login' to update it.")
	case serr.Code == http.StatusForbidden:
		_, _ = fmt.Fprintln(out, "Status:  ✗ server has no admin API key configured (SF_ADMIN_API_KEY)")
	case serr.Code == http.StatusTooManyRequests:
		_, _ = fmt.Fprintln(out, "Status:  ✗ too many failed attempts, try again in a minute")
	default:
		_, _ = fmt.Fprintf(out, "Status:  ✗ unexpected response (%d: %s)\n", serr.Code, serr.Message)
	}
	return nil
}

func truncateKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
