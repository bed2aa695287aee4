package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/space-finder/internal/client"
)

type loginOptions struct {
	server string
	verify bool
}

func newLoginCmd() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the admin API key",
		Long:  "Prompts for the server's admin API key (SF_ADMIN_API_KEY) and saves it for CLI commands.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "", "server URL (default: from config or "+defaultServerURL+")")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "check the key against the server before saving")

	return cmd
}

func runLogin(opts loginOptions, in io.Reader, out io.Writer) error {
	serverURL := opts.server
	if serverURL == "" {
		serverURL = getServerURL()
	}

	_, _ = fmt.Fprintf(out, "Server: %s\n", serverURL)
	_, _ = fmt.Fprint(out, "Paste the admin API key: ")
	key, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && key == "" {
		return fmt.Errorf("reading input: %w", err)
	}

	key = strings.TrimSpace(key)
	if err := validateAPIKey(key); err != nil {
		return err
	}

	if opts.verify {
		if err := verifyAPIKey(serverURL, key); err != nil {
			return err
		}
	}

	// Unreadable config is replaced rather than blocking login.
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}
	cfg.APIKey = key
	if opts.server != "" {
		cfg.ServerURL = opts.server
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	_, _ = fmt.Fprintln(out, "✓ API key saved.")
	return nil
}

// validateAPIKey checks that the key is usable as a bearer token.
func validateAPIKey(key string) error {
	if key == "" {
		return errors.New("no API key provided")
	}
	if strings.ContainsAny(key, " \t") {
		return errors.New("invalid API key format (must not contain whitespace)")
	}
	if len(key) < 16 {
		return errors.New("API key too short (want at least 16 characters)")
	}
	return nil
}

func verifyAPIKey(serverURL, key string) error {
	_, err := client.New(serverURL, key).ListLeads(client.LeadOptions{Limit: 1})
	var serr *client.StatusError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &serr) && serr.Code == http.StatusUnauthorized:
		return errors.New("the server rejected that API key")
	case errors.As(err, &serr) && serr.Code == http.StatusForbidden:
		return errors.New("the server has no admin API key configured (SF_ADMIN_API_KEY)")
	}
	return fmt.Errorf("verifying API key: %w", err)
}
