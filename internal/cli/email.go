package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/space-finder/internal/client"
	"github.com/evcraddock/space-finder/internal/notify"
)

func newEmailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Transactional email tools",
	}
	cmd.AddCommand(newEmailTestCmd())
	return cmd
}

func newEmailTestCmd() *cobra.Command {
	var req client.TestEmailRequest

	kinds := make([]string, len(notify.Kinds))
	for i, k := range notify.Kinds {
		kinds[i] = string(k)
	}

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test email through the server",
		Long: fmt.Sprintf(`Ask the running server to render and send one templated email.

Available types: %s`, strings.Join(kinds, ", ")),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmailTest(req)
		},
	}

	cmd.Flags().StringVar(&req.Email, "to", "", "recipient address (required)")
	cmd.Flags().StringVar(&req.Name, "name", "", "recipient name (required)")
	cmd.Flags().StringVar(&req.EmailType, "type", string(notify.KindWelcome), "email type")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runEmailTest(req client.TestEmailRequest) error {
	if !notify.ValidKind(req.EmailType) {
		return fmt.Errorf("unknown email type %q", req.EmailType)
	}

	resp, err := newAPIClient().TestEmail(req)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(resp)
	}
	fmt.Println(resp.Message)
	return nil
}
