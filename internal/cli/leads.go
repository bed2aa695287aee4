package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/space-finder/internal/client"
	"github.com/evcraddock/space-finder/internal/lead"
)

func newLeadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Inspect submitted leads",
	}
	cmd.AddCommand(newLeadsListCmd())
	return cmd
}

func newLeadsListCmd() *cobra.Command {
	var opts client.LeadOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent leads",
		Long:  "Lists the newest leads from the server. Requires the admin API key (sf login).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Source != "" && !lead.ValidSource(opts.Source) {
				return fmt.Errorf("invalid source %q (want questionnaire, popup or api)", opts.Source)
			}
			return runLeadsList(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "filter by source (questionnaire, popup, api)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of leads")

	return cmd
}

func runLeadsList(opts client.LeadOptions) error {
	leads, err := newAPIClient().ListLeads(opts)
	if err != nil {
		return err
	}

	if isJSON() {
		if leads == nil {
			leads = []*lead.Lead{}
		}
		return printJSON(leads)
	}
	return printLeadTable(leads)
}
