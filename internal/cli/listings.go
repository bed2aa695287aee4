package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/space-finder/internal/db"
	"github.com/evcraddock/space-finder/internal/listing"
)

func newListingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Manage commercial listings",
		Long:  "List, sync, import and remove the listings shown on the site. Works on the local database.",
	}

	cmd.AddCommand(
		newListingsListCmd(),
		newListingsSyncCmd(),
		newListingsImportCmd(),
		newListingsRemoveCmd(),
	)

	return cmd
}

// openDBAt opens the database at path, falling back to the --db resolution when empty.
func openDBAt(path string) (*sql.DB, error) {
	if path == "" {
		return openDB()
	}
	return db.Open(path)
}

// newListingService wires a listing service, with the inventory feed when url is set.
func newListingService(database *sql.DB, url, apiKey string) (*listing.Service, error) {
	var feed listing.Fetcher
	if url != "" {
		fc, err := listing.NewFeedClient(url, apiKey)
		if err != nil {
			return nil, err
		}
		feed = fc
	}
	return listing.NewService(listing.NewRepository(database), feed), nil
}

func newListingsListCmd() *cobra.Command {
	var opts listing.ListOptions
	var availability string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if availability != "" {
				if !listing.ValidAvailability(availability) {
					return fmt.Errorf("invalid availability %q (want available, pending or leased)", availability)
				}
				opts.Availability = listing.Availability(availability)
			}
			return runListingsList(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "filter by category (office, retail, ...)")
	cmd.Flags().StringVar(&opts.City, "city", "", "filter by city")
	cmd.Flags().StringVar(&availability, "availability", "", "filter by availability")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of listings")

	return cmd
}

func runListingsList(ctx context.Context, opts listing.ListOptions) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	svc, err := newListingService(database, "", "")
	if err != nil {
		return err
	}
	listings, err := svc.List(ctx, opts)
	if err != nil {
		return err
	}

	if isJSON() {
		if listings == nil {
			listings = []*listing.Listing{}
		}
		return printJSON(listings)
	}
	return printListingTable(listings)
}

func newListingsSyncCmd() *cobra.Command {
	var url, key string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull listings from the inventory feed",
		Long:  "Fetches the inventory feed and upserts every listing by its external ID.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListingsSync(cmd.Context(), url, key)
		},
	}

	cmd.Flags().StringVar(&url, "url", os.Getenv("SF_INVENTORY_URL"), "inventory feed URL")
	cmd.Flags().StringVar(&key, "key", os.Getenv("SF_INVENTORY_KEY"), "inventory feed API key")

	return cmd
}

func runListingsSync(ctx context.Context, url, key string) error {
	if url == "" {
		return fmt.Errorf("no inventory feed: pass --url or set SF_INVENTORY_URL")
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	svc, err := newListingService(database, url, key)
	if err != nil {
		return err
	}
	n, err := svc.Sync(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Synced %d listings.\n", n)
	return nil
}

func newListingsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import listings from a YAML file",
		Long: `Import listings from a YAML document of the form:

  listings:
    - external_id: A-100
      title: Corner office
      category: office
      city: Austin

Use - to read from stdin. Existing listings are updated by external_id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListingsImport(cmd.Context(), args[0])
		},
	}
}

func runListingsImport(ctx context.Context, path string) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	svc, err := newListingService(database, "", "")
	if err != nil {
		return err
	}
	n, err := svc.Import(ctx, r)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d listings.\n", n)
	return nil
}

func newListingsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid listing ID %q: %w", args[0], err)
			}
			return runListingsRemove(cmd.Context(), id)
		},
	}
}

func runListingsRemove(ctx context.Context, id int64) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	if err := listing.NewRepository(database).Delete(ctx, id); err != nil {
		return err
	}

	fmt.Printf("Listing #%d removed.\n", id)
	return nil
}
