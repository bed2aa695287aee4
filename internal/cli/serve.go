package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evcraddock/space-finder/internal/config"
	"github.com/evcraddock/space-finder/internal/content"
	"github.com/evcraddock/space-finder/internal/lead"
	"github.com/evcraddock/space-finder/internal/logging"
	"github.com/evcraddock/space-finder/internal/notify"
	"github.com/evcraddock/space-finder/internal/web"
	"github.com/evcraddock/space-finder/internal/wizard"
)

const siteName = "Space Finder"

func newServeCmd() *cobra.Command {
	var (
		port    int
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web site",
		Long: `Start the HTTP server for the web site and its JSON API.

Configuration comes from SF_* environment variables, optionally loaded from a
.env file. Flags override the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default: SF_PORT or 8080)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	return cmd
}

func runServe(envFile string, port int) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if port != 0 {
		cfg.Port = port
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}

	logger, err := logging.Setup(cfg.DevMode)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	database, err := openDBAt(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(database)

	if n, err := wizard.NewSessionStore(database).Cleanup(); err != nil {
		logger.Warn("cleaning up wizard sessions", zap.Error(err))
	} else if n > 0 {
		logger.Info("removed expired wizard sessions", zap.Int64("count", n))
	}

	provider, err := newEmailProvider(cfg.Email, logger)
	if err != nil {
		return err
	}
	notifier, err := notify.New(notify.Config{From: cfg.Email.From, SiteName: siteName, BaseURL: cfg.BaseURL}, provider)
	if err != nil {
		return fmt.Errorf("loading email templates: %w", err)
	}

	queue := notify.NewQueue(notifier, 0, logger.Named("email"))

	steps := wizard.DefaultSteps()
	leadCfg := lead.ServiceConfig{
		Schema:      web.LeadSchema(steps),
		Queue:       queue,
		FollowUp:    lead.NewLogFollowUp(logger),
		BrokerEmail: cfg.BrokerEmail,
		Logger:      logger,
	}
	if cfg.PostgresDSN != "" {
		mirror, err := lead.NewPostgresMirror(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connecting lead mirror: %w", err)
		}
		defer func() {
			if err := mirror.Close(); err != nil {
				logger.Warn("closing lead mirror", zap.Error(err))
			}
		}()
		leadCfg.Mirror = mirror
	}
	leads := lead.NewService(lead.NewRepository(database), leadCfg)
	queue.OnResult = leads.HandleResult
	// Sends are not tied to the signal context so pending mail drains on shutdown.
	queue.Start(context.Background())

	listings, err := newListingService(database, cfg.InventoryURL, cfg.InventoryKey)
	if err != nil {
		return err
	}

	pages, err := content.Load()
	if err != nil {
		return fmt.Errorf("loading content pages: %w", err)
	}

	srv, err := web.NewServer(web.Options{
		DB:           database,
		Logger:       logger,
		Notifier:     notifier,
		Leads:        leads,
		Listings:     listings,
		Pages:        pages,
		Popup:        cfg.Popup,
		Steps:        steps,
		AdminAPIKey:  cfg.AdminAPIKey,
		EmailEnabled: cfg.EmailConfigured() || cfg.DevMode,
		SiteName:     siteName,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info("config",
		zap.String("base_url", cfg.BaseURL),
		zap.String("db", cfg.DBPath),
		zap.String("email_provider", cfg.Email.Provider),
		zap.Strings("popup_paths", cfg.Popup.EnabledPaths),
		zap.Bool("lead_mirror", leadCfg.Mirror != nil),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := srv.ListenAndServe(ctx, cfg.Port)

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := queue.Close(drainCtx); err != nil {
		logger.Warn("email queue did not drain", zap.Error(err))
	}

	return serveErr
}

// newEmailProvider builds the mail transport selected by cfg.Provider.
func newEmailProvider(cfg config.EmailConfig, logger *zap.Logger) (notify.Provider, error) {
	switch cfg.Provider {
	case config.ProviderSMTP:
		return notify.NewSMTPProvider(cfg.SMTP), nil
	case config.ProviderHTTP:
		p, err := notify.NewHTTPProvider(cfg.APIURL, cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("configuring email API: %w", err)
		}
		return p, nil
	case config.ProviderLog:
		return notify.NewLogProvider(logger.Named("email")), nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
}
