// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/evcraddock/space-finder/internal/db"
	"github.com/evcraddock/space-finder/internal/notify"
	"github.com/evcraddock/space-finder/internal/popup"
)

// Email provider names.
const (
	ProviderSMTP = "smtp"
	ProviderHTTP = "http"
	ProviderLog  = "log"
)

// DefaultPopupPaths are the pages the inactivity popup appears on.
const DefaultPopupPaths = "/faq,/nnn-lease-guide,/why-rent-small-space"

// EmailConfig selects and configures the outbound mail provider.
type EmailConfig struct {
	Provider string
	From     string
	SMTP     notify.SMTPConfig
	APIURL   string
	APIKey   string
}

// Config holds server configuration.
type Config struct {
	Port        int
	DBPath      string
	BaseURL     string // e.g. http://localhost:8080
	DevMode     bool
	AdminAPIKey string
	BrokerEmail string

	Email EmailConfig
	Popup popup.Config

	InventoryURL string
	InventoryKey string
	PostgresDSN  string
}

// Load reads .env files (missing files are ignored) and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from SF_* environment variables.
func FromEnv() (Config, error) {
	port, err := envInt("SF_PORT", 8080)
	if err != nil {
		return Config{}, err
	}
	delay, err := envDuration("SF_POPUP_DELAY", popup.DefaultInactivityDelay)
	if err != nil {
		return Config{}, err
	}

	dbPath := os.Getenv("SF_DB")
	if dbPath == "" {
		dbPath, err = db.DefaultPath()
		if err != nil {
			return Config{}, err
		}
	}

	smtp := notify.SMTPConfig{
		Host: os.Getenv("SF_SMTP_HOST"),
		Port: envOrDefault("SF_SMTP_PORT", "587"),
		User: os.Getenv("SF_SMTP_USER"),
		Pass: os.Getenv("SF_SMTP_PASS"),
	}
	provider := strings.ToLower(os.Getenv("SF_EMAIL_PROVIDER"))
	if provider == "" {
		provider = ProviderLog
		if smtp.IsConfigured() {
			provider = ProviderSMTP
		}
	}

	cfg := Config{
		Port:        port,
		DBPath:      dbPath,
		BaseURL:     envOrDefault("SF_BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
		DevMode:     envBool("SF_DEV_MODE"),
		AdminAPIKey: os.Getenv("SF_ADMIN_API_KEY"),
		BrokerEmail: os.Getenv("SF_BROKER_EMAIL"),
		Email: EmailConfig{
			Provider: provider,
			From:     envOrDefault("SF_SMTP_FROM", "Space Finder <hello@localhost>"),
			SMTP:     smtp,
			APIURL:   os.Getenv("SF_EMAIL_API_URL"),
			APIKey:   os.Getenv("SF_EMAIL_API_KEY"),
		},
		Popup: popup.Config{
			EnabledPaths:    popup.ParsePaths(envOrDefault("SF_POPUP_PATHS", DefaultPopupPaths)),
			InactivityDelay: delay,
		},
		InventoryURL: os.Getenv("SF_INVENTORY_URL"),
		InventoryKey: os.Getenv("SF_INVENTORY_KEY"),
		PostgresDSN:  os.Getenv("SF_POSTGRES_DSN"),
	}

	return cfg, cfg.Validate()
}

// Validate checks that the selected providers have what they need.
func (c Config) Validate() error {
	switch c.Email.Provider {
	case ProviderLog:
	case ProviderSMTP:
		if !c.Email.SMTP.IsConfigured() {
			return fmt.Errorf("SF_EMAIL_PROVIDER=smtp requires SF_SMTP_HOST")
		}
	case ProviderHTTP:
		if c.Email.APIURL == "" || c.Email.APIKey == "" {
			return fmt.Errorf("SF_EMAIL_PROVIDER=http requires SF_EMAIL_API_URL and SF_EMAIL_API_KEY")
		}
	default:
		return fmt.Errorf("unknown SF_EMAIL_PROVIDER %q (want smtp, http or log)", c.Email.Provider)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("SF_PORT out of range: %d", c.Port)
	}
	return nil
}

// EmailConfigured reports whether real mail delivery is set up.
func (c Config) EmailConfigured() bool {
	return c.Email.Provider != ProviderLog
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
