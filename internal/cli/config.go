package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultServerURL = "http://localhost:8080"

// CLIConfig is what `sf login` persists in ~/.config/sf/config.yaml.
type CLIConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
}

// setting is a resolved value and where it came from, for `sf status`.
type setting struct {
	Value  string
	Source string
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "sf", "config.yaml"), nil
}

// loadConfig reads the config file. A missing file yields the zero config.
func loadConfig() (CLIConfig, error) {
	var cfg CLIConfig
	path, err := configPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// saveConfig writes cfg with owner-only permissions; it holds the admin key.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// resolve picks env, then the config file, then fallback.
// An unreadable config file is treated as empty.
func resolve(env string, fromFile func(CLIConfig) string, fallback string) setting {
	if v := os.Getenv(env); v != "" {
		return setting{Value: v, Source: env}
	}
	if cfg, err := loadConfig(); err == nil {
		if v := fromFile(cfg); v != "" {
			return setting{Value: v, Source: "config file"}
		}
	}
	if fallback != "" {
		return setting{Value: fallback, Source: "default"}
	}
	return setting{}
}

func serverURLSetting() setting {
	return resolve("SF_SERVER_URL", func(c CLIConfig) string { return c.ServerURL }, defaultServerURL)
}

func apiKeySetting() setting {
	return resolve("SF_API_KEY", func(c CLIConfig) string { return c.APIKey }, "")
}

func getServerURL() string { return serverURLSetting().Value }

func getAPIKey() string { return apiKeySetting().Value }
