package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/sitebox/sitebox/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigPath  = filepath.Join(home, ".sitebox", "config.json")
	DefaultServerURL   = "https://api.sitebox.dev"
	DefaultSyncFolder  = filepath.Join(home, "SiteBox")
	DefaultLogFilePath = filepath.Join(home, ".sitebox", "logs", "sitebox.log")
)

// Config is the full configuration surface of the agent. APIKey is opaque;
// an external credential store may hold it encrypted at rest, the engine
// only ever sees the plaintext string.
type Config struct {
	APIKey     string `json:"api_key"`
	Username   string `json:"username"`
	SyncFolder string `json:"sync_folder"`
	ServerURL  string `json:"server_url"`
	Path       string `json:"-"`
}

// Validate normalizes the config in place and reports the first problem.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("config: api key is required")
	}
	if c.Username == "" {
		return errors.New("config: username is required")
	}

	folder, err := utils.ResolvePath(c.SyncFolder)
	if err != nil {
		return fmt.Errorf("config: invalid sync folder %q: %w", c.SyncFolder, err)
	}
	c.SyncFolder = folder

	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("config: invalid server url %q: %w", c.ServerURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: server url %q must be http or https", c.ServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("config: server url %q has no host", c.ServerURL)
	}

	return nil
}

// Save writes the config as JSON, creating parent directories.
func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Load reads a config file written by Save.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config parse %q: %w", path, err)
	}
	cfg.Path = path

	return &cfg, nil
}
