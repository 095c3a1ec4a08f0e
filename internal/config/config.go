// Package config loads the TOML configuration file and resolves the XDG
// directories todosync uses.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	// AppName is the application directory name.
	AppName = "todosync"

	DefaultConfigFileName = "config.toml"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	BackendNone        = "none"
	BackendGoogleTasks = "googletasks"
)

type Sync struct {
	Backend             string `toml:"backend"`
	ListName            string `toml:"list_name"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	MaxConcurrent       int    `toml:"max_concurrent"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
}

type Notifications struct {
	Enabled             bool `toml:"enabled"`
	ScanIntervalSeconds int  `toml:"scan_interval_seconds"`
}

type UI struct {
	Theme         string `toml:"theme"`
	DefaultFilter string `toml:"default_filter"`
}

type Config struct {
	DataDir       string        `toml:"data_dir"`
	Sync          Sync          `toml:"sync"`
	Notifications Notifications `toml:"notifications"`
	UI            UI            `toml:"ui"`

	// Dir is the configuration directory the file was loaded from.
	Dir string `toml:"-"`
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the default data directory.
// Uses XDG_DATA_HOME if set, otherwise $HOME/.local/share.
func DefaultDataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) string {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, fallback, AppName)
}

// Default returns the configuration used when no file exists
func Default() Config {
	return Config{
		DataDir: DefaultDataDir(),
		Sync: Sync{
			Backend:             BackendNone,
			ListName:            AppName,
			PollIntervalSeconds: 30,
			MaxConcurrent:       4,
			TimeoutSeconds:      15,
		},
		Notifications: Notifications{
			Enabled:             false,
			ScanIntervalSeconds: 30,
		},
		UI: UI{
			Theme:         "dark",
			DefaultFilter: "all",
		},
		Dir: DefaultConfigDir(),
	}
}

// Load reads config.toml from dir, writing the defaults there first if the
// file does not exist. An empty dir uses DefaultConfigDir.
func Load(dir string) (Config, error) {
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg, err := LoadOrCreate(filepath.Join(dir, DefaultConfigFileName))
	cfg.Dir = dir
	return cfg, err
}

// LoadOrCreate reads the config file at path, creating it with defaults
// when missing. Unset keys keep their default values.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	cfg.Dir = filepath.Dir(path)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Sync.Backend == "" {
		c.Sync.Backend = BackendNone
	}
	if c.Sync.ListName == "" {
		c.Sync.ListName = def.Sync.ListName
	}
	if c.Sync.PollIntervalSeconds <= 0 {
		c.Sync.PollIntervalSeconds = def.Sync.PollIntervalSeconds
	}
	if c.Sync.MaxConcurrent <= 0 {
		c.Sync.MaxConcurrent = def.Sync.MaxConcurrent
	}
	if c.Sync.TimeoutSeconds <= 0 {
		c.Sync.TimeoutSeconds = def.Sync.TimeoutSeconds
	}
	if c.Notifications.ScanIntervalSeconds <= 0 {
		c.Notifications.ScanIntervalSeconds = def.Notifications.ScanIntervalSeconds
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.DefaultFilter == "" {
		c.UI.DefaultFilter = def.UI.DefaultFilter
	}
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SyncEnabled reports whether a remote backend is configured
func (c Config) SyncEnabled() bool {
	return c.Sync.Backend == BackendGoogleTasks
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Sync.PollIntervalSeconds) * time.Second
}

func (c Config) SyncTimeout() time.Duration {
	return time.Duration(c.Sync.TimeoutSeconds) * time.Second
}

func (c Config) ScanInterval() time.Duration {
	return time.Duration(c.Notifications.ScanIntervalSeconds) * time.Second
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// HasToken checks if the token file exists.
func (c Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

// Save writes the configuration back to config.toml in Dir
func (c Config) Save() error {
	return write(filepath.Join(c.Dir, DefaultConfigFileName), c)
}
