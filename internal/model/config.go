package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIConfig points the client at the remote notification service.
type APIConfig struct {
	// BaseURL is the root URL of the service (e.g., https://catalog.example.com).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds every single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// UserConfig identifies the acting user.
type UserConfig struct {
	ID   string `mapstructure:"id" yaml:"id"`
	Role string `mapstructure:"role" yaml:"role"`
}

// NotificationsConfig controls the feed.
type NotificationsConfig struct {
	// PollIntervalSec is how often (in seconds) the feed is refreshed.
	PollIntervalSec int  `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	UnreadOnly      bool `mapstructure:"unread_only" yaml:"unread_only"`
}

// PreferencesConfig controls the settings surface.
type PreferencesConfig struct {
	// AccessRules maps a category tag to the roles allowed to configure it.
	// Categories absent from the map are open to every role.
	AccessRules map[string][]string `mapstructure:"access_rules" yaml:"access_rules"`
}

// LoggingConfig controls the logrus logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// ServerConfig configures the reference backend started by `notifyctl serve`.
type ServerConfig struct {
	Addr   string `mapstructure:"addr" yaml:"addr"`
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// Tokens maps a bearer token to the user id it authenticates.
	Tokens map[string]string `mapstructure:"tokens" yaml:"tokens"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API           APIConfig           `mapstructure:"api" yaml:"api"`
	User          UserConfig          `mapstructure:"user" yaml:"user"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Preferences   PreferencesConfig   `mapstructure:"preferences" yaml:"preferences"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Server        ServerConfig        `mapstructure:"server" yaml:"server"`
}

// PollInterval returns the feed refresh interval as a duration.
func (c *AppConfig) PollInterval() time.Duration {
	if c.Notifications.PollIntervalSec <= 0 {
		return defaultPollIntervalSec * time.Second
	}
	return time.Duration(c.Notifications.PollIntervalSec) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *AppConfig) RequestTimeout() time.Duration {
	if c.API.TimeoutSec <= 0 {
		return defaultTimeoutSec * time.Second
	}
	return time.Duration(c.API.TimeoutSec) * time.Second
}

var envKeyReplacer = strings.NewReplacer(".", "_")

const (
	defaultPollIntervalSec = 30
	defaultTimeoutSec      = 30
)

// configDir returns ~/.config/notifyctl, falling back to the working
// directory when the home directory is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "notifyctl")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/notifyctl/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:8080",
			TimeoutSec: defaultTimeoutSec,
		},
		User: UserConfig{
			Role: string(RoleMember),
		},
		Notifications: NotificationsConfig{
			PollIntervalSec: defaultPollIntervalSec,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   filepath.Join(configDir(), "notifyctl.log"),
		},
		Server: ServerConfig{
			Addr:   ":8080",
			DBPath: filepath.Join(configDir(), "notifications.db"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
// Environment variables prefixed with NOTIFYCTL_ override file values
// (e.g., NOTIFYCTL_API_BASE_URL).
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("notifyctl")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout_sec", def.API.TimeoutSec)
	v.SetDefault("user.id", "")
	v.SetDefault("user.role", def.User.Role)
	v.SetDefault("notifications.poll_interval_sec", def.Notifications.PollIntervalSec)
	v.SetDefault("notifications.unread_only", false)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.db_path", def.Server.DBPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Notifications.PollIntervalSec <= 0 {
		cfg.Notifications.PollIntervalSec = defaultPollIntervalSec
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("user", cfg.User)
	v.Set("notifications", cfg.Notifications)
	v.Set("preferences", cfg.Preferences)
	v.Set("logging", cfg.Logging)
	v.Set("server", cfg.Server)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
