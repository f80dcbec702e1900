// Package config handles loading and managing wactl configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigFilename is the name of the shared config file.
const ConfigFilename = ".wactl.yaml"

// ErrNotFound is returned when no config file exists up to the filesystem root.
var ErrNotFound = errors.New(ConfigFilename + " not found (searched from current directory to root)")

// Config represents the .wactl.yaml configuration file.
type Config struct {
	API          APIConfig          `yaml:"api" mapstructure:"api"`
	Organization OrganizationConfig `yaml:"organization" mapstructure:"organization"`
	Realtime     RealtimeConfig     `yaml:"realtime" mapstructure:"realtime"`
	Phone        PhoneConfig        `yaml:"phone" mapstructure:"phone"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	DevServer    DevServerConfig    `yaml:"dev_server" mapstructure:"dev_server"`

	// Preferences from .wactl.local.yaml (merged at runtime)
	Preferences PreferencesConfig `yaml:"-" mapstructure:"-"`

	configPath string
}

// APIConfig holds the backend REST settings.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Token   string        `yaml:"token" mapstructure:"token"` // prefer .wactl.local.yaml or WACTL_TOKEN
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// OrganizationConfig identifies the tenant and its WhatsApp session.
type OrganizationConfig struct {
	ID       string `yaml:"id" mapstructure:"id"`
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
}

// RealtimeConfig holds realtime channel tuning.
type RealtimeConfig struct {
	StuckAfter       time.Duration `yaml:"stuck_after" mapstructure:"stuck_after"`
	ReconnectInitial time.Duration `yaml:"reconnect_initial" mapstructure:"reconnect_initial"`
	ReconnectMax     time.Duration `yaml:"reconnect_max" mapstructure:"reconnect_max"`
}

// PhoneConfig holds phone normalization settings.
type PhoneConfig struct {
	DefaultCountryCode string `yaml:"default_country_code" mapstructure:"default_country_code"`
}

// LoggingConfig holds log file settings.
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"` // empty uses the user cache dir
}

// DevServerConfig holds settings for the local backend simulator.
type DevServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	QRTTL          time.Duration `yaml:"qr_ttl" mapstructure:"qr_ttl"`
	TokenTTL       time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.configPath = configPath
	return MergeWithDefaults(&cfg), nil
}

// FindConfigFile walks up the directory tree looking for .wactl.yaml.
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	return findConfigFrom(dir)
}

func findConfigFrom(dir string) (string, error) {
	for {
		configPath := filepath.Join(dir, ConfigFilename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		configPath = filepath.Join(dir, ".wactl.yml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// Exists checks if a .wactl.yaml file exists in the current or parent directories.
func Exists() bool {
	_, err := FindConfigFile()
	return err == nil
}

// ConfigPath returns the path to the loaded config file.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// ProjectRoot returns the directory containing .wactl.yaml.
func (c *Config) ProjectRoot() string {
	if c.configPath == "" {
		dir, _ := os.Getwd()
		return dir
	}
	return filepath.Dir(c.configPath)
}

// LocalConfigPath returns the path of .wactl.local.yaml next to the main config.
func (c *Config) LocalConfigPath() string {
	return filepath.Join(c.ProjectRoot(), LocalConfigFilename)
}

// Validate checks the settings every backend call needs.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.API.BaseURL) == "" {
		missing = append(missing, "api.base_url")
	}
	if strings.TrimSpace(c.API.Token) == "" {
		missing = append(missing, "api.token")
	}
	if strings.TrimSpace(c.Organization.ID) == "" {
		missing = append(missing, "organization.id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MaskedToken returns the token with everything but the last four characters hidden.
func (c *Config) MaskedToken() string {
	t := c.API.Token
	if t == "" {
		return ""
	}
	if len(t) <= 4 {
		return strings.Repeat("*", len(t))
	}
	return strings.Repeat("*", 8) + t[len(t)-4:]
}

// IsVerbose returns whether verbose mode is enabled in preferences.
func (c *Config) IsVerbose() bool {
	return c.Preferences.Verbose
}
