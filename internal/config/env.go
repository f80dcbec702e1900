package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment override (WACTL_TOKEN, ...).
const EnvPrefix = "wactl"

// EnvOverrides are the settings that may come from the environment.
// Environment values win over both config files.
type EnvOverrides struct {
	APIURL   string `envconfig:"API_URL"`
	Token    string `envconfig:"TOKEN"`
	OrgID    string `envconfig:"ORG_ID"`
	ClientID string `envconfig:"CLIENT_ID"`
	LogLevel string `envconfig:"LOG_LEVEL"`
	LogFile  string `envconfig:"LOG_FILE"`
}

// LoadEnv reads WACTL_* variables.
func LoadEnv() (EnvOverrides, error) {
	var env EnvOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return env, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

// ApplyEnv copies non-empty overrides onto cfg.
func ApplyEnv(cfg *Config, env EnvOverrides) *Config {
	if env.APIURL != "" {
		cfg.API.BaseURL = env.APIURL
	}
	if env.Token != "" {
		cfg.API.Token = env.Token
	}
	if env.OrgID != "" {
		cfg.Organization.ID = env.OrgID
	}
	if env.ClientID != "" {
		cfg.Organization.ClientID = env.ClientID
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = env.LogLevel
	}
	if env.LogFile != "" {
		cfg.Logging.File = env.LogFile
	}
	return cfg
}

// Resolve loads the configuration the commands run with: the explicit path
// when given, otherwise the discovered .wactl.yaml (or defaults when there is
// none), then .wactl.local.yaml, then WACTL_* environment variables.
func Resolve(explicitPath string) (*Config, error) {
	var (
		cfg *Config
		err error
	)

	switch {
	case explicitPath != "":
		cfg, err = LoadFromPath(explicitPath)
		if err != nil {
			return nil, err
		}
		if local, lerr := LoadLocal(explicitPath); lerr == nil {
			cfg = MergeLocalConfig(cfg, local)
		}
	default:
		cfg, err = LoadWithLocal()
		if errors.Is(err, ErrNotFound) {
			cfg, err = DefaultConfig(), nil
		}
		if err != nil {
			return nil, err
		}
	}

	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	return ApplyEnv(cfg, env), nil
}
