package config

import "time"

// DefaultConfig returns the default configuration values.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8787",
			Timeout: 30 * time.Second,
		},
		Realtime: RealtimeConfig{
			StuckAfter:       20 * time.Second,
			ReconnectInitial: 1 * time.Second,
			ReconnectMax:     30 * time.Second,
		},
		Phone: PhoneConfig{
			DefaultCountryCode: "",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		DevServer: DevServerConfig{
			Addr:           "127.0.0.1:8787",
			QRTTL:          20 * time.Second,
			TokenTTL:       10 * time.Minute,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	}
}

// MergeWithDefaults merges a loaded config with defaults for any missing values.
func MergeWithDefaults(cfg *Config) *Config {
	defaults := DefaultConfig()

	// API defaults
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = defaults.API.Timeout
	}

	// Realtime defaults
	if cfg.Realtime.StuckAfter == 0 {
		cfg.Realtime.StuckAfter = defaults.Realtime.StuckAfter
	}
	if cfg.Realtime.ReconnectInitial == 0 {
		cfg.Realtime.ReconnectInitial = defaults.Realtime.ReconnectInitial
	}
	if cfg.Realtime.ReconnectMax == 0 {
		cfg.Realtime.ReconnectMax = defaults.Realtime.ReconnectMax
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}

	// Dev server defaults
	if cfg.DevServer.Addr == "" {
		cfg.DevServer.Addr = defaults.DevServer.Addr
	}
	if cfg.DevServer.QRTTL == 0 {
		cfg.DevServer.QRTTL = defaults.DevServer.QRTTL
	}
	if cfg.DevServer.TokenTTL == 0 {
		cfg.DevServer.TokenTTL = defaults.DevServer.TokenTTL
	}
	if len(cfg.DevServer.AllowedOrigins) == 0 {
		cfg.DevServer.AllowedOrigins = defaults.DevServer.AllowedOrigins
	}

	return cfg
}

// GenerateConfigContent generates the content for a new .wactl.yaml.
func GenerateConfigContent(baseURL, orgID string) string {
	if baseURL == "" {
		baseURL = DefaultConfig().API.BaseURL
	}
	return `# .wactl.yaml - shared wactl configuration
# Secrets (api.token) belong in .wactl.local.yaml or WACTL_TOKEN.

api:
  base_url: "` + baseURL + `"
  timeout: 30s

organization:
  id: "` + orgID + `"

realtime:
  stuck_after: 20s
  reconnect_initial: 1s
  reconnect_max: 30s

phone:
  # default_country_code: "34"   # prepended to national numbers

logging:
  level: info
`
}
