package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LocalConfig represents the .wactl.local.yaml configuration file (gitignored).
// This file contains credentials and developer-specific overrides.
type LocalConfig struct {
	API          LocalAPIConfig          `yaml:"api" mapstructure:"api"`
	Organization LocalOrganizationConfig `yaml:"organization" mapstructure:"organization"`
	Preferences  PreferencesConfig       `yaml:"preferences" mapstructure:"preferences"`
}

// LocalAPIConfig holds local API overrides.
type LocalAPIConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Token   string `yaml:"token" mapstructure:"token"`
}

// LocalOrganizationConfig holds the locally remembered session identity.
type LocalOrganizationConfig struct {
	ID       string `yaml:"id" mapstructure:"id"`
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
}

// PreferencesConfig holds developer preferences.
type PreferencesConfig struct {
	Verbose     bool `yaml:"verbose" mapstructure:"verbose"`
	OpenQRImage bool `yaml:"open_qr_image" mapstructure:"open_qr_image"`
}

// LocalConfigFilename is the name of the local config file.
const LocalConfigFilename = ".wactl.local.yaml"

// LoadLocal loads the local config from the same directory as the main config.
func LoadLocal(mainConfigPath string) (*LocalConfig, error) {
	dir := filepath.Dir(mainConfigPath)
	return LoadLocalFromPath(filepath.Join(dir, LocalConfigFilename))
}

// LoadLocalFromPath loads local configuration from a specific path.
func LoadLocalFromPath(localPath string) (*LocalConfig, error) {
	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		return &LocalConfig{}, nil
	}

	v := viper.New()
	v.SetConfigFile(localPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read local config file: %w", err)
	}

	var cfg LocalConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse local config file: %w", err)
	}

	return &cfg, nil
}

// MergeLocalConfig merges the local config into the main config.
// Local config values override main config values.
func MergeLocalConfig(main *Config, local *LocalConfig) *Config {
	if local == nil {
		return main
	}

	if local.API.BaseURL != "" {
		main.API.BaseURL = local.API.BaseURL
	}
	if local.API.Token != "" {
		main.API.Token = local.API.Token
	}
	if local.Organization.ID != "" {
		main.Organization.ID = local.Organization.ID
	}
	if local.Organization.ClientID != "" {
		main.Organization.ClientID = local.Organization.ClientID
	}

	main.Preferences = local.Preferences

	return main
}

// LoadWithLocal loads both the main config and local config, merging them.
func LoadWithLocal() (*Config, error) {
	mainConfigPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFromPath(mainConfigPath)
	if err != nil {
		return nil, err
	}

	local, err := LoadLocal(mainConfigPath)
	if err != nil {
		// Non-fatal: continue with main config only
		return cfg, nil
	}

	return MergeLocalConfig(cfg, local), nil
}

// GenerateLocalConfigContent generates the content for .wactl.local.yaml.
func GenerateLocalConfigContent(token string) string {
	tokenLine := `#   token: "paste-your-api-token"`
	if token != "" {
		tokenLine = `  token: "` + token + `"`
	}
	apiHeader := "# api:"
	if token != "" {
		apiHeader = "api:"
	}
	return `# .wactl.local.yaml - Local/developer-specific configuration (GITIGNORED)
# This file contains settings that should NOT be committed to git.

` + apiHeader + `
` + tokenLine + `

# organization:
#   client_id: ""   # remembered automatically after connect

preferences:
  verbose: false
  # open_qr_image: true   # open the QR PNG with the system viewer
`
}

// WriteLocalConfig writes a new local config file.
func WriteLocalConfig(path, token string) error {
	return os.WriteFile(path, []byte(GenerateLocalConfigContent(token)), 0600)
}

// AddToGitignore adds .wactl.local.yaml to .gitignore if not already present.
func AddToGitignore(projectRoot string) error {
	gitignorePath := filepath.Join(projectRoot, ".gitignore")

	content := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		content = string(data)
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == LocalConfigFilename {
			return nil
		}
	}

	newContent := content
	if newContent != "" && !strings.HasSuffix(newContent, "\n") {
		newContent += "\n"
	}
	newContent += "\n# wactl local config (credentials)\n"
	newContent += LocalConfigFilename + "\n"

	return os.WriteFile(gitignorePath, []byte(newContent), 0644)
}

// UpdateLocalClientID stores the session client id in .wactl.local.yaml,
// preserving every other key already in the file.
func UpdateLocalClientID(localPath, clientID string) error {
	cfg := make(map[string]interface{})

	if data, err := os.ReadFile(localPath); err == nil && strings.TrimSpace(string(data)) != "" {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return err
		}
	}

	orgSection, ok := cfg["organization"].(map[string]interface{})
	if !ok {
		orgSection = make(map[string]interface{})
		cfg["organization"] = orgSection
	}

	if clientID == "" {
		delete(orgSection, "client_id")
		if len(orgSection) == 0 {
			delete(cfg, "organization")
		}
	} else {
		orgSection["client_id"] = clientID
	}

	newData, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(localPath, newData, 0600)
}
