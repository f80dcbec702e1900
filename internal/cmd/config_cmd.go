package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wactl-dev/wactl/internal/config"
	"github.com/wactl-dev/wactl/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Create and view wactl configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .wactl.yaml in the current directory",
	Long: `Create the shared .wactl.yaml (backend URL and organization) and the
gitignored .wactl.local.yaml holding the API token.`,
	Example: `  wactl config init
  wactl config init --base-url https://api.example.com --org org_123 --token $TOKEN`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the resolved configuration after files and WACTL_* variables are merged.`,
	RunE:  runConfigShow,
}

var (
	initBaseURL string
	initOrg     string
	initToken   string
	initForce   bool
)

func init() {
	configInitCmd.Flags().StringVar(&initBaseURL, "base-url", "", "Backend base URL")
	configInitCmd.Flags().StringVar(&initOrg, "org", "", "Organization id")
	configInitCmd.Flags().StringVar(&initToken, "token", "", "API token (stored in .wactl.local.yaml)")
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing .wactl.yaml")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	ui.Header("Initialize wactl")

	if config.Exists() && !initForce {
		configPath, _ := config.FindConfigFile()
		ui.Warningf("Already initialized at %s", configPath)
		ui.Info("Use --force to overwrite")
		return nil
	}

	baseURL, orgID, token := initBaseURL, initOrg, initToken
	var err error
	if baseURL == "" && !IsYes() {
		if baseURL, err = ui.PromptValidated("Backend URL", config.DefaultConfig().API.BaseURL, validateBaseURL); err != nil {
			return err
		}
	}
	if orgID == "" && !IsYes() {
		if orgID, err = ui.PromptValidated("Organization id", "", ui.NotBlank); err != nil {
			return err
		}
	}
	if token == "" && !IsYes() {
		if token, err = ui.PromptPassword("API token (leave empty to set WACTL_TOKEN later)"); err != nil {
			return err
		}
	}

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(dir, config.ConfigFilename)
	content := config.GenerateConfigContent(strings.TrimSpace(baseURL), strings.TrimSpace(orgID))
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.ConfigFilename, err)
	}
	ui.Successf("Created %s", config.ConfigFilename)

	localPath := filepath.Join(dir, config.LocalConfigFilename)
	if _, statErr := os.Stat(localPath); os.IsNotExist(statErr) || token != "" {
		if err := config.WriteLocalConfig(localPath, strings.TrimSpace(token)); err != nil {
			return fmt.Errorf("failed to write %s: %w", config.LocalConfigFilename, err)
		}
		ui.Successf("Created %s", config.LocalConfigFilename)
	}

	if err := config.AddToGitignore(dir); err != nil {
		ui.Warningf("Could not update .gitignore: %v", err)
	} else {
		ui.Successf("Added %s to .gitignore", config.LocalConfigFilename)
	}

	ui.NewLine()
	ui.Info("Next: wactl status")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ui.Header("wactl Configuration")

	configPath := cfg.ConfigPath()
	if configPath == "" {
		configPath = "(none, using defaults)"
	}
	ui.KeyValue("Config File", configPath)

	token := cfg.MaskedToken()
	if token == "" {
		token = ui.Yellow("(not set)")
	}
	clientID := cfg.Organization.ClientID
	if clientID == "" {
		clientID = "(none yet)"
	}

	ui.NewLine()
	table := ui.NewTable([]string{"Setting", "Value"})
	table.AddRow([]string{"api.base_url", cfg.API.BaseURL})
	table.AddRow([]string{"api.token", token})
	table.AddRow([]string{"api.timeout", cfg.API.Timeout.String()})
	table.AddRow([]string{"organization.id", cfg.Organization.ID})
	table.AddRow([]string{"organization.client_id", clientID})
	table.AddRow([]string{"realtime.stuck_after", cfg.Realtime.StuckAfter.String()})
	table.AddRow([]string{"realtime.reconnect_initial", cfg.Realtime.ReconnectInitial.String()})
	table.AddRow([]string{"realtime.reconnect_max", cfg.Realtime.ReconnectMax.String()})
	table.AddRow([]string{"phone.default_country_code", cfg.Phone.DefaultCountryCode})
	table.AddRow([]string{"logging.level", cfg.Logging.Level})
	table.Render()

	if err := cfg.Validate(); err != nil {
		ui.NewLine()
		ui.Warning(err.Error())
	}
	return nil
}

func validateBaseURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must start with http:// or https://")
	}
	return nil
}
