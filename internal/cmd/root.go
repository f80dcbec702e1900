// Package cmd implements the wactl CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wactl-dev/wactl/internal/ui"
)

var (
	version = "dev"
	cfgFile string
	verbose bool
	noColor bool
	yesFlag bool
)

// SetVersion sets the version string (called from main).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wactl",
	Short: "Manage the WhatsApp connection of an organization",
	Long: `wactl connects an organization's WhatsApp number to the messaging
platform and keeps an eye on it.

It mirrors the session status pushed by the backend, shows the pairing QR or
pairing code, and runs the same actions as the web dashboard.

Get started:
  wactl config init   Create .wactl.yaml for your organization
  wactl status        Show the current session status
  wactl connect       Link WhatsApp by QR or pairing code
  wactl watch         Live view of the session`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .wactl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "skip confirmation prompts")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("wactl version {{.Version}}\n")
}

func initConfig() {
	if noColor {
		ui.SetNoColor(true)
	}
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// IsYes returns whether the --yes flag is set (skip confirmations).
func IsYes() bool {
	return yesFlag
}

// GetConfigFile returns the config file path if specified.
func GetConfigFile() string {
	return cfgFile
}

// PrintVersion prints the version information.
func PrintVersion() {
	fmt.Printf("wactl version %s\n", version)
}
