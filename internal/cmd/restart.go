package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the WhatsApp session",
	Long: `Ask the backend to restart the session, then reconnect and wait until
it is ready again. The reconnect happens even if the restart request fails.`,
	RunE: runRestart,
}

var (
	restartTimeout time.Duration
	restartOutput  pairingOutput
)

func init() {
	restartCmd.Flags().DurationVar(&restartTimeout, "timeout", 2*time.Minute, "How long to wait for the session")
	addPairingOutputFlags(restartCmd, &restartOutput)
	rootCmd.AddCommand(restartCmd)
}

func runRestart(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd, restartTimeout)
	defer cancel()

	a.ctrl.Preload(ctx)
	return waitReady(ctx, a, restartOutput, func() error {
		if err := a.ctrl.Restart(ctx); err != nil {
			return fmt.Errorf("restart request failed, reconnecting anyway: %w", err)
		}
		return nil
	})
}
