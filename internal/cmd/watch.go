package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wactl-dev/wactl/internal/cockpit"
	"github.com/wactl-dev/wactl/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of the WhatsApp session",
	Long: `Interactive view of the session: status, QR with countdown, pairing code
and the recommended action. Press enter to run it.`,
	RunE: runWatch,
}

var (
	watchConnect      bool
	watchPairingPhone string
)

func init() {
	watchCmd.Flags().BoolVar(&watchConnect, "connect", false, "Connect right away")
	watchCmd.Flags().StringVar(&watchPairingPhone, "pairing-phone", "", "Request a pairing code when connecting")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd, 0)
	defer cancel()

	a.ctrl.Preload(ctx)
	if watchConnect || watchPairingPhone != "" {
		go a.ctrl.Connect(ctx, session.ConnectOptions{PairingPhone: watchPairingPhone})
	}

	if err := cockpit.Run(ctx, a.ctrl); err != nil {
		return fmt.Errorf("live view error: %w", err)
	}
	return nil
}
