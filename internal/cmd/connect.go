package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/wactl-dev/wactl/internal/session"
	"github.com/wactl-dev/wactl/internal/ui"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Link WhatsApp by QR or pairing code",
	Long: `Start a WhatsApp session for the organization and wait until it is ready.

Each QR the backend issues is printed as it arrives. With --pairing-phone the
backend issues a pairing code instead, to be typed on that phone.`,
	Example: `  wactl connect                          # Scan the QR shown in the terminal
  wactl connect --pairing-phone 611222333  # Link with a pairing code
  wactl connect --force-fresh --png qr.png # Drop the old session, also write a PNG`,
	RunE: runConnect,
}

var (
	connectForceFresh   bool
	connectPairingPhone string
	connectTimeout      time.Duration
	connectOutput       pairingOutput
)

func init() {
	connectCmd.Flags().BoolVar(&connectForceFresh, "force-fresh", false, "Log the old session out before connecting")
	connectCmd.Flags().StringVar(&connectPairingPhone, "pairing-phone", "", "Request a pairing code for this phone number")
	connectCmd.Flags().DurationVar(&connectTimeout, "timeout", 3*time.Minute, "How long to wait for the session")
	addPairingOutputFlags(connectCmd, &connectOutput)
	rootCmd.AddCommand(connectCmd)
}

func addPairingOutputFlags(cmd *cobra.Command, out *pairingOutput) {
	cmd.Flags().StringVar(&out.pngPath, "png", "", "Also write each QR to this PNG file")
	cmd.Flags().BoolVar(&out.openPNG, "open", false, "Open the PNG with the system viewer")
	cmd.Flags().BoolVar(&out.copyCode, "copy", false, "Copy the pairing code to the clipboard")
	cmd.Flags().BoolVar(&out.inverted, "inverted", false, "Invert QR colors for light terminals")
}

func runConnect(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd, connectTimeout)
	defer cancel()

	out := connectOutput
	if a.cfg.Preferences.OpenQRImage && out.pngPath != "" {
		out.openPNG = true
	}

	a.ctrl.Preload(ctx)
	if a.ctrl.Snapshot().Code == session.CodeReady && !connectForceFresh {
		ui.Successf("Already connected%s", describeAccount(a.ctrl.Snapshot().Account))
		ui.Info("Use --force-fresh to link a different phone")
		return nil
	}

	opts := session.ConnectOptions{ForceFresh: connectForceFresh, PairingPhone: connectPairingPhone}
	return waitReady(ctx, a, out, func() error {
		a.ctrl.Connect(ctx, opts)
		return nil
	})
}
