package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wactl-dev/wactl/internal/api"
	"github.com/wactl-dev/wactl/internal/phone"
	"github.com/wactl-dev/wactl/internal/session"
	"github.com/wactl-dev/wactl/internal/ui"
)

const defaultTestMessage = "Test message from wactl"

var sendCmd = &cobra.Command{
	Use:   "send <phone> [message]",
	Short: "Send a test message through the session",
	Long: `Send a WhatsApp message from the organization's number to check the
session end to end. National numbers get phone.default_country_code.`,
	Example: `  wactl send 611222333
  wactl send +34611222333 "Hello from the front desk"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	to := args[0]
	message := defaultTestMessage
	if len(args) > 1 && strings.TrimSpace(args[1]) != "" {
		message = args[1]
	}
	normalized, err := phone.Normalize(to, a.cfg.Phone.DefaultCountryCode)
	if err != nil {
		return fmt.Errorf("invalid phone %q: %w", to, err)
	}

	ctx, cancel := commandContext(cmd, a.cfg.API.Timeout)
	defer cancel()

	a.ctrl.Preload(ctx)
	snap := a.ctrl.Snapshot()
	if snap.ClientID == "" {
		return fmt.Errorf("no WhatsApp session yet, run 'wactl connect' first")
	}
	if snap.Code != session.CodeReady {
		ui.Warningf("Session is %s, the message may be rejected", ui.CodeColor(string(snap.Code)))
	}

	err = ui.WithSpinner("Sending", func() error {
		return a.ctrl.SendTestMessage(ctx, "+"+normalized, message)
	})
	if err != nil {
		return fmt.Errorf("send failed: %s", api.Message(err))
	}
	ui.Successf("Message sent to %s", phone.Mask(normalized))
	return nil
}
