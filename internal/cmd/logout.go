package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wactl-dev/wactl/internal/api"
	"github.com/wactl-dev/wactl/internal/ui"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Unlink WhatsApp from the organization",
	Long: `End the WhatsApp session on the backend. The phone is unlinked and a new
QR or pairing code is needed to connect again.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd, a.cfg.API.Timeout)
	defer cancel()

	a.ctrl.Preload(ctx)
	snap := a.ctrl.Snapshot()

	if !IsYes() {
		ui.Warningf("This unlinks WhatsApp%s from organization %s", describeAccount(snap.Account), snap.OrgID)
		ok, err := ui.PromptYesNo("Log out?", false)
		if err != nil {
			return err
		}
		if !ok {
			ui.Info("Cancelled")
			return nil
		}
	}

	err = ui.WithSpinner("Logging out", func() error {
		return a.ctrl.Logout(ctx)
	})
	if err != nil {
		return fmt.Errorf("logout failed: %s", api.Message(err))
	}
	ui.Success("Logged out")
	return nil
}
