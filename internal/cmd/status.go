package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wactl-dev/wactl/internal/session"
	"github.com/wactl-dev/wactl/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the WhatsApp session status",
	Long: `Fetch the session status from the backend and show it together with the
recommended next action.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd, a.cfg.API.Timeout)
	defer cancel()

	_ = ui.WithSpinner("Fetching status", func() error {
		a.ctrl.Recheck(ctx)
		return nil
	})
	snap := a.ctrl.Snapshot()

	ui.Header("WhatsApp Session")
	ui.PrintSession(snap.OrgID, snap.ClientID, string(snap.Code), snap.Reason)
	if snap.Account != nil {
		ui.KeyValue("Account", accountLabel(snap.Account))
	}
	if IsVerbose() {
		ui.KeyValue("API", a.cfg.API.BaseURL)
		ui.KeyValue("Token", a.cfg.MaskedToken())
	}

	ui.NewLine()
	if action := snap.Action(nil); action != nil {
		ui.Infof("Next: %s (%s)", action.Label, suggestCommand(action))
	}

	if snap.Code == session.CodeError {
		return fmt.Errorf("could not get the session status: %s", snap.Reason)
	}
	return nil
}

// suggestCommand maps a primary action to the CLI invocation that runs it.
func suggestCommand(action *session.Action) string {
	switch {
	case action.Options.ForceFresh:
		return "wactl connect --force-fresh"
	case action.Kind == session.ActionShowQR:
		return "wactl qr"
	default:
		return "wactl connect"
	}
}
