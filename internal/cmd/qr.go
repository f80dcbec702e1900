package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wactl-dev/wactl/internal/qr"
	"github.com/wactl-dev/wactl/internal/session"
	"github.com/wactl-dev/wactl/internal/ui"
	"github.com/wactl-dev/wactl/pkg/shell"
)

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Fetch a pairing QR and print or save it",
	Long: `Connect and output the first QR the backend issues, then exit.

Useful to hand the QR to someone else: save it as PNG, or print it as a
data URL for an <img> tag.`,
	Example: `  wactl qr                    # Print the QR in the terminal
  wactl qr --png qr.png --open # Save and open it
  wactl qr --data-url          # Print a data:image/png;base64 URL`,
	RunE: runQR,
}

var (
	qrPNG      string
	qrOpen     bool
	qrDataURL  bool
	qrInverted bool
	qrSize     int
	qrTimeout  time.Duration
)

func init() {
	qrCmd.Flags().StringVar(&qrPNG, "png", "", "Write the QR to this PNG file")
	qrCmd.Flags().BoolVar(&qrOpen, "open", false, "Open the PNG with the system viewer")
	qrCmd.Flags().BoolVar(&qrDataURL, "data-url", false, "Print the QR as a PNG data URL")
	qrCmd.Flags().BoolVar(&qrInverted, "inverted", false, "Invert colors for light terminals")
	qrCmd.Flags().IntVar(&qrSize, "size", qr.DefaultSize, "PNG size in pixels")
	qrCmd.Flags().DurationVar(&qrTimeout, "timeout", time.Minute, "How long to wait for a QR")
	rootCmd.AddCommand(qrCmd)
}

func runQR(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd, qrTimeout)
	defer cancel()

	a.ctrl.Preload(ctx)
	if snap := a.ctrl.Snapshot(); snap.Code == session.CodeReady {
		ui.Successf("Already connected%s, no QR needed", describeAccount(snap.Account))
		return nil
	}

	var snap session.Snapshot
	err = ui.WithSpinner("Waiting for a QR", func() error {
		var werr error
		snap, werr = firstQR(ctx, a)
		return werr
	})
	if err != nil {
		return err
	}
	data := snap.Artifact.QR.Data

	switch {
	case qrDataURL:
		url, err := qr.DataURL(data)
		if err != nil {
			return err
		}
		fmt.Println(url)
	case qrPNG != "":
		if err := qr.WritePNG(qrPNG, data, qrSize); err != nil {
			return fmt.Errorf("failed to write QR: %w", err)
		}
		ui.Successf("QR written to %s (expires in %ds)", qrPNG, snap.TTL)
		if qrOpen || a.cfg.Preferences.OpenQRImage {
			if err := shell.OpenFile(ctx, shell.NewRunner(), qrPNG); err != nil {
				ui.Warningf("Could not open %s: %v", qrPNG, err)
			}
		}
	default:
		text, err := qr.Terminal(data, qrInverted)
		if err != nil {
			return err
		}
		fmt.Println(text)
		ui.Infof("Expires in %ds", snap.TTL)
	}
	return nil
}

// firstQR connects and returns the first snapshot holding a QR.
func firstQR(ctx context.Context, a *app) (session.Snapshot, error) {
	updates, unsubscribe := subscribeLatest(a.ctrl)
	defer unsubscribe()

	a.ctrl.Connect(ctx, session.ConnectOptions{})

	check := func(s session.Snapshot) (bool, error) {
		switch {
		case s.Artifact.QR != nil:
			return true, nil
		case s.Artifact.PairingCode != nil:
			return true, errors.New("the backend issued a pairing code instead of a QR")
		case s.Code == session.CodeError || s.Code == session.CodeDisconnected || s.Code == session.CodeAuthFailure:
			return true, fmt.Errorf("session %s: %s", s.Code, s.Reason)
		case s.Code == session.CodeReady:
			return true, errors.New("session became ready, no QR needed")
		}
		return false, nil
	}

	snap := a.ctrl.Snapshot()
	for {
		if done, err := check(snap); done {
			return snap, err
		}
		select {
		case <-ctx.Done():
			return snap, fmt.Errorf("no QR received: %w", ctx.Err())
		case snap = <-updates:
		}
	}
}
