package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wactl-dev/wactl/internal/phone"
	"github.com/wactl-dev/wactl/internal/qr"
	"github.com/wactl-dev/wactl/internal/session"
	"github.com/wactl-dev/wactl/internal/ui"
	"github.com/wactl-dev/wactl/pkg/shell"
)

// pairingOutput controls how pairing artifacts are shown while waiting.
type pairingOutput struct {
	pngPath  string
	openPNG  bool
	copyCode bool
	inverted bool
}

// commandContext returns a context cancelled on interrupt or after timeout.
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

// subscribeLatest delivers only the most recent snapshot to the returned
// channel so the controller never blocks on a slow reader.
func subscribeLatest(ctrl *session.Controller) (<-chan session.Snapshot, func()) {
	updates := make(chan session.Snapshot, 1)
	unsubscribe := ctrl.Subscribe(func(s session.Snapshot) {
		select {
		case <-updates:
		default:
		}
		updates <- s
	})
	return updates, unsubscribe
}

// waitReady runs start and then follows the session until it is ready,
// printing every new QR or pairing code on the way.
func waitReady(ctx context.Context, a *app, out pairingOutput, start func() error) error {
	updates, unsubscribe := subscribeLatest(a.ctrl)
	defer unsubscribe()

	if err := start(); err != nil {
		ui.Warningf("%v", err)
	}

	w := &waiter{ctx: ctx, app: a, out: out, spinner: ui.NewSpinner("Waiting for WhatsApp")}
	w.spinner.Start()
	defer w.spinner.Stop()

	if done, err := w.step(a.ctrl.Snapshot()); done {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("timed out waiting for the session (last status: %s)", a.ctrl.Snapshot().Code)
			}
			return ctx.Err()
		case s := <-updates:
			if done, err := w.step(s); done {
				return err
			}
		}
	}
}

type waiter struct {
	ctx     context.Context
	app     *app
	out     pairingOutput
	spinner *ui.Spinner

	qrData      string
	pairingCode string
	warnedStuck bool
}

// step reacts to one snapshot and reports whether waiting is over.
func (w *waiter) step(s session.Snapshot) (bool, error) {
	if q := s.Artifact.QR; q != nil && q.Data != w.qrData {
		w.qrData = q.Data
		w.pause(func() { w.showQR(s) })
	}
	if pc := s.Artifact.PairingCode; pc != nil && pc.Code != w.pairingCode {
		w.pairingCode = pc.Code
		w.pause(func() { w.showPairingCode(pc) })
	}
	if s.Stuck && !w.warnedStuck {
		w.warnedStuck = true
		w.pause(func() {
			ui.Warning("Connecting is taking longer than expected; try 'wactl connect --force-fresh'")
		})
	}

	switch s.Code {
	case session.CodeReady:
		w.spinner.Stop()
		ui.Successf("WhatsApp connected%s", describeAccount(s.Account))
		return true, nil
	case session.CodeError, session.CodeAuthFailure, session.CodeDisconnected:
		w.spinner.Stop()
		reason := s.Reason
		if reason == "" {
			reason = "no reason given"
		}
		return true, fmt.Errorf("session %s: %s", s.Code, reason)
	}
	return false, nil
}

// pause stops the spinner around terminal output.
func (w *waiter) pause(fn func()) {
	w.spinner.Stop()
	fn()
	w.spinner.Start()
}

func (w *waiter) showQR(s session.Snapshot) {
	q := s.Artifact.QR
	text, err := qr.Terminal(q.Data, w.out.inverted)
	if err != nil {
		ui.Errorf("cannot render QR: %v", err)
		return
	}
	ui.NewLine()
	fmt.Println(text)
	ui.Infof("QR #%d, expires in %ds. Scan it from WhatsApp > Linked devices.", q.Seq, s.TTL)

	if w.out.pngPath == "" {
		return
	}
	if err := qr.WritePNG(w.out.pngPath, q.Data, qr.DefaultSize); err != nil {
		ui.Warningf("Could not write %s: %v", w.out.pngPath, err)
		return
	}
	ui.Infof("QR image written to %s", w.out.pngPath)
	if w.out.openPNG && q.Seq <= 1 {
		if err := shell.OpenFile(w.ctx, shell.NewRunner(), w.out.pngPath); err != nil {
			w.app.logger.Warn("failed to open QR image", zap.Error(err))
		}
	}
}

func (w *waiter) showPairingCode(pc *session.PairingCode) {
	ui.NewLine()
	ui.Successf("Pairing code: %s", ui.Bold(pc.Code))
	ui.Infof("On the phone %s open WhatsApp > Linked devices > Link with phone number", phone.Mask(pc.Phone))
	if !w.out.copyCode {
		return
	}
	code := pc.Raw
	if code == "" {
		code = strings.ReplaceAll(pc.Code, "-", "")
	}
	if err := shell.CopyToClipboard(w.ctx, shell.NewRunner(), code); err != nil {
		ui.Warningf("Could not copy the code: %v", err)
		return
	}
	ui.Info("Copied to clipboard")
}

func describeAccount(acc *session.Account) string {
	if acc == nil {
		return ""
	}
	return " as " + accountLabel(acc)
}

// accountLabel shows the account name with its masked number.
func accountLabel(acc *session.Account) string {
	number := acc.ID
	if i := strings.IndexAny(number, "@:"); i >= 0 {
		number = number[:i]
	}
	if acc.Name == "" {
		return phone.Mask(number)
	}
	return fmt.Sprintf("%s (%s)", acc.Name, phone.Mask(number))
}
