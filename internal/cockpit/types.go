// Package cockpit implements the live TUI for one organization's WhatsApp
// session.
package cockpit

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wactl-dev/wactl/internal/session"
)

// Controller is the session surface the cockpit drives.
type Controller interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) func()
	Connect(ctx context.Context, opts session.ConnectOptions)
	Restart(ctx context.Context) error
	Logout(ctx context.Context) error
	Recheck(ctx context.Context)
}

// Messages for the bubbletea event loop.
type (
	tickMsg       struct{}
	snapshotMsg   struct{ snap session.Snapshot }
	actionDoneMsg struct {
		label string
		err   error
	}
)

// SnapshotMsg wraps a snapshot pushed by the controller.
func SnapshotMsg(s session.Snapshot) tea.Msg {
	return snapshotMsg{snap: s}
}
