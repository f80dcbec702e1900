package cockpit

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wactl-dev/wactl/internal/qr"
	"github.com/wactl-dev/wactl/internal/session"
)

const defaultPollInterval = time.Second

// Model is the bubbletea model for the session cockpit.
type Model struct {
	ctx  context.Context
	ctrl Controller

	snap          session.Snapshot
	qrData        string
	qrInverted    bool
	qrText        string
	keys          KeyMap
	styles        Styles
	spinner       spinner.Model
	width, height int
	showHelp      bool
	confirmLogout bool
	busy          string
	lastErr       string
	pollInterval  time.Duration
}

// NewModel creates a cockpit bound to ctrl. Commands issued from the
// cockpit run under ctx.
func NewModel(ctx context.Context, ctrl Controller) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorCyan)

	m := Model{
		ctx:          ctx,
		ctrl:         ctrl,
		keys:         DefaultKeyMap(),
		styles:       DefaultStyles(),
		spinner:      sp,
		pollInterval: defaultPollInterval,
	}
	m.setSnapshot(ctrl.Snapshot())
	return m
}

// Init starts the countdown poll.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.pollInterval)
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.setSnapshot(m.ctrl.Snapshot())
		return m, tickCmd(m.pollInterval)

	case snapshotMsg:
		m.setSnapshot(msg.snap)
		return m, nil

	case actionDoneMsg:
		m.busy = ""
		m.lastErr = ""
		if msg.err != nil {
			m.lastErr = msg.label + " failed: " + msg.err.Error()
		}
		m.setSnapshot(m.ctrl.Snapshot())
		return m, nil

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmLogout {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirmLogout = false
			return m.start("Logout", m.ctrl.Logout)
		case key.Matches(msg, m.keys.Cancel):
			m.confirmLogout = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Primary):
		action := m.snap.Action(nil)
		if action == nil {
			return m, nil
		}
		return m.connect(action.Label, action.Options)

	case key.Matches(msg, m.keys.Connect):
		return m.connect("Connect", session.ConnectOptions{})

	case key.Matches(msg, m.keys.ForceFresh):
		return m.connect("Force new session", session.ConnectOptions{ForceFresh: true})

	case key.Matches(msg, m.keys.Restart):
		return m.start("Restart", m.ctrl.Restart)

	case key.Matches(msg, m.keys.Logout):
		m.confirmLogout = true
		return m, nil

	case key.Matches(msg, m.keys.Recheck):
		return m.start("Recheck", func(ctx context.Context) error {
			m.ctrl.Recheck(ctx)
			return nil
		})

	case key.Matches(msg, m.keys.InvertQR):
		m.qrInverted = !m.qrInverted
		m.qrData = ""
		m.setSnapshot(m.snap)
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}

	return m, nil
}

func (m Model) connect(label string, opts session.ConnectOptions) (tea.Model, tea.Cmd) {
	return m.start(label, func(ctx context.Context) error {
		m.ctrl.Connect(ctx, opts)
		return nil
	})
}

// start runs fn off the event loop. Only one command runs at a time.
func (m Model) start(label string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	m.busy = label
	m.lastErr = ""
	return m, tea.Batch(m.spinner.Tick, actionCmd(m.ctx, label, fn))
}

// setSnapshot stores s and re-renders the QR only when its data changed.
func (m *Model) setSnapshot(s session.Snapshot) {
	m.snap = s
	if s.Artifact.QR == nil {
		m.qrData = ""
		m.qrText = ""
		return
	}
	if s.Artifact.QR.Data == m.qrData {
		return
	}
	m.qrData = s.Artifact.QR.Data
	text, err := qr.Terminal(m.qrData, m.qrInverted)
	if err != nil {
		m.qrText = m.styles.ErrorText.Render("cannot render QR: " + err.Error())
		return
	}
	m.qrText = text
}

// View renders the full cockpit.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.confirmLogout {
		return m.renderConfirmOverlay()
	}

	header := m.renderHeader()
	footer := m.renderFooter()

	left := m.renderStatus()
	if m.showHelp {
		left += "\n" + m.renderHelp()
	}
	content := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Height(m.contentHeight()).Render(left),
		m.renderArtifact(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (m Model) renderHelp() string {
	s := m.styles
	var out string
	for _, col := range m.keys.FullHelp() {
		for _, kb := range col {
			h := kb.Help()
			out += s.FooterKey.Render(h.Key) + " " + s.FooterDesc.Render(h.Desc) + "\n"
		}
	}
	return s.PanelLeft.Render(out)
}

// Commands

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func actionCmd(ctx context.Context, label string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{label: label, err: fn(ctx)}
	}
}

// Run shows the cockpit until the user quits or ctx is done. Controller
// updates are forwarded into the event loop.
func Run(ctx context.Context, ctrl Controller) error {
	p := tea.NewProgram(NewModel(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := ctrl.Subscribe(func(s session.Snapshot) {
		p.Send(SnapshotMsg(s))
	})
	defer unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
