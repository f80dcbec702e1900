package cockpit

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/wactl-dev/wactl/internal/session"
)

// Palette shared with the CLI output in internal/ui.
const (
	colorCyan   = lipgloss.Color("#00BCD4")
	colorGreen  = lipgloss.Color("#4CAF50")
	colorYellow = lipgloss.Color("#FFC107")
	colorRed    = lipgloss.Color("#F44336")
	colorBlue   = lipgloss.Color("#2196F3")
	colorDim    = lipgloss.Color("#666666")
	colorWhite  = lipgloss.Color("#FFFFFF")
	colorBorder = lipgloss.Color("#333355")
)

// Styles holds all lipgloss styles for the cockpit.
type Styles struct {
	Header       lipgloss.Style
	HeaderTitle  lipgloss.Style
	HeaderStat   lipgloss.Style
	Label        lipgloss.Style
	Value        lipgloss.Style
	BadgeOK      lipgloss.Style
	BadgePending lipgloss.Style
	BadgeQR      lipgloss.Style
	BadgeIdle    lipgloss.Style
	BadgeFailed  lipgloss.Style
	Action       lipgloss.Style
	Warning      lipgloss.Style
	ErrorText    lipgloss.Style
	DimText      lipgloss.Style
	PairingCode  lipgloss.Style
	PanelTitle   lipgloss.Style
	Footer       lipgloss.Style
	FooterKey    lipgloss.Style
	FooterDesc   lipgloss.Style
	Overlay      lipgloss.Style
	OverlayTitle lipgloss.Style
	EmptyState   lipgloss.Style
	PanelLeft    lipgloss.Style
	PanelRight   lipgloss.Style
}

// DefaultStyles returns the default style set.
func DefaultStyles() Styles {
	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan).
			Padding(0, 1),
		HeaderTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan),
		HeaderStat: lipgloss.NewStyle().
			Foreground(colorDim),
		Label: lipgloss.NewStyle().
			Foreground(colorDim).
			Width(10),
		Value: lipgloss.NewStyle().
			Foreground(colorWhite),
		BadgeOK:      badge.Foreground(colorWhite).Background(colorGreen),
		BadgePending: badge.Foreground(lipgloss.Color("#000000")).Background(colorYellow),
		BadgeQR:      badge.Foreground(colorWhite).Background(colorBlue),
		BadgeIdle:    badge.Foreground(colorWhite).Background(colorDim),
		BadgeFailed:  badge.Foreground(colorWhite).Background(colorRed),
		Action: lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(colorYellow),
		ErrorText: lipgloss.NewStyle().
			Foreground(colorRed),
		DimText: lipgloss.NewStyle().
			Foreground(colorDim),
		PairingCode: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorGreen).
			Padding(0, 2),
		PanelTitle: lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true),
		Footer: lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1),
		FooterKey: lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true),
		FooterDesc: lipgloss.NewStyle().
			Foreground(colorDim),
		Overlay: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRed).
			Padding(1, 3).
			Align(lipgloss.Center),
		OverlayTitle: lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true),
		EmptyState: lipgloss.NewStyle().
			Foreground(colorDim).
			Align(lipgloss.Center).
			Padding(2, 0),
		PanelLeft: lipgloss.NewStyle().
			Padding(0, 1),
		PanelRight: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),
	}
}

// badgeStyle picks the badge color for a session code.
func (s Styles) badgeStyle(code session.Code) lipgloss.Style {
	switch code {
	case session.CodeReady:
		return s.BadgeOK
	case session.CodeWaitingQR, session.CodeAuthenticated:
		return s.BadgeQR
	case session.CodeConnecting, session.CodeReconnecting:
		return s.BadgePending
	case session.CodeError, session.CodeAuthFailure:
		return s.BadgeFailed
	default:
		return s.BadgeIdle
	}
}
