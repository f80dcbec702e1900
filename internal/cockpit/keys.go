package cockpit

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the cockpit.
type KeyMap struct {
	Primary    key.Binding
	Connect    key.Binding
	ForceFresh key.Binding
	Restart    key.Binding
	Logout     key.Binding
	Recheck    key.Binding
	InvertQR   key.Binding
	Help       key.Binding
	Quit       key.Binding
	Confirm    key.Binding
	Cancel     key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Primary: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "primary action"),
		),
		Connect: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "connect"),
		),
		ForceFresh: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "force new session"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart"),
		),
		Logout: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "logout"),
		),
		Recheck: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "recheck"),
		),
		InvertQR: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "invert QR"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/esc", "cancel"),
		),
	}
}

// ShortHelp returns the short help bindings (shown in footer).
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Primary, k.Connect, k.ForceFresh, k.Restart, k.Logout, k.Recheck, k.Quit}
}

// FullHelp returns the full help bindings.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Primary, k.Connect, k.ForceFresh},
		{k.Restart, k.Logout, k.Recheck},
		{k.InvertQR, k.Help, k.Quit},
	}
}
