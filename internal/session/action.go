package session

// ActionKind identifies which rule produced an Action.
type ActionKind int

const (
	ActionRegenerateQR ActionKind = iota + 1
	ActionShowQR
	ActionConnect
	ActionRetry
	ActionForceNew
	ActionDefault
)

// Labels shown for each action.
const (
	LabelRegenerateQR = "Regenerate QR"
	LabelShowQR       = "Show QR (active)"
	LabelConnect      = "Connect and show QR"
	LabelRetry        = "Retry"
	LabelForceNew     = "Force new session"
	LabelDefault      = "Connect / Show QR"
)

// ConnectOptions tune a connect attempt.
type ConnectOptions struct {
	// ForceFresh logs the old session out before connecting.
	ForceFresh bool
	// PairingPhone requests a pairing code for this number instead of a QR.
	PairingPhone string
}

// Action is the single recommended user action for a status.
type Action struct {
	Label   string
	Kind    ActionKind
	Options ConnectOptions
	Run     func()
}

// DecideAction maps a status to its primary action. Rules are tried in
// order and the first match wins; a ready session has no action.
func DecideAction(code Code, reason string, ttl int, stuck bool, connect func(ConnectOptions)) *Action {
	newAction := func(label string, kind ActionKind, opts ConnectOptions) *Action {
		return &Action{
			Label:   label,
			Kind:    kind,
			Options: opts,
			Run: func() {
				if connect != nil {
					connect(opts)
				}
			},
		}
	}

	switch {
	case code == CodeReady:
		return nil
	case code == CodeWaitingQR:
		if ttl == 0 {
			return newAction(LabelRegenerateQR, ActionRegenerateQR, ConnectOptions{})
		}
		return newAction(LabelShowQR, ActionShowQR, ConnectOptions{})
	case code == CodeDisconnected || reason == ReasonNotFound || code == CodeAuthFailure:
		return newAction(LabelConnect, ActionConnect, ConnectOptions{ForceFresh: code == CodeAuthFailure})
	case code == CodeError:
		return newAction(LabelRetry, ActionRetry, ConnectOptions{})
	case stuck:
		return newAction(LabelForceNew, ActionForceNew, ConnectOptions{ForceFresh: true})
	default:
		return newAction(LabelDefault, ActionDefault, ConnectOptions{})
	}
}
