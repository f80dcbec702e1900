package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wactl-dev/wactl/internal/api"
	"github.com/wactl-dev/wactl/internal/realtime"
)

// handlers binds realtime callbacks to the connect attempt seq. Events of a
// superseded attempt are dropped. pairingPhone is the attempt's normalized
// pairing number, empty for QR pairing.
func (c *Controller) handlers(seq uint64, orgID, pairingPhone string) realtime.Handlers {
	return realtime.Handlers{
		OnConnected: func() {
			c.logger.Debug("realtime channel connected", zap.Uint64("attempt", seq))
		},
		OnStatus: func(ev realtime.StatusEvent) {
			c.apply(seq, func() { c.onStatusLocked(ev) })
		},
		OnQR: func(ev realtime.QREvent) {
			c.apply(seq, func() { c.onQRLocked(ev) })
		},
		OnPairingCode: func(ev realtime.PairingCodeEvent) {
			c.apply(seq, func() { c.onPairingCodeLocked(ev) })
		},
		OnPairingError: func(ev realtime.PairingErrorEvent) {
			c.apply(seq, func() { c.onPairingErrorLocked(ev) })
		},
		OnSessionCleaned: func() {
			c.onSessionCleaned(seq)
		},
		OnConnectError: func(err error) {
			c.apply(seq, func() { c.onConnectErrorLocked(err) })
		},
		RefreshToken: func(ctx context.Context) (string, error) {
			return c.refreshToken(ctx, seq, orgID, pairingPhone)
		},
	}
}

// apply runs fn under the lock unless seq is stale, then notifies.
func (c *Controller) apply(seq uint64, fn func()) {
	c.mu.Lock()
	if c.supersededLocked(seq) {
		c.mu.Unlock()
		return
	}
	fn()
	c.updateTickerLocked()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) onStatusLocked(ev realtime.StatusEvent) {
	var acc *Account
	if ev.Me != nil && ev.Me.ID != "" {
		acc = &Account{ID: ev.Me.ID, Name: ev.Me.Name}
	}
	c.applyStatusLocked(ev.Code, ev.Reason, acc)
}

// applyStatusLocked overwrites code, reason and account. Unknown codes are
// logged and the whole update is dropped.
func (c *Controller) applyStatusLocked(raw, reason string, acc *Account) {
	code, err := ParseCode(raw)
	if err != nil {
		c.logger.Warn("ignoring status", zap.Error(err))
		return
	}

	c.status.Code = code
	c.status.Reason = reason

	switch code {
	case CodeReady:
		if acc != nil {
			c.status.Account = acc
		}
		c.status.Artifact = Artifact{}
	case CodeConnecting:
		c.status.Account = nil
		c.connectingSince = c.now()
	default:
		c.status.Account = nil
	}
}

func (c *Controller) onQRLocked(ev realtime.QREvent) {
	qr := &QRPayload{
		Data:             ev.QR,
		ExpiresAt:        ev.Expiry(),
		Seq:              ev.Seq,
		ReplacesPrevious: ev.ReplacesPrevious,
		IssuedAt:         ev.Issued(),
		TTL:              time.Duration(ev.TTLMs) * time.Millisecond,
		ID:               ev.QRID,
	}
	c.status.Artifact = Artifact{QR: qr}
	c.status.Code = CodeWaitingQR
	c.status.Reason = ""
	c.status.Account = nil
}

func (c *Controller) onPairingCodeLocked(ev realtime.PairingCodeEvent) {
	c.status.Artifact = Artifact{PairingCode: &PairingCode{
		Code:  ev.Code,
		Raw:   ev.Raw,
		Phone: ev.Phone,
	}}
}

func (c *Controller) onPairingErrorLocked(ev realtime.PairingErrorEvent) {
	c.status.Reason = fmt.Sprintf("pairing error: %s", ev.Message())
}

func (c *Controller) onConnectErrorLocked(err error) {
	c.status.Code = CodeError
	c.status.Reason = err.Error()
	c.status.Account = nil
}

// onSessionCleaned resets like Logout. The socket delivering the event is
// torn down on another goroutine since Disconnect waits for callbacks.
func (c *Controller) onSessionCleaned(seq uint64) {
	c.mu.Lock()
	if c.supersededLocked(seq) {
		c.mu.Unlock()
		return
	}
	sock := c.resetLocked()
	c.mu.Unlock()

	c.logger.Info("session cleaned by server")
	c.notify()
	if sock != nil {
		go sock.Disconnect()
	}
}

// refreshToken re-calls connect for a fresh realtime token. The pairing phone
// is sent again so the server keeps the attempt in pairing-code mode.
func (c *Controller) refreshToken(ctx context.Context, seq uint64, orgID, pairingPhone string) (string, error) {
	c.mu.Lock()
	if c.supersededLocked(seq) {
		c.mu.Unlock()
		return "", context.Canceled
	}
	clientID := c.clientID
	c.mu.Unlock()

	resp, err := c.api.Connect(ctx, orgID, api.ConnectRequest{ClientID: clientID, PairingPhone: pairingPhone})
	if err != nil {
		return "", err
	}
	return resp.WS.Token, nil
}
