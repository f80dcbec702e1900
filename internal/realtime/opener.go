package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024
)

var (
	// ErrMissingURL is returned by Open when no endpoint is given.
	ErrMissingURL = errors.New("realtime: endpoint url is required")
	// ErrMissingToken is returned by Open when no auth token is given.
	ErrMissingToken = errors.New("realtime: auth token is required")
)

// Handlers receive server events. Every field is optional.
//
// Callbacks run on the connection's reader goroutine, one at a time.
type Handlers struct {
	OnConnected      func()
	OnStatus         func(StatusEvent)
	OnQR             func(QREvent)
	OnPairingCode    func(PairingCodeEvent)
	OnPairingError   func(PairingErrorEvent)
	OnSessionCleaned func()
	OnConnectError   func(error)

	// RefreshToken is called before every reconnect attempt. A failed
	// refresh is ignored and the attempt proceeds with the previous token.
	RefreshToken func(ctx context.Context) (string, error)
}

// Options describe one session channel.
type Options struct {
	URL string
	// Token is sent only as a bearer Authorization header so it stays out
	// of URLs and access logs.
	Token     string
	SessionID string
	Handlers  Handlers
}

// Opener opens session channels. The zero value is usable.
type Opener struct {
	Dialer *websocket.Dialer
	Logger *zap.Logger

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxAttempts bounds consecutive failed dials; zero retries forever.
	MaxAttempts int
}

// NewOpener creates an Opener with the given reconnect window.
func NewOpener(logger *zap.Logger, initial, max time.Duration) *Opener {
	return &Opener{
		Dialer:         websocket.DefaultDialer,
		Logger:         logger,
		InitialBackoff: initial,
		MaxBackoff:     max,
	}
}

// Open starts connecting in the background and returns immediately.
// Transport failures are reported through Handlers.OnConnectError; the
// returned error only covers missing arguments.
func (o *Opener) Open(ctx context.Context, opts Options) (*Handle, error) {
	if opts.URL == "" {
		return nil, ErrMissingURL
	}
	if opts.Token == "" {
		return nil, ErrMissingToken
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, fmt.Errorf("realtime: invalid endpoint url: %w", err)
	}

	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := o.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	hctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		opts:     opts,
		token:    opts.Token,
		dialer:   dialer,
		logger:   logger.With(zap.String("session", opts.SessionID)),
		backoff:  o.newBackoff(),
		maxTries: o.MaxAttempts,
		ctx:      hctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go h.run()
	return h, nil
}

func (o *Opener) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if o.InitialBackoff > 0 {
		b.InitialInterval = o.InitialBackoff
	}
	if o.MaxBackoff > 0 {
		b.MaxInterval = o.MaxBackoff
	}
	b.Reset()
	return b
}

// Handle is one live session channel.
type Handle struct {
	opts     Options
	dialer   *websocket.Dialer
	logger   *zap.Logger
	backoff  *backoff.ExponentialBackOff
	maxTries int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	// dispatchMu is held for reading while a callback runs and for writing
	// while Disconnect deregisters, so no callback starts afterwards.
	dispatchMu sync.RWMutex
	closed     bool

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	tokenMu sync.Mutex
	token   string
}

// Done is closed once the connection goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Disconnect deregisters all handlers and closes the transport. It is safe
// to call more than once. It must not be called synchronously from inside a
// handler callback.
func (h *Handle) Disconnect() {
	h.once.Do(func() {
		h.cancel()

		h.dispatchMu.Lock()
		h.closed = true
		h.dispatchMu.Unlock()

		h.connMu.Lock()
		conn := h.conn
		h.conn = nil
		h.connMu.Unlock()

		if conn != nil {
			h.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			h.writeMu.Unlock()
			_ = conn.Close()
		}
		h.logger.Debug("realtime channel disconnected")
	})
}

// run dials, serves and redials until Disconnect.
func (h *Handle) run() {
	defer close(h.done)

	failures := 0
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			wait := h.backoff.NextBackOff()
			if wait == backoff.Stop {
				return
			}
			h.logger.Debug("realtime reconnect scheduled", zap.Duration("in", wait), zap.Int("attempt", attempt))
			select {
			case <-h.ctx.Done():
				return
			case <-time.After(wait):
			}
			h.refreshToken()
		}

		if h.ctx.Err() != nil {
			return
		}

		conn, err := h.dial()
		if err != nil {
			if h.ctx.Err() != nil {
				return
			}
			failures++
			h.logger.Warn("realtime connect failed", zap.Error(err), zap.Int("failures", failures))
			h.dispatch(func(hd Handlers) {
				if hd.OnConnectError != nil {
					hd.OnConnectError(err)
				}
			})
			if h.maxTries > 0 && failures >= h.maxTries {
				return
			}
			continue
		}

		failures = 0
		h.backoff.Reset()

		err = h.serve(conn)
		if h.ctx.Err() != nil {
			return
		}
		h.logger.Info("realtime connection lost", zap.Error(err))
	}
}

func (h *Handle) refreshToken() {
	var fresh string
	var err error
	ran := false
	h.dispatch(func(hd Handlers) {
		if hd.RefreshToken == nil {
			return
		}
		ran = true
		fresh, err = hd.RefreshToken(h.ctx)
	})
	if !ran {
		return
	}
	if err != nil || fresh == "" {
		h.logger.Debug("token refresh failed, reusing previous token", zap.Error(err))
		return
	}
	h.tokenMu.Lock()
	h.token = fresh
	h.tokenMu.Unlock()
}

func (h *Handle) currentToken() string {
	h.tokenMu.Lock()
	defer h.tokenMu.Unlock()
	return h.token
}

func (h *Handle) dial() (*websocket.Conn, error) {
	token := h.currentToken()

	u, err := url.Parse(h.opts.URL)
	if err != nil {
		return nil, err
	}
	if h.opts.SessionID != "" {
		q := u.Query()
		q.Set("clientId", h.opts.SessionID)
		u.RawQuery = q.Encode()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := h.dialer.DialContext(h.ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", h.opts.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", h.opts.URL, err)
	}
	return conn, nil
}

// serve joins the session channel and reads frames until the connection ends.
func (h *Handle) serve(conn *websocket.Conn) error {
	h.connMu.Lock()
	if h.ctx.Err() != nil {
		h.connMu.Unlock()
		_ = conn.Close()
		return h.ctx.Err()
	}
	h.conn = conn
	h.connMu.Unlock()

	defer func() {
		h.connMu.Lock()
		if h.conn == conn {
			h.conn = nil
		}
		h.connMu.Unlock()
		_ = conn.Close()
	}()

	if err := h.write(conn, EventJoin, JoinRequest{ClientID: h.opts.SessionID}); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	h.logger.Info("realtime channel joined")

	h.dispatch(func(hd Handlers) {
		if hd.OnConnected != nil {
			hd.OnConnected()
		}
	})

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go h.pingLoop(conn, stop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		h.handleFrame(data)
	}
}

func (h *Handle) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			h.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *Handle) write(conn *websocket.Conn, event string, data interface{}) error {
	payload, err := EncodeFrame(event, data)
	if err != nil {
		return err
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *Handle) handleFrame(data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		h.logger.Warn("dropping malformed frame", zap.Error(err))
		return
	}

	switch f.Event {
	case EventStatus:
		var ev StatusEvent
		if !h.decode(f, &ev) {
			return
		}
		h.dispatch(func(hd Handlers) {
			if hd.OnStatus != nil {
				hd.OnStatus(ev)
			}
		})
	case EventQR:
		var ev QREvent
		if !h.decode(f, &ev) {
			return
		}
		h.dispatch(func(hd Handlers) {
			if hd.OnQR != nil {
				hd.OnQR(ev)
			}
		})
	case EventPairingCode:
		var ev PairingCodeEvent
		if !h.decode(f, &ev) {
			return
		}
		h.dispatch(func(hd Handlers) {
			if hd.OnPairingCode != nil {
				hd.OnPairingCode(ev)
			}
		})
	case EventPairingError:
		var ev PairingErrorEvent
		if !h.decode(f, &ev) {
			return
		}
		h.dispatch(func(hd Handlers) {
			if hd.OnPairingError != nil {
				hd.OnPairingError(ev)
			}
		})
	case EventSessionCleaned:
		h.dispatch(func(hd Handlers) {
			if hd.OnSessionCleaned != nil {
				hd.OnSessionCleaned()
			}
		})
	default:
		h.logger.Debug("ignoring unknown event", zap.String("event", f.Event))
	}
}

func (h *Handle) decode(f Frame, v interface{}) bool {
	if len(f.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		h.logger.Warn("dropping undecodable event", zap.String("event", f.Event), zap.Error(err))
		return false
	}
	return true
}

// dispatch runs fn unless the handle has been disconnected.
func (h *Handle) dispatch(fn func(Handlers)) {
	h.dispatchMu.RLock()
	defer h.dispatchMu.RUnlock()
	if h.closed {
		return
	}
	fn(h.opts.Handlers)
}
