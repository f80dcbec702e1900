package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wactl-dev/wactl/internal/api"
	"github.com/wactl-dev/wactl/internal/phone"
	"github.com/wactl-dev/wactl/internal/realtime"
)

// API is the part of the REST client the controller uses.
type API interface {
	Status(ctx context.Context, orgID string) (*api.Status, error)
	Connect(ctx context.Context, orgID string, in api.ConnectRequest) (*api.ConnectResponse, error)
	Restart(ctx context.Context, orgID, clientID string) error
	Logout(ctx context.Context, orgID, clientID string) error
	Send(ctx context.Context, orgID string, in api.SendRequest) (*api.SendResponse, error)
	RealtimeURL(raw string) (string, error)
}

// Socket is a live realtime channel.
type Socket interface {
	Disconnect()
}

// Opener opens realtime channels.
type Opener interface {
	Open(ctx context.Context, opts realtime.Options) (Socket, error)
}

// RealtimeOpener adapts a realtime.Opener.
func RealtimeOpener(o *realtime.Opener) Opener {
	return realtimeOpener{o}
}

type realtimeOpener struct {
	o *realtime.Opener
}

func (r realtimeOpener) Open(ctx context.Context, opts realtime.Options) (Socket, error) {
	h, err := r.o.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOrg sets the organization whose session is mirrored.
func WithOrg(orgID string) Option {
	return func(c *Controller) { c.orgID = orgID }
}

// WithClientID sets the remembered session client id.
func WithClientID(id string) Option {
	return func(c *Controller) { c.clientID = id }
}

// WithStuckAfter overrides DefaultStuckAfter.
func WithStuckAfter(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.stuckAfter = d
		}
	}
}

// WithTickInterval sets how often subscribers are refreshed while a
// countdown is running.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.tickEvery = d
		}
	}
}

// WithDefaultCountryCode is prepended to national phone numbers.
func WithDefaultCountryCode(cc string) Option {
	return func(c *Controller) { c.countryCode = cc }
}

// WithClientIDListener is called whenever a new client id is adopted.
func WithClientIDListener(fn func(string)) Option {
	return func(c *Controller) { c.onClientID = fn }
}

// Controller owns the status of one organization's session.
//
// Subscribers are called outside the controller lock but must not call
// Connect, Restart, Logout or Close synchronously.
type Controller struct {
	api    API
	opener Opener
	logger *zap.Logger
	now    func() time.Time

	stuckAfter  time.Duration
	tickEvery   time.Duration
	countryCode string
	onClientID  func(string)

	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.Mutex
	orgID           string
	clientID        string
	status          Status
	connectingSince time.Time
	handle          Socket
	seq             uint64
	closed          bool
	tickStop        chan struct{}

	notifyMu sync.Mutex
	subs     map[int]func(Snapshot)
	nextSub  int
}

// New creates a controller. The status starts as connecting.
func New(client API, opener Opener, opts ...Option) *Controller {
	c := &Controller{
		api:        client,
		opener:     opener,
		logger:     zap.NewNop(),
		now:        time.Now,
		stuckAfter: DefaultStuckAfter,
		tickEvery:  time.Second,
		subs:       make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.status = Status{Code: CodeConnecting}
	c.connectingSince = c.now()

	c.mu.Lock()
	c.updateTickerLocked()
	c.mu.Unlock()
	return c
}

// Snapshot returns the current status and derived signals.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	now := c.now()
	st := c.status
	if st.Account != nil {
		acc := *st.Account
		st.Account = &acc
	}
	return Snapshot{
		Status:          st,
		TTL:             TTL(st.Artifact.ExpiresAt(), now),
		Stuck:           Stuck(st.Code, c.connectingSince, now, c.stuckAfter),
		OrgID:           c.orgID,
		ClientID:        c.clientID,
		ConnectingSince: c.connectingSince,
		Live:            c.handle != nil,
	}
}

// Subscribe registers fn for every status change and countdown tick.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.notifyMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.notifyMu.Unlock()

	return func() {
		c.notifyMu.Lock()
		delete(c.subs, id)
		c.notifyMu.Unlock()
	}
}

func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if len(c.subs) == 0 {
		return
	}
	snap := c.Snapshot()
	for _, fn := range c.subs {
		fn(snap)
	}
}

// Preload fetches the status over REST. It does nothing until an
// organization is known.
func (c *Controller) Preload(ctx context.Context) {
	c.fetch(ctx, "preload", func(error) string { return ReasonStatusFetchFailed })
}

// Recheck re-fetches the status over REST, independent of the socket.
func (c *Controller) Recheck(ctx context.Context) {
	c.fetch(ctx, "recheck", func(err error) string {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return ReasonStatusFetchFailed
	})
}

func (c *Controller) fetch(ctx context.Context, op string, reason func(error) string) {
	orgID := c.org()
	if orgID == "" {
		return
	}

	st, err := c.api.Status(ctx, orgID)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	adopted := ""
	switch {
	case err != nil:
		c.logger.Warn("status fetch failed", zap.String("op", op), zap.Error(err))
		c.status.Code = CodeError
		c.status.Reason = reason(err)
		c.status.Account = nil
	case !st.Found:
		c.status.Code = CodeDisconnected
		c.status.Reason = ReasonNotFound
		c.status.Account = nil
	default:
		c.applyStatusLocked(st.Code, st.Reason, accountFromAPI(st.Me))
		if st.ClientID != "" && c.clientID == "" {
			c.clientID = st.ClientID
			adopted = st.ClientID
		}
	}
	c.updateTickerLocked()
	c.mu.Unlock()

	c.notify()
	c.persistClientID(adopted)
}

// Connect opens a fresh realtime channel, replacing any live one. Failures
// end up in the status; nothing is returned.
func (c *Controller) Connect(ctx context.Context, opts ConnectOptions) {
	c.mu.Lock()
	if c.closed || c.orgID == "" {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	orgID := c.orgID
	clientID := c.clientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	c.mu.Unlock()

	if opts.ForceFresh {
		if err := c.api.Logout(ctx, orgID, clientID); err != nil {
			c.logger.Info("logout before fresh connect failed", zap.Error(err))
		}
	}

	c.mu.Lock()
	if c.supersededLocked(seq) {
		c.mu.Unlock()
		return
	}
	c.status.Artifact = Artifact{}
	c.status.Account = nil
	c.status.Code = CodeConnecting
	c.status.Reason = ""
	c.connectingSince = c.now()
	old := c.handle
	c.handle = nil
	c.updateTickerLocked()
	c.mu.Unlock()

	c.notify()
	if old != nil {
		old.Disconnect()
	}

	pairingPhone := ""
	if opts.PairingPhone != "" {
		p, err := phone.Normalize(opts.PairingPhone, c.countryCode)
		if err != nil {
			c.fail(seq, fmt.Sprintf("invalid pairing phone: %v", err))
			return
		}
		pairingPhone = p
	}

	resp, err := c.api.Connect(ctx, orgID, api.ConnectRequest{ClientID: clientID, PairingPhone: pairingPhone})
	if err != nil {
		c.fail(seq, api.Message(err))
		return
	}
	wsURL, err := c.api.RealtimeURL(resp.WS.URL)
	if err != nil {
		c.fail(seq, err.Error())
		return
	}

	effective := clientID
	if resp.ClientID != "" {
		effective = resp.ClientID
	}

	c.mu.Lock()
	if c.supersededLocked(seq) {
		c.mu.Unlock()
		return
	}
	changed := effective != c.clientID
	c.clientID = effective
	c.mu.Unlock()

	if changed {
		c.logger.Info("client id changed", zap.String("client_id", effective))
		c.persistClientID(effective)
	}

	sock, err := c.opener.Open(c.ctx, realtime.Options{
		URL:       wsURL,
		Token:     resp.WS.Token,
		SessionID: effective,
		Handlers:  c.handlers(seq, orgID, pairingPhone),
	})
	if err != nil {
		c.fail(seq, err.Error())
		return
	}

	c.mu.Lock()
	if c.supersededLocked(seq) {
		c.mu.Unlock()
		sock.Disconnect()
		return
	}
	prev := c.handle
	c.handle = sock
	c.mu.Unlock()

	if prev != nil {
		prev.Disconnect()
	}
	c.notify()
}

// Restart asks the backend to restart the session and then reconnects,
// whether or not the restart succeeded. The restart error is returned.
func (c *Controller) Restart(ctx context.Context) error {
	orgID, clientID := c.ids()
	if orgID == "" {
		return nil
	}
	err := c.api.Restart(ctx, orgID, clientID)
	if err != nil {
		c.logger.Warn("restart failed", zap.Error(err))
	}
	c.Connect(ctx, ConnectOptions{})
	return err
}

// Logout ends the session on the backend and resets the status to empty,
// whether or not the call succeeded. The logout error is returned.
func (c *Controller) Logout(ctx context.Context) error {
	orgID, clientID := c.ids()
	if orgID == "" {
		return nil
	}
	err := c.api.Logout(ctx, orgID, clientID)
	if err != nil {
		c.logger.Warn("logout failed", zap.Error(err))
	}
	c.mu.Lock()
	sock := c.resetLocked()
	c.mu.Unlock()

	c.notify()
	if sock != nil {
		sock.Disconnect()
	}
	return err
}

// SendTestMessage sends message to a phone number through the session. It
// does nothing until both organization and client id are known.
func (c *Controller) SendTestMessage(ctx context.Context, to, message string) error {
	orgID, clientID := c.ids()
	if orgID == "" || clientID == "" {
		return nil
	}
	normalized, err := phone.Normalize(to, c.countryCode)
	if err != nil {
		return err
	}
	_, err = c.api.Send(ctx, orgID, api.SendRequest{ClientID: clientID, Phone: normalized, Message: message})
	return err
}

// Close tears down the live channel and stops timers. Later events are
// ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.seq++
	sock := c.handle
	c.handle = nil
	c.stopTickerLocked()
	c.mu.Unlock()

	c.cancel()
	if sock != nil {
		sock.Disconnect()
	}
}

// resetLocked empties the status, invalidates pending attempts and returns
// the detached socket.
func (c *Controller) resetLocked() Socket {
	c.seq++
	c.status = EmptyStatus()
	c.connectingSince = time.Time{}
	sock := c.handle
	c.handle = nil
	c.updateTickerLocked()
	return sock
}

func (c *Controller) fail(seq uint64, reason string) {
	c.mu.Lock()
	if c.supersededLocked(seq) {
		c.mu.Unlock()
		return
	}
	c.logger.Warn("connect failed", zap.String("reason", reason))
	c.status.Code = CodeError
	c.status.Reason = reason
	c.status.Account = nil
	c.updateTickerLocked()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) supersededLocked(seq uint64) bool {
	return c.closed || seq != c.seq
}

func (c *Controller) org() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orgID
}

func (c *Controller) ids() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orgID, c.clientID
}

func (c *Controller) persistClientID(id string) {
	if id == "" || c.onClientID == nil {
		return
	}
	c.onClientID(id)
}

func accountFromAPI(me *api.Me) *Account {
	if me == nil {
		return nil
	}
	return &Account{ID: me.ID, Name: me.Name}
}

func (c *Controller) updateTickerLocked() {
	if c.needsTickLocked() {
		if c.tickStop == nil && !c.closed {
			stop := make(chan struct{})
			c.tickStop = stop
			go c.tickLoop(stop)
		}
		return
	}
	c.stopTickerLocked()
}

func (c *Controller) stopTickerLocked() {
	if c.tickStop != nil {
		close(c.tickStop)
		c.tickStop = nil
	}
}

// needsTickLocked reports whether a derived signal can still change with
// time alone.
func (c *Controller) needsTickLocked() bool {
	if c.status.Code == CodeConnecting {
		return true
	}
	exp := c.status.Artifact.ExpiresAt()
	return !exp.IsZero() && c.now().Before(exp)
}

func (c *Controller) tickLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Controller) tick() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.updateTickerLocked()
	c.mu.Unlock()
	c.notify()
}
