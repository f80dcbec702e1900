package session

import (
	"context"
	"sync"
	"time"

	"github.com/wactl-dev/wactl/internal/api"
	"github.com/wactl-dev/wactl/internal/realtime"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// callLog records REST and socket calls in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	l.calls = append(l.calls, s)
	l.mu.Unlock()
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeAPI struct {
	log *callLog

	mu          sync.Mutex
	status      *api.Status
	statusErr   error
	connectResp *api.ConnectResponse
	connectErr  error
	// connectGate, when set, is waited on by the first Connect call.
	connectGate chan struct{}
	connects    int
	connectReqs []api.ConnectRequest
	restartErr  error
	logoutErr   error
	sendErr     error
	sent        []api.SendRequest
}

func newFakeAPI(log *callLog) *fakeAPI {
	return &fakeAPI{
		log: log,
		connectResp: &api.ConnectResponse{
			ClientID: "client-1",
			WS:       api.WSInfo{URL: "/ws", Token: "ws-token", ExpiresIn: 600},
		},
	}
}

func (f *fakeAPI) Status(ctx context.Context, orgID string) (*api.Status, error) {
	f.log.add("status")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.statusErr
}

func (f *fakeAPI) Connect(ctx context.Context, orgID string, in api.ConnectRequest) (*api.ConnectResponse, error) {
	f.log.add("connect")
	f.mu.Lock()
	f.connects++
	f.connectReqs = append(f.connectReqs, in)
	first := f.connects == 1
	gate := f.connectGate
	resp, err := f.connectResp, f.connectErr
	f.mu.Unlock()

	if first && gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	out := *resp
	return &out, nil
}

func (f *fakeAPI) Restart(ctx context.Context, orgID, clientID string) error {
	f.log.add("restart")
	return f.restartErr
}

func (f *fakeAPI) Logout(ctx context.Context, orgID, clientID string) error {
	f.log.add("logout")
	return f.logoutErr
}

func (f *fakeAPI) Send(ctx context.Context, orgID string, in api.SendRequest) (*api.SendResponse, error) {
	f.log.add("send")
	f.mu.Lock()
	f.sent = append(f.sent, in)
	f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &api.SendResponse{OK: true}, nil
}

func (f *fakeAPI) RealtimeURL(raw string) (string, error) {
	return api.ResolveRealtimeURL("http://backend.test", raw)
}

// fakeSocket behaves like a realtime handle: after Disconnect no handler runs.
type fakeSocket struct {
	opts realtime.Options

	mu     sync.Mutex
	closed bool
}

func (s *fakeSocket) Disconnect() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *fakeSocket) live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *fakeSocket) deliver(fn func(h realtime.Handlers)) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		fn(s.opts.Handlers)
	}
}

type fakeOpener struct {
	log *callLog

	mu      sync.Mutex
	sockets []*fakeSocket
}

func (o *fakeOpener) Open(ctx context.Context, opts realtime.Options) (Socket, error) {
	o.log.add("open")
	s := &fakeSocket{opts: opts}
	o.mu.Lock()
	o.sockets = append(o.sockets, s)
	o.mu.Unlock()
	return s, nil
}

func (o *fakeOpener) all() []*fakeSocket {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeSocket(nil), o.sockets...)
}

func (o *fakeOpener) liveSockets() []*fakeSocket {
	var out []*fakeSocket
	for _, s := range o.all() {
		if s.live() {
			out = append(out, s)
		}
	}
	return out
}

// broadcast simulates the server pushing an event to every open socket.
func (o *fakeOpener) broadcast(fn func(h realtime.Handlers)) {
	for _, s := range o.all() {
		s.deliver(fn)
	}
}
