package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wactl-dev/wactl/internal/api"
	"github.com/wactl-dev/wactl/internal/phone"
	"github.com/wactl-dev/wactl/internal/realtime"
)

type harness struct {
	c      *Controller
	api    *fakeAPI
	opener *fakeOpener
	clock  *fakeClock
	log    *callLog
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	log := &callLog{}
	h := &harness{
		api:    newFakeAPI(log),
		opener: &fakeOpener{log: log},
		clock:  newFakeClock(),
		log:    log,
	}
	base := []Option{
		WithClock(h.clock.Now),
		WithOrg("org-1"),
		WithTickInterval(time.Hour),
	}
	h.c = New(h.api, h.opener, append(base, opts...)...)
	t.Cleanup(h.c.Close)
	return h
}

func (h *harness) connect(opts ConnectOptions) {
	h.c.Connect(context.Background(), opts)
}

func (h *harness) push(fn func(realtime.Handlers)) {
	h.opener.broadcast(fn)
}

func pushStatus(code string, me *realtime.Me) func(realtime.Handlers) {
	return func(hd realtime.Handlers) {
		hd.OnStatus(realtime.StatusEvent{Code: code, Me: me})
	}
}

func TestNew_StartsConnecting(t *testing.T) {
	h := newHarness(t)
	snap := h.c.Snapshot()

	assert.Equal(t, CodeConnecting, snap.Code)
	assert.Equal(t, h.clock.Now(), snap.ConnectingSince)
	assert.False(t, snap.Stuck)
	assert.False(t, snap.Live)
}

func TestPreload_ReadyWithAccount(t *testing.T) {
	h := newHarness(t)
	h.api.status = &api.Status{Found: true, Code: "ready", Me: &api.Me{ID: "u1", Name: "Biz"}}

	h.c.Preload(context.Background())

	snap := h.c.Snapshot()
	assert.Equal(t, CodeReady, snap.Code)
	assert.Equal(t, &Account{ID: "u1", Name: "Biz"}, snap.Account)
	assert.True(t, snap.Artifact.Empty())
}

func TestPreload_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     *api.Status
		err        error
		wantCode   Code
		wantReason string
	}{
		{
			name:       "fetch failed",
			err:        errors.New("connection refused"),
			wantCode:   CodeError,
			wantReason: ReasonStatusFetchFailed,
		},
		{
			name:       "server message is not used on preload",
			err:        &api.APIError{StatusCode: 500, Message: "db down"},
			wantCode:   CodeError,
			wantReason: ReasonStatusFetchFailed,
		},
		{
			name:       "no session",
			status:     &api.Status{Found: false},
			wantCode:   CodeDisconnected,
			wantReason: ReasonNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.api.status, h.api.statusErr = tt.status, tt.err

			h.c.Preload(context.Background())

			snap := h.c.Snapshot()
			assert.Equal(t, tt.wantCode, snap.Code)
			assert.Equal(t, tt.wantReason, snap.Reason)
			assert.Nil(t, snap.Account)
		})
	}
}

func TestPreload_WithoutOrgIsNoop(t *testing.T) {
	h := newHarness(t, WithOrg(""))

	h.c.Preload(context.Background())
	h.connect(ConnectOptions{})

	assert.Empty(t, h.log.list())
	assert.Equal(t, CodeConnecting, h.c.Snapshot().Code)
}

func TestPreload_AdoptsClientID(t *testing.T) {
	var persisted []string
	h := newHarness(t, WithClientIDListener(func(id string) { persisted = append(persisted, id) }))
	h.api.status = &api.Status{Found: true, Code: "disconnected", ClientID: "client-7"}

	h.c.Preload(context.Background())

	assert.Equal(t, "client-7", h.c.Snapshot().ClientID)
	assert.Equal(t, []string{"client-7"}, persisted)
}

func TestRecheck_UsesServerMessage(t *testing.T) {
	h := newHarness(t)
	h.api.statusErr = &api.APIError{StatusCode: 503, Message: "session manager offline"}

	h.c.Recheck(context.Background())
	assert.Equal(t, CodeError, h.c.Snapshot().Code)
	assert.Equal(t, "session manager offline", h.c.Snapshot().Reason)

	h.api.statusErr = errors.New("timeout")
	h.c.Recheck(context.Background())
	assert.Equal(t, ReasonStatusFetchFailed, h.c.Snapshot().Reason)

	h.api.statusErr = nil
	h.api.status = &api.Status{Found: true, Code: "waiting_qr"}
	h.c.Recheck(context.Background())
	assert.Equal(t, CodeWaitingQR, h.c.Snapshot().Code)
	assert.Empty(t, h.c.Snapshot().Reason)
}

func TestConnect_OpensSocketAndAdoptsClientID(t *testing.T) {
	var persisted []string
	h := newHarness(t, WithClientIDListener(func(id string) { persisted = append(persisted, id) }))
	h.api.connectResp.ClientID = "client-2"

	h.connect(ConnectOptions{})

	assert.Equal(t, []string{"connect", "open"}, h.log.list())
	sockets := h.opener.all()
	require.Len(t, sockets, 1)
	assert.Equal(t, "ws://backend.test/ws", sockets[0].opts.URL)
	assert.Equal(t, "ws-token", sockets[0].opts.Token)
	assert.Equal(t, "client-2", sockets[0].opts.SessionID)

	snap := h.c.Snapshot()
	assert.Equal(t, CodeConnecting, snap.Code)
	assert.Equal(t, "client-2", snap.ClientID)
	assert.True(t, snap.Live)
	assert.Equal(t, []string{"client-2"}, persisted)
}

func TestConnect_ResetsArtifactAndAccount(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})
	h.push(func(hd realtime.Handlers) {
		hd.OnQR(realtime.QREvent{QR: "2@x", ExpiresAt: h.clock.Now().Add(10 * time.Second).UnixMilli()})
	})
	require.NotNil(t, h.c.Snapshot().Artifact.QR)

	h.clock.Advance(3 * time.Second)
	h.connect(ConnectOptions{})

	snap := h.c.Snapshot()
	assert.True(t, snap.Artifact.Empty())
	assert.Nil(t, snap.Account)
	assert.Zero(t, snap.TTL)
	assert.Equal(t, CodeConnecting, snap.Code)
	assert.Equal(t, h.clock.Now(), snap.ConnectingSince)
}

func TestConnect_ForceFreshLogsOutFirstEvenWhenLogoutFails(t *testing.T) {
	h := newHarness(t)
	h.api.status = &api.Status{Found: true, Code: "auth_failure"}
	h.api.logoutErr = errors.New("logout rejected")
	h.c.Preload(context.Background())

	action := h.c.Snapshot().Action(h.connect)
	require.NotNil(t, action)
	assert.Equal(t, LabelConnect, action.Label)
	assert.True(t, action.Options.ForceFresh)

	action.Run()

	assert.Equal(t, []string{"status", "logout", "connect", "open"}, h.log.list())
	assert.Len(t, h.opener.liveSockets(), 1)
	assert.Equal(t, CodeConnecting, h.c.Snapshot().Code)
}

func TestConnect_FailureSetsError(t *testing.T) {
	h := newHarness(t)
	h.api.connectErr = &api.APIError{StatusCode: 503, Message: "backend busy"}

	h.connect(ConnectOptions{})

	snap := h.c.Snapshot()
	assert.Equal(t, CodeError, snap.Code)
	assert.Equal(t, "backend busy", snap.Reason)
	assert.False(t, snap.Live)
	assert.Empty(t, h.opener.all())
}

func TestConnect_InvalidPairingPhone(t *testing.T) {
	h := newHarness(t)

	h.connect(ConnectOptions{PairingPhone: "12"})

	snap := h.c.Snapshot()
	assert.Equal(t, CodeError, snap.Code)
	assert.Contains(t, snap.Reason, phone.ErrInvalidLength.Error())
	assert.NotContains(t, h.log.list(), "connect")
}

func TestConnect_TwiceLeavesOneLiveSocket(t *testing.T) {
	h := newHarness(t)
	var notified atomic.Int32
	h.c.Subscribe(func(Snapshot) { notified.Add(1) })

	h.connect(ConnectOptions{})
	h.connect(ConnectOptions{})

	require.Len(t, h.opener.all(), 2)
	live := h.opener.liveSockets()
	require.Len(t, live, 1)
	assert.Same(t, h.opener.all()[1], live[0])

	notified.Store(0)
	h.push(func(hd realtime.Handlers) {
		hd.OnPairingCode(realtime.PairingCodeEvent{Code: "1234-5678"})
	})
	assert.Equal(t, int32(1), notified.Load())
}

func TestConnect_OverlappingCallsDiscardSupersededAttempt(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.api.connectGate = gate

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		h.connect(ConnectOptions{})
	}()
	require.Eventually(t, func() bool {
		h.api.mu.Lock()
		defer h.api.mu.Unlock()
		return h.api.connects == 1
	}, 2*time.Second, 5*time.Millisecond)

	h.connect(ConnectOptions{})
	close(gate)
	<-firstDone

	sockets := h.opener.all()
	require.Len(t, sockets, 1)
	assert.True(t, sockets[0].live())
	assert.True(t, h.c.Snapshot().Live)

	var statuses int
	var mu sync.Mutex
	h.c.Subscribe(func(Snapshot) {
		mu.Lock()
		statuses++
		mu.Unlock()
	})
	h.push(pushStatus("waiting_qr", nil))
	assert.Equal(t, 1, statuses)
}

func TestEvents_AccountOnlyWhenReady(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})
	me := &realtime.Me{ID: "u1", Name: "Biz"}

	sequence := []struct {
		code string
		me   *realtime.Me
	}{
		{"authenticated", me},
		{"ready", me},
		{"reconnecting", me},
		{"ready", nil},
		{"ready", me},
		{"disconnected", nil},
		{"auth_failure", me},
		{"ready", me},
		{"error", nil},
	}

	for _, ev := range sequence {
		h.push(pushStatus(ev.code, ev.me))
		snap := h.c.Snapshot()
		assert.Equal(t, Code(ev.code), snap.Code)
		if snap.Account != nil {
			assert.Equal(t, CodeReady, snap.Code, "account kept after %s", ev.code)
		}
		if ev.code == "ready" && ev.me != nil {
			assert.Equal(t, &Account{ID: "u1", Name: "Biz"}, snap.Account)
		}
	}
}

func TestEvents_ArtifactsAreMutuallyExclusive(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})

	h.push(func(hd realtime.Handlers) {
		hd.OnPairingError(realtime.PairingErrorEvent{})
	})
	h.push(func(hd realtime.Handlers) {
		hd.OnQR(realtime.QREvent{QR: "2@a", Seq: 1, ExpiresAt: h.clock.Now().Add(20 * time.Second).UnixMilli()})
	})
	snap := h.c.Snapshot()
	require.NotNil(t, snap.Artifact.QR)
	assert.Nil(t, snap.Artifact.PairingCode)
	assert.Equal(t, CodeWaitingQR, snap.Code)
	assert.Empty(t, snap.Reason)
	assert.Equal(t, 1, snap.Artifact.QR.Seq)

	h.push(func(hd realtime.Handlers) {
		hd.OnPairingCode(realtime.PairingCodeEvent{Code: "ABCD-EFGH", Phone: "34600111222"})
	})
	snap = h.c.Snapshot()
	require.NotNil(t, snap.Artifact.PairingCode)
	assert.Nil(t, snap.Artifact.QR)
	assert.Equal(t, CodeWaitingQR, snap.Code)
	assert.Zero(t, snap.TTL)

	h.push(func(hd realtime.Handlers) {
		hd.OnQR(realtime.QREvent{QR: "2@b", Seq: 2, ReplacesPrevious: true})
	})
	snap = h.c.Snapshot()
	require.NotNil(t, snap.Artifact.QR)
	assert.Nil(t, snap.Artifact.PairingCode)
	assert.True(t, snap.Artifact.QR.ReplacesPrevious)
}

func TestEvents_ReadyClearsArtifact(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})
	h.push(func(hd realtime.Handlers) {
		hd.OnQR(realtime.QREvent{QR: "2@a", ExpiresAt: h.clock.Now().Add(20 * time.Second).UnixMilli()})
	})

	h.push(pushStatus("ready", &realtime.Me{ID: "u1"}))

	snap := h.c.Snapshot()
	assert.True(t, snap.Artifact.Empty())
	assert.Zero(t, snap.TTL)
	assert.Nil(t, DecideAction(snap.Code, snap.Reason, snap.TTL, snap.Stuck, nil))
}

func TestEvents_PairingErrorKeepsCode(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})
	h.push(pushStatus("waiting_qr", nil))

	h.push(func(hd realtime.Handlers) {
		hd.OnPairingError(realtime.PairingErrorEvent{Error: []byte(`"phone not registered"`)})
	})

	snap := h.c.Snapshot()
	assert.Equal(t, CodeWaitingQR, snap.Code)
	assert.Equal(t, "pairing error: phone not registered", snap.Reason)
}

func TestEvents_ConnectErrorAndUnknownCode(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})

	h.push(func(hd realtime.Handlers) { hd.OnConnectError(errors.New("dial tcp: refused")) })
	snap := h.c.Snapshot()
	assert.Equal(t, CodeError, snap.Code)
	assert.Equal(t, "dial tcp: refused", snap.Reason)

	h.push(pushStatus("teleporting", nil))
	assert.Equal(t, CodeError, h.c.Snapshot().Code)
}

func TestTTL_CountsDownToZero(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})
	h.push(func(hd realtime.Handlers) {
		hd.OnQR(realtime.QREvent{QR: "2@a", ExpiresAt: h.clock.Now().Add(5000 * time.Millisecond).UnixMilli()})
	})

	assert.Equal(t, 5, h.c.Snapshot().TTL)

	var seen []int
	for i := 0; i < 6; i++ {
		h.clock.Advance(time.Second)
		h.c.tick()
		seen = append(seen, h.c.Snapshot().TTL)
	}
	assert.Equal(t, []int{4, 3, 2, 1, 0, 0}, seen)

	h.c.mu.Lock()
	ticking := h.c.tickStop != nil
	h.c.mu.Unlock()
	assert.False(t, ticking, "ticker should stop once the QR expired")
}

func TestStuck_AfterTwentySecondsConnecting(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})

	h.clock.Advance(20 * time.Second)
	assert.False(t, h.c.Snapshot().Stuck)

	h.clock.Advance(time.Second)
	snap := h.c.Snapshot()
	assert.True(t, snap.Stuck)

	action := snap.Action(h.connect)
	require.NotNil(t, action)
	assert.Equal(t, LabelForceNew, action.Label)
	assert.True(t, action.Options.ForceFresh)
}

func TestStuck_ResetsWhenConnectingAgain(t *testing.T) {
	h := newHarness(t)
	h.clock.Advance(21 * time.Second)
	assert.True(t, h.c.Snapshot().Stuck)

	h.connect(ConnectOptions{})
	h.push(pushStatus("connecting", nil))
	assert.False(t, h.c.Snapshot().Stuck)
}

func TestSessionCleaned_ResetsToEmpty(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})
	h.push(func(hd realtime.Handlers) {
		hd.OnQR(realtime.QREvent{QR: "2@a", ExpiresAt: h.clock.Now().Add(20 * time.Second).UnixMilli()})
	})

	h.push(func(hd realtime.Handlers) { hd.OnSessionCleaned() })

	snap := h.c.Snapshot()
	assert.Equal(t, EmptyStatus(), snap.Status)
	assert.Zero(t, snap.TTL)
	assert.False(t, snap.Live)
	require.Eventually(t, func() bool { return len(h.opener.liveSockets()) == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestLogout_ResetsEvenWhenRequestFails(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})
	h.push(pushStatus("ready", &realtime.Me{ID: "u1", Name: "Biz"}))
	h.api.logoutErr = errors.New("gateway timeout")

	err := h.c.Logout(context.Background())
	assert.EqualError(t, err, "gateway timeout")

	snap := h.c.Snapshot()
	assert.Equal(t, EmptyStatus(), snap.Status)
	assert.Zero(t, snap.TTL)
	assert.Empty(t, h.opener.liveSockets())

	// The torn down socket no longer affects the status.
	h.push(pushStatus("ready", nil))
	assert.Equal(t, CodeDisconnected, h.c.Snapshot().Code)
}

func TestRestart_AlwaysReconnects(t *testing.T) {
	h := newHarness(t)
	h.api.restartErr = errors.New("restart failed")

	err := h.c.Restart(context.Background())

	assert.EqualError(t, err, "restart failed")
	assert.Equal(t, []string{"restart", "connect", "open"}, h.log.list())
	assert.True(t, h.c.Snapshot().Live)
}

func TestSendTestMessage(t *testing.T) {
	h := newHarness(t, WithDefaultCountryCode("34"))

	// No client id yet: silently skipped.
	require.NoError(t, h.c.SendTestMessage(context.Background(), "600111222", "hi"))
	assert.Empty(t, h.api.sent)

	h.connect(ConnectOptions{})
	require.NoError(t, h.c.SendTestMessage(context.Background(), "600 111 222", "hi"))
	require.Len(t, h.api.sent, 1)
	assert.Equal(t, "34600111222", h.api.sent[0].Phone)
	assert.Equal(t, "client-1", h.api.sent[0].ClientID)

	assert.ErrorIs(t, h.c.SendTestMessage(context.Background(), "abc", "hi"), phone.ErrInvalidCharacters)

	h.api.sendErr = errors.New("not ready")
	assert.EqualError(t, h.c.SendTestMessage(context.Background(), "+34600111222", "hi"), "not ready")
	assert.Equal(t, CodeConnecting, h.c.Snapshot().Code)
}

func TestRefreshToken_RecallsConnect(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})
	h.api.connectResp.WS.Token = "ws-token-2"

	sock := h.opener.all()[0]
	token, err := sock.opts.Handlers.RefreshToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ws-token-2", token)
	require.Len(t, h.api.connectReqs, 2)
	assert.Equal(t, api.ConnectRequest{ClientID: "client-1"}, h.api.connectReqs[1])
}

func TestRefreshToken_KeepsPairingPhone(t *testing.T) {
	h := newHarness(t, WithDefaultCountryCode("34"))
	h.connect(ConnectOptions{PairingPhone: "611 222 333"})

	sock := h.opener.all()[0]
	_, err := sock.opts.Handlers.RefreshToken(context.Background())

	require.NoError(t, err)
	require.Len(t, h.api.connectReqs, 2)
	assert.Equal(t, "34611222333", h.api.connectReqs[0].PairingPhone)
	assert.Equal(t, api.ConnectRequest{ClientID: "client-1", PairingPhone: "34611222333"}, h.api.connectReqs[1])
}

func TestClose_IgnoresLaterEvents(t *testing.T) {
	h := newHarness(t)
	h.connect(ConnectOptions{})
	sock := h.opener.all()[0]

	h.c.Close()
	h.c.Close()

	assert.False(t, sock.live())
	sock.opts.Handlers.OnStatus(realtime.StatusEvent{Code: "ready"})
	assert.Equal(t, CodeConnecting, h.c.Snapshot().Code)

	h.connect(ConnectOptions{})
	assert.Len(t, h.opener.all(), 1)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	h := newHarness(t)
	var got []Code
	unsubscribe := h.c.Subscribe(func(s Snapshot) { got = append(got, s.Code) })

	h.connect(ConnectOptions{})
	h.push(pushStatus("waiting_qr", nil))
	unsubscribe()
	h.push(pushStatus("ready", nil))

	require.NotEmpty(t, got)
	assert.Equal(t, CodeWaitingQR, got[len(got)-1])
}
