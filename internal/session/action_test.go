package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideAction(t *testing.T) {
	tests := []struct {
		name      string
		code      Code
		reason    string
		ttl       int
		stuck     bool
		wantLabel string
		wantKind  ActionKind
		wantFresh bool
	}{
		{name: "qr expired", code: CodeWaitingQR, ttl: 0, wantLabel: "Regenerate QR", wantKind: ActionRegenerateQR},
		{name: "qr active", code: CodeWaitingQR, ttl: 7, wantLabel: "Show QR (active)", wantKind: ActionShowQR},
		{name: "qr wins over stuck", code: CodeWaitingQR, ttl: 3, stuck: true, wantLabel: "Show QR (active)", wantKind: ActionShowQR},
		{name: "disconnected", code: CodeDisconnected, wantLabel: "Connect and show QR", wantKind: ActionConnect},
		{name: "not found reason", code: CodeConnecting, reason: ReasonNotFound, stuck: true, wantLabel: "Connect and show QR", wantKind: ActionConnect},
		{name: "auth failure forces fresh", code: CodeAuthFailure, wantLabel: "Connect and show QR", wantKind: ActionConnect, wantFresh: true},
		{name: "error", code: CodeError, reason: "boom", wantLabel: "Retry", wantKind: ActionRetry},
		{name: "stuck connecting", code: CodeConnecting, stuck: true, wantLabel: "Force new session", wantKind: ActionForceNew, wantFresh: true},
		{name: "connecting", code: CodeConnecting, wantLabel: "Connect / Show QR", wantKind: ActionDefault},
		{name: "authenticated", code: CodeAuthenticated, wantLabel: "Connect / Show QR", wantKind: ActionDefault},
		{name: "stuck flag on other codes", code: CodeReconnecting, stuck: true, wantLabel: "Force new session", wantKind: ActionForceNew, wantFresh: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called []ConnectOptions
			action := DecideAction(tt.code, tt.reason, tt.ttl, tt.stuck, func(o ConnectOptions) {
				called = append(called, o)
			})
			require.NotNil(t, action)
			assert.Equal(t, tt.wantLabel, action.Label)
			assert.Equal(t, tt.wantKind, action.Kind)

			action.Run()
			require.Len(t, called, 1)
			assert.Equal(t, tt.wantFresh, called[0].ForceFresh)
		})
	}
}

func TestDecideAction_ReadyHasNoAction(t *testing.T) {
	assert.Nil(t, DecideAction(CodeReady, "", 0, true, func(ConnectOptions) {}))
}

func TestDecideAction_NilConnect(t *testing.T) {
	action := DecideAction(CodeError, "", 0, false, nil)
	require.NotNil(t, action)
	assert.NotPanics(t, action.Run)
}
