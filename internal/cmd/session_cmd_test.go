package cmd

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wactl-dev/wactl/internal/config"
	"github.com/wactl-dev/wactl/internal/devserver"
	"github.com/wactl-dev/wactl/internal/session"
)

// newTestApp points the commands at a dev server through WACTL_* variables
// from an empty working directory.
func newTestApp(t *testing.T, scfg devserver.Config) (*app, *devserver.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	scfg.Token = "dev-token"
	srv := devserver.New(scfg)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		hs.Close()
	})

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("WACTL_API_URL", hs.URL)
	t.Setenv("WACTL_TOKEN", "dev-token")
	t.Setenv("WACTL_ORG_ID", "org-1")
	t.Setenv("WACTL_CLIENT_ID", "")
	t.Setenv("WACTL_LOG_FILE", filepath.Join(dir, "wactl.log"))

	a, err := newApp()
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, srv
}

func TestNewApp_RequiresConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WACTL_TOKEN", "")
	t.Setenv("WACTL_ORG_ID", "")

	_, err := newApp()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization.id")
}

func TestWaitReady_PairsAndRemembersClientID(t *testing.T) {
	a, srv := newTestApp(t, devserver.Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		for ctx.Err() == nil {
			if srv.Scan("org-1") == nil {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	err := waitReady(ctx, a, pairingOutput{}, func() error {
		a.ctrl.Connect(ctx, session.ConnectOptions{})
		return nil
	})
	require.NoError(t, err)

	snap := a.ctrl.Snapshot()
	assert.Equal(t, session.CodeReady, snap.Code)
	require.NotEmpty(t, snap.ClientID)

	local, err := config.LoadLocalFromPath(a.cfg.LocalConfigPath())
	require.NoError(t, err)
	assert.Equal(t, snap.ClientID, local.Organization.ClientID)
}

func TestWaitReady_ReportsQRTimeout(t *testing.T) {
	a, _ := newTestApp(t, devserver.Config{QRTTL: 200 * time.Millisecond, QRRotations: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := pairingOutput{pngPath: filepath.Join(t.TempDir(), "qr.png")}
	err := waitReady(ctx, a, out, func() error {
		a.ctrl.Connect(ctx, session.ConnectOptions{})
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qr_timeout")
	assert.FileExists(t, out.pngPath)
}

func TestFirstQR(t *testing.T) {
	a, _ := newTestApp(t, devserver.Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := firstQR(ctx, a)
	require.NoError(t, err)
	require.NotNil(t, snap.Artifact.QR)
	assert.Equal(t, 1, snap.Artifact.QR.Seq)
}

func TestDevScan_NoSession(t *testing.T) {
	a, _ := newTestApp(t, devserver.Config{})
	err := a.client.DevScan(context.Background(), "org-1")
	require.Error(t, err)
}
