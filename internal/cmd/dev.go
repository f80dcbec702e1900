package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wactl-dev/wactl/internal/api"
	"github.com/wactl-dev/wactl/internal/config"
	"github.com/wactl-dev/wactl/internal/devserver"
	"github.com/wactl-dev/wactl/internal/ui"
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Local backend simulator",
	Long:  `Run a local stand-in for the backend to try wactl without a real phone.`,
}

var devServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the simulated backend",
	Long: `Serve the organization WhatsApp endpoints and the realtime channel on a
local address. Sessions rotate QRs until 'wactl dev scan' pairs them.`,
	Example: `  wactl dev server
  WACTL_API_URL=http://127.0.0.1:8787 WACTL_TOKEN=dev WACTL_ORG_ID=org-1 wactl watch --connect`,
	RunE: runDevServer,
}

var devScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Pair the simulated session as if the QR was scanned",
	RunE:  runDevScan,
}

var (
	devAddr      string
	devToken     string
	devQRTTL     time.Duration
	devRotations int
)

func init() {
	devServerCmd.Flags().StringVar(&devAddr, "addr", "", "Listen address (default from dev_server.addr)")
	devServerCmd.Flags().StringVar(&devToken, "token", "", "Required API token (empty accepts any)")
	devServerCmd.Flags().DurationVar(&devQRTTL, "qr-ttl", 0, "Lifetime of each QR (default from dev_server.qr_ttl)")
	devServerCmd.Flags().IntVar(&devRotations, "rotations", 0, "QRs issued before giving up")
	devCmd.AddCommand(devServerCmd)
	devCmd.AddCommand(devScanCmd)
	rootCmd.AddCommand(devCmd)
}

func runDevServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	scfg := devserver.Config{
		Addr:           cfg.DevServer.Addr,
		Token:          devToken,
		QRTTL:          cfg.DevServer.QRTTL,
		QRRotations:    devRotations,
		TokenTTL:       cfg.DevServer.TokenTTL,
		AllowedOrigins: cfg.DevServer.AllowedOrigins,
	}
	if devAddr != "" {
		scfg.Addr = devAddr
	}
	if devQRTTL > 0 {
		scfg.QRTTL = devQRTTL
	}

	srv := devserver.New(scfg, devserver.WithLogger(logger))

	ctx, cancel := commandContext(cmd, 0)
	defer cancel()

	ui.Successf("Dev server on http://%s", scfg.Addr)
	ui.Info("Pair a waiting session with: wactl dev scan")
	ui.Info("Press Ctrl+C to stop")
	return srv.Run(ctx)
}

func runDevScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := api.NewClient(cfg.API.BaseURL, cfg.API.Token, api.WithTimeout(cfg.API.Timeout))

	ctx, cancel := commandContext(cmd, cfg.API.Timeout)
	defer cancel()

	if err := client.DevScan(ctx, cfg.Organization.ID); err != nil {
		return fmt.Errorf("scan failed: %s", api.Message(err))
	}
	ui.Success("Session paired")
	return nil
}
