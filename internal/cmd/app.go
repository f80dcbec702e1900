package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wactl-dev/wactl/internal/api"
	"github.com/wactl-dev/wactl/internal/config"
	"github.com/wactl-dev/wactl/internal/logging"
	"github.com/wactl-dev/wactl/internal/realtime"
	"github.com/wactl-dev/wactl/internal/session"
)

// app bundles what the session commands run with.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	client *api.Client
	ctrl   *session.Controller
}

// loadConfig resolves the configuration and checks it is complete.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (run 'wactl config init' or set WACTL_* variables)", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	lc := logging.DefaultConfig()
	if cfg.Logging.File != "" {
		lc.File = cfg.Logging.File
	}
	lc.Level = cfg.Logging.Level
	if IsVerbose() || cfg.IsVerbose() {
		lc.Level = "debug"
	}
	return logging.NewOrNop(lc)
}

// newApp wires the API client, realtime opener and session controller.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Token,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout))

	opener := realtime.NewOpener(logger, cfg.Realtime.ReconnectInitial, cfg.Realtime.ReconnectMax)

	localPath := cfg.LocalConfigPath()
	ctrl := session.New(client, session.RealtimeOpener(opener),
		session.WithLogger(logger),
		session.WithOrg(cfg.Organization.ID),
		session.WithClientID(cfg.Organization.ClientID),
		session.WithStuckAfter(cfg.Realtime.StuckAfter),
		session.WithDefaultCountryCode(cfg.Phone.DefaultCountryCode),
		session.WithClientIDListener(func(id string) {
			if err := config.UpdateLocalClientID(localPath, id); err != nil {
				logger.Warn("failed to remember client id", zap.String("path", localPath), zap.Error(err))
			}
		}),
	)

	logger.Debug("session controller ready",
		zap.String("org", cfg.Organization.ID),
		zap.String("base_url", cfg.API.BaseURL))

	return &app{cfg: cfg, logger: logger, client: client, ctrl: ctrl}, nil
}

// Close disconnects the realtime channel and flushes the log.
func (a *app) Close() {
	a.ctrl.Close()
	_ = a.logger.Sync()
}
