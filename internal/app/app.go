package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"leadcore/internal/config"
	"leadcore/internal/logger"
	"leadcore/internal/preset"
	apihttp "leadcore/internal/transport/http/api"
)

// App wires configuration into the preset registry, the lead relay and the
// HTTP server, and drives their lifecycle.
type App struct {
	cfg     *config.Config
	presets *preset.Registry
	server  *apihttp.Server
}

// NewApp builds the application from configuration (does not start it).
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.server == nil {
		return fmt.Errorf("http server not initialized")
	}

	logger.Infof("leadcore listening addr=%s env=%s webhook_enabled=%v",
		a.server.Addr(), a.cfg.App.Env, a.cfg.Webhook.Enabled)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("api http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Presets exposes the registry (for testing/replay harnesses).
func (a *App) Presets() *preset.Registry {
	if a == nil {
		return nil
	}
	return a.presets
}
