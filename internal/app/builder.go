package app

import (
	"context"
	"fmt"

	"leadcore/internal/config"
	"leadcore/internal/logger"
	"leadcore/internal/preset"
	"leadcore/internal/relay"
	apihttp "leadcore/internal/transport/http/api"
)

// AppBuilder assembles the application. The function-valued providers exist
// as test seams.
type AppBuilder struct {
	cfg *config.Config

	presetRegistryFn func(string) (*preset.Registry, error)
	relayFn          func(config.WebhookConfig) *relay.Relay
	serverFn         func(config.AppConfig, apihttp.LeadRelay, apihttp.PresetSource) (*apihttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:              cfg,
		presetRegistryFn: preset.NewRegistry,
		relayFn:          relay.New,
		serverFn:         buildAPIServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildAPIServer(appCfg config.AppConfig, lr apihttp.LeadRelay, ps apihttp.PresetSource) (*apihttp.Server, error) {
	return apihttp.NewServer(apihttp.ServerConfig{
		Addr:    appCfg.HTTPAddr,
		Relay:   lr,
		Presets: ps,
	})
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	registry, err := b.presetRegistryFn(b.cfg.Funnel.PresetsPath)
	if err != nil {
		return nil, fmt.Errorf("loading funnel presets failed: %w", err)
	}
	registry.OnChange(func(snap preset.Snapshot) {
		logger.Infof("funnel presets reloaded version=%d count=%d", snap.Version, len(snap.Presets))
	})

	// Built even when the webhook is disabled: a submission against an
	// unconfigured relay surfaces as a clear relay failure, not a 404.
	leadRelay := b.relayFn(b.cfg.Webhook)
	if !b.cfg.Webhook.Enabled {
		logger.Warnf("webhook disabled: lead submissions will be rejected")
	}

	server, err := b.serverFn(b.cfg.App, leadRelay, registry)
	if err != nil {
		return nil, fmt.Errorf("building api server failed: %w", err)
	}

	return &App{
		cfg:     b.cfg,
		presets: registry,
		server:  server,
	}, nil
}
