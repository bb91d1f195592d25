//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"leadcore/internal/config"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config) (*App, error) {
	panic(wire.Build(
		provideAppBuilder,
		provideAppFromBuilder,
	))
}
