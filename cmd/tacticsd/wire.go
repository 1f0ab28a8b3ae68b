//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
)

func initializeApp(ctx context.Context, path ConfigPath) (*App, func(), error) {
	wire.Build(
		provideConfig,
		provideLogger,
		provideRuleset,
		provideScenario,
		providePolicy,
		provideRig,
		providePool,
		provideNarrator,
		provideGame,
		provideLifecycle,
		provideApp,
	)
	return nil, nil, nil
}
