//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"diagramsync/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideSyncConfig,
	ProvideClock,
	ProvideMetrics,
	ProvideTracer,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideDiagramStore,
	ProvideLockStore,
	ProvideMembershipResolver,
	ProvideIdentityProvisioner,
	ProvideEventPublisher,
	ProvidePresenceTracker,
	ProvideLockRegistry,
	ProvideHub,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideMessageLimiter,
	ProvideGateway,
	ProvideEngine,
	ProvideJWTValidator,
	ProvideWebSocketServer,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
