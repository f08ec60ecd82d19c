package di

import (
	"diagramsync/application/commands/bus"
	"diagramsync/application/locks"
	"diagramsync/application/ports"
	"diagramsync/application/presence"
	querybus "diagramsync/application/queries/bus"
	domainconfig "diagramsync/domain/config"
	"diagramsync/infrastructure/config"
	"diagramsync/infrastructure/persistence/resilient"
	"diagramsync/interfaces/websocket"
	"diagramsync/pkg/auth"
	"diagramsync/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	SyncConfig   *domainconfig.SyncConfig
	Metrics      *observability.Collector
	Tracer       *observability.Tracer
	DiagramStore *resilient.DiagramStore
	LockStore    ports.LockStore
	Membership   ports.MembershipResolver
	Identities   ports.IdentityProvisioner
	Publisher    ports.EventPublisher
	Tracker      *presence.Tracker
	Registry     *locks.Registry
	Hub          *websocket.Hub
	Gateway      *websocket.Gateway
	Engine       *websocket.Engine
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
	JWTValidator *auth.JWTValidator
	WSServer     *websocket.Server
}
