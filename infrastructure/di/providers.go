package di

import (
	"context"
	"time"

	"diagramsync/application/commands"
	"diagramsync/application/commands/bus"
	commands_handlers "diagramsync/application/commands/handlers"
	"diagramsync/application/locks"
	"diagramsync/application/ports"
	"diagramsync/application/presence"
	"diagramsync/application/queries"
	querybus "diagramsync/application/queries/bus"
	queries_handlers "diagramsync/application/queries/handlers"
	domainconfig "diagramsync/domain/config"
	"diagramsync/domain/core/valueobjects"
	"diagramsync/infrastructure/config"
	"diagramsync/infrastructure/messaging/eventbridge"
	"diagramsync/infrastructure/messaging/noop"
	"diagramsync/infrastructure/persistence/dynamodb"
	"diagramsync/infrastructure/persistence/memory"
	"diagramsync/infrastructure/persistence/resilient"
	"diagramsync/interfaces/websocket"
	"diagramsync/pkg/auth"
	"diagramsync/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "diagramsync"

// slowQueryThreshold is where query logging escalates to a warning
const slowQueryThreshold = 500 * time.Millisecond

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build(zap.Fields(zap.String("service", serviceName)))
}

// ProvideSyncConfig derives the engine settings from the loaded configuration
func ProvideSyncConfig(cfg *config.Config) *domainconfig.SyncConfig {
	return cfg.SyncConfig()
}

// ProvideClock returns the wall clock
func ProvideClock() ports.Clock {
	return ports.SystemClock
}

// ProvideMetrics creates the Prometheus collector, or nil when metrics are disabled
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector(serviceName)
}

// ProvideTracer creates the X-Ray tracer, or nil when tracing is disabled
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer(serviceName)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideDiagramStore creates the snapshot store for the configured backend,
// wrapped in the circuit breaker
func ProvideDiagramStore(
	client *awsdynamodb.Client,
	cfg *config.Config,
	clock ports.Clock,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *resilient.DiagramStore {
	var store ports.DiagramStore
	if cfg.StoreBackend == config.BackendDynamoDB {
		store = dynamodb.NewDiagramStore(client, cfg.DiagramsTable, clock, logger)
	} else {
		store = memory.NewDiagramStore(clock)
	}

	return resilient.NewDiagramStore(store, resilient.DefaultBreakerConfig("diagram-store"), metrics, tracer, logger)
}

// ProvideLockStore creates the lock store for the configured backend
func ProvideLockStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.LockStore {
	if cfg.LocksBackend == config.BackendDynamoDB {
		return dynamodb.NewLockStore(client, cfg.DiagramsTable, logger)
	}
	return memory.NewLockStore()
}

// ProvideMembershipResolver creates the role lookup for the configured backend
func ProvideMembershipResolver(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.MembershipResolver {
	if cfg.StoreBackend == config.BackendDynamoDB {
		return dynamodb.NewMembershipResolver(client, cfg.DiagramsTable, logger)
	}

	defaultRole, _ := valueobjects.ParseRole(cfg.DefaultRole)
	return memory.NewMembershipResolver(defaultRole)
}

// ProvideIdentityProvisioner creates the placeholder identity store for the configured backend
func ProvideIdentityProvisioner(client *awsdynamodb.Client, cfg *config.Config, clock ports.Clock, logger *zap.Logger) ports.IdentityProvisioner {
	if cfg.StoreBackend == config.BackendDynamoDB {
		return dynamodb.NewIdentityProvisioner(client, cfg.DiagramsTable, clock, logger)
	}
	return memory.NewIdentityProvisioner()
}

// ProvideEventPublisher publishes to EventBridge when events are enabled
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if !cfg.EnableEvents {
		return noop.NewPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvidePresenceTracker creates the presence tracker
func ProvidePresenceTracker(syncCfg *domainconfig.SyncConfig, clock ports.Clock, logger *zap.Logger) *presence.Tracker {
	return presence.NewTracker(syncCfg, clock, logger)
}

// ProvideLockRegistry creates the lock registry
func ProvideLockRegistry(store ports.LockStore, syncCfg *domainconfig.SyncConfig, clock ports.Clock, logger *zap.Logger) *locks.Registry {
	return locks.NewRegistry(store, syncCfg, clock, logger)
}

// ProvideHub creates the connection hub
func ProvideHub(metrics *observability.Collector, logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(metrics, logger)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	store *resilient.DiagramStore,
	identities ports.IdentityProvisioner,
	hub *websocket.Hub,
	publisher ports.EventPublisher,
	registry *locks.Registry,
	syncCfg *domainconfig.SyncConfig,
	clock ports.Clock,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.RecoveryMiddleware(logger),
		bus.TracingMiddleware(tracer),
		bus.LoggingMiddleware(logger),
	)

	var serializer *commands_handlers.ProjectSerializer
	if syncCfg.SerializeProjectWrites {
		serializer = commands_handlers.NewProjectSerializer()
	}

	// Register MutateDiagramCommand handler
	mutateHandler := commands_handlers.NewMutateDiagramHandler(store, identities, hub, publisher, serializer, clock, metrics, logger)
	if err := commandBus.Register(&commands.MutateDiagramCommand{}, mutateHandler); err != nil {
		return nil, err
	}

	// Register lock handlers
	if err := commandBus.Register(&commands.AcquireLockCommand{}, commands_handlers.NewAcquireLockHandler(registry, hub, metrics, logger)); err != nil {
		return nil, err
	}
	if err := commandBus.Register(&commands.ReleaseLockCommand{}, commands_handlers.NewReleaseLockHandler(registry, hub, metrics, logger)); err != nil {
		return nil, err
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	store *resilient.DiagramStore,
	membership ports.MembershipResolver,
	tracker *presence.Tracker,
	registry *locks.Registry,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(querybus.LoggingMiddleware(logger, slowQueryThreshold))

	if err := queryBus.Register(queries.GetDiagramQuery{}, queries_handlers.NewGetDiagramHandler(store, membership, logger)); err != nil {
		return nil, err
	}
	if err := queryBus.Register(queries.ListPresenceQuery{}, queries_handlers.NewListPresenceHandler(tracker, membership)); err != nil {
		return nil, err
	}
	if err := queryBus.Register(queries.ListLocksQuery{}, queries_handlers.NewListLocksHandler(registry, membership)); err != nil {
		return nil, err
	}

	return queryBus, nil
}

// ProvideMessageLimiter creates the per-connection event limiter, or nil when unlimited
func ProvideMessageLimiter(syncCfg *domainconfig.SyncConfig) *auth.SlidingWindowLimiter {
	if syncCfg.MaxMessagesPerMinute <= 0 {
		return nil
	}
	return auth.NewSlidingWindowLimiter(syncCfg.MaxMessagesPerMinute, time.Minute)
}

// ProvideGateway creates the room gateway
func ProvideGateway(
	hub *websocket.Hub,
	tracker *presence.Tracker,
	membership ports.MembershipResolver,
	commandBus *bus.CommandBus,
	limiter *auth.SlidingWindowLimiter,
	syncCfg *domainconfig.SyncConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *websocket.Gateway {
	return websocket.NewGateway(hub, tracker, membership, commandBus, limiter, syncCfg, metrics, logger)
}

// ProvideEngine creates the sync engine
func ProvideEngine(
	hub *websocket.Hub,
	gateway *websocket.Gateway,
	tracker *presence.Tracker,
	syncCfg *domainconfig.SyncConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *websocket.Engine {
	return websocket.NewEngine(hub, gateway, tracker, syncCfg, metrics, logger)
}

// ProvideJWTValidator creates the token validator, or nil when no secret is configured
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvideWebSocketServer creates the upgrade handler
func ProvideWebSocketServer(
	engine *websocket.Engine,
	validator *auth.JWTValidator,
	cfg *config.Config,
	syncCfg *domainconfig.SyncConfig,
	logger *zap.Logger,
) *websocket.Server {
	serverCfg := websocket.DefaultServerConfig()
	serverCfg.AllowedOrigins = cfg.AllowedOrigins
	serverCfg.RequireAuth = cfg.RequireAuth
	return websocket.NewServer(engine, validator, serverCfg, syncCfg, logger)
}
