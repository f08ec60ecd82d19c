package websocket

import (
	"context"
	"sync"
	"time"

	"diagramsync/application/ports"
	"diagramsync/application/presence"
	"diagramsync/domain/config"
	"diagramsync/pkg/observability"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine owns the long-running parts of the sync engine: the hub loop and
// the presence sweep. Nothing runs until Start or Run is called.
type Engine struct {
	hub     *Hub
	gateway *Gateway
	tracker *presence.Tracker
	cfg     *config.SyncConfig
	metrics *observability.Collector
	logger  *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates the engine
func NewEngine(
	hub *Hub,
	gateway *Gateway,
	tracker *presence.Tracker,
	cfg *config.SyncConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		hub:     hub,
		gateway: gateway,
		tracker: tracker,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Run blocks until ctx is done. On return every connection is closed.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		e.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		e.sweepLoop(ctx)
		return nil
	})

	e.logger.Info("Sync engine started",
		zap.Duration("sweepInterval", e.cfg.SweepInterval),
		zap.Duration("presenceTTL", e.cfg.PresenceTTL),
		zap.Duration("lockLease", e.cfg.LockLease),
	)
	err := g.Wait()
	e.logger.Info("Sync engine stopped")
	return err
}

// Start runs the engine in the background until Stop is called
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		_ = e.Run(ctx)
	}()
}

// Stop cancels a Start and waits for the engine to wind down
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Sweep evicts stale presence entries once and tells each affected room.
// It returns the number of evicted entries.
func (e *Engine) Sweep() int {
	changed, evicted := e.tracker.Sweep()
	for room, users := range changed {
		e.hub.BroadcastToRoom(room, "", ports.EventPresenceUpdate, ports.PresenceUpdate{Room: room, Users: users})
	}

	e.metrics.RecordEvictions(evicted)
	e.metrics.SetRooms(e.tracker.RoomCount())
	if evicted > 0 {
		e.logger.Info("Presence sweep evicted entries",
			zap.Int("evicted", evicted),
			zap.Int("rooms", len(changed)),
		)
	}
	return evicted
}

// Hub returns the room registry
func (e *Engine) Hub() *Hub {
	return e.hub
}

// Gateway returns the inbound event dispatcher
func (e *Engine) Gateway() *Gateway {
	return e.gateway
}

func (e *Engine) sweepLoop(ctx context.Context) {
	interval := e.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep()
		}
	}
}
