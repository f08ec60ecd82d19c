// Package resilient decorates persistence ports with circuit breaking, tracing and metrics.
package resilient

import (
	"context"
	"time"

	"diagramsync/application/ports"
	"diagramsync/domain/core/aggregates"
	"diagramsync/pkg/errors"
	"diagramsync/pkg/observability"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds configuration for the store circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used in production
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// DiagramStore wraps a ports.DiagramStore. Calls are never retried;
// while the breaker is open they fail fast with an unavailable error.
type DiagramStore struct {
	next    ports.DiagramStore
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Collector
	tracer  *observability.Tracer
	logger  *zap.Logger
}

// NewDiagramStore creates the decorator. metrics and tracer may be nil.
func NewDiagramStore(next ports.DiagramStore, cfg BreakerConfig, metrics *observability.Collector, tracer *observability.Tracer, logger *zap.Logger) *DiagramStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// A missing snapshot is an answer, not a store failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.IsNotFound(err)
		},
	})

	return &DiagramStore{
		next:    next,
		breaker: breaker,
		metrics: metrics,
		tracer:  tracer,
		logger:  logger,
	}
}

var _ ports.DiagramStore = (*DiagramStore)(nil)

// State reports the breaker state, used by the readiness probe
func (s *DiagramStore) State() gobreaker.State {
	return s.breaker.State()
}

// GetLatest implements ports.DiagramStore
func (s *DiagramStore) GetLatest(ctx context.Context, projectID string) (*aggregates.DiagramSnapshot, error) {
	return s.call(ctx, "get_latest", projectID, func(ctx context.Context) (*aggregates.DiagramSnapshot, error) {
		return s.next.GetLatest(ctx, projectID)
	})
}

// Create implements ports.DiagramStore
func (s *DiagramStore) Create(ctx context.Context, projectID, authorID string, graph *aggregates.Graph) (*aggregates.DiagramSnapshot, error) {
	return s.call(ctx, "create", projectID, func(ctx context.Context) (*aggregates.DiagramSnapshot, error) {
		return s.next.Create(ctx, projectID, authorID, graph)
	})
}

// UpdateGraph implements ports.DiagramStore
func (s *DiagramStore) UpdateGraph(ctx context.Context, current *aggregates.DiagramSnapshot, graph *aggregates.Graph) (*aggregates.DiagramSnapshot, error) {
	return s.call(ctx, "update_graph", current.ProjectID, func(ctx context.Context) (*aggregates.DiagramSnapshot, error) {
		return s.next.UpdateGraph(ctx, current, graph)
	})
}

func (s *DiagramStore) call(
	ctx context.Context,
	operation string,
	projectID string,
	fn func(context.Context) (*aggregates.DiagramSnapshot, error),
) (*aggregates.DiagramSnapshot, error) {
	start := time.Now()
	var snap *aggregates.DiagramSnapshot

	err := s.tracer.TraceFunction(ctx, "DiagramStore."+operation, func(ctx context.Context) error {
		s.tracer.AddAnnotation(ctx, "projectID", projectID)
		result, err := s.breaker.Execute(func() (interface{}, error) {
			return fn(ctx)
		})
		if err != nil {
			return err
		}
		snap, _ = result.(*aggregates.DiagramSnapshot)
		return nil
	})

	s.metrics.RecordStoreOperation(operation, err, time.Since(start))

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		s.logger.Warn("Diagram store call rejected by circuit breaker",
			zap.String("operation", operation),
			zap.String("projectID", projectID),
			zap.Error(err),
		)
		return nil, errors.NewUnavailableError("diagram store").WithCause(err)
	}
	return snap, err
}
