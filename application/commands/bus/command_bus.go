package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"diagramsync/pkg/common"
	"diagramsync/pkg/observability"

	"go.uber.org/zap"
)

// Command represents a command that changes state
type Command interface {
	Validate() error
}

// CommandHandler handles a specific command type
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// CommandBus dispatches commands to their handlers
type CommandBus struct {
	handlers map[reflect.Type]CommandHandler
	pipeline *Pipeline
	mu       sync.RWMutex
}

// NewCommandBus creates a new command bus. Middleware wraps every registered handler.
func NewCommandBus(middlewares ...Middleware) *CommandBus {
	return &CommandBus{
		handlers: make(map[reflect.Type]CommandHandler),
		pipeline: NewPipeline(middlewares...),
	}
}

// Register registers a handler for a command type
func (b *CommandBus) Register(cmdType Command, handler CommandHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(cmdType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s", t)
	}

	b.handlers[t] = b.pipeline.Execute(handler)
	return nil
}

// Send dispatches a command to its handler
func (b *CommandBus) Send(ctx context.Context, cmd Command) error {
	// Validate command
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("command validation failed: %w", err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %T", ErrHandlerNotFound, cmd)
	}

	if err := handler.Handle(ctx, cmd); err != nil {
		return fmt.Errorf("command handler failed: %w", err)
	}

	return nil
}

// Middleware defines command middleware
type Middleware func(next CommandHandler) CommandHandler

// CommandHandlerFunc is an adapter to allow functions to be used as handlers
type CommandHandlerFunc func(ctx context.Context, cmd Command) error

// Handle implements CommandHandler
func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// LoggingMiddleware logs command execution
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			start := time.Now()
			err := next.Handle(ctx, cmd)

			fields := []zap.Field{
				zap.String("type", reflect.TypeOf(cmd).String()),
				zap.Duration("duration", time.Since(start)),
			}
			if connID, ok := common.GetConnectionID(ctx); ok {
				fields = append(fields, zap.String("connectionID", connID))
			}
			if identity, ok := common.GetIdentity(ctx); ok {
				fields = append(fields, zap.String("identity", identity), zap.String("displayName", common.GetDisplayName(ctx)))
			}

			if err != nil {
				logger.Debug("Command failed", append(fields, zap.Error(err))...)
			} else {
				logger.Debug("Command succeeded", fields...)
			}
			return err
		})
	}
}

// RecoveryMiddleware turns a handler panic into an error so one bad event cannot kill a connection
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Command handler panicked",
						zap.String("type", reflect.TypeOf(cmd).String()),
						zap.Any("panic", rec),
					)
					err = fmt.Errorf("%w: panic: %v", ErrExecutionFailed, rec)
				}
			}()
			return next.Handle(ctx, cmd)
		})
	}
}

// TracingMiddleware opens a trace segment per command so store calls made
// by the handler are recorded as subsegments. A nil tracer disables it.
func TracingMiddleware(tracer *observability.Tracer) Middleware {
	return func(next CommandHandler) CommandHandler {
		if tracer == nil {
			return next
		}
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			t := reflect.TypeOf(cmd)
			if t.Kind() == reflect.Ptr {
				t = t.Elem()
			}
			ctx, seg := tracer.StartSegment(ctx, t.Name())
			if connID, ok := common.GetConnectionID(ctx); ok {
				tracer.AddAnnotation(ctx, "connectionID", connID)
			}
			err := next.Handle(ctx, cmd)
			tracer.EndSegment(seg, err)
			return err
		})
	}
}

// Pipeline chains multiple middleware together
type Pipeline struct {
	middlewares []Middleware
}

// NewPipeline creates a new middleware pipeline
func NewPipeline(middlewares ...Middleware) *Pipeline {
	return &Pipeline{
		middlewares: middlewares,
	}
}

// Execute wraps handler so the first middleware runs outermost
func (p *Pipeline) Execute(handler CommandHandler) CommandHandler {
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		handler = p.middlewares[i](handler)
	}
	return handler
}

// Errors
var (
	ErrHandlerNotFound = errors.New("command handler not found")
	ErrExecutionFailed = errors.New("command execution failed")
)
