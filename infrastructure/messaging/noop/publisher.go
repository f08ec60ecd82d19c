package noop

import (
	"context"

	"diagramsync/application/ports"
	"diagramsync/domain/events"

	"go.uber.org/zap"
)

// Publisher drops events after logging them at debug level.
// It is used when ENABLE_EVENTS is off.
type Publisher struct {
	logger *zap.Logger
}

// NewPublisher creates a no-op publisher
func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Publish implements ports.EventPublisher
func (p *Publisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.logger.Debug("Event dropped",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
	)
	return nil
}

// PublishBatch implements ports.EventPublisher
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		_ = p.Publish(ctx, event)
	}
	return nil
}
