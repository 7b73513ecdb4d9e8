package out

import (
	"context"

	"una/internal/market/domain"
)

// EventPublisher публикует события рынка (market.changed, market.detected, ...)
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
