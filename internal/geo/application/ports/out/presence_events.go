package out

import (
	"context"

	"una/internal/geo/domain"
)

// PresencePublisher — событие в брокер для других сервисов
type PresencePublisher interface {
	Publish(ctx context.Context, event domain.PresenceEvent) error
}

// PresenceBroadcaster — рассылка подключённым устройствам, fire-and-forget
type PresenceBroadcaster interface {
	Broadcast(ctx context.Context, event domain.PresenceEvent)
}
