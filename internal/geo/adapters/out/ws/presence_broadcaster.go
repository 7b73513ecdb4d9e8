package ws

import (
	"context"

	out "una/internal/geo/application/ports/out"
	"una/internal/geo/domain"
	"una/internal/shared/logger"
	"una/internal/shared/ws"
)

// MessagePresence — тип сообщения рассылки присутствия
const MessagePresence = "presence"

type presenceBroadcaster struct {
	hub *ws.Hub
	log *logger.Logger
}

func NewPresenceBroadcaster(hub *ws.Hub, log *logger.Logger) out.PresenceBroadcaster {
	return &presenceBroadcaster{hub: hub, log: log}
}

func (b *presenceBroadcaster) Broadcast(_ context.Context, event domain.PresenceEvent) {
	if err := b.hub.BroadcastTyped(MessagePresence, event); err != nil {
		b.log.Warn(logger.Entry{
			Action:  "presence_broadcast_failed",
			Message: err.Error(),
			UserID:  event.UserID,
		})
	}
}
