package amqp

import (
	"context"
	"fmt"

	out "una/internal/geo/application/ports/out"
	"una/internal/geo/domain"
	"una/internal/shared/logger"
	"una/internal/shared/mq"
)

type presencePublisher struct {
	mq  *mq.RabbitMQ
	log *logger.Logger
}

// NewPresencePublisher публикует события присутствия в presence_fanout
func NewPresencePublisher(mq *mq.RabbitMQ, log *logger.Logger) out.PresencePublisher {
	return &presencePublisher{mq: mq, log: log}
}

func (p *presencePublisher) Publish(ctx context.Context, event domain.PresenceEvent) error {
	if err := p.mq.PublishJSON(ctx, mq.ExchangePresence, event.Type, event); err != nil {
		p.log.Error(logger.Entry{
			Action:  "publish_presence_event_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			UserID:  event.UserID,
		})
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.log.Debug(logger.Entry{
		Action:  "presence_event_published",
		Message: event.Type,
		UserID:  event.UserID,
	})
	return nil
}
