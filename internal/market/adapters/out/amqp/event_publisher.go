package amqp

import (
	"context"
	"fmt"

	out "una/internal/market/application/ports/out"
	"una/internal/market/domain"
	"una/internal/shared/logger"
	"una/internal/shared/mq"
)

type eventPublisher struct {
	mq  *mq.RabbitMQ
	log *logger.Logger
}

// NewEventPublisher публикует события рынка в market_topic; routing key совпадает с типом события
func NewEventPublisher(mq *mq.RabbitMQ, log *logger.Logger) out.EventPublisher {
	return &eventPublisher{mq: mq, log: log}
}

func (p *eventPublisher) Publish(ctx context.Context, event domain.Event) error {
	if err := p.mq.PublishJSON(ctx, mq.ExchangeMarket, event.Type, event); err != nil {
		p.log.Error(logger.Entry{
			Action:   "publish_market_event_failed",
			Message:  err.Error(),
			Error:    &logger.ErrObj{Msg: err.Error()},
			UserID:   event.UserID,
			DeviceID: event.DeviceID,
			Additional: map[string]any{
				"type": event.Type,
			},
		})
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.log.Debug(logger.Entry{
		Action:   "market_event_published",
		Message:  event.Type,
		UserID:   event.UserID,
		DeviceID: event.DeviceID,
		Additional: map[string]any{
			"market":   event.Market,
			"language": event.Language,
		},
	})
	return nil
}
