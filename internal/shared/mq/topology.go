package mq

import (
	"context"
	"fmt"

	"una/internal/shared/logger"
)

const (
	// ExchangeMarket — topic exchange для событий выбора рынка/языка
	ExchangeMarket = "market_topic"
	// ExchangePresence — fanout exchange для "open to hang"
	ExchangePresence = "presence_fanout"

	RoutingMarketChanged   = "market.changed"
	RoutingLanguageChanged = "market.language_changed"
	RoutingMarketDetected  = "market.detected"
)

type exchangeSpec struct {
	name string
	kind string
}

type queueSpec struct {
	name       string
	exchange   string
	routingKey string
}

var (
	exchanges = []exchangeSpec{
		{ExchangeMarket, "topic"},
		{ExchangePresence, "fanout"},
	}

	queues = []queueSpec{
		{RoutingMarketChanged, ExchangeMarket, RoutingMarketChanged},
		{RoutingLanguageChanged, ExchangeMarket, RoutingLanguageChanged},
		{RoutingMarketDetected, ExchangeMarket, RoutingMarketDetected},
		{"presence.broadcast", ExchangePresence, ""},
	}
)

// SetupTopology объявляет exchanges, queues и bindings (идемпотентно)
func SetupTopology(ctx context.Context, mq *RabbitMQ, log *logger.Logger) error {
	ch := mq.Channel()
	if ch == nil {
		return ErrChannelUnavailable
	}

	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", ex.name, err)
		}
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
		if err := ch.QueueBind(q.name, q.routingKey, q.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q.name, err)
		}
	}

	log.Info(logger.Entry{
		Action:  "topology_setup_complete",
		Message: fmt.Sprintf("%d exchanges, %d queues declared", len(exchanges), len(queues)),
	})

	return nil
}
