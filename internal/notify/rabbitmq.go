package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sreemahi-code/abbhack/internal/simulate"
)

const (
	DefaultExchange   = "simulation"
	DefaultRoutingKey = "simulation.run"
)

// channel is the slice of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher announces run lifecycle changes on a topic exchange. Routing keys
// are <prefix>.started and <prefix>.<terminal state>.
type Publisher struct {
	channel    channel
	exchange   string
	routingKey string
}

// NewPublisher opens a channel on conn and declares a durable topic exchange.
func NewPublisher(conn *amqp.Connection, exchange, routingKey string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return NewPublisherWithChannel(ch, exchange, routingKey), nil
}

// NewPublisherWithChannel creates a publisher over an injected channel.
func NewPublisherWithChannel(ch channel, exchange, routingKey string) *Publisher {
	return &Publisher{channel: ch, exchange: exchange, routingKey: routingKey}
}

// Close closes the underlying channel.
func (p *Publisher) Close() error {
	return p.channel.Close()
}

// RunStarted publishes the opening summary.
func (p *Publisher) RunStarted(ctx context.Context, s simulate.Summary) error {
	return p.publish(ctx, p.routingKey+".started", s)
}

// RunFinished publishes the final summary.
func (p *Publisher) RunFinished(ctx context.Context, s simulate.Summary) error {
	return p.publish(ctx, p.routingKey+"."+string(s.State), s)
}

func (p *Publisher) publish(ctx context.Context, key string, s simulate.Summary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    s.ID,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}
