package messaging

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange topic exchange used when none is configured
const DefaultExchange = "orders_topic"

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher routes each event to a durable topic exchange with the event type as routing key
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
}

func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Name() string { return "amqp" }

func (p *AMQPPublisher) Publish(ctx context.Context, eventType, payload string) error {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx, p.exchange, eventType, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         eventType,
		MessageId:    env.AggregateID + ":" + eventType,
		Timestamp:    time.Now().UTC(),
		Body:         []byte(payload),
	})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
