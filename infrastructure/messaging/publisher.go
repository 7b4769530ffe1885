/*
Package messaging outbox 事件的下游投递

每个 sink 实现 Publisher；Fanout 并发投递到所有已启用的 sink，任一失败则整体
失败，由 outbox worker 重试。重试会让已成功的 sink 再收到一次，下游需按
event_id 幂等处理。
*/
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"orderflow/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Publisher delivers one serialized outbox event
type Publisher interface {
	Publish(ctx context.Context, eventType, payload string) error
}

// Sink a publisher owning a connection
type Sink interface {
	Publisher
	Name() string
	Close() error
}

// Fanout publishes to every sink concurrently
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Publish(ctx context.Context, eventType, payload string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sink := range f.sinks {
		g.Go(func() error {
			if err := sink.Publish(ctx, eventType, payload); err != nil {
				return fmt.Errorf("%s: %w", sink.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Sinks names of the configured sinks
func (f *Fanout) Sinks() []string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	return names
}

func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// NewFromConfig connects every enabled sink; with none enabled events are only logged
func NewFromConfig(ctx context.Context, cfg config.MessagingConfig, log *zap.Logger) (*Fanout, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var sinks []Sink
	fail := func(err error) (*Fanout, error) {
		_ = NewFanout(sinks...).Close()
		return nil, err
	}

	if cfg.AMQP.Enabled {
		s, err := DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return fail(fmt.Errorf("connect amqp: %w", err))
		}
		sinks = append(sinks, s)
	}
	if cfg.Kafka.Enabled {
		s, err := NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fail(fmt.Errorf("connect kafka: %w", err))
		}
		sinks = append(sinks, s)
	}
	if cfg.Telegram.Enabled {
		s, err := NewTelegramPublisher(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return fail(fmt.Errorf("connect telegram: %w", err))
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, NewLoggingPublisher(log))
	}

	log.Info("Outbox sinks ready", zap.Strings("sinks", NewFanout(sinks...).Sinks()))
	return NewFanout(sinks...), nil
}

// envelope fields of the outbox payload read by the sinks
type envelope struct {
	EventName   string `json:"event_name"`
	AggregateID string `json:"aggregate_id"`
	OrderNumber string `json:"order_number"`
	Channel     string `json:"channel"`
	TotalCost   string `json:"total_cost"`
}

func decodeEnvelope(payload string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return env, fmt.Errorf("decode outbox payload: %w", err)
	}
	return env, nil
}
