package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultTopic used when none is configured
const DefaultTopic = "orders.events"

type kafkaProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher keys records by aggregate id so one order's events stay in one partition
type KafkaPublisher struct {
	client kafkaProducer
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProduceRequestTimeout(10*time.Second),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ClientID("orderflow"),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, payload string) error {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return err
	}
	record := &kgo.Record{
		Topic:   p.topic,
		Key:     []byte(env.AggregateID),
		Value:   []byte(payload),
		Headers: recordHeaders(ctx, eventType),
	}
	return p.client.ProduceSync(ctx, record).FirstErr()
}

// recordHeaders 事件类型加上 traceparent（若存在）
func recordHeaders(ctx context.Context, eventType string) []kgo.RecordHeader {
	headers := []kgo.RecordHeader{{Key: "event_type", Value: []byte(eventType)}}
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	if traceparent, ok := carrier["traceparent"]; ok {
		headers = append(headers, kgo.RecordHeader{Key: "traceparent", Value: []byte(traceparent)})
	}
	return headers
}

func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
