package messaging

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"orderflow/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const placedPayload = `{"event_name":"order.placed","aggregate_id":"12","order_number":"VR-12","channel":"client","total_cost":"1250.00"}`

type recordingSink struct {
	name string
	err  error

	mu     sync.Mutex
	events []string
	closed bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(ctx context.Context, eventType, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, eventType)
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestFanoutPublishesToEverySink(t *testing.T) {
	a, b := &recordingSink{name: "a"}, &recordingSink{name: "b"}
	f := NewFanout(a, b)

	if err := f.Publish(context.Background(), EventOrderPlaced, placedPayload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("events a=%v b=%v", a.events, b.events)
	}
	if got := strings.Join(f.Sinks(), ","); got != "a,b" {
		t.Errorf("Sinks() = %s", got)
	}
}

func TestFanoutReportsFailingSink(t *testing.T) {
	boom := errors.New("broker down")
	f := NewFanout(&recordingSink{name: "ok"}, &recordingSink{name: "kafka", err: boom})

	err := f.Publish(context.Background(), EventOrderPlaced, placedPayload)
	if !errors.Is(err, boom) {
		t.Fatalf("Publish() error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "kafka") {
		t.Errorf("error should name the sink: %v", err)
	}
}

func TestFanoutCloseClosesAll(t *testing.T) {
	a, b := &recordingSink{name: "a"}, &recordingSink{name: "b"}
	if err := NewFanout(a, b).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !a.closed || !b.closed {
		t.Errorf("all sinks should be closed")
	}
}

func TestNewFromConfigFallsBackToLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f, err := NewFromConfig(context.Background(), config.MessagingConfig{}, zap.New(core))
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if got := f.Sinks(); len(got) != 1 || got[0] != "log" {
		t.Fatalf("Sinks() = %v, want [log]", got)
	}
	if err := f.Publish(context.Background(), EventOrderPlaced, placedPayload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if logs.FilterMessage("Outbox event").Len() != 1 {
		t.Errorf("logging sink should record the event")
	}
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func (c *fakeChannel) Close() error { return nil }

func TestAMQPPublisherRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{channel: ch, exchange: DefaultExchange}

	if err := p.Publish(context.Background(), EventOrderPlaced, placedPayload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if ch.exchange != DefaultExchange || ch.key != EventOrderPlaced {
		t.Errorf("published to %s/%s", ch.exchange, ch.key)
	}
	if ch.msg.DeliveryMode != amqp.Persistent || ch.msg.ContentType != "application/json" {
		t.Errorf("unexpected publishing %+v", ch.msg)
	}
	if ch.msg.MessageId != "12:order.placed" || string(ch.msg.Body) != placedPayload {
		t.Errorf("message id %q body %q", ch.msg.MessageId, ch.msg.Body)
	}
}

func TestAMQPPublisherRejectsBadPayload(t *testing.T) {
	p := &AMQPPublisher{channel: &fakeChannel{}, exchange: DefaultExchange}
	if err := p.Publish(context.Background(), EventOrderPlaced, "{"); err == nil {
		t.Fatal("expected a decode error")
	}
}

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	results := make(kgo.ProduceResults, len(rs))
	for i, r := range rs {
		results[i] = kgo.ProduceResult{Record: r, Err: p.err}
	}
	return results
}

func (p *fakeProducer) Close() {}

func TestKafkaPublisherKeysByAggregate(t *testing.T) {
	producer := &fakeProducer{}
	p := &KafkaPublisher{client: producer, topic: DefaultTopic}

	if err := p.Publish(context.Background(), EventOrderPlaced, placedPayload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(producer.records) != 1 {
		t.Fatalf("records = %d, want 1", len(producer.records))
	}
	r := producer.records[0]
	if string(r.Key) != "12" || r.Topic != DefaultTopic {
		t.Errorf("record key %q topic %q", r.Key, r.Topic)
	}
	if len(r.Headers) == 0 || r.Headers[0].Key != "event_type" || string(r.Headers[0].Value) != EventOrderPlaced {
		t.Errorf("headers = %+v", r.Headers)
	}

	producer.err = errors.New("not leader")
	if err := p.Publish(context.Background(), EventOrderPlaced, placedPayload); err == nil {
		t.Error("produce error should be returned")
	}
}

type fakeSender struct {
	sent []tgbotapi.Chattable
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramPublisherForwardsPlacedOrders(t *testing.T) {
	sender := &fakeSender{}
	p := &TelegramPublisher{bot: sender, chatID: 100}

	if err := p.Publish(context.Background(), "order.deleted", placedPayload); err != nil {
		t.Fatalf("Publish(other) error = %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("only order.placed should be forwarded")
	}

	if err := p.Publish(context.Background(), EventOrderPlaced, placedPayload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	if msg.ChatID != 100 {
		t.Errorf("chat id = %d", msg.ChatID)
	}
	for _, part := range []string{"VR-12", "1250.00", "client"} {
		if !strings.Contains(msg.Text, part) {
			t.Errorf("text %q should contain %q", msg.Text, part)
		}
	}
}
