package messaging

import (
	"context"

	"go.uber.org/zap"
)

// LoggingPublisher writes events to the log only
type LoggingPublisher struct {
	log *zap.Logger
}

func NewLoggingPublisher(log *zap.Logger) *LoggingPublisher {
	return &LoggingPublisher{log: log.Named("outbox")}
}

func (p *LoggingPublisher) Name() string { return "log" }

func (p *LoggingPublisher) Publish(ctx context.Context, eventType, payload string) error {
	p.log.Info("Outbox event", zap.String("event_type", eventType), zap.String("payload", payload))
	return nil
}

func (p *LoggingPublisher) Close() error { return nil }
