package publisher

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/app/factory"
)

// LogPublisher writes events to the log. It is the default for local runs.
type LogPublisher struct {
	logger logrus.FieldLogger
}

func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	if logger == nil {
		logger = factory.NewModuleLogger("outbox-publisher")
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Name() string {
	return KindLog
}

func (p *LogPublisher) Publish(_ context.Context, event *entity.OutboxEvent) error {
	fields := logrus.Fields{
		"event_id":       event.EventID,
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"payload":        event.PayloadJSON,
	}
	if event.RecipientUserID != nil {
		fields["recipient_user_id"] = *event.RecipientUserID
	}
	p.logger.WithFields(fields).Info("outbox event published")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
