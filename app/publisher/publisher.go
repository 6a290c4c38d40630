// Package publisher delivers outbox events to the collaborators that consume them.
package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/config"
)

const (
	KindLog     = "log"
	KindKafka   = "kafka"
	KindWebhook = "webhook"
)

type Publisher interface {
	Name() string
	Publish(ctx context.Context, event *entity.OutboxEvent) error
	Close() error
}

// New builds the publisher selected by OUTBOX_PUBLISHER.
func New(cfg *config.Config) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Outbox.Publisher)) {
	case "", KindLog:
		return NewLogPublisher(nil), nil
	case KindKafka:
		return NewKafkaPublisher(cfg.Kafka)
	case KindWebhook:
		return NewWebhookPublisher(cfg.Webhook)
	default:
		return nil, fmt.Errorf("unsupported outbox publisher %q", cfg.Outbox.Publisher)
	}
}
