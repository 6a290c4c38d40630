package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/config"
)

// KafkaPublisher writes each event to "<prefix>.<event type>", keyed by aggregate
// so a payment's or dispute's events stay ordered within a partition.
type KafkaPublisher struct {
	producer    sarama.SyncProducer
	topicPrefix string
}

func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required for the kafka publisher")
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = cfg.ClientID
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Idempotent = true
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.TopicPrefix), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topicPrefix string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topicPrefix: strings.Trim(topicPrefix, ".")}
}

func (p *KafkaPublisher) Name() string {
	return KindKafka
}

func (p *KafkaPublisher) Publish(_ context.Context, event *entity.OutboxEvent) error {
	msg := &sarama.ProducerMessage{
		Topic: p.Topic(event.EventType),
		Key:   sarama.StringEncoder(fmt.Sprintf("%s:%d", event.AggregateType, event.AggregateID)),
		Value: sarama.StringEncoder(event.PayloadJSON),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_id"), Value: []byte(event.EventID)},
			{Key: []byte("event_type"), Value: []byte(event.EventType)},
		},
	}
	if event.RecipientUserID != nil {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte("recipient_user_id"), Value: []byte(*event.RecipientUserID)})
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka send %s: %w", event.EventID, err)
	}
	return nil
}

func (p *KafkaPublisher) Topic(eventType string) string {
	if p.topicPrefix == "" {
		return eventType
	}
	return p.topicPrefix + "." + eventType
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
