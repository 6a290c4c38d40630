package publisher

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/config"
)

const (
	headerEventID   = "X-Event-ID"
	headerEventType = "X-Event-Type"
	headerSignature = "X-Signature-SHA256"
)

type webhookEnvelope struct {
	EventID         string          `json:"event_id"`
	EventType       string          `json:"event_type"`
	AggregateType   string          `json:"aggregate_type"`
	AggregateID     uint64          `json:"aggregate_id"`
	RecipientUserID string          `json:"recipient_user_id,omitempty"`
	Payload         json.RawMessage `json:"payload"`
	CreatedAt       string          `json:"created_at"`
}

// WebhookPublisher POSTs each event to a single endpoint, signing the body with
// HMAC-SHA256 when a secret is configured.
type WebhookPublisher struct {
	url    string
	secret []byte
	client *http.Client
}

func NewWebhookPublisher(cfg config.WebhookConfig) (*WebhookPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("WEBHOOK_URL is required for the webhook publisher")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookPublisher{
		url:    cfg.URL,
		secret: []byte(cfg.Secret),
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (p *WebhookPublisher) Name() string {
	return KindWebhook
}

func (p *WebhookPublisher) Publish(ctx context.Context, event *entity.OutboxEvent) error {
	envelope := webhookEnvelope{
		EventID:       event.EventID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       json.RawMessage(event.PayloadJSON),
		CreatedAt:     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if event.RecipientUserID != nil {
		envelope.RecipientUserID = *event.RecipientUserID
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEventID, event.EventID)
	req.Header.Set(headerEventType, event.EventType)
	if len(p.secret) > 0 {
		req.Header.Set(headerSignature, Sign(p.secret, body))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status=%d", resp.StatusCode)
	}
	return nil
}

func (p *WebhookPublisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
