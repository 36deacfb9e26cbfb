package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/shutterbay/api/internal/services"
)

// PubSubMailer hands transactional email to the mail worker through a Pub/Sub topic.
type PubSubMailer struct {
	topic *pubsub.Topic
}

// NewPubSubMailer constructs a mailer publishing to topic.
func NewPubSubMailer(topic *pubsub.Topic) (*PubSubMailer, error) {
	if topic == nil {
		return nil, errors.New("pubsub mailer: topic is required")
	}
	return &PubSubMailer{topic: topic}, nil
}

// SendEmail publishes msg and waits for the server acknowledgement.
func (m *PubSubMailer) SendEmail(ctx context.Context, msg services.EmailMessage) error {
	if m == nil || m.topic == nil {
		return errors.New("pubsub mailer: not initialised")
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("pubsub mailer: recipient is required")
	}
	attrs := map[string]string{"template": msg.Template}
	setAttr(attrs, "orderId", msg.Data["order_id"])
	if _, err := publishJSON(ctx, m.topic, msg, attrs); err != nil {
		return fmt.Errorf("publish email: %w", err)
	}
	return nil
}

// PubSubOrderEventPublisher publishes order lifecycle events for downstream consumers.
type PubSubOrderEventPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubOrderEventPublisher constructs an event publisher bound to topic.
func NewPubSubOrderEventPublisher(topic *pubsub.Topic) (*PubSubOrderEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub order events: topic is required")
	}
	return &PubSubOrderEventPublisher{topic: topic}, nil
}

// PublishOrderEvent publishes evt ordered by order id.
func (p *PubSubOrderEventPublisher) PublishOrderEvent(ctx context.Context, evt services.OrderEvent) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub order events: not initialised")
	}
	attrs := map[string]string{"eventType": evt.Type}
	setAttr(attrs, "orderId", evt.OrderID)
	setAttr(attrs, "accountId", evt.AccountID)
	if _, err := publishJSON(ctx, p.topic, evt, attrs); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

func publishJSON(ctx context.Context, topic *pubsub.Topic, payload any, attrs map[string]string) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	result := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	return result.Get(ctx)
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
