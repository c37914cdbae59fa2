// Package jobs publishes storefront domain events to Pub/Sub.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/hanko-field/storefront/internal/services"
)

const orderPlacedEventType = "order.placed"

// PubSubOrderPublisher publishes order placed events to a Pub/Sub topic.
type PubSubOrderPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ services.OrderEventPublisher = (*PubSubOrderPublisher)(nil)

// NewPubSubOrderPublisher constructs a publisher for topic.
func NewPubSubOrderPublisher(topic *pubsub.Topic) (*PubSubOrderPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub order publisher: topic is required")
	}
	return &PubSubOrderPublisher{topic: topic, marshal: json.Marshal}, nil
}

// PublishOrderPlaced sends event and waits for the server to acknowledge it.
func (p *PubSubOrderPublisher) PublishOrderPlaced(ctx context.Context, event services.OrderPlacedEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub order publisher: not initialised")
	}
	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal order placed event: %w", err)
	}

	attrs := map[string]string{"eventType": orderPlacedEventType}
	setAttr(attrs, "eventId", event.EventID)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "paymentMethod", event.PaymentMethod)
	attrs["itemCount"] = strconv.Itoa(event.ItemCount)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
		// One ordering key per session keeps a shopper's orders in sequence when ordering is enabled.
		OrderingKey: orderingKey(p.topic, event.SessionID),
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish order placed event: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *PubSubOrderPublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}

func orderingKey(topic *pubsub.Topic, sessionID string) string {
	if !topic.EnableMessageOrdering {
		return ""
	}
	return strings.TrimSpace(sessionID)
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
