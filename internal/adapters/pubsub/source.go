// Package pubsub adapts Google Cloud Pub/Sub to the stock event ports.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// Receiver is the part of *pubsub.Subscription the source needs.
type Receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gpubsub.Message)) error
}

// StockEventSource implements secondary.StockEventSource over a Pub/Sub subscription.
// Message bodies are JSON stock events. Undecodable messages are acked and dropped
// so they are not redelivered forever.
type StockEventSource struct {
	sub    Receiver
	logger logrus.FieldLogger
}

// NewStockEventSource creates a source reading from sub.
func NewStockEventSource(sub Receiver, logger logrus.FieldLogger) *StockEventSource {
	return &StockEventSource{sub: sub, logger: logger}
}

// NewClient creates a Pub/Sub client, using credentialsJSON when given and
// Application Default Credentials otherwise.
func NewClient(ctx context.Context, projectID, credentialsJSON string) (*gpubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id is required")
	}
	if credentialsJSON != "" {
		return gpubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	return gpubsub.NewClient(ctx, projectID)
}

// Subscribe delivers events to handler until ctx is cancelled.
func (s *StockEventSource) Subscribe(ctx context.Context, handler secondary.StockEventHandler) error {
	err := s.sub.Receive(ctx, func(ctx context.Context, msg *gpubsub.Message) {
		var ev reorder.StockEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			s.logger.WithFields(logrus.Fields{
				"message_id": msg.ID,
				"error":      err.Error(),
			}).Warn("dropping undecodable stock event")
			msg.Ack()
			return
		}

		handler(ctx, ev)
		msg.Ack()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stock event subscription failed: %w", err)
	}
	return nil
}

// Publisher writes stock events to a topic.
type Publisher struct {
	topic *gpubsub.Topic
}

// NewPublisher creates a publisher for topic.
func NewPublisher(topic *gpubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Publish sends ev and waits for the server-assigned message ID.
func (p *Publisher) Publish(ctx context.Context, ev reorder.StockEvent) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to encode stock event: %w", err)
	}
	result := p.topic.Publish(ctx, &gpubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": ev.Type, "productId": ev.ProductID},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish stock event: %w", err)
	}
	return id, nil
}

var _ secondary.StockEventSource = (*StockEventSource)(nil)
