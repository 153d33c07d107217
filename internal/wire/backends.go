package wire

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/quoteflow/internal/adapters/dynamo"
	"github.com/example/quoteflow/internal/adapters/pubsub"
	"github.com/example/quoteflow/internal/adapters/redis"
	"github.com/example/quoteflow/internal/adapters/sqlite"
	"github.com/example/quoteflow/internal/config"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// newLockStore picks the processing-lock backend named by the configuration.
func newLockStore(ctx context.Context, c *config.Config, database *sql.DB) (secondary.LockStore, error) {
	switch c.LockBackend {
	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, dynamo.ClientOptions{
			Region:   c.AWSRegion,
			Endpoint: c.DynamoDBEndpoint,
		})
		if err != nil {
			return nil, err
		}
		return dynamo.NewLockStore(client, c.DynamoDBTable), nil
	case config.BackendRedis:
		client, err := redis.NewClient(ctx, c.RedisAddress, c.RedisPassword)
		if err != nil {
			return nil, err
		}
		return redis.NewLockStore(client, redis.DefaultKeyPrefix), nil
	case config.BackendSQLite, "":
		return sqlite.NewLockRepository(database), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", c.LockBackend)
	}
}

// StockEventSource returns the Pub/Sub subscription configured for stock events,
// or nil when none is configured. The returned func closes the client.
func StockEventSource(ctx context.Context) (secondary.StockEventSource, func() error, error) {
	c := Config()
	if c.PubSubProject == "" || c.PubSubSubscription == "" {
		return nil, func() error { return nil }, nil
	}
	client, err := pubsub.NewClient(ctx, c.PubSubProject, c.PubSubCredentials)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	sub := client.Subscription(c.PubSubSubscription)
	return pubsub.NewStockEventSource(sub, Logger().WithField("module", "pubsub")), client.Close, nil
}

// StockEventPublisher returns a publisher for the configured stock event topic.
// The returned func stops the topic and closes the client.
func StockEventPublisher(ctx context.Context) (*pubsub.Publisher, func() error, error) {
	c := Config()
	if c.PubSubProject == "" || c.PubSubTopic == "" {
		return nil, nil, fmt.Errorf("pubsub project and topic must be configured")
	}
	client, err := pubsub.NewClient(ctx, c.PubSubProject, c.PubSubCredentials)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	topic := client.Topic(c.PubSubTopic)
	return pubsub.NewPublisher(topic), func() error {
		topic.Stop()
		return client.Close()
	}, nil
}
