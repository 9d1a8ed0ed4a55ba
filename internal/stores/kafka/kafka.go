// Package kafka publishes domain events for other services to consume.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"
)

type Conf struct {
	client *kgo.Client
}

func NewConf(brokers []string) (*Conf, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers provided")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &Conf{client: client}, nil
}

// ProduceOrderCreated publishes the event keyed by user id so all of one
// user's order events land on the same partition in order.
func (c *Conf) ProduceOrderCreated(ctx context.Context, event OrderCreatedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order created event: %w", err)
	}

	record := &kgo.Record{
		Topic: TopicOrderCreated,
		Key:   []byte(strconv.FormatInt(event.UserID, 10)),
		Value: value,
	}
	if err := c.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce order created event: %w", err)
	}
	return nil
}

func (c *Conf) Close() {
	c.client.Close()
}
