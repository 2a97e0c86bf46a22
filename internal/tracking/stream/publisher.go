// Package stream publishes custody events to Kafka as the operational
// audit feed.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"chaintrace/internal/tracking/models"
	id "chaintrace/pkg/domain"
)

// Publisher produces custody events to a Kafka topic. Produces are
// asynchronous; the ledger append path never waits on the broker.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// envelope is the wire form of one custody event. Events are keyed by
// transaction ID so one transaction's chain stays ordered within a
// partition.
type envelope struct {
	TransactionID string              `json:"transaction_id"`
	Event         models.CustodyEvent `json:"event"`
}

// New connects to the brokers and ensures the topic exists.
func New(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	admin := kadm.NewClient(client)
	_, err := admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("ensure topic %s: %w", topic, err)
	}
	return nil
}

// Publish produces one custody event. Failures are logged, not returned:
// the stream is an audit feed, not the system of record.
func (p *Publisher) Publish(ctx context.Context, txID id.TransactionID, event models.CustodyEvent) {
	value, err := json.Marshal(envelope{
		TransactionID: txID.String(),
		Event:         event,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode custody event",
			"transaction_id", txID.String(),
			"error", err.Error(),
		)
		return
	}

	record := &kgo.Record{
		Key:   []byte(txID.String()),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("failed to publish custody event",
				"transaction_id", txID.String(),
				"action", event.Action,
				"error", err.Error(),
			)
		}
	})
}

// Ping reports broker reachability, for health checks.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close drains in-flight produces before releasing the client.
func (p *Publisher) Close(ctx context.Context) error {
	defer p.client.Close()
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	return nil
}
