// Package kafka publishes dispatch events to Kafka topics, one topic per event name.
package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"dispatch/internal/core/domain/events"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Publisher sends events through a synchronous producer so Publish returns only
// after the broker acknowledged the message.
type Publisher struct {
	producer    sarama.SyncProducer
	topicPrefix string
	logger      zerolog.Logger
}

// NewProducer connects a SyncProducer that waits for all in-sync replicas.
func NewProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}

	cfg := sarama.NewConfig()
	if clientID = strings.TrimSpace(clientID); clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kafka producer")
	}
	return producer, nil
}

// NewPublisher publishes event e to topicPrefix + e.Name(), keyed by e.Key()
// so events of one delivery keep their order within a partition.
func NewPublisher(producer sarama.SyncProducer, topicPrefix string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		producer:    producer,
		topicPrefix: topicPrefix,
		logger:      logger.With().Str("component", "kafka_publisher").Logger(),
	}
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", event.Name())
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.Topic(event),
		Key:       sarama.StringEncoder(event.Key()),
		Value:     sarama.ByteEncoder(body),
		Timestamp: time.Now().UTC(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(event.Name())},
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrapf(err, "failed to publish %s to %s", event.Name(), msg.Topic)
	}

	p.logger.Debug().
		Str("event", event.Name()).
		Str("topic", msg.Topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("event published")
	return nil
}

// Topic returns the destination topic of event.
func (p *Publisher) Topic(event events.Event) string {
	return p.topicPrefix + event.Name()
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
