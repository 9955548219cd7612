// Package kafka consumes OrderConfirmed events and hands them to the dispatch service.
package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/ports"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// OrderHandler creates deliveries for confirmed orders.
type OrderHandler interface {
	HandleOrderConfirmed(ctx context.Context, evt dispatch.OrderConfirmed) error
}

type Config struct {
	Brokers []string
	GroupID string
	Topic   string
}

// Consumer wraps a sarama consumer group. A message is committed only after
// the handler succeeded, so a failing message is redelivered.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler OrderHandler
	guard   ports.IdempotencyGuard
	logger  zerolog.Logger
	backoff time.Duration
}

// NewConsumer joins the consumer group. guard may be nil.
func NewConsumer(cfg Config, handler OrderHandler, guard ports.IdempotencyGuard, logger zerolog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || strings.TrimSpace(cfg.Topic) == "" || strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("kafka consumer needs brokers, group id and topic")
	}

	sc := sarama.NewConfig()
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kafka consumer group")
	}

	return newConsumer(group, cfg.Topic, handler, guard, logger), nil
}

func newConsumer(group sarama.ConsumerGroup, topic string, handler OrderHandler, guard ports.IdempotencyGuard, logger zerolog.Logger) *Consumer {
	return &Consumer{
		group:   group,
		topic:   topic,
		handler: handler,
		guard:   guard,
		logger:  logger.With().Str("component", "order_consumer").Str("topic", topic).Logger(),
		backoff: time.Second,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	h := &groupHandler{c: c}

	for {
		if err := c.group.Consume(ctx, []string{c.topic}, h); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error().Err(err).Msg("kafka consume failed")

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

// handle returns an error only for failures worth retrying.
func (c *Consumer) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt dispatch.OrderConfirmed
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		c.logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("kafka bad json, skipping message")
		return nil
	}
	if strings.TrimSpace(evt.OrderID) == "" {
		c.logger.Warn().Int64("offset", msg.Offset).Msg("kafka empty orderId, skipping message")
		return nil
	}

	key := "order-confirmed:" + evt.OrderID
	if c.guard != nil {
		processed, err := c.guard.IsProcessed(ctx, key)
		if err != nil {
			c.logger.Warn().Err(err).Str("order_id", evt.OrderID).Msg("idempotency check failed")
		} else if processed {
			c.logger.Debug().Str("order_id", evt.OrderID).Msg("order already processed")
			return nil
		}
	}

	if err := c.handler.HandleOrderConfirmed(ctx, evt); err != nil {
		return errors.Wrapf(err, "order %s", evt.OrderID)
	}

	if c.guard != nil {
		if err := c.guard.MarkProcessed(ctx, key); err != nil {
			c.logger.Warn().Err(err).Str("order_id", evt.OrderID).Msg("failed to mark order processed")
		}
	}
	return nil
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.c.handle(sess.Context(), msg); err != nil {
			h.c.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("kafka handle failed, will retry")
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
