package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/example/onlineshop/pkg/config"
	"go.uber.org/zap"
)

const productListCacheKey = "products:all"

// Cache is the slice of the cache collaborator the consumer needs.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Consumer subscribes to the shop topics and folds events into the cache:
// order events become short-lived analytics entries, product events
// invalidate the cached catalog listing. It is an integration sidecar; the
// order workflow never depends on it.
type Consumer struct {
	group  sarama.ConsumerGroup
	topics []string
	cache  Cache
	logger *zap.Logger
}

func NewConsumer(cfg *config.KafkaConfig, cache Cache, logger *zap.Logger) (*Consumer, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_6_0_0
	sc.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRange
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Net.DialTimeout = 5 * time.Second

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		group:  group,
		topics: []string{TopicOrders, TopicProducts, TopicCart},
		cache:  cache,
		logger: logger,
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	handler := &groupHandler{cache: c.cache, logger: c.logger}
	for {
		if err := c.group.Consume(ctx, c.topics, handler); err != nil {
			return err
		}
		// Consume returns on rebalance or context cancellation.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	cache  Cache
	logger *zap.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.handle(sess.Context(), msg); err != nil {
			h.logger.Warn("dropping event",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
		// Mark regardless; events are observability signals, a poison
		// message must not wedge the group.
		sess.MarkMessage(msg, "")
	}
	return nil
}

func (h *groupHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	switch msg.Topic {
	case TopicOrders:
		var ev OrderEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return err
		}
		h.logger.Info("order event",
			zap.String("event_type", ev.EventType),
			zap.Uint("order_id", ev.OrderID),
			zap.Uint("user_id", ev.UserID),
			zap.Float64("amount", ev.TotalAmount))
		key := fmt.Sprintf("order:event:%d", ev.OrderID)
		return h.cache.Set(ctx, key, msg.Value, time.Hour)

	case TopicProducts:
		var ev ProductEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return err
		}
		h.logger.Info("product event",
			zap.String("event_type", ev.EventType),
			zap.Uint("product_id", ev.ProductID),
			zap.String("product_name", ev.ProductName))
		return h.cache.Del(ctx, productListCacheKey)

	case TopicCart:
		var ev CartEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return err
		}
		h.logger.Info("cart event",
			zap.String("event_type", ev.EventType),
			zap.Uint("user_id", ev.UserID),
			zap.Uint("product_id", ev.ProductID),
			zap.Int("quantity", ev.Quantity))
		return nil
	}
	return nil
}
