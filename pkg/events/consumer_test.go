package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingCache struct {
	sets map[string]time.Duration
	dels []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{sets: make(map[string]time.Duration)}
}

func (c *recordingCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.sets[key] = expiration
	return nil
}

func (c *recordingCache) Del(ctx context.Context, keys ...string) error {
	c.dels = append(c.dels, keys...)
	return nil
}

func TestHandleOrderEventCachesAnalyticsEntry(t *testing.T) {
	cache := newRecordingCache()
	h := &groupHandler{cache: cache, logger: zap.NewNop()}

	value, err := json.Marshal(&OrderEvent{EventType: OrderCreated, OrderID: 42, UserID: 7, TotalAmount: 10})
	require.NoError(t, err)

	err = h.handle(context.Background(), &sarama.ConsumerMessage{Topic: TopicOrders, Value: value})
	require.NoError(t, err)

	ttl, ok := cache.sets["order:event:42"]
	require.True(t, ok)
	assert.Equal(t, time.Hour, ttl)
}

func TestHandleProductEventInvalidatesListing(t *testing.T) {
	cache := newRecordingCache()
	h := &groupHandler{cache: cache, logger: zap.NewNop()}

	value, err := json.Marshal(&ProductEvent{EventType: ProductDeleted, ProductID: 5})
	require.NoError(t, err)

	err = h.handle(context.Background(), &sarama.ConsumerMessage{Topic: TopicProducts, Value: value})
	require.NoError(t, err)

	assert.Equal(t, []string{productListCacheKey}, cache.dels)
}

func TestHandleMalformedPayload(t *testing.T) {
	cache := newRecordingCache()
	h := &groupHandler{cache: cache, logger: zap.NewNop()}

	err := h.handle(context.Background(), &sarama.ConsumerMessage{Topic: TopicOrders, Value: []byte("{broken")})
	assert.Error(t, err)
	assert.Empty(t, cache.sets)
}
