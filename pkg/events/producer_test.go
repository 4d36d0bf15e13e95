package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mockProducer(t *testing.T) (*mocks.AsyncProducer, *Producer) {
	t.Helper()
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewAsyncProducer(t, cfg)
	return mp, newProducerWith(mp, zap.NewNop())
}

func TestSendOrderEvent(t *testing.T) {
	mp, p := mockProducer(t)

	checked := make(chan *sarama.ProducerMessage, 1)
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		checked <- msg
		return nil
	})

	p.SendOrderEvent(&OrderEvent{
		EventType:   OrderCreated,
		OrderID:     42,
		UserID:      7,
		UserLogin:   "alice",
		TotalAmount: 99.90,
		Status:      "PROCESSING",
	})

	var msg *sarama.ProducerMessage
	select {
	case msg = <-checked:
	case <-time.After(2 * time.Second):
		t.Fatal("no message produced")
	}

	assert.Equal(t, TopicOrders, msg.Topic)
	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "42", string(key))

	raw, err := msg.Value.Encode()
	require.NoError(t, err)
	var ev OrderEvent
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, OrderCreated, ev.EventType)
	assert.Equal(t, uint(42), ev.OrderID)
	assert.Equal(t, "alice", ev.UserLogin)
	assert.False(t, ev.Timestamp.IsZero())

	require.NoError(t, p.Close())
}

func TestSendProductEventKeyedByProduct(t *testing.T) {
	mp, p := mockProducer(t)

	checked := make(chan *sarama.ProducerMessage, 1)
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		checked <- msg
		return nil
	})

	p.SendProductEvent(&ProductEvent{EventType: ProductUpdated, ProductID: 5, ProductName: "Keyboard"})

	select {
	case msg := <-checked:
		assert.Equal(t, TopicProducts, msg.Topic)
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "5", string(key))
	case <-time.After(2 * time.Second):
		t.Fatal("no message produced")
	}

	require.NoError(t, p.Close())
}

func TestSendCartEventKeyedByUser(t *testing.T) {
	mp, p := mockProducer(t)

	checked := make(chan *sarama.ProducerMessage, 1)
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		checked <- msg
		return nil
	})

	p.SendCartEvent(&CartEvent{EventType: CartAdded, UserID: 7, ProductID: 5, Quantity: 2})

	select {
	case msg := <-checked:
		assert.Equal(t, TopicCart, msg.Topic)
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "7", string(key))
	case <-time.After(2 * time.Second):
		t.Fatal("no message produced")
	}

	require.NoError(t, p.Close())
}
