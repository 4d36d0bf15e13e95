package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/example/onlineshop/pkg/config"
	"go.uber.org/zap"
)

// Producer publishes domain events to Kafka fire-and-forget. Delivery
// results come back on the async producer's channels and are only logged;
// a publish failure never reaches the caller.
type Producer struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger
}

func NewProducer(cfg *config.KafkaConfig, logger *zap.Logger) (*Producer, error) {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Net.DialTimeout = 5 * time.Second

	ap, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, err
	}

	p := &Producer{producer: ap, logger: logger}
	go p.drain()
	return p, nil
}

// newProducerWith wires an already-built async producer; tests use it with
// the sarama mock producer.
func newProducerWith(ap sarama.AsyncProducer, logger *zap.Logger) *Producer {
	p := &Producer{producer: ap, logger: logger}
	go p.drain()
	return p
}

func (p *Producer) drain() {
	for {
		select {
		case msg, ok := <-p.producer.Successes():
			if !ok {
				return
			}
			p.logger.Info("event published",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset))
		case perr, ok := <-p.producer.Errors():
			if !ok {
				return
			}
			p.logger.Error("event publish failed",
				zap.String("topic", perr.Msg.Topic),
				zap.Error(perr.Err))
		}
	}
}

func (p *Producer) SendOrderEvent(ev *OrderEvent) {
	ev.Timestamp = time.Now()
	p.send(TopicOrders, strconv.FormatUint(uint64(ev.OrderID), 10), ev)
}

func (p *Producer) SendProductEvent(ev *ProductEvent) {
	ev.Timestamp = time.Now()
	p.send(TopicProducts, strconv.FormatUint(uint64(ev.ProductID), 10), ev)
}

func (p *Producer) SendCartEvent(ev *CartEvent) {
	ev.Timestamp = time.Now()
	p.send(TopicCart, strconv.FormatUint(uint64(ev.UserID), 10), ev)
}

func (p *Producer) send(topic, key string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode event", zap.String("topic", topic), zap.Error(err))
		return
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
