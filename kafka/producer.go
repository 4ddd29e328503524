package kafka

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/petalmart/commerce-backend/common/logger"
)

// Producer publishes JSON events to a single topic.
type Producer struct {
	writer *kafkago.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafkago.RequireOne,
		},
	}
}

// Publish marshals value and writes it keyed by key. Keys keep events for the
// same entity in order.
func (p *Producer) Publish(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: data,
	})
	if err != nil {
		logger.Error(ctx, "failed to publish kafka message", err,
			zap.String("topic", p.writer.Topic),
			zap.String("key", key))
	}
	return err
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
