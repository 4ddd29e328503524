package kafka

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/petalmart/commerce-backend/common/logger"
)

// Handler processes one message. A returned error is logged; the consumer
// moves on rather than blocking the partition.
type Handler func(ctx context.Context, key, value []byte) error

// Consumer reads a topic with a consumer group and hands each message to a
// Handler.
type Consumer struct {
	reader *kafkago.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle Handler) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "kafka read failed", err, zap.String("topic", c.reader.Config().Topic))
			continue
		}
		if err := handle(ctx, msg.Key, msg.Value); err != nil {
			logger.Error(ctx, "kafka message handling failed", err,
				zap.String("topic", msg.Topic),
				zap.String("key", string(msg.Key)))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
