package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kenyawebs/Tana-Delta/internal/config"
)

type Producer struct {
	writer *kafka.Writer
}

// NewProducer hashes message keys to partitions so events for one entity
// stay in order.
func NewProducer(cfg config.KafkaConf) *Producer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: cfg.Brokers, Topic: cfg.Topic, Balancer: &kafka.Hash{}})
	return &Producer{writer: w}
}

func (p *Producer) PublishMessage(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{Key: []byte(key), Value: value, Time: time.Now()}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error { return p.writer.Close() }
