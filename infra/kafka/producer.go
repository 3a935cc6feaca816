// Package kafka carries the gateway's order-flow audit feed. The
// gateway worker must never wait on a broker, so records are queued
// async and delivery failures surface through the completion hook
// instead of the send path.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"hermes/pkg/logger"
)

// Producer publishes audit records keyed by the originating client, so
// each client's order flow lands on one partition in gateway order.
type Producer struct {
	writer *kafka.Writer
	log    logger.Interface
}

func NewProducer(brokers []string, topic string, log logger.Interface) *Producer {
	p := &Producer{log: log}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 5 * time.Millisecond,
		Completion:   p.onDelivery,
	}
	return p
}

// Send queues one audit record. With the writer in async mode the
// returned error only covers enqueueing; delivery outcomes arrive at
// onDelivery.
func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (p *Producer) onDelivery(messages []kafka.Message, err error) {
	if err != nil {
		p.log.Warn("audit batch delivery failed",
			zap.Int("records", len(messages)), zap.Error(err))
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
