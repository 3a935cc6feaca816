// Package dropcopy publishes every executed trade to Kafka for
// downstream surveillance and reporting consumers. It rides the
// publisher's trade tap, so the multicast hot path never waits on a
// broker.
package dropcopy

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/pkg/logger"
)

// Event is the published trade record.
type Event struct {
	V        int    `json:"v"`
	NSeq     uint64 `json:"n_seq"`
	TickerID uint32 `json:"ticker_id"`
	Side     string `json:"side"`
	Price    int64  `json:"price"`
	Qty      uint32 `json:"qty"`
}

// DropCopy drains the trade tap on a fixed cadence and forwards each
// trade to the configured topic.
type DropCopy struct {
	tap      *memory.Ring[message.SequencedUpdate]
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      logger.Interface
}

// New connects the sync producer. Delivery is acknowledged by all
// in-sync replicas before the next trade is sent.
func New(tap *memory.Ring[message.SequencedUpdate], brokers []string, topic string,
	interval time.Duration, log logger.Interface) (*DropCopy, error) {

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &DropCopy{
		tap:      tap,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}, nil
}

// Run drains until ctx is cancelled.
func (d *DropCopy) Run(ctx context.Context) {
	d.log.Info("trade drop-copy started", zap.String("topic", d.topic))
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.drainOnce()
			return
		case <-ticker.C:
			d.drainOnce()
		}
	}
}

func (d *DropCopy) drainOnce() {
	for su := d.tap.NextToRead(); su != nil; su = d.tap.NextToRead() {
		ev := Event{
			V:        1,
			NSeq:     su.NSeq,
			TickerID: uint32(su.Update.TickerID),
			Side:     su.Update.Side.String(),
			Price:    int64(su.Update.Price),
			Qty:      uint32(su.Update.Qty),
		}
		value, err := json.Marshal(ev)
		if err != nil {
			d.tap.Consume()
			continue
		}
		msg := &sarama.ProducerMessage{
			Topic: d.topic,
			Value: sarama.ByteEncoder(value),
		}
		if _, _, err := d.producer.SendMessage(msg); err != nil {
			// leave the trade queued and retry next tick
			d.log.Warn("drop-copy publish failed", zap.Error(err))
			return
		}
		d.tap.Consume()
	}
}

func (d *DropCopy) Close() error {
	return d.producer.Close()
}
