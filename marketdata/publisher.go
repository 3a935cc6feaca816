// Package marketdata implements the dissemination path: the
// incremental multicast publisher, the snapshot synthesizer, and the
// consumer-side recovery state machine.
package marketdata

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/infra/sequence"
	"hermes/pkg/logger"
	"hermes/pkg/metrics"
)

// FrameWriter sends one framed record per datagram. Implemented by
// sockets.MulticastWriter; tests substitute a capture.
type FrameWriter interface {
	WriteFrame(b []byte) error
}

// Publisher drains the engine's market update ring, stamps each update
// with the next incremental sequence number, multicasts it, and forks
// the stamped update to the snapshot synthesizer. Trades are also
// forked to the drop-copy tap when one is wired.
type Publisher struct {
	in    *memory.Ring[message.MarketUpdate]
	synth *memory.Ring[message.SequencedUpdate]
	tap   *memory.Ring[message.SequencedUpdate]
	out   FrameWriter

	seq   *sequence.Sequencer
	txBuf []byte

	log logger.Interface
	met *metrics.Metrics

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewPublisher wires the publisher. tap may be nil.
func NewPublisher(in *memory.Ring[message.MarketUpdate],
	synth *memory.Ring[message.SequencedUpdate],
	tap *memory.Ring[message.SequencedUpdate],
	out FrameWriter, log logger.Interface, met *metrics.Metrics) *Publisher {

	return &Publisher{
		in:    in,
		synth: synth,
		tap:   tap,
		out:   out,
		seq:   sequence.New(0),
		txBuf: make([]byte, message.FramedMarketUpdateSize),
		log:   log,
		met:   met,
	}
}

func (p *Publisher) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.wg.Add(1)
	go p.run()
	p.log.Info("market data publisher started")
}

func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.wg.Wait()
	p.log.Info("market data publisher stopped",
		zap.Uint64("last_n_seq", p.seq.Current()))
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for p.running.Load() {
		p.drain()
	}
	p.drain()
}

func (p *Publisher) drain() {
	for u := p.in.NextToRead(); u != nil; u = p.in.NextToRead() {
		nSeq := p.seq.Next()
		message.EncodeFramedMarketUpdate(p.txBuf, nSeq, u)
		if err := p.out.WriteFrame(p.txBuf); err != nil {
			p.log.Warn("incremental transmit failed",
				zap.Uint64("n_seq", nSeq), zap.Error(err))
		}
		p.met.UpdatesPublished.Inc()

		fork := p.synth.NextToWrite()
		fork.NSeq = nSeq
		fork.Update = *u
		p.synth.Publish()

		if p.tap != nil && u.Type == message.UpdateTrade {
			tap := p.tap.NextToWrite()
			tap.NSeq = nSeq
			tap.Update = *u
			p.tap.Publish()
		}
		p.in.Consume()
	}
}
