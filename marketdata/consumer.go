package marketdata

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/infra/sockets"
	"hermes/pkg/logger"
	"hermes/pkg/metrics"
)

// ConsumerConfig names the two multicast groups.
type ConsumerConfig struct {
	Iface           string
	IncrementalIP   string
	IncrementalPort int
	SnapshotIP      string
	SnapshotPort    int
}

// Consumer receives the incremental stream, detects loss, and when a
// gap appears rebuilds state by combining a full snapshot with the
// incrementals buffered while it was collecting. The snapshot group
// membership only exists during recovery.
type Consumer struct {
	inc      *sockets.MulticastReader
	snap     *sockets.MulticastReader
	joinSnap func() (*sockets.MulticastReader, error)

	out *memory.Ring[message.MarketUpdate]

	nextIncSeq uint64
	inRecovery bool
	queuedInc  btree.Map[uint64, message.MarketUpdate]
	queuedSnap btree.Map[uint64, message.MarketUpdate]

	log logger.Interface
	met *metrics.Metrics

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewConsumer joins the incremental group immediately; the snapshot
// group is joined on demand.
func NewConsumer(cfg ConsumerConfig, out *memory.Ring[message.MarketUpdate],
	log logger.Interface, met *metrics.Metrics) (*Consumer, error) {

	inc, err := sockets.JoinMulticast(cfg.Iface, cfg.IncrementalIP, cfg.IncrementalPort)
	if err != nil {
		return nil, err
	}
	c := newConsumer(out, log, met)
	c.inc = inc
	c.joinSnap = func() (*sockets.MulticastReader, error) {
		return sockets.JoinMulticast(cfg.Iface, cfg.SnapshotIP, cfg.SnapshotPort)
	}
	return c, nil
}

func newConsumer(out *memory.Ring[message.MarketUpdate],
	log logger.Interface, met *metrics.Metrics) *Consumer {
	return &Consumer{
		out:        out,
		nextIncSeq: 1,
		log:        log,
		met:        met,
	}
}

func (c *Consumer) Start() {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	c.wg.Add(1)
	go c.run()
	c.log.Info("market data consumer started")
}

func (c *Consumer) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.wg.Wait()
	if c.snap != nil {
		c.snap.Close()
		c.snap = nil
	}
	c.inc.Close()
	c.log.Info("market data consumer stopped",
		zap.Uint64("next_inc_seq", c.nextIncSeq))
}

func (c *Consumer) run() {
	defer c.wg.Done()
	buf := make([]byte, message.FramedMarketUpdateSize)
	for c.running.Load() {
		n, err := c.inc.ReadFrame(buf, time.Millisecond)
		if err != nil {
			c.log.Warn("incremental read failed", zap.Error(err))
		} else if n == message.FramedMarketUpdateSize {
			nSeq, u := message.DecodeFramedMarketUpdate(buf)
			c.OnIncremental(nSeq, &u)
		}

		if c.inRecovery && c.snap != nil {
			n, err := c.snap.ReadFrame(buf, time.Millisecond)
			if err != nil {
				c.log.Warn("snapshot read failed", zap.Error(err))
			} else if n == message.FramedMarketUpdateSize {
				nSeq, u := message.DecodeFramedMarketUpdate(buf)
				c.OnSnapshot(nSeq, &u)
			}
		}
	}
}

// OnIncremental processes one incremental frame. In steady state an
// exactly-expected sequence number flows straight through; anything
// else flips the consumer into recovery.
func (c *Consumer) OnIncremental(nSeq uint64, u *message.MarketUpdate) {
	if !c.inRecovery {
		if nSeq == c.nextIncSeq {
			c.forward(u)
			c.nextIncSeq++
			return
		}
		c.enterRecovery(nSeq)
	}
	c.queuedInc.Set(nSeq, *u)
	c.trySync()
}

// OnSnapshot processes one snapshot frame while recovering. A fresh
// SNAPSHOT_START discards any partially collected snapshot.
func (c *Consumer) OnSnapshot(nSeq uint64, u *message.MarketUpdate) {
	if !c.inRecovery {
		return
	}
	if u.Type == message.UpdateSnapshotStart && c.queuedSnap.Len() > 0 {
		c.log.Info("new snapshot began, restarting collection")
		c.queuedSnap = btree.Map[uint64, message.MarketUpdate]{}
	}
	c.queuedSnap.Set(nSeq, *u)
	c.trySync()
}

// InRecovery reports whether the consumer is reconstructing state.
func (c *Consumer) InRecovery() bool { return c.inRecovery }

func (c *Consumer) enterRecovery(gotSeq uint64) {
	c.inRecovery = true
	c.queuedInc = btree.Map[uint64, message.MarketUpdate]{}
	c.queuedSnap = btree.Map[uint64, message.MarketUpdate]{}
	c.met.RecoveriesEntered.Inc()
	c.log.Warn("incremental gap detected, entering recovery",
		zap.Uint64("expected", c.nextIncSeq),
		zap.Uint64("got", gotSeq))

	if c.joinSnap != nil {
		snap, err := c.joinSnap()
		if err != nil {
			c.log.Error("snapshot group join failed", zap.Error(err))
			return
		}
		c.snap = snap
	}
}

func (c *Consumer) leaveRecovery() {
	c.inRecovery = false
	c.queuedInc = btree.Map[uint64, message.MarketUpdate]{}
	c.queuedSnap = btree.Map[uint64, message.MarketUpdate]{}
	if c.snap != nil {
		c.snap.Close()
		c.snap = nil
	}
	c.log.Info("recovery complete",
		zap.Uint64("next_inc_seq", c.nextIncSeq))
}

// trySync attempts the snapshot/incremental splice after every insert.
func (c *Consumer) trySync() {
	if c.queuedSnap.Len() == 0 {
		return
	}

	// a usable snapshot begins at 0 with SNAPSHOT_START
	minKey, first, _ := c.queuedSnap.Min()
	if minKey != 0 || first.Type != message.UpdateSnapshotStart {
		c.queuedSnap = btree.Map[uint64, message.MarketUpdate]{}
		return
	}

	// keys must be the contiguous run 0..maxKey
	maxKey, last, _ := c.queuedSnap.Max()
	if int(maxKey)+1 != c.queuedSnap.Len() {
		return
	}
	if last.Type != message.UpdateSnapshotEnd {
		return
	}

	anchor := uint64(last.OrderID)
	next := anchor + 1

	// every buffered incremental from the anchor forward must be
	// contiguous, or the splice would hide a second loss
	expected := next
	contiguous := true
	c.queuedInc.Ascend(next, func(k uint64, _ message.MarketUpdate) bool {
		if k != expected {
			contiguous = false
			return false
		}
		expected++
		return true
	})
	if !contiguous {
		return
	}

	c.queuedSnap.Scan(func(_ uint64, u message.MarketUpdate) bool {
		if u.Type != message.UpdateSnapshotStart && u.Type != message.UpdateSnapshotEnd {
			c.forward(&u)
		}
		return true
	})
	c.queuedInc.Ascend(next, func(_ uint64, u message.MarketUpdate) bool {
		c.forward(&u)
		return true
	})
	c.nextIncSeq = expected

	c.leaveRecovery()
}

func (c *Consumer) forward(u *message.MarketUpdate) {
	*c.out.NextToWrite() = *u
	c.out.Publish()
}
