package marketdata

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/pkg/logger"
	"hermes/pkg/metrics"
)

// Synthesizer rebuilds the live book state from the publisher's forked
// incremental stream and periodically multicasts a full snapshot for
// late joiners and recovering consumers. The replica trusts the stream
// completely: any sequence gap or inconsistent update means the
// publisher fork is broken and the process dies.
type Synthesizer struct {
	in  *memory.Ring[message.SequencedUpdate]
	out FrameWriter

	interval time.Duration
	lastSnap time.Time

	lastIncSeq uint64
	orders     []btree.Map[message.OrderID, *message.MarketUpdate]
	pool       *memory.Pool[message.MarketUpdate]

	txBuf []byte

	log logger.Interface
	met *metrics.Metrics

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewSynthesizer sizes the replica for numTickers books of up to
// maxOrders live orders in total.
func NewSynthesizer(numTickers, maxOrders int,
	in *memory.Ring[message.SequencedUpdate], out FrameWriter,
	interval time.Duration, log logger.Interface, met *metrics.Metrics) *Synthesizer {

	return &Synthesizer{
		in:       in,
		out:      out,
		interval: interval,
		orders:   make([]btree.Map[message.OrderID, *message.MarketUpdate], numTickers),
		pool:     memory.NewPool[message.MarketUpdate](maxOrders),
		txBuf:    make([]byte, message.FramedMarketUpdateSize),
		log:      log,
		met:      met,
	}
}

func (s *Synthesizer) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.lastSnap = time.Now()
	s.wg.Add(1)
	go s.run()
	s.log.Info("snapshot synthesizer started",
		zap.Duration("interval", s.interval))
}

func (s *Synthesizer) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.wg.Wait()
	s.log.Info("snapshot synthesizer stopped")
}

func (s *Synthesizer) run() {
	defer s.wg.Done()
	for s.running.Load() {
		drained := false
		for su := s.in.NextToRead(); su != nil; su = s.in.NextToRead() {
			s.apply(su)
			s.in.Consume()
			drained = true
		}
		if time.Since(s.lastSnap) >= s.interval {
			s.EmitSnapshot()
			s.lastSnap = time.Now()
		}
		if !drained {
			time.Sleep(time.Millisecond)
		}
	}
}

// apply folds one forked update into the replica.
func (s *Synthesizer) apply(su *message.SequencedUpdate) {
	if su.NSeq != s.lastIncSeq+1 {
		panic(fmt.Sprintf("marketdata: synthesizer fork gap: n_seq %d after %d", su.NSeq, s.lastIncSeq))
	}
	s.lastIncSeq = su.NSeq

	u := &su.Update
	if int(u.TickerID) >= len(s.orders) {
		panic(fmt.Sprintf("marketdata: synthesizer update for ticker %s out of range", u.TickerID))
	}
	book := &s.orders[u.TickerID]

	switch u.Type {
	case message.UpdateAdd:
		if _, exists := book.Get(u.OrderID); exists {
			panic(fmt.Sprintf("marketdata: duplicate ADD for order %s", u.OrderID))
		}
		book.Set(u.OrderID, s.pool.Allocate(*u))
	case message.UpdateModify:
		entry, exists := book.Get(u.OrderID)
		if !exists {
			panic(fmt.Sprintf("marketdata: MODIFY for unknown order %s", u.OrderID))
		}
		entry.Qty = u.Qty
		entry.Price = u.Price
	case message.UpdateCancel:
		entry, exists := book.Get(u.OrderID)
		if !exists {
			panic(fmt.Sprintf("marketdata: CANCEL for unknown order %s", u.OrderID))
		}
		book.Delete(u.OrderID)
		s.pool.Deallocate(entry)
	case message.UpdateTrade:
		// trades do not change resting state
	default:
		panic(fmt.Sprintf("marketdata: synthesizer cannot apply %s", u.Type))
	}
}

// EmitSnapshot multicasts one full snapshot: SNAPSHOT_START, then for
// every ticker a CLEAR followed by its live orders in order-id order,
// then SNAPSHOT_END carrying the incremental anchor in its order id.
// Snapshot sequence numbers restart at 0 every emission.
func (s *Synthesizer) EmitSnapshot() {
	anchor := s.lastIncSeq
	nSeq := uint64(0)

	s.send(&message.MarketUpdate{
		Type:     message.UpdateSnapshotStart,
		OrderID:  message.OrderID(anchor),
		TickerID: message.TickerIDInvalid,
		Side:     message.SideInvalid,
		Price:    message.PriceInvalid,
		Qty:      message.QtyInvalid,
		Priority: message.PriorityInvalid,
	}, &nSeq)

	for t := range s.orders {
		s.send(&message.MarketUpdate{
			Type:     message.UpdateClear,
			OrderID:  message.OrderIDInvalid,
			TickerID: message.TickerID(t),
			Side:     message.SideInvalid,
			Price:    message.PriceInvalid,
			Qty:      message.QtyInvalid,
			Priority: message.PriorityInvalid,
		}, &nSeq)

		s.orders[t].Scan(func(_ message.OrderID, entry *message.MarketUpdate) bool {
			add := *entry
			add.Type = message.UpdateAdd
			s.send(&add, &nSeq)
			return true
		})
	}

	s.send(&message.MarketUpdate{
		Type:     message.UpdateSnapshotEnd,
		OrderID:  message.OrderID(anchor),
		TickerID: message.TickerIDInvalid,
		Side:     message.SideInvalid,
		Price:    message.PriceInvalid,
		Qty:      message.QtyInvalid,
		Priority: message.PriorityInvalid,
	}, &nSeq)

	s.met.SnapshotsPublished.Inc()
	s.log.Debug("snapshot emitted",
		zap.Uint64("anchor", anchor), zap.Uint64("records", nSeq))
}

func (s *Synthesizer) send(u *message.MarketUpdate, nSeq *uint64) {
	message.EncodeFramedMarketUpdate(s.txBuf, *nSeq, u)
	if err := s.out.WriteFrame(s.txBuf); err != nil {
		s.log.Warn("snapshot transmit failed",
			zap.Uint64("n_seq", *nSeq), zap.Error(err))
	}
	*nSeq++
}

// LiveOrders counts replica entries for ticker. Used by tests.
func (s *Synthesizer) LiveOrders(ticker message.TickerID) int {
	return s.orders[ticker].Len()
}
