package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/pkg/logger"
	"hermes/pkg/metrics"
)

func newTestSynthesizer(numTickers int) (*Synthesizer, *captureWriter) {
	w := &captureWriter{}
	in := memory.NewRing[message.SequencedUpdate](64)
	s := NewSynthesizer(numTickers, 64, in, w, time.Hour, logger.NewNop(), metrics.NewNop())
	return s, w
}

func feed(s *Synthesizer, nSeq uint64, u message.MarketUpdate) {
	s.apply(&message.SequencedUpdate{NSeq: nSeq, Update: u})
}

func TestSnapshotOfEmptyStateWithEightTickers(t *testing.T) {
	s, w := newTestSynthesizer(8)
	s.EmitSnapshot()

	got := w.decoded()
	require.Len(t, got, 10)

	assert.Equal(t, uint64(0), got[0].NSeq)
	assert.Equal(t, message.UpdateSnapshotStart, got[0].Update.Type)
	for i := 0; i < 8; i++ {
		rec := got[i+1]
		assert.Equal(t, uint64(i+1), rec.NSeq)
		assert.Equal(t, message.UpdateClear, rec.Update.Type)
		assert.Equal(t, message.TickerID(i), rec.Update.TickerID)
	}
	assert.Equal(t, uint64(9), got[9].NSeq)
	assert.Equal(t, message.UpdateSnapshotEnd, got[9].Update.Type)
	assert.Equal(t, message.OrderID(0), got[9].Update.OrderID, "anchor is 0 before any incremental")
}

func TestSnapshotCarriesLiveOrdersInOrderIDOrder(t *testing.T) {
	s, w := newTestSynthesizer(2)
	feed(s, 1, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 2, TickerID: 1, Side: message.SideSell, Price: 101, Qty: 5, Priority: 1})
	feed(s, 2, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 1, TickerID: 0, Side: message.SideBuy, Price: 100, Qty: 10, Priority: 1})
	feed(s, 3, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 3, TickerID: 0, Side: message.SideBuy, Price: 99, Qty: 7, Priority: 1})

	s.EmitSnapshot()
	got := w.decoded()

	// START, CLEAR(0), ADD(1), ADD(3), CLEAR(1), ADD(2), END
	require.Len(t, got, 7)
	assert.Equal(t, message.UpdateClear, got[1].Update.Type)
	assert.Equal(t, message.OrderID(1), got[2].Update.OrderID)
	assert.Equal(t, message.OrderID(3), got[3].Update.OrderID)
	assert.Equal(t, message.UpdateClear, got[4].Update.Type)
	assert.Equal(t, message.OrderID(2), got[5].Update.OrderID)
	assert.Equal(t, message.Qty(5), got[5].Update.Qty)

	end := got[6]
	assert.Equal(t, message.UpdateSnapshotEnd, end.Update.Type)
	assert.Equal(t, message.OrderID(3), end.Update.OrderID, "anchor is the last forked n_seq")

	// every record takes the next n_seq
	for i, su := range got {
		assert.Equal(t, uint64(i), su.NSeq)
	}
}

func TestReplicaModifyAndCancel(t *testing.T) {
	s, _ := newTestSynthesizer(1)
	feed(s, 1, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 1, TickerID: 0, Side: message.SideBuy, Price: 100, Qty: 10, Priority: 1})
	feed(s, 2, message.MarketUpdate{Type: message.UpdateModify, OrderID: 1, TickerID: 0, Side: message.SideBuy, Price: 100, Qty: 4, Priority: 1})
	assert.Equal(t, 1, s.LiveOrders(0))

	feed(s, 3, message.MarketUpdate{Type: message.UpdateTrade, OrderID: message.OrderIDInvalid, TickerID: 0, Qty: 4})
	assert.Equal(t, 1, s.LiveOrders(0), "trades leave the replica untouched")

	feed(s, 4, message.MarketUpdate{Type: message.UpdateCancel, OrderID: 1, TickerID: 0, Side: message.SideBuy, Price: 100})
	assert.Equal(t, 0, s.LiveOrders(0))
}

func TestReplicaSequenceGapPanics(t *testing.T) {
	s, _ := newTestSynthesizer(1)
	feed(s, 1, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 1, TickerID: 0, Qty: 1})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on fork sequence gap, but got none")
		}
	}()
	feed(s, 3, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 2, TickerID: 0, Qty: 1})
}

func TestReplicaDuplicateAddPanics(t *testing.T) {
	s, _ := newTestSynthesizer(1)
	feed(s, 1, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 1, TickerID: 0, Qty: 1})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate ADD, but got none")
		}
	}()
	feed(s, 2, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 1, TickerID: 0, Qty: 1})
}

func TestReplicaModifyUnknownPanics(t *testing.T) {
	s, _ := newTestSynthesizer(1)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on MODIFY of unknown order, but got none")
		}
	}()
	feed(s, 1, message.MarketUpdate{Type: message.UpdateModify, OrderID: 9, TickerID: 0, Qty: 1})
}
