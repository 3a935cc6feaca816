package trader

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/pkg/logger"
)

func newTestOrderManager(maxOrderSize, maxPosition message.Qty) (*OrderManager, *memory.Ring[message.ClientRequest], *PositionManager) {
	out := memory.NewRing[message.ClientRequest](64)
	positions := NewPositionManager(2)
	risk := NewRiskManager(positions, []RiskConfig{
		{MaxOrderSize: maxOrderSize, MaxPosition: maxPosition, MaxLoss: decimal.NewFromInt(1000)},
		{MaxOrderSize: maxOrderSize, MaxPosition: maxPosition, MaxLoss: decimal.NewFromInt(1000)},
	})
	return NewOrderManager(7, 2, out, risk, logger.NewNop()), out, positions
}

func drainRequests(r *memory.Ring[message.ClientRequest]) []message.ClientRequest {
	var out []message.ClientRequest
	for v := r.NextToRead(); v != nil; v = r.NextToRead() {
		out = append(out, *v)
		r.Consume()
	}
	return out
}

func TestOrderManagerQuotesBothSides(t *testing.T) {
	m, out, _ := newTestOrderManager(100, 1000)
	m.MoveOrders(0, 99, 101, 10)

	reqs := drainRequests(out)
	require.Len(t, reqs, 2)
	assert.Equal(t, message.RequestNew, reqs[0].Type)
	assert.Equal(t, message.SideBuy, reqs[0].Side)
	assert.Equal(t, message.Price(99), reqs[0].Price)
	assert.Equal(t, message.SideSell, reqs[1].Side)
	assert.Equal(t, message.ClientID(7), reqs[1].ClientID)

	assert.Equal(t, OrderPendingNew, m.Slot(0, message.SideBuy).State)
	// in-flight slots do not re-quote
	m.MoveOrders(0, 99, 101, 10)
	assert.Empty(t, drainRequests(out))
}

func TestOrderManagerLifecycle(t *testing.T) {
	m, out, _ := newTestOrderManager(100, 1000)
	m.MoveOrders(0, 99, message.PriceInvalid, 10)
	reqs := drainRequests(out)
	require.Len(t, reqs, 1)
	id := reqs[0].ClientOrderID

	m.OnResponse(&message.ClientResponse{
		Type: message.ResponseAccepted, TickerID: 0,
		ClientOrderID: id, Side: message.SideBuy, Price: 99,
	})
	assert.Equal(t, OrderLive, m.Slot(0, message.SideBuy).State)

	// price moves: the live order is cancelled
	m.MoveOrders(0, 98, message.PriceInvalid, 10)
	reqs = drainRequests(out)
	require.Len(t, reqs, 1)
	assert.Equal(t, message.RequestCancel, reqs[0].Type)
	assert.Equal(t, OrderPendingCancel, m.Slot(0, message.SideBuy).State)

	m.OnResponse(&message.ClientResponse{
		Type: message.ResponseCancelled, TickerID: 0,
		ClientOrderID: id, Side: message.SideBuy, Price: 99,
	})
	assert.Equal(t, OrderDead, m.Slot(0, message.SideBuy).State)

	// a dead slot re-quotes at the new price
	m.MoveOrders(0, 98, message.PriceInvalid, 10)
	reqs = drainRequests(out)
	require.Len(t, reqs, 1)
	assert.Equal(t, message.RequestNew, reqs[0].Type)
	assert.Equal(t, message.Price(98), reqs[0].Price)
	assert.Greater(t, uint64(reqs[0].ClientOrderID), uint64(id), "order ids advance")
}

func TestOrderManagerFullFillKillsSlot(t *testing.T) {
	m, out, _ := newTestOrderManager(100, 1000)
	m.MoveOrders(1, 99, message.PriceInvalid, 10)
	id := drainRequests(out)[0].ClientOrderID

	m.OnResponse(&message.ClientResponse{
		Type: message.ResponseAccepted, TickerID: 1,
		ClientOrderID: id, Side: message.SideBuy,
	})
	m.OnResponse(&message.ClientResponse{
		Type: message.ResponseFilled, TickerID: 1,
		ClientOrderID: id, Side: message.SideBuy, QtyExec: 10, QtyRemain: 0,
	})
	assert.Equal(t, OrderDead, m.Slot(1, message.SideBuy).State)
}

func TestOrderManagerRiskBlocksOversizedOrder(t *testing.T) {
	m, out, _ := newTestOrderManager(5, 1000)
	m.MoveOrders(0, 99, 101, 10) // qty 10 > max order size 5
	assert.Empty(t, drainRequests(out))
	assert.Equal(t, OrderInvalid, m.Slot(0, message.SideBuy).State)
}

func TestOrderManagerRiskBlocksPositionBreach(t *testing.T) {
	m, out, positions := newTestOrderManager(100, 15)
	positions.AddFill(&message.ClientResponse{
		Type: message.ResponseFilled, TickerID: 0,
		Side: message.SideBuy, Price: 100, QtyExec: 10,
	})

	m.MoveOrders(0, 99, message.PriceInvalid, 10) // would reach 20 > 15
	assert.Empty(t, drainRequests(out))
}
