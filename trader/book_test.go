package trader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/domain/message"
)

func apply(b *Book, u message.MarketUpdate) { b.Apply(&u) }

func TestReplicaBookBBO(t *testing.T) {
	b := NewBook(0, 64)
	assert.False(t, b.BBO().Valid())

	apply(b, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 1, TickerID: 0, Side: message.SideBuy, Price: 100, Qty: 10, Priority: 1})
	apply(b, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 2, TickerID: 0, Side: message.SideBuy, Price: 100, Qty: 5, Priority: 2})
	apply(b, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 3, TickerID: 0, Side: message.SideSell, Price: 102, Qty: 7, Priority: 1})

	bbo := b.BBO()
	require.True(t, bbo.Valid())
	assert.Equal(t, message.Price(100), bbo.Bid)
	assert.Equal(t, message.Qty(15), bbo.BidQty, "BBO aggregates the level")
	assert.Equal(t, message.Price(102), bbo.Ask)
	assert.Equal(t, message.Qty(7), bbo.AskQty)
}

func TestReplicaBookModifyMovesQty(t *testing.T) {
	b := NewBook(0, 64)
	apply(b, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 1, TickerID: 0, Side: message.SideSell, Price: 101, Qty: 10, Priority: 1})
	apply(b, message.MarketUpdate{Type: message.UpdateModify, OrderID: 1, TickerID: 0, Side: message.SideSell, Price: 101, Qty: 4, Priority: 1})

	assert.Equal(t, message.Qty(4), b.BBO().AskQty)
}

func TestReplicaBookCancelDropsLevel(t *testing.T) {
	b := NewBook(0, 64)
	apply(b, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 1, TickerID: 0, Side: message.SideBuy, Price: 99, Qty: 10, Priority: 1})
	apply(b, message.MarketUpdate{Type: message.UpdateCancel, OrderID: 1, TickerID: 0, Side: message.SideBuy, Price: 99})

	assert.Equal(t, 0, b.LiveOrders())
	assert.Equal(t, message.PriceInvalid, b.BBO().Bid)
}

func TestReplicaBookClear(t *testing.T) {
	b := NewBook(0, 64)
	apply(b, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 1, TickerID: 0, Side: message.SideBuy, Price: 99, Qty: 10, Priority: 1})
	apply(b, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 2, TickerID: 0, Side: message.SideSell, Price: 101, Qty: 10, Priority: 1})
	apply(b, message.MarketUpdate{Type: message.UpdateClear})

	assert.Equal(t, 0, b.LiveOrders())
	assert.False(t, b.BBO().Valid())

	// pool fully reclaimed: the same capacity is available again
	for i := 0; i < 64; i++ {
		apply(b, message.MarketUpdate{Type: message.UpdateAdd, OrderID: message.OrderID(i + 10), TickerID: 0, Side: message.SideBuy, Price: 99, Qty: 1, Priority: message.Priority(i + 1)})
	}
	assert.Equal(t, 64, b.LiveOrders())
}

func TestReplicaBookIgnoresTrades(t *testing.T) {
	b := NewBook(0, 64)
	apply(b, message.MarketUpdate{Type: message.UpdateAdd, OrderID: 1, TickerID: 0, Side: message.SideSell, Price: 101, Qty: 10, Priority: 1})
	apply(b, message.MarketUpdate{Type: message.UpdateTrade, OrderID: message.OrderIDInvalid, TickerID: 0, Side: message.SideBuy, Price: 101, Qty: 5})

	assert.Equal(t, 1, b.LiveOrders())
	assert.Equal(t, message.Qty(10), b.BBO().AskQty)
}
