// Package trader hosts the participant side: the replica order book
// built from the public market data stream, the trading engine shell,
// and the strategy layer that reacts to it.
package trader

import (
	"fmt"

	"github.com/tidwall/btree"

	"hermes/domain/message"
	"hermes/infra/memory"
)

// BBO is the top of book with aggregated quantities.
type BBO struct {
	Bid    message.Price
	Ask    message.Price
	BidQty message.Qty
	AskQty message.Qty
}

// Valid reports whether both sides are present.
func (b BBO) Valid() bool {
	return b.Bid != message.PriceInvalid && b.Ask != message.PriceInvalid
}

func (b BBO) String() string {
	return fmt.Sprintf("<BBO> [%s@%s x %s@%s]", b.BidQty, b.Bid, b.AskQty, b.Ask)
}

type replicaOrder struct {
	orderID  message.OrderID
	side     message.Side
	price    message.Price
	qty      message.Qty
	priority message.Priority
}

type replicaLevel struct {
	qty    message.Qty
	orders int
}

// Book mirrors the published state of one ticker: every live order by
// market order id, with per-price aggregation for BBO extraction.
type Book struct {
	ticker message.TickerID

	pool   *memory.Pool[replicaOrder]
	orders map[message.OrderID]*replicaOrder
	bids   btree.Map[message.Price, *replicaLevel]
	asks   btree.Map[message.Price, *replicaLevel]

	bbo BBO
}

// NewBook sizes the replica for maxOrders live orders.
func NewBook(ticker message.TickerID, maxOrders int) *Book {
	return &Book{
		ticker: ticker,
		pool:   memory.NewPool[replicaOrder](maxOrders),
		orders: make(map[message.OrderID]*replicaOrder, maxOrders),
		bbo:    BBO{Bid: message.PriceInvalid, Ask: message.PriceInvalid, BidQty: message.QtyInvalid, AskQty: message.QtyInvalid},
	}
}

// Apply folds one public update into the replica and refreshes the BBO.
// Trades do not change resting state; the caller routes them to the
// strategy layer separately.
func (b *Book) Apply(u *message.MarketUpdate) {
	switch u.Type {
	case message.UpdateAdd:
		o := b.pool.Allocate(replicaOrder{
			orderID:  u.OrderID,
			side:     u.Side,
			price:    u.Price,
			qty:      u.Qty,
			priority: u.Priority,
		})
		b.orders[u.OrderID] = o
		b.levelAdd(u.Side, u.Price, u.Qty)
	case message.UpdateModify:
		o, ok := b.orders[u.OrderID]
		if !ok {
			return
		}
		b.levelRemove(o.side, o.price, o.qty)
		o.price = u.Price
		o.qty = u.Qty
		b.levelAdd(o.side, o.price, o.qty)
	case message.UpdateCancel:
		o, ok := b.orders[u.OrderID]
		if !ok {
			return
		}
		b.levelRemove(o.side, o.price, o.qty)
		delete(b.orders, u.OrderID)
		b.pool.Deallocate(o)
	case message.UpdateClear:
		b.Clear()
	case message.UpdateTrade:
		return
	}
	b.updateBBO()
}

// Clear empties the replica, e.g. at the head of a snapshot.
func (b *Book) Clear() {
	for id, o := range b.orders {
		delete(b.orders, id)
		b.pool.Deallocate(o)
	}
	b.bids = btree.Map[message.Price, *replicaLevel]{}
	b.asks = btree.Map[message.Price, *replicaLevel]{}
	b.updateBBO()
}

// BBO returns the current top of book.
func (b *Book) BBO() BBO { return b.bbo }

// LiveOrders counts replica entries.
func (b *Book) LiveOrders() int { return len(b.orders) }

func (b *Book) side(side message.Side) *btree.Map[message.Price, *replicaLevel] {
	if side == message.SideBuy {
		return &b.bids
	}
	return &b.asks
}

func (b *Book) levelAdd(side message.Side, price message.Price, qty message.Qty) {
	m := b.side(side)
	if lvl, ok := m.Get(price); ok {
		lvl.qty += qty
		lvl.orders++
		return
	}
	m.Set(price, &replicaLevel{qty: qty, orders: 1})
}

func (b *Book) levelRemove(side message.Side, price message.Price, qty message.Qty) {
	m := b.side(side)
	lvl, ok := m.Get(price)
	if !ok {
		return
	}
	lvl.qty -= qty
	lvl.orders--
	if lvl.orders <= 0 {
		m.Delete(price)
	}
}

func (b *Book) updateBBO() {
	b.bbo = BBO{Bid: message.PriceInvalid, Ask: message.PriceInvalid, BidQty: message.QtyInvalid, AskQty: message.QtyInvalid}
	if price, lvl, ok := b.bids.Max(); ok {
		b.bbo.Bid = price
		b.bbo.BidQty = lvl.qty
	}
	if price, lvl, ok := b.asks.Min(); ok {
		b.bbo.Ask = price
		b.bbo.AskQty = lvl.qty
	}
}
