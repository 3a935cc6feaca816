package orderbook

import (
	"fmt"

	"hermes/domain/message"
)

// Order is a live book node. Orders are pool-allocated and linked into
// the FIFO of their price level through the intrusive prev/next pair;
// the list is circular, so Head.prev is the tail.
type Order struct {
	TickerID      message.TickerID
	ClientID      message.ClientID
	ClientOrderID message.OrderID
	MarketOrderID message.OrderID
	Side          message.Side
	Price         message.Price
	Qty           message.Qty
	Priority      message.Priority

	prev, next *Order
}

func (o *Order) String() string {
	return fmt.Sprintf("<Order> [ticker: %s, client: %s, oid_client: %s, oid_market: %s, side: %s, price: %s, qty: %s, priority: %s]",
		o.TickerID, o.ClientID, o.ClientOrderID, o.MarketOrderID, o.Side, o.Price, o.Qty, o.Priority)
}

// PriceLevel holds every resting order at one (side, price), FIFO by
// insertion. Levels form a circular doubly-linked chain per side,
// sorted most-aggressive first.
type PriceLevel struct {
	Side  message.Side
	Price message.Price
	Head  *Order

	prev, next *PriceLevel
}

// moreAggressive reports whether l would match ahead of other on the
// same side: higher price for bids, lower for asks.
func (l *PriceLevel) moreAggressive(other *PriceLevel) bool {
	if l.Side == message.SideBuy {
		return l.Price > other.Price
	}
	return l.Price < other.Price
}

// appendOrder links o in at the FIFO tail.
func (l *PriceLevel) appendOrder(o *Order) {
	if l.Head == nil {
		o.prev, o.next = o, o
		l.Head = o
		return
	}
	tail := l.Head.prev
	tail.next = o
	o.prev = tail
	o.next = l.Head
	l.Head.prev = o
}

// unlinkOrder removes o from the FIFO.
func (l *PriceLevel) unlinkOrder(o *Order) {
	if o.next == o {
		l.Head = nil
	} else {
		o.prev.next = o.next
		o.next.prev = o.prev
		if l.Head == o {
			l.Head = o.next
		}
	}
	o.prev, o.next = nil, nil
}

// tailPriority is the priority of the last order in the FIFO, or 0 for
// an empty level.
func (l *PriceLevel) tailPriority() message.Priority {
	if l.Head == nil {
		return 0
	}
	return l.Head.prev.Priority
}
