package orderbook

import (
	"fmt"

	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/infra/sequence"
	"hermes/pkg/logger"
)

// EventSink receives the responses and market updates a book emits
// while mutating. The matching engine implements it on top of its
// outbound rings.
type EventSink interface {
	SendClientResponse(r *message.ClientResponse)
	SendMarketUpdate(u *message.MarketUpdate)
}

type clientOrderKey struct {
	client message.ClientID
	oid    message.OrderID
}

// Book is the limit order book for one ticker: a circular price-level
// chain per side, most aggressive level at the head, a direct-address
// table from price to level, and an O(1) lookup from
// (client, client-order-id) to the live order. All nodes come from
// fixed pools; nothing allocates during an operation.
type Book struct {
	tickerID message.TickerID
	sink     EventSink
	log      logger.Interface

	orders *memory.Pool[Order]
	levels *memory.Pool[PriceLevel]

	bids *PriceLevel
	asks *PriceLevel

	levelAt       []*PriceLevel
	byClientOrder map[clientOrderKey]*Order

	marketOrderIDs *sequence.Sequencer
}

// New builds an empty book. maxOrders bounds live orders, maxLevels
// bounds distinct price levels and sizes the direct-address table.
func New(tickerID message.TickerID, maxOrders, maxLevels int, sink EventSink, log logger.Interface) *Book {
	return &Book{
		tickerID:       tickerID,
		sink:           sink,
		log:            log,
		orders:         memory.NewPool[Order](maxOrders),
		levels:         memory.NewPool[PriceLevel](maxLevels),
		levelAt:        make([]*PriceLevel, maxLevels),
		byClientOrder:  make(map[clientOrderKey]*Order, maxOrders),
		marketOrderIDs: sequence.New(0),
	}
}

// Add accepts a new order, matches it against the opposite side and
// rests any residual quantity. The ACCEPTED response is emitted before
// matching so the client observes accept-then-fill ordering.
func (b *Book) Add(clientID message.ClientID, clientOrderID message.OrderID, side message.Side, price message.Price, qty message.Qty) {
	marketOrderID := message.OrderID(b.marketOrderIDs.Next())

	accepted := message.ClientResponse{
		Type:          message.ResponseAccepted,
		ClientID:      clientID,
		TickerID:      b.tickerID,
		ClientOrderID: clientOrderID,
		MarketOrderID: marketOrderID,
		Side:          side,
		Price:         price,
		QtyExec:       0,
		QtyRemain:     qty,
	}
	b.sink.SendClientResponse(&accepted)

	remaining := b.match(clientID, clientOrderID, marketOrderID, side, price, qty)
	if remaining > 0 {
		b.rest(clientID, clientOrderID, marketOrderID, side, price, remaining)
	}
}

// Cancel removes the live order for (clientID, clientOrderID). An
// unknown mapping is the one protocol-level failure the book reports:
// CANCEL_REJECTED with invalid quantities.
func (b *Book) Cancel(clientID message.ClientID, clientOrderID message.OrderID) {
	o, ok := b.byClientOrder[clientOrderKey{clientID, clientOrderID}]
	if !ok {
		rejected := message.ClientResponse{
			Type:          message.ResponseCancelRejected,
			ClientID:      clientID,
			TickerID:      b.tickerID,
			ClientOrderID: clientOrderID,
			MarketOrderID: message.OrderIDInvalid,
			Side:          message.SideInvalid,
			Price:         message.PriceInvalid,
			QtyExec:       message.QtyInvalid,
			QtyRemain:     message.QtyInvalid,
		}
		b.sink.SendClientResponse(&rejected)
		b.log.Warn("cancel rejected",
			zap.Uint32("client", uint32(clientID)),
			zap.Uint64("client_order_id", uint64(clientOrderID)))
		return
	}

	cancelled := message.ClientResponse{
		Type:          message.ResponseCancelled,
		ClientID:      clientID,
		TickerID:      b.tickerID,
		ClientOrderID: clientOrderID,
		MarketOrderID: o.MarketOrderID,
		Side:          o.Side,
		Price:         o.Price,
		QtyExec:       message.QtyInvalid,
		QtyRemain:     o.Qty,
	}
	b.sink.SendClientResponse(&cancelled)

	update := message.MarketUpdate{
		Type:     message.UpdateCancel,
		OrderID:  o.MarketOrderID,
		TickerID: b.tickerID,
		Side:     o.Side,
		Price:    o.Price,
		Qty:      o.Qty,
		Priority: message.PriorityInvalid,
	}
	b.remove(o)
	b.sink.SendMarketUpdate(&update)
}

// match walks the opposite chain best-price-first, head-order-first,
// until the aggressor is exhausted or no longer crosses. Trades print
// at the passive order's price. Returns the unmatched remainder.
func (b *Book) match(clientID message.ClientID, clientOrderID, marketOrderID message.OrderID, side message.Side, price message.Price, qty message.Qty) message.Qty {
	remaining := qty
	for remaining > 0 {
		opp := b.oppositeHead(side)
		if opp == nil || !crosses(side, price, opp.Price) {
			break
		}
		passive := opp.Head

		fill := remaining
		if passive.Qty < fill {
			fill = passive.Qty
		}
		remaining -= fill
		passive.Qty -= fill

		aggressorFill := message.ClientResponse{
			Type:          message.ResponseFilled,
			ClientID:      clientID,
			TickerID:      b.tickerID,
			ClientOrderID: clientOrderID,
			MarketOrderID: marketOrderID,
			Side:          side,
			Price:         passive.Price,
			QtyExec:       fill,
			QtyRemain:     remaining,
		}
		b.sink.SendClientResponse(&aggressorFill)

		passiveFill := message.ClientResponse{
			Type:          message.ResponseFilled,
			ClientID:      passive.ClientID,
			TickerID:      b.tickerID,
			ClientOrderID: passive.ClientOrderID,
			MarketOrderID: passive.MarketOrderID,
			Side:          passive.Side,
			Price:         passive.Price,
			QtyExec:       fill,
			QtyRemain:     passive.Qty,
		}
		b.sink.SendClientResponse(&passiveFill)

		trade := message.MarketUpdate{
			Type:     message.UpdateTrade,
			OrderID:  message.OrderIDInvalid,
			TickerID: b.tickerID,
			Side:     side,
			Price:    passive.Price,
			Qty:      fill,
			Priority: message.PriorityInvalid,
		}
		b.sink.SendMarketUpdate(&trade)

		if passive.Qty == 0 {
			gone := message.MarketUpdate{
				Type:     message.UpdateCancel,
				OrderID:  passive.MarketOrderID,
				TickerID: b.tickerID,
				Side:     passive.Side,
				Price:    passive.Price,
				Qty:      0,
				Priority: message.PriorityInvalid,
			}
			b.remove(passive)
			b.sink.SendMarketUpdate(&gone)
		} else {
			modified := message.MarketUpdate{
				Type:     message.UpdateModify,
				OrderID:  passive.MarketOrderID,
				TickerID: b.tickerID,
				Side:     passive.Side,
				Price:    passive.Price,
				Qty:      passive.Qty,
				Priority: passive.Priority,
			}
			b.sink.SendMarketUpdate(&modified)
		}
	}
	return remaining
}

// rest links the residual quantity into the book and publishes the ADD
// with its assigned FIFO priority.
func (b *Book) rest(clientID message.ClientID, clientOrderID, marketOrderID message.OrderID, side message.Side, price message.Price, qty message.Qty) {
	level := b.levelFor(side, price)
	var priority message.Priority
	if level == nil {
		level = b.insertLevel(side, price)
		priority = 1
	} else {
		priority = level.tailPriority() + 1
	}

	o := b.orders.Allocate(Order{
		TickerID:      b.tickerID,
		ClientID:      clientID,
		ClientOrderID: clientOrderID,
		MarketOrderID: marketOrderID,
		Side:          side,
		Price:         price,
		Qty:           qty,
		Priority:      priority,
	})
	level.appendOrder(o)
	b.byClientOrder[clientOrderKey{clientID, clientOrderID}] = o

	added := message.MarketUpdate{
		Type:     message.UpdateAdd,
		OrderID:  marketOrderID,
		TickerID: b.tickerID,
		Side:     side,
		Price:    price,
		Qty:      qty,
		Priority: priority,
	}
	b.sink.SendMarketUpdate(&added)
}

// remove unlinks o from its level, drops the level when it empties,
// and returns both nodes to their pools.
func (b *Book) remove(o *Order) {
	level := b.levelFor(o.Side, o.Price)
	if level == nil {
		panic(fmt.Sprintf("orderbook: order %s not reachable from price table", o))
	}
	level.unlinkOrder(o)
	if level.Head == nil {
		b.removeLevel(level)
	}
	delete(b.byClientOrder, clientOrderKey{o.ClientID, o.ClientOrderID})
	b.orders.Deallocate(o)
}

func crosses(side message.Side, limit, passive message.Price) bool {
	if side == message.SideBuy {
		return passive <= limit
	}
	return passive >= limit
}

func (b *Book) oppositeHead(side message.Side) *PriceLevel {
	if side == message.SideSell {
		return b.bids
	}
	return b.asks
}

func (b *Book) sideHead(side message.Side) *PriceLevel {
	if side == message.SideBuy {
		return b.bids
	}
	return b.asks
}

func (b *Book) setSideHead(side message.Side, l *PriceLevel) {
	if side == message.SideBuy {
		b.bids = l
	} else {
		b.asks = l
	}
}

// levelFor resolves (side, price) through the direct-address table.
// The traded price range must not collide modulo the table size; a
// collision means the price is out of the book's configured range.
func (b *Book) levelFor(side message.Side, price message.Price) *PriceLevel {
	l := b.levelAt[b.priceIndex(price)]
	if l == nil {
		return nil
	}
	if l.Price != price {
		panic(fmt.Sprintf("orderbook: price %s collides with level at %s (table size %d)", price, l.Price, len(b.levelAt)))
	}
	if l.Side != side {
		return nil
	}
	return l
}

func (b *Book) priceIndex(price message.Price) int {
	n := message.Price(len(b.levelAt))
	return int(((price % n) + n) % n)
}

// insertLevel allocates a level for (side, price) and links it into
// the side's chain: walk from the head, insert before the first level
// it beats, promote to head when it beats the current head.
func (b *Book) insertLevel(side message.Side, price message.Price) *PriceLevel {
	idx := b.priceIndex(price)
	if b.levelAt[idx] != nil {
		panic(fmt.Sprintf("orderbook: price %s collides with level at %s (table size %d)", price, b.levelAt[idx].Price, len(b.levelAt)))
	}

	nl := b.levels.Allocate(PriceLevel{Side: side, Price: price})
	b.levelAt[idx] = nl

	head := b.sideHead(side)
	if head == nil {
		nl.prev, nl.next = nl, nl
		b.setSideHead(side, nl)
		return nl
	}

	cur := head
	for {
		if nl.moreAggressive(cur) {
			nl.prev = cur.prev
			nl.next = cur
			cur.prev.next = nl
			cur.prev = nl
			if cur == head {
				b.setSideHead(side, nl)
			}
			return nl
		}
		cur = cur.next
		if cur == head {
			// least aggressive on its side: link in at the tail
			nl.prev = head.prev
			nl.next = head
			head.prev.next = nl
			head.prev = nl
			return nl
		}
	}
}

// removeLevel unlinks an emptied level from its side's chain.
func (b *Book) removeLevel(l *PriceLevel) {
	if l.next == l {
		b.setSideHead(l.Side, nil)
	} else {
		l.prev.next = l.next
		l.next.prev = l.prev
		if b.sideHead(l.Side) == l {
			b.setSideHead(l.Side, l.next)
		}
	}
	b.levelAt[b.priceIndex(l.Price)] = nil
	l.prev, l.next = nil, nil
	b.levels.Deallocate(l)
}

// LiveOrders counts orders currently resting in the book.
func (b *Book) LiveOrders() int { return len(b.byClientOrder) }

// LastMarketOrderID is the most recently assigned market order id.
func (b *Book) LastMarketOrderID() message.OrderID {
	return message.OrderID(b.marketOrderIDs.Current())
}
