package trader

import (
	"fmt"

	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/pkg/logger"
)

// OrderState tracks a managed order through its exchange lifecycle.
type OrderState int8

const (
	OrderInvalid OrderState = iota
	OrderPendingNew
	OrderLive
	OrderPendingCancel
	OrderDead
)

func (s OrderState) String() string {
	switch s {
	case OrderPendingNew:
		return "PENDING_NEW"
	case OrderLive:
		return "LIVE"
	case OrderPendingCancel:
		return "PENDING_CANCEL"
	case OrderDead:
		return "DEAD"
	}
	return "INVALID"
}

// ManagedOrder is one slot of strategy-owned exposure: at most a
// single live order per (ticker, side).
type ManagedOrder struct {
	Ticker message.TickerID
	ID     message.OrderID
	Side   message.Side
	Price  message.Price
	Qty    message.Qty
	State  OrderState
}

func (o *ManagedOrder) String() string {
	return fmt.Sprintf("<ManagedOrder> [ticker: %s, id: %s, side: %s, price: %s, qty: %s, state: %s]",
		o.Ticker, o.ID, o.Side, o.Price, o.Qty, o.State)
}

// OrderManager converges each (ticker, side) slot toward the price the
// strategy wants, issuing NEW and CANCEL requests through the gateway
// client's request ring.
type OrderManager struct {
	clientID message.ClientID
	out      *memory.Ring[message.ClientRequest]
	risk     *RiskManager

	nextOrderID message.OrderID
	slots       [][3]ManagedOrder // per ticker, side-indexed

	log logger.Interface
}

func NewOrderManager(clientID message.ClientID, numTickers int,
	out *memory.Ring[message.ClientRequest], risk *RiskManager,
	log logger.Interface) *OrderManager {

	return &OrderManager{
		clientID:    clientID,
		out:         out,
		risk:        risk,
		nextOrderID: 1,
		slots:       make([][3]ManagedOrder, numTickers),
		log:         log,
	}
}

// MoveOrders steers both sides of a ticker toward the given prices. A
// PriceInvalid side is left alone to die.
func (m *OrderManager) MoveOrders(ticker message.TickerID, bid, ask message.Price, qty message.Qty) {
	m.moveOrder(ticker, message.SideBuy, bid, qty)
	m.moveOrder(ticker, message.SideSell, ask, qty)
}

func (m *OrderManager) moveOrder(ticker message.TickerID, side message.Side, price message.Price, qty message.Qty) {
	slot := &m.slots[ticker][side.Index()]
	switch slot.State {
	case OrderLive:
		if price != message.PriceInvalid && slot.Price != price {
			m.requestCancel(slot)
		}
	case OrderInvalid, OrderDead:
		if price == message.PriceInvalid {
			return
		}
		if risk := m.risk.Check(ticker, side, qty); risk != RiskAllowed {
			m.log.Warn("order blocked by risk check",
				zap.Uint32("ticker", uint32(ticker)),
				zap.String("side", side.String()),
				zap.String("risk", risk.String()))
			return
		}
		m.requestNew(slot, ticker, side, price, qty)
	case OrderPendingNew, OrderPendingCancel:
		// in flight; reconsider on the next signal
	}
}

// OnResponse advances the slot state machine for this client's orders.
func (m *OrderManager) OnResponse(r *message.ClientResponse) {
	if int(r.TickerID) >= len(m.slots) {
		return
	}
	slot := &m.slots[r.TickerID][r.Side.Index()]
	if r.Type != message.ResponseCancelRejected && slot.ID != r.ClientOrderID {
		return
	}

	switch r.Type {
	case message.ResponseAccepted:
		if slot.State == OrderPendingNew {
			slot.State = OrderLive
		}
	case message.ResponseCancelled:
		slot.State = OrderDead
	case message.ResponseFilled:
		slot.Qty = r.QtyRemain
		if slot.Qty == 0 {
			slot.State = OrderDead
		}
	case message.ResponseCancelRejected:
		m.log.Warn("cancel rejected", zap.Uint64("order", uint64(r.ClientOrderID)))
	}
}

// Slot exposes the managed order for (ticker, side).
func (m *OrderManager) Slot(ticker message.TickerID, side message.Side) *ManagedOrder {
	return &m.slots[ticker][side.Index()]
}

func (m *OrderManager) requestNew(slot *ManagedOrder, ticker message.TickerID, side message.Side, price message.Price, qty message.Qty) {
	id := m.nextOrderID
	m.nextOrderID++

	*slot = ManagedOrder{
		Ticker: ticker,
		ID:     id,
		Side:   side,
		Price:  price,
		Qty:    qty,
		State:  OrderPendingNew,
	}
	*m.out.NextToWrite() = message.ClientRequest{
		Type:          message.RequestNew,
		ClientID:      m.clientID,
		TickerID:      ticker,
		ClientOrderID: id,
		Side:          side,
		Price:         price,
		Qty:           qty,
	}
	m.out.Publish()
}

func (m *OrderManager) requestCancel(slot *ManagedOrder) {
	slot.State = OrderPendingCancel
	*m.out.NextToWrite() = message.ClientRequest{
		Type:          message.RequestCancel,
		ClientID:      m.clientID,
		TickerID:      slot.Ticker,
		ClientOrderID: slot.ID,
		Side:          slot.Side,
		Price:         slot.Price,
		Qty:           slot.Qty,
	}
	m.out.Publish()
}
