package message

import "fmt"

// RequestType identifies a client order instruction.
type RequestType uint8

const (
	RequestInvalid RequestType = 0
	RequestNew     RequestType = 1
	RequestCancel  RequestType = 2
)

func (t RequestType) String() string {
	switch t {
	case RequestNew:
		return "NEW"
	case RequestCancel:
		return "CANCEL"
	}
	return "INVALID"
}

// ClientRequest is an order instruction flowing from a market
// participant through the order gateway into the matching engine.
type ClientRequest struct {
	Type          RequestType
	ClientID      ClientID
	TickerID      TickerID
	ClientOrderID OrderID
	Side          Side
	Price         Price
	Qty           Qty
}

func (r *ClientRequest) String() string {
	return fmt.Sprintf("<ClientRequest> [type: %s, client: %s, ticker: %s, oid: %s, side: %s, qty: %s, price: %s]",
		r.Type, r.ClientID, r.TickerID, r.ClientOrderID, r.Side, r.Qty, r.Price)
}

// ResponseType identifies the engine's answer to a client request.
type ResponseType uint8

const (
	ResponseInvalid        ResponseType = 0
	ResponseAccepted       ResponseType = 1
	ResponseCancelled      ResponseType = 2
	ResponseFilled         ResponseType = 3
	ResponseCancelRejected ResponseType = 4
)

func (t ResponseType) String() string {
	switch t {
	case ResponseAccepted:
		return "ACCEPTED"
	case ResponseCancelled:
		return "CANCELLED"
	case ResponseFilled:
		return "FILLED"
	case ResponseCancelRejected:
		return "CANCEL_REJECTED"
	}
	return "INVALID"
}

// ClientResponse is the engine's answer to a single client, routed back
// through the order gateway over the client's pinned connection.
type ClientResponse struct {
	Type          ResponseType
	ClientID      ClientID
	TickerID      TickerID
	ClientOrderID OrderID
	MarketOrderID OrderID
	Side          Side
	Price         Price
	QtyExec       Qty
	QtyRemain     Qty
}

func (r *ClientResponse) String() string {
	return fmt.Sprintf("<ClientResponse> [type: %s, client: %s, ticker: %s, oid_client: %s, oid_market: %s, side: %s, qty_exec: %s, qty_remain: %s, price: %s]",
		r.Type, r.ClientID, r.TickerID, r.ClientOrderID, r.MarketOrderID, r.Side, r.QtyExec, r.QtyRemain, r.Price)
}

// UpdateType identifies a public market data event.
type UpdateType uint8

const (
	UpdateInvalid       UpdateType = 0
	UpdateClear         UpdateType = 1
	UpdateAdd           UpdateType = 2
	UpdateModify        UpdateType = 3
	UpdateCancel        UpdateType = 4
	UpdateTrade         UpdateType = 5
	UpdateSnapshotStart UpdateType = 6
	UpdateSnapshotEnd   UpdateType = 7
)

func (t UpdateType) String() string {
	switch t {
	case UpdateClear:
		return "CLEAR"
	case UpdateAdd:
		return "ADD"
	case UpdateModify:
		return "MODIFY"
	case UpdateCancel:
		return "CANCEL"
	case UpdateTrade:
		return "TRADE"
	case UpdateSnapshotStart:
		return "SNAPSHOT_START"
	case UpdateSnapshotEnd:
		return "SNAPSHOT_END"
	}
	return "INVALID"
}

// MarketUpdate is a single delta against the public book state,
// disseminated to all participants over multicast.
type MarketUpdate struct {
	Type     UpdateType
	OrderID  OrderID
	TickerID TickerID
	Side     Side
	Price    Price
	Qty      Qty
	Priority Priority
}

func (u *MarketUpdate) String() string {
	return fmt.Sprintf("<MarketUpdate> [type: %s, ticker: %s, oid: %s, side: %s, qty: %s, price: %s, priority: %s]",
		u.Type, u.TickerID, u.OrderID, u.Side, u.Qty, u.Price, u.Priority)
}

// SequencedUpdate is a MarketUpdate stamped with its position in the
// incremental stream. The publisher forks these to the snapshot
// synthesizer and the drop-copy tap.
type SequencedUpdate struct {
	NSeq   uint64
	Update MarketUpdate
}
