package message

import (
	"math"
	"strconv"
)

// Identifier types shared by the exchange and client sides. The maximum
// value of each type is reserved as the "invalid" sentinel.
type (
	OrderID  uint64
	TickerID uint32
	ClientID uint32
	Price    int64
	Qty      uint32
	Priority uint64
)

const (
	OrderIDInvalid  OrderID  = math.MaxUint64
	TickerIDInvalid TickerID = math.MaxUint32
	ClientIDInvalid ClientID = math.MaxUint32
	PriceInvalid    Price    = math.MaxInt64
	QtyInvalid      Qty      = math.MaxUint32
	PriorityInvalid Priority = math.MaxUint64
)

// Side of the book an order rests on or aggresses into. The numeric
// values double as a position-sign multiplier, so they travel on the
// wire as a single signed byte.
type Side int8

const (
	SideInvalid Side = 0
	SideBuy     Side = 1
	SideSell    Side = -1
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	}
	return "INVALID"
}

// Index maps a side to a dense array index: SELL=0, INVALID=1, BUY=2.
func (s Side) Index() int { return int(s) + 1 }

// Value is the position-sign multiplier: +1 for BUY, -1 for SELL.
func (s Side) Value() int64 { return int64(s) }

func (id OrderID) String() string {
	if id == OrderIDInvalid {
		return "INVALID"
	}
	return strconv.FormatUint(uint64(id), 10)
}

func (id TickerID) String() string {
	if id == TickerIDInvalid {
		return "INVALID"
	}
	return strconv.FormatUint(uint64(id), 10)
}

func (id ClientID) String() string {
	if id == ClientIDInvalid {
		return "INVALID"
	}
	return strconv.FormatUint(uint64(id), 10)
}

func (p Price) String() string {
	if p == PriceInvalid {
		return "INVALID"
	}
	return strconv.FormatInt(int64(p), 10)
}

func (q Qty) String() string {
	if q == QtyInvalid {
		return "INVALID"
	}
	return strconv.FormatUint(uint64(q), 10)
}

func (p Priority) String() string {
	if p == PriorityInvalid {
		return "INVALID"
	}
	return strconv.FormatUint(uint64(p), 10)
}
