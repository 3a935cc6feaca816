package trader

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"hermes/domain/message"
)

func fill(side message.Side, price message.Price, qty message.Qty) *message.ClientResponse {
	return &message.ClientResponse{
		Type:    message.ResponseFilled,
		Side:    side,
		Price:   price,
		QtyExec: qty,
	}
}

func TestPositionRoundTripRealizesPnL(t *testing.T) {
	var p Position
	p.AddFill(fill(message.SideBuy, 100, 10))
	assert.EqualValues(t, 10, p.Position)
	assert.True(t, p.RealPnL.IsZero())

	p.AddFill(fill(message.SideSell, 110, 10))
	assert.EqualValues(t, 0, p.Position)
	assert.True(t, p.RealPnL.Equal(decimal.NewFromInt(100)), "real = %s", p.RealPnL)
	assert.True(t, p.UnrealPnL.IsZero())
	assert.True(t, p.TotalPnL.Equal(decimal.NewFromInt(100)))
}

func TestPositionPartialClose(t *testing.T) {
	var p Position
	p.AddFill(fill(message.SideBuy, 100, 10))
	p.AddFill(fill(message.SideSell, 110, 4))

	assert.EqualValues(t, 6, p.Position)
	assert.True(t, p.RealPnL.Equal(decimal.NewFromInt(40)), "real = %s", p.RealPnL)
	// remaining 6 marked at the last trade price 110 against entry 100
	assert.True(t, p.UnrealPnL.Equal(decimal.NewFromInt(60)), "unreal = %s", p.UnrealPnL)
	assert.True(t, p.TotalPnL.Equal(decimal.NewFromInt(100)))
}

func TestPositionFlipThroughZero(t *testing.T) {
	var p Position
	p.AddFill(fill(message.SideBuy, 100, 10))
	p.AddFill(fill(message.SideSell, 110, 15))

	assert.EqualValues(t, -5, p.Position)
	assert.True(t, p.RealPnL.Equal(decimal.NewFromInt(100)), "real = %s", p.RealPnL)
	// fresh short of 5 opened at 110, marked at 110
	assert.True(t, p.UnrealPnL.IsZero(), "unreal = %s", p.UnrealPnL)
}

func TestPositionMarksAtMidOnBBOUpdate(t *testing.T) {
	var p Position
	p.AddFill(fill(message.SideBuy, 100, 6))

	p.OnBBOUpdate(BBO{Bid: 104, Ask: 106, BidQty: 1, AskQty: 1})
	assert.True(t, p.UnrealPnL.Equal(decimal.NewFromInt(30)), "unreal = %s", p.UnrealPnL)
	assert.True(t, p.TotalPnL.Equal(decimal.NewFromInt(30)))
}

func TestPositionManagerAggregatesAcrossTickers(t *testing.T) {
	m := NewPositionManager(2)
	m.AddFill(&message.ClientResponse{Type: message.ResponseFilled, TickerID: 0, Side: message.SideBuy, Price: 100, QtyExec: 10})
	m.AddFill(&message.ClientResponse{Type: message.ResponseFilled, TickerID: 0, Side: message.SideSell, Price: 101, QtyExec: 10})
	m.AddFill(&message.ClientResponse{Type: message.ResponseFilled, TickerID: 1, Side: message.SideSell, Price: 50, QtyExec: 5})
	m.AddFill(&message.ClientResponse{Type: message.ResponseFilled, TickerID: 1, Side: message.SideBuy, Price: 48, QtyExec: 5})

	assert.True(t, m.TotalPnL().Equal(decimal.NewFromInt(20)), "total = %s", m.TotalPnL())
}
