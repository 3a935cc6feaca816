package trader

import (
	"fmt"

	"github.com/shopspring/decimal"

	"hermes/domain/message"
)

// Position tracks one ticker's open position and PnL. Open cost is
// carried as a side-indexed VWAP numerator so partial closes realize
// against the true average entry.
type Position struct {
	Position int64

	vwapOpen [3]decimal.Decimal // side-indexed price*qty sums for the open side

	RealPnL   decimal.Decimal
	UnrealPnL decimal.Decimal
	TotalPnL  decimal.Decimal

	bbo BBO
}

func (p *Position) String() string {
	return fmt.Sprintf("<Position> [pos: %d, real: %s, unreal: %s, total: %s]",
		p.Position, p.RealPnL, p.UnrealPnL, p.TotalPnL)
}

// AddFill folds an executed quantity into the position.
func (p *Position) AddFill(r *message.ClientResponse) {
	positionOld := p.Position
	sideIdx := r.Side.Index()
	oppIdx := oppositeSide(r.Side).Index()
	sideVal := r.Side.Value()

	price := decimal.NewFromInt(int64(r.Price))
	qty := decimal.NewFromInt(int64(r.QtyExec))
	p.Position += sideVal * int64(r.QtyExec)

	if positionOld*sideVal >= 0 {
		// opened or increased: grow this side's open cost
		p.vwapOpen[sideIdx] = p.vwapOpen[sideIdx].Add(price.Mul(qty))
	} else {
		// reduced, closed, or flipped: realize against the opposite
		// side's average entry
		absOld := decimal.NewFromInt(abs64(positionOld))
		vwapOpp := p.vwapOpen[oppIdx].Div(absOld)
		p.vwapOpen[oppIdx] = vwapOpp.Mul(decimal.NewFromInt(abs64(p.Position)))

		closed := min64(int64(r.QtyExec), abs64(positionOld))
		p.RealPnL = p.RealPnL.Add(
			vwapOpp.Sub(price).
				Mul(decimal.NewFromInt(closed)).
				Mul(decimal.NewFromInt(sideVal)))

		if p.Position*positionOld < 0 {
			// flipped through zero: the remainder opens a fresh position
			p.vwapOpen[sideIdx] = price.Mul(decimal.NewFromInt(abs64(p.Position)))
			p.vwapOpen[oppIdx] = decimal.Zero
		}
	}

	if p.Position == 0 {
		p.vwapOpen[message.SideBuy.Index()] = decimal.Zero
		p.vwapOpen[message.SideSell.Index()] = decimal.Zero
		p.UnrealPnL = decimal.Zero
	} else {
		p.markOpen(price)
	}
	p.TotalPnL = p.RealPnL.Add(p.UnrealPnL)
}

// OnBBOUpdate re-marks the open position at the new mid price.
func (p *Position) OnBBOUpdate(bbo BBO) {
	p.bbo = bbo
	if p.Position == 0 || !bbo.Valid() {
		return
	}
	mid := decimal.NewFromInt(int64(bbo.Bid) + int64(bbo.Ask)).Div(decimal.NewFromInt(2))
	p.markOpen(mid)
	p.TotalPnL = p.RealPnL.Add(p.UnrealPnL)
}

func (p *Position) markOpen(mark decimal.Decimal) {
	absPos := decimal.NewFromInt(abs64(p.Position))
	if p.Position > 0 {
		entry := p.vwapOpen[message.SideBuy.Index()].Div(absPos)
		p.UnrealPnL = mark.Sub(entry).Mul(absPos)
	} else {
		entry := p.vwapOpen[message.SideSell.Index()].Div(absPos)
		p.UnrealPnL = entry.Sub(mark).Mul(absPos)
	}
}

// PositionManager holds one Position per ticker.
type PositionManager struct {
	positions []Position
}

func NewPositionManager(numTickers int) *PositionManager {
	return &PositionManager{positions: make([]Position, numTickers)}
}

// AddFill routes a FILLED response to its ticker's position.
func (m *PositionManager) AddFill(r *message.ClientResponse) {
	m.positions[r.TickerID].AddFill(r)
}

// OnBBOUpdate re-marks a ticker's open position.
func (m *PositionManager) OnBBOUpdate(ticker message.TickerID, bbo BBO) {
	m.positions[ticker].OnBBOUpdate(bbo)
}

// Position returns the tracked state for ticker.
func (m *PositionManager) Position(ticker message.TickerID) *Position {
	return &m.positions[ticker]
}

// TotalPnL sums realized and unrealized PnL across tickers.
func (m *PositionManager) TotalPnL() decimal.Decimal {
	total := decimal.Zero
	for i := range m.positions {
		total = total.Add(m.positions[i].TotalPnL)
	}
	return total
}

func oppositeSide(s message.Side) message.Side {
	if s == message.SideBuy {
		return message.SideSell
	}
	return message.SideBuy
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
