package trader

import (
	"github.com/shopspring/decimal"

	"hermes/domain/message"
)

// RiskResult is the pre-trade check outcome.
type RiskResult int8

const (
	RiskAllowed RiskResult = iota
	RiskOrderTooLarge
	RiskPositionTooLarge
	RiskLossTooLarge
)

func (r RiskResult) String() string {
	switch r {
	case RiskAllowed:
		return "ALLOWED"
	case RiskOrderTooLarge:
		return "ORDER_TOO_LARGE"
	case RiskPositionTooLarge:
		return "POSITION_TOO_LARGE"
	case RiskLossTooLarge:
		return "LOSS_TOO_LARGE"
	}
	return "UNKNOWN"
}

// RiskConfig bounds one ticker's trading.
type RiskConfig struct {
	MaxOrderSize message.Qty
	MaxPosition  message.Qty
	MaxLoss      decimal.Decimal
}

// RiskManager runs the pre-trade checks against live positions.
type RiskManager struct {
	positions *PositionManager
	configs   []RiskConfig
}

func NewRiskManager(positions *PositionManager, configs []RiskConfig) *RiskManager {
	return &RiskManager{positions: positions, configs: configs}
}

// Check vets a prospective order of qty on side for ticker.
func (m *RiskManager) Check(ticker message.TickerID, side message.Side, qty message.Qty) RiskResult {
	cfg := m.configs[ticker]
	if qty > cfg.MaxOrderSize {
		return RiskOrderTooLarge
	}
	pos := m.positions.Position(ticker)
	if abs64(pos.Position+side.Value()*int64(qty)) > int64(cfg.MaxPosition) {
		return RiskPositionTooLarge
	}
	if pos.TotalPnL.LessThan(cfg.MaxLoss.Neg()) {
		return RiskLossTooLarge
	}
	return RiskAllowed
}
