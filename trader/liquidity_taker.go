package trader

import (
	"math"

	"hermes/domain/message"
)

// LiquidityTaker chases aggressive flow: when a trade consumes a large
// enough share of the resting top of book, it joins the aggressor's
// direction at the touch.
type LiquidityTaker struct {
	features *FeatureEngine
	orders   *OrderManager
	configs  []AlgoConfig
}

func NewLiquidityTaker(features *FeatureEngine, orders *OrderManager, configs []AlgoConfig) *LiquidityTaker {
	return &LiquidityTaker{features: features, orders: orders, configs: configs}
}

func (a *LiquidityTaker) OnBookUpdate(_ message.TickerID, _ *Book) {}

func (a *LiquidityTaker) OnTrade(u *message.MarketUpdate, book *Book) {
	bbo := book.BBO()
	ratio := a.features.AggTradeQtyRatio()
	if !bbo.Valid() || math.IsNaN(ratio) {
		return
	}
	cfg := a.configs[u.TickerID]
	if ratio < cfg.Threshold {
		return
	}
	if u.Side == message.SideBuy {
		a.orders.MoveOrders(u.TickerID, bbo.Ask, message.PriceInvalid, cfg.TradeSize)
	} else {
		a.orders.MoveOrders(u.TickerID, message.PriceInvalid, bbo.Bid, cfg.TradeSize)
	}
}

func (a *LiquidityTaker) OnResponse(r *message.ClientResponse) {
	a.orders.OnResponse(r)
}
