package trader

import (
	"math"

	"hermes/domain/message"
)

// AlgoConfig parameterizes a strategy per ticker.
type AlgoConfig struct {
	TradeSize message.Qty
	Threshold float64
}

// MarketMaker quotes both sides around the fair price, joining the BBO
// when the fair value leaves enough edge and backing off one tick when
// it does not.
type MarketMaker struct {
	features *FeatureEngine
	orders   *OrderManager
	configs  []AlgoConfig
}

func NewMarketMaker(features *FeatureEngine, orders *OrderManager, configs []AlgoConfig) *MarketMaker {
	return &MarketMaker{features: features, orders: orders, configs: configs}
}

func (a *MarketMaker) OnBookUpdate(ticker message.TickerID, book *Book) {
	bbo := book.BBO()
	fair := a.features.MarketPrice()
	if !bbo.Valid() || math.IsNaN(fair) {
		return
	}
	cfg := a.configs[ticker]

	bid := bbo.Bid
	if fair-float64(bbo.Bid) < cfg.Threshold {
		bid--
	}
	ask := bbo.Ask
	if float64(bbo.Ask)-fair < cfg.Threshold {
		ask++
	}
	a.orders.MoveOrders(ticker, bid, ask, cfg.TradeSize)
}

func (a *MarketMaker) OnTrade(_ *message.MarketUpdate, _ *Book) {}

func (a *MarketMaker) OnResponse(r *message.ClientResponse) {
	a.orders.OnResponse(r)
}
