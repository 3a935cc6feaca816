package trader

import (
	"math/rand"

	"hermes/domain/message"
)

// RandomTrader places random orders near the touch. Useful for soak
// tests and for generating flow against another participant.
type RandomTrader struct {
	orders  *OrderManager
	configs []AlgoConfig
	rng     *rand.Rand
}

func NewRandomTrader(orders *OrderManager, configs []AlgoConfig, seed int64) *RandomTrader {
	return &RandomTrader{
		orders:  orders,
		configs: configs,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (a *RandomTrader) OnBookUpdate(ticker message.TickerID, book *Book) {
	bbo := book.BBO()
	if !bbo.Valid() {
		return
	}
	cfg := a.configs[ticker]
	jitter := message.Price(a.rng.Intn(4))
	a.orders.MoveOrders(ticker, bbo.Bid-jitter, bbo.Ask+jitter, cfg.TradeSize)
}

func (a *RandomTrader) OnTrade(_ *message.MarketUpdate, _ *Book) {}

func (a *RandomTrader) OnResponse(r *message.ClientResponse) {
	a.orders.OnResponse(r)
}
