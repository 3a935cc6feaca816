package trader

import (
	"math"

	"hermes/domain/message"
)

// FeatureInvalid marks a feature with no value yet.
var FeatureInvalid = math.NaN()

// FeatureEngine derives the signals the strategies trade on: a
// qty-weighted fair price and the aggressive trade quantity ratio.
type FeatureEngine struct {
	marketPrice float64
	aggQtyRatio float64
}

func NewFeatureEngine() *FeatureEngine {
	return &FeatureEngine{
		marketPrice: FeatureInvalid,
		aggQtyRatio: FeatureInvalid,
	}
}

// OnBookUpdate recomputes the fair price from the new BBO.
func (f *FeatureEngine) OnBookUpdate(book *Book) {
	bbo := book.BBO()
	if !bbo.Valid() || bbo.BidQty == message.QtyInvalid || bbo.AskQty == message.QtyInvalid {
		return
	}
	num := float64(bbo.Bid)*float64(bbo.AskQty) + float64(bbo.Ask)*float64(bbo.BidQty)
	den := float64(bbo.BidQty) + float64(bbo.AskQty)
	if den == 0 {
		return
	}
	f.marketPrice = num / den
}

// OnTrade recomputes how much of the resting top-of-book quantity the
// aggressor just consumed.
func (f *FeatureEngine) OnTrade(u *message.MarketUpdate, book *Book) {
	bbo := book.BBO()
	var resting message.Qty
	if u.Side == message.SideBuy {
		resting = bbo.AskQty
	} else {
		resting = bbo.BidQty
	}
	if resting == message.QtyInvalid || resting == 0 {
		return
	}
	f.aggQtyRatio = float64(u.Qty) / float64(resting)
}

// MarketPrice is the current fair price, NaN until both sides quote.
func (f *FeatureEngine) MarketPrice() float64 { return f.marketPrice }

// AggTradeQtyRatio is the last trade's share of resting BBO quantity.
func (f *FeatureEngine) AggTradeQtyRatio() float64 { return f.aggQtyRatio }
