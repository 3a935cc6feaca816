package trader

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/pkg/logger"
)

// Algo is the strategy surface. Exactly one algorithm is active per
// engine instance; it is wired into the three event streams at
// construction.
type Algo interface {
	OnBookUpdate(ticker message.TickerID, book *Book)
	OnTrade(u *message.MarketUpdate, book *Book)
	OnResponse(r *message.ClientResponse)
}

// AlgoType selects the strategy at construction.
type AlgoType int8

const (
	AlgoInvalid AlgoType = iota
	AlgoRandom
	AlgoMarketMaker
	AlgoLiquidityTaker
)

// ParseAlgoType maps the configured name to an AlgoType.
func ParseAlgoType(s string) AlgoType {
	switch s {
	case "RANDOM":
		return AlgoRandom
	case "MARKET_MAKER":
		return AlgoMarketMaker
	case "LIQUIDITY_TAKER":
		return AlgoLiquidityTaker
	}
	return AlgoInvalid
}

// EngineConfig wires the trading engine.
type EngineConfig struct {
	ClientID   message.ClientID
	NumTickers int
	MaxOrders  int
	Algo       AlgoType
	AlgoSeed   int64
	Configs    []AlgoConfig
	Risk       []RiskConfig
}

// Engine is the client-side trading engine: it consumes the market
// data consumer's update ring and the gateway client's response ring,
// keeps the replica books current, and drives the strategy layer.
type Engine struct {
	cfg EngineConfig

	updates   *memory.Ring[message.MarketUpdate]
	responses *memory.Ring[message.ClientResponse]

	books     []*Book
	features  *FeatureEngine
	positions *PositionManager
	risk      *RiskManager
	orders    *OrderManager
	algo      Algo

	log logger.Interface

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewEngine builds the full client stack. requests is the ring the
// gateway client transmits from.
func NewEngine(cfg EngineConfig,
	updates *memory.Ring[message.MarketUpdate],
	responses *memory.Ring[message.ClientResponse],
	requests *memory.Ring[message.ClientRequest],
	log logger.Interface) *Engine {

	e := &Engine{
		cfg:       cfg,
		updates:   updates,
		responses: responses,
		features:  NewFeatureEngine(),
		positions: NewPositionManager(cfg.NumTickers),
		log:       log,
	}
	e.books = make([]*Book, cfg.NumTickers)
	for i := range e.books {
		e.books[i] = NewBook(message.TickerID(i), cfg.MaxOrders)
	}
	e.risk = NewRiskManager(e.positions, cfg.Risk)
	e.orders = NewOrderManager(cfg.ClientID, cfg.NumTickers, requests, e.risk, log)

	switch cfg.Algo {
	case AlgoRandom:
		e.algo = NewRandomTrader(e.orders, cfg.Configs, cfg.AlgoSeed)
	case AlgoMarketMaker:
		e.algo = NewMarketMaker(e.features, e.orders, cfg.Configs)
	case AlgoLiquidityTaker:
		e.algo = NewLiquidityTaker(e.features, e.orders, cfg.Configs)
	default:
		panic(fmt.Sprintf("trader: no algorithm for type %d", cfg.Algo))
	}
	return e
}

func (e *Engine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.wg.Add(1)
	go e.run()
	e.log.Info("trading engine started",
		zap.Uint32("client", uint32(e.cfg.ClientID)))
}

// Stop waits for both inbound rings to empty, then joins the worker.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.wg.Wait()
	e.log.Info("trading engine stopped",
		zap.String("pnl_total", e.positions.TotalPnL().String()))
}

func (e *Engine) run() {
	defer e.wg.Done()
	for e.running.Load() {
		e.drain()
	}
	e.drain()
}

func (e *Engine) drain() {
	for u := e.updates.NextToRead(); u != nil; u = e.updates.NextToRead() {
		e.onUpdate(u)
		e.updates.Consume()
	}
	for r := e.responses.NextToRead(); r != nil; r = e.responses.NextToRead() {
		e.onResponse(r)
		e.responses.Consume()
	}
}

func (e *Engine) onUpdate(u *message.MarketUpdate) {
	if int(u.TickerID) >= len(e.books) {
		return
	}
	book := e.books[u.TickerID]
	book.Apply(u)

	if u.Type == message.UpdateTrade {
		e.features.OnTrade(u, book)
		e.algo.OnTrade(u, book)
		return
	}
	e.features.OnBookUpdate(book)
	e.positions.OnBBOUpdate(u.TickerID, book.BBO())
	e.algo.OnBookUpdate(u.TickerID, book)
}

func (e *Engine) onResponse(r *message.ClientResponse) {
	if r.Type == message.ResponseFilled {
		e.positions.AddFill(r)
	}
	e.algo.OnResponse(r)
}

// Book exposes a ticker's replica, mainly for tests and diagnostics.
func (e *Engine) Book(ticker message.TickerID) *Book { return e.books[ticker] }

// Positions exposes the position manager.
func (e *Engine) Positions() *PositionManager { return e.positions }
