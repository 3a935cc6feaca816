// Package engine hosts the order matching engine: one limit order book
// per ticker, driven by a single worker that drains the inbound client
// request ring and emits responses and market updates on its outbound
// rings.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/domain/orderbook"
	"hermes/infra/memory"
	"hermes/pkg/logger"
	"hermes/pkg/metrics"
)

// Config sizes the per-ticker books. Tests shrink these.
type Config struct {
	NumTickers int
	MaxOrders  int
	MaxLevels  int
}

// DefaultConfig is the production sizing.
func DefaultConfig() Config {
	return Config{
		NumTickers: message.MaxTickers,
		MaxOrders:  message.MaxOrderIDs,
		MaxLevels:  message.MaxPriceLevels,
	}
}

// MatchingEngine consumes client requests and mutates the books. It is
// the single producer of the response and market update rings and the
// single consumer of the request ring.
type MatchingEngine struct {
	requests  *memory.Ring[message.ClientRequest]
	responses *memory.Ring[message.ClientResponse]
	updates   *memory.Ring[message.MarketUpdate]

	books []*orderbook.Book

	log logger.Interface
	met *metrics.Metrics

	running atomic.Bool
	wg      sync.WaitGroup
}

// New wires the engine between its three rings and builds one empty
// book per ticker.
func New(cfg Config,
	requests *memory.Ring[message.ClientRequest],
	responses *memory.Ring[message.ClientResponse],
	updates *memory.Ring[message.MarketUpdate],
	log logger.Interface, met *metrics.Metrics) *MatchingEngine {

	e := &MatchingEngine{
		requests:  requests,
		responses: responses,
		updates:   updates,
		log:       log,
		met:       met,
	}
	e.books = make([]*orderbook.Book, cfg.NumTickers)
	for i := range e.books {
		e.books[i] = orderbook.New(message.TickerID(i), cfg.MaxOrders, cfg.MaxLevels, e, log)
	}
	return e
}

// Start launches the worker.
func (e *MatchingEngine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.wg.Add(1)
	go e.run()
	e.log.Info("matching engine started", zap.Int("tickers", len(e.books)))
}

// Stop clears the running flag and joins the worker. Requests still
// queued at that point are drained before the worker exits.
func (e *MatchingEngine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.wg.Wait()
	e.log.Info("matching engine stopped")
}

// run polls the request ring in a tight loop; the ring is single-reader
// and its producer is another thread in this process, so there is
// nothing to block on.
func (e *MatchingEngine) run() {
	defer e.wg.Done()
	for e.running.Load() {
		e.drain()
	}
	e.drain()
}

func (e *MatchingEngine) drain() {
	for req := e.requests.NextToRead(); req != nil; req = e.requests.NextToRead() {
		e.dispatch(req)
		e.requests.Consume()
		e.met.RequestsProcessed.Inc()
	}
}

func (e *MatchingEngine) dispatch(req *message.ClientRequest) {
	if int(req.TickerID) >= len(e.books) {
		panic(fmt.Sprintf("engine: ticker %s out of range", req.TickerID))
	}
	book := e.books[req.TickerID]
	switch req.Type {
	case message.RequestNew:
		book.Add(req.ClientID, req.ClientOrderID, req.Side, req.Price, req.Qty)
		e.met.OrdersAccepted.Inc()
	case message.RequestCancel:
		book.Cancel(req.ClientID, req.ClientOrderID)
	default:
		panic(fmt.Sprintf("engine: unhandled request type %d", req.Type))
	}
}

// SendClientResponse publishes r on the response ring. Part of the
// book's event sink.
func (e *MatchingEngine) SendClientResponse(r *message.ClientResponse) {
	if r.Type == message.ResponseCancelRejected {
		e.met.CancelsRejected.Inc()
	}
	*e.responses.NextToWrite() = *r
	e.responses.Publish()
}

// SendMarketUpdate publishes u on the market update ring. Part of the
// book's event sink.
func (e *MatchingEngine) SendMarketUpdate(u *message.MarketUpdate) {
	if u.Type == message.UpdateTrade {
		e.met.Trades.Inc()
	}
	*e.updates.NextToWrite() = *u
	e.updates.Publish()
}
