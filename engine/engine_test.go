package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/pkg/logger"
	"hermes/pkg/metrics"
)

func newTestEngine() (*MatchingEngine, *memory.Ring[message.ClientRequest], *memory.Ring[message.ClientResponse], *memory.Ring[message.MarketUpdate]) {
	requests := memory.NewRing[message.ClientRequest](256)
	responses := memory.NewRing[message.ClientResponse](256)
	updates := memory.NewRing[message.MarketUpdate](256)
	cfg := Config{NumTickers: 4, MaxOrders: 64, MaxLevels: 16}
	e := New(cfg, requests, responses, updates, logger.NewNop(), metrics.NewNop())
	return e, requests, responses, updates
}

func push(r *memory.Ring[message.ClientRequest], req message.ClientRequest) {
	*r.NextToWrite() = req
	r.Publish()
}

func collectResponses(r *memory.Ring[message.ClientResponse], n int, deadline time.Duration) []message.ClientResponse {
	var out []message.ClientResponse
	stop := time.Now().Add(deadline)
	for len(out) < n && time.Now().Before(stop) {
		if v := r.NextToRead(); v != nil {
			out = append(out, *v)
			r.Consume()
		}
	}
	return out
}

func collectUpdates(r *memory.Ring[message.MarketUpdate], n int, deadline time.Duration) []message.MarketUpdate {
	var out []message.MarketUpdate
	stop := time.Now().Add(deadline)
	for len(out) < n && time.Now().Before(stop) {
		if v := r.NextToRead(); v != nil {
			out = append(out, *v)
			r.Consume()
		}
	}
	return out
}

func TestEngineNewOrderFlow(t *testing.T) {
	e, requests, responses, updates := newTestEngine()
	e.Start()
	defer e.Stop()

	push(requests, message.ClientRequest{
		Type: message.RequestNew, ClientID: 12, TickerID: 3,
		ClientOrderID: 1, Side: message.SideBuy, Price: 100, Qty: 50,
	})

	resp := collectResponses(responses, 1, time.Second)
	require.Len(t, resp, 1)
	assert.Equal(t, message.ResponseAccepted, resp[0].Type)
	assert.Equal(t, message.TickerID(3), resp[0].TickerID)

	ups := collectUpdates(updates, 1, time.Second)
	require.Len(t, ups, 1)
	assert.Equal(t, message.UpdateAdd, ups[0].Type)
}

func TestEngineMatchAcrossClients(t *testing.T) {
	e, requests, responses, updates := newTestEngine()
	e.Start()
	defer e.Stop()

	push(requests, message.ClientRequest{
		Type: message.RequestNew, ClientID: 1, TickerID: 0,
		ClientOrderID: 1, Side: message.SideSell, Price: 100, Qty: 100,
	})
	push(requests, message.ClientRequest{
		Type: message.RequestNew, ClientID: 2, TickerID: 0,
		ClientOrderID: 1, Side: message.SideBuy, Price: 100, Qty: 50,
	})

	// ACCEPTED(sell), ADD | ACCEPTED(buy), FILLED x2, TRADE, MODIFY
	resp := collectResponses(responses, 4, time.Second)
	require.Len(t, resp, 4)
	assert.Equal(t, message.ResponseFilled, resp[2].Type)
	assert.Equal(t, message.ResponseFilled, resp[3].Type)

	ups := collectUpdates(updates, 3, time.Second)
	require.Len(t, ups, 3)
	assert.Equal(t, message.UpdateTrade, ups[1].Type)
	assert.Equal(t, message.UpdateModify, ups[2].Type)
}

// Requests already queued when Stop is called are still processed.
func TestEngineDrainsOnStop(t *testing.T) {
	e, requests, responses, _ := newTestEngine()
	for i := 0; i < 8; i++ {
		push(requests, message.ClientRequest{
			Type: message.RequestNew, ClientID: 1, TickerID: 0,
			ClientOrderID: message.OrderID(i + 1), Side: message.SideBuy,
			Price: message.Price(90 - i), Qty: 1,
		})
	}
	e.Start()
	e.Stop()

	assert.Equal(t, uint64(0), requests.Size())
	assert.Equal(t, uint64(8), responses.Size())
}

func TestEngineStartStopIdempotent(t *testing.T) {
	e, _, _, _ := newTestEngine()
	e.Start()
	e.Start()
	e.Stop()
	e.Stop()
}
