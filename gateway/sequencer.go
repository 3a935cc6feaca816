// Package gateway implements the order entry path: the TCP gateway
// server on the exchange side, its client-side mirror, and the FIFO
// re-sequencer between socket ingest and the matching engine.
package gateway

import (
	"fmt"
	"sort"

	"hermes/domain/message"
	"hermes/infra/memory"
)

type pendingRequest struct {
	tRx int64
	req message.ClientRequest
}

// FIFOSequencer buffers one poll batch of ingested requests and
// forwards them to the engine ring ordered by receipt time. TCP
// multiplexing across sockets can hand the gateway requests out of
// arrival order within a batch; the stable sort restores it.
type FIFOSequencer struct {
	pending []pendingRequest
	out     *memory.Ring[message.ClientRequest]
}

// NewFIFOSequencer bounds the batch at maxPending requests.
func NewFIFOSequencer(maxPending int, out *memory.Ring[message.ClientRequest]) *FIFOSequencer {
	return &FIFOSequencer{
		pending: make([]pendingRequest, 0, maxPending),
		out:     out,
	}
}

// Push records a request with its receipt timestamp. Overflowing the
// batch is a programmer error: the bound is sized to the worst case a
// poll cycle can ingest.
func (s *FIFOSequencer) Push(tRx int64, req *message.ClientRequest) {
	if len(s.pending) == cap(s.pending) {
		panic(fmt.Sprintf("gateway: sequencer overflow at %d pending requests", len(s.pending)))
	}
	s.pending = append(s.pending, pendingRequest{tRx: tRx, req: *req})
}

// Drain sorts the batch by receipt time and publishes every request to
// the engine ring, leaving the buffer empty.
func (s *FIFOSequencer) Drain() {
	if len(s.pending) == 0 {
		return
	}
	sort.SliceStable(s.pending, func(i, j int) bool {
		return s.pending[i].tRx < s.pending[j].tRx
	})
	for i := range s.pending {
		*s.out.NextToWrite() = s.pending[i].req
		s.out.Publish()
	}
	s.pending = s.pending[:0]
}

// Pending is the current batch size.
func (s *FIFOSequencer) Pending() int { return len(s.pending) }
