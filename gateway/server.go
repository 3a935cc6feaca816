package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/infra/sockets"
	"hermes/pkg/logger"
	"hermes/pkg/metrics"
)

// AuditFeed receives a copy of every accepted inbound request.
// Delivery is best-effort; a nil feed disables auditing.
type AuditFeed interface {
	Send(ctx context.Context, key, value []byte) error
}

const connReadBuffer = 64 * 1024

type serverConn struct {
	conn net.Conn
}

type inboundFrame struct {
	tRx  int64
	from *serverConn
	nSeq uint64
	req  message.ClientRequest
}

// Server is the exchange-side order gateway. Connection readers frame
// inbound bytes and hand them to the single worker, which enforces
// client pinning and per-client sequencing, re-sequences the batch by
// receipt time into the engine ring, and transmits engine responses on
// each client's pinned connection with outgoing sequence numbers.
type Server struct {
	ln        net.Listener
	responses *memory.Ring[message.ClientResponse]
	seq       *FIFOSequencer

	inbound chan inboundFrame

	pinned []*serverConn // client id -> pinned connection
	rxNext []uint64      // next expected inbound n_seq per client
	txNext []uint64      // next outbound n_seq per client

	audit AuditFeed
	txBuf []byte

	log logger.Interface
	met *metrics.Metrics

	running atomic.Bool
	wg      sync.WaitGroup

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

// NewServer listens on addr. maxClients bounds the client id range.
func NewServer(addr string, maxClients int,
	requests *memory.Ring[message.ClientRequest],
	responses *memory.Ring[message.ClientResponse],
	audit AuditFeed, log logger.Interface, met *metrics.Metrics) (*Server, error) {

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("gateway: listen %s: %w", addr, err)
	}
	s := &Server{
		ln:        ln,
		responses: responses,
		seq:       NewFIFOSequencer(message.MaxPendingRequests, requests),
		inbound:   make(chan inboundFrame, message.MaxPendingRequests),
		pinned:    make([]*serverConn, maxClients),
		rxNext:    make([]uint64, maxClients),
		txNext:    make([]uint64, maxClients),
		audit:     audit,
		txBuf:     make([]byte, message.FramedClientResponseSize),
		log:       log,
		met:       met,
		conns:     map[net.Conn]struct{}{},
	}
	for i := range s.rxNext {
		s.rxNext[i] = 1
		s.txNext[i] = 1
	}
	return s, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Start launches the accept loop and the gateway worker.
func (s *Server) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(2)
	go s.acceptLoop()
	go s.run()
	s.log.Info("order gateway listening", zap.String("addr", s.ln.Addr().String()))
}

// Stop closes the listener and all connections, then joins the workers.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.ln.Close()
	s.connsMu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.connsMu.Unlock()
	s.wg.Wait()
	s.log.Info("order gateway stopped")
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}
		s.connsMu.Lock()
		s.conns[conn] = struct{}{}
		s.connsMu.Unlock()
		s.wg.Add(1)
		go s.readLoop(conn)
	}
}

// readLoop frames one connection's byte stream and forwards whole
// records, stamped with receipt time, to the worker.
func (s *Server) readLoop(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
		conn.Close()
	}()

	sc := &serverConn{conn: conn}
	fb := sockets.NewFrameBuffer(connReadBuffer)
	for {
		n, err := conn.Read(fb.Writable())
		if err != nil {
			return
		}
		fb.Advance(n)
		tRx := time.Now().UnixNano()
		fb.Drain(message.FramedClientRequestSize, func(frame []byte) {
			nSeq, req := message.DecodeFramedClientRequest(frame)
			s.inbound <- inboundFrame{tRx: tRx, from: sc, nSeq: nSeq, req: req}
		})
	}
}

// run is the gateway worker: ingest a batch, re-sequence it into the
// engine, transmit queued responses, repeat.
func (s *Server) run() {
	defer s.wg.Done()
	for s.running.Load() {
		s.pollIteration()
	}
	s.pollIteration()
}

func (s *Server) pollIteration() {
	for {
		select {
		case in := <-s.inbound:
			s.ingest(&in)
		default:
			s.seq.Drain()
			s.drainResponses()
			return
		}
	}
}

func (s *Server) ingest(in *inboundFrame) {
	client := in.req.ClientID
	if int(client) >= len(s.pinned) {
		s.log.Warn("request for out-of-range client dropped",
			zap.Uint32("client", uint32(client)))
		return
	}

	// the first record from a client pins it to the connection it
	// arrived on
	if s.pinned[client] == nil {
		s.pinned[client] = in.from
	} else if s.pinned[client] != in.from {
		// TODO(ogw): send a reject back instead of dropping silently
		s.log.Warn("request from unpinned socket dropped",
			zap.Uint32("client", uint32(client)))
		return
	}

	if in.nSeq != s.rxNext[client] {
		s.met.SequenceDrops.Inc()
		s.log.Warn("request with unexpected sequence dropped",
			zap.Uint32("client", uint32(client)),
			zap.Uint64("n_seq", in.nSeq),
			zap.Uint64("expected", s.rxNext[client]))
		return
	}
	s.rxNext[client]++

	s.seq.Push(in.tRx, &in.req)
	s.publishAudit(&in.req)
}

func (s *Server) drainResponses() {
	for r := s.responses.NextToRead(); r != nil; r = s.responses.NextToRead() {
		client := r.ClientID
		if int(client) >= len(s.pinned) || s.pinned[client] == nil {
			s.log.Warn("response for unknown client dropped",
				zap.Uint32("client", uint32(client)))
			s.responses.Consume()
			continue
		}
		message.EncodeFramedClientResponse(s.txBuf, s.txNext[client], r)
		if _, err := s.pinned[client].conn.Write(s.txBuf); err != nil {
			s.log.Warn("response transmit failed",
				zap.Uint32("client", uint32(client)), zap.Error(err))
		} else {
			s.txNext[client]++
		}
		s.responses.Consume()
	}
}

type auditRecord struct {
	Type     string `json:"type"`
	ClientID uint32 `json:"client_id"`
	TickerID uint32 `json:"ticker_id"`
	OrderID  uint64 `json:"client_order_id"`
	Side     string `json:"side"`
	Price    int64  `json:"price"`
	Qty      uint32 `json:"qty"`
}

func (s *Server) publishAudit(req *message.ClientRequest) {
	if s.audit == nil {
		return
	}
	rec := auditRecord{
		Type:     req.Type.String(),
		ClientID: uint32(req.ClientID),
		TickerID: uint32(req.TickerID),
		OrderID:  uint64(req.ClientOrderID),
		Side:     req.Side.String(),
		Price:    int64(req.Price),
		Qty:      uint32(req.Qty),
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return
	}
	key := fmt.Sprintf("%d", req.ClientID)
	if err := s.audit.Send(context.Background(), []byte(key), value); err != nil {
		s.log.Warn("audit publish failed", zap.Error(err))
	}
}
