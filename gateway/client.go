package gateway

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/infra/memory"
	"hermes/infra/sockets"
	"hermes/pkg/logger"
)

// Client is the participant-side order gateway. It frames trading
// engine requests with the outgoing sequence counter, and validates the
// client id and exact expected sequence on every inbound response frame
// before unwrapping it into the response ring. Both counters start at 1.
type Client struct {
	clientID message.ClientID
	conn     net.Conn

	requests  *memory.Ring[message.ClientRequest]
	responses *memory.Ring[message.ClientResponse]

	txNext uint64
	rxNext uint64
	txBuf  []byte

	log logger.Interface

	running atomic.Bool
	wg      sync.WaitGroup
}

// Dial connects to the gateway server at addr.
func Dial(addr string, clientID message.ClientID,
	requests *memory.Ring[message.ClientRequest],
	responses *memory.Ring[message.ClientResponse],
	log logger.Interface) (*Client, error) {

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("gateway: dial %s: %w", addr, err)
	}
	return &Client{
		clientID:  clientID,
		conn:      conn,
		requests:  requests,
		responses: responses,
		txNext:    1,
		rxNext:    1,
		txBuf:     make([]byte, message.FramedClientRequestSize),
		log:       log,
	}, nil
}

// Start launches the transmit and receive workers.
func (c *Client) Start() {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	c.wg.Add(2)
	go c.txLoop()
	go c.rxLoop()
	c.log.Info("order gateway client connected",
		zap.Uint32("client", uint32(c.clientID)),
		zap.String("addr", c.conn.RemoteAddr().String()))
}

// Stop drains nothing further; it closes the socket and joins.
func (c *Client) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.conn.Close()
	c.wg.Wait()
	c.log.Info("order gateway client stopped")
}

// txLoop is the sole consumer of the request ring.
func (c *Client) txLoop() {
	defer c.wg.Done()
	for c.running.Load() {
		for req := c.requests.NextToRead(); req != nil; req = c.requests.NextToRead() {
			message.EncodeFramedClientRequest(c.txBuf, c.txNext, req)
			if _, err := c.conn.Write(c.txBuf); err != nil {
				c.log.Warn("request transmit failed", zap.Error(err))
				c.requests.Consume()
				continue
			}
			c.txNext++
			c.requests.Consume()
		}
	}
}

// rxLoop is the sole producer of the response ring.
func (c *Client) rxLoop() {
	defer c.wg.Done()
	fb := sockets.NewFrameBuffer(connReadBuffer)
	for {
		n, err := c.conn.Read(fb.Writable())
		if err != nil {
			return
		}
		fb.Advance(n)
		fb.Drain(message.FramedClientResponseSize, func(frame []byte) {
			nSeq, resp := message.DecodeFramedClientResponse(frame)
			if resp.ClientID != c.clientID {
				c.log.Warn("response for foreign client dropped",
					zap.Uint32("client", uint32(resp.ClientID)))
				return
			}
			if nSeq != c.rxNext {
				c.log.Warn("response with unexpected sequence dropped",
					zap.Uint64("n_seq", nSeq),
					zap.Uint64("expected", c.rxNext))
				return
			}
			c.rxNext++
			*c.responses.NextToWrite() = resp
			c.responses.Publish()
		})
	}
}
