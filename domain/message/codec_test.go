package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRequestRoundTrip(t *testing.T) {
	in := ClientRequest{
		Type:          RequestNew,
		ClientID:      12,
		TickerID:      3,
		ClientOrderID: 77,
		Side:          SideSell,
		Price:         -250,
		Qty:           50,
	}
	buf := make([]byte, FramedClientRequestSize)
	EncodeFramedClientRequest(buf, 9, &in)

	nSeq, out := DecodeFramedClientRequest(buf)
	assert.Equal(t, uint64(9), nSeq)
	assert.Equal(t, in, out)
}

func TestClientResponseRoundTrip(t *testing.T) {
	in := ClientResponse{
		Type:          ResponseCancelRejected,
		ClientID:      ClientIDInvalid,
		TickerID:      7,
		ClientOrderID: 1,
		MarketOrderID: OrderIDInvalid,
		Side:          SideBuy,
		Price:         100,
		QtyExec:       0,
		QtyRemain:     QtyInvalid,
	}
	buf := make([]byte, FramedClientResponseSize)
	EncodeFramedClientResponse(buf, 1, &in)

	nSeq, out := DecodeFramedClientResponse(buf)
	assert.Equal(t, uint64(1), nSeq)
	assert.Equal(t, in, out)
}

func TestMarketUpdateRoundTrip(t *testing.T) {
	in := MarketUpdate{
		Type:     UpdateSnapshotEnd,
		OrderID:  42,
		TickerID: TickerIDInvalid,
		Side:     SideInvalid,
		Price:    PriceInvalid,
		Qty:      QtyInvalid,
		Priority: PriorityInvalid,
	}
	buf := make([]byte, FramedMarketUpdateSize)
	EncodeFramedMarketUpdate(buf, 0, &in)

	nSeq, out := DecodeFramedMarketUpdate(buf)
	assert.Equal(t, uint64(0), nSeq)
	assert.Equal(t, in, out)
}

// The side byte carries SELL as a signed -1; a naive unsigned decode
// would turn it into 255.
func TestSideSurvivesSignedEncoding(t *testing.T) {
	in := ClientRequest{Type: RequestNew, Side: SideSell}
	buf := make([]byte, ClientRequestSize)
	EncodeClientRequest(buf, &in)

	out := DecodeClientRequest(buf)
	require.Equal(t, SideSell, out.Side)
	assert.Equal(t, int64(-1), out.Side.Value())
}

func TestSideIndex(t *testing.T) {
	assert.Equal(t, 0, SideSell.Index())
	assert.Equal(t, 1, SideInvalid.Index())
	assert.Equal(t, 2, SideBuy.Index())
}

func TestInvalidSentinelStrings(t *testing.T) {
	assert.Equal(t, "INVALID", OrderIDInvalid.String())
	assert.Equal(t, "INVALID", QtyInvalid.String())
	assert.Equal(t, "INVALID", PriceInvalid.String())
	assert.Equal(t, "12", ClientID(12).String())
}
