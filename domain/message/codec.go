package message

import "encoding/binary"

// Wire layout is the packed struct field order with no padding, all
// integers little-endian. Framing is by fixed record size: every frame
// is a uint64 sequence number followed by one record.
const (
	ClientRequestSize  = 30
	ClientResponseSize = 42
	MarketUpdateSize   = 34

	FrameHeaderSize = 8

	FramedClientRequestSize  = FrameHeaderSize + ClientRequestSize
	FramedClientResponseSize = FrameHeaderSize + ClientResponseSize
	FramedMarketUpdateSize   = FrameHeaderSize + MarketUpdateSize
)

// EncodeClientRequest writes r into dst, which must hold at least
// ClientRequestSize bytes.
func EncodeClientRequest(dst []byte, r *ClientRequest) {
	_ = dst[ClientRequestSize-1]
	dst[0] = byte(r.Type)
	binary.LittleEndian.PutUint32(dst[1:], uint32(r.ClientID))
	binary.LittleEndian.PutUint32(dst[5:], uint32(r.TickerID))
	binary.LittleEndian.PutUint64(dst[9:], uint64(r.ClientOrderID))
	dst[17] = byte(r.Side)
	binary.LittleEndian.PutUint64(dst[18:], uint64(r.Price))
	binary.LittleEndian.PutUint32(dst[26:], uint32(r.Qty))
}

func DecodeClientRequest(src []byte) ClientRequest {
	_ = src[ClientRequestSize-1]
	return ClientRequest{
		Type:          RequestType(src[0]),
		ClientID:      ClientID(binary.LittleEndian.Uint32(src[1:])),
		TickerID:      TickerID(binary.LittleEndian.Uint32(src[5:])),
		ClientOrderID: OrderID(binary.LittleEndian.Uint64(src[9:])),
		Side:          Side(int8(src[17])),
		Price:         Price(binary.LittleEndian.Uint64(src[18:])),
		Qty:           Qty(binary.LittleEndian.Uint32(src[26:])),
	}
}

// EncodeClientResponse writes r into dst, which must hold at least
// ClientResponseSize bytes.
func EncodeClientResponse(dst []byte, r *ClientResponse) {
	_ = dst[ClientResponseSize-1]
	dst[0] = byte(r.Type)
	binary.LittleEndian.PutUint32(dst[1:], uint32(r.ClientID))
	binary.LittleEndian.PutUint32(dst[5:], uint32(r.TickerID))
	binary.LittleEndian.PutUint64(dst[9:], uint64(r.ClientOrderID))
	binary.LittleEndian.PutUint64(dst[17:], uint64(r.MarketOrderID))
	dst[25] = byte(r.Side)
	binary.LittleEndian.PutUint64(dst[26:], uint64(r.Price))
	binary.LittleEndian.PutUint32(dst[34:], uint32(r.QtyExec))
	binary.LittleEndian.PutUint32(dst[38:], uint32(r.QtyRemain))
}

func DecodeClientResponse(src []byte) ClientResponse {
	_ = src[ClientResponseSize-1]
	return ClientResponse{
		Type:          ResponseType(src[0]),
		ClientID:      ClientID(binary.LittleEndian.Uint32(src[1:])),
		TickerID:      TickerID(binary.LittleEndian.Uint32(src[5:])),
		ClientOrderID: OrderID(binary.LittleEndian.Uint64(src[9:])),
		MarketOrderID: OrderID(binary.LittleEndian.Uint64(src[17:])),
		Side:          Side(int8(src[25])),
		Price:         Price(binary.LittleEndian.Uint64(src[26:])),
		QtyExec:       Qty(binary.LittleEndian.Uint32(src[34:])),
		QtyRemain:     Qty(binary.LittleEndian.Uint32(src[38:])),
	}
}

// EncodeMarketUpdate writes u into dst, which must hold at least
// MarketUpdateSize bytes.
func EncodeMarketUpdate(dst []byte, u *MarketUpdate) {
	_ = dst[MarketUpdateSize-1]
	dst[0] = byte(u.Type)
	binary.LittleEndian.PutUint64(dst[1:], uint64(u.OrderID))
	binary.LittleEndian.PutUint32(dst[9:], uint32(u.TickerID))
	dst[13] = byte(u.Side)
	binary.LittleEndian.PutUint64(dst[14:], uint64(u.Price))
	binary.LittleEndian.PutUint32(dst[22:], uint32(u.Qty))
	binary.LittleEndian.PutUint64(dst[26:], uint64(u.Priority))
}

func DecodeMarketUpdate(src []byte) MarketUpdate {
	_ = src[MarketUpdateSize-1]
	return MarketUpdate{
		Type:     UpdateType(src[0]),
		OrderID:  OrderID(binary.LittleEndian.Uint64(src[1:])),
		TickerID: TickerID(binary.LittleEndian.Uint32(src[9:])),
		Side:     Side(int8(src[13])),
		Price:    Price(binary.LittleEndian.Uint64(src[14:])),
		Qty:      Qty(binary.LittleEndian.Uint32(src[22:])),
		Priority: Priority(binary.LittleEndian.Uint64(src[26:])),
	}
}

// Framed encode/decode. The sequence number prefix is stamped by the
// sending side and validated by the receiving side.

func EncodeFramedClientRequest(dst []byte, nSeq uint64, r *ClientRequest) {
	binary.LittleEndian.PutUint64(dst, nSeq)
	EncodeClientRequest(dst[FrameHeaderSize:], r)
}

func DecodeFramedClientRequest(src []byte) (uint64, ClientRequest) {
	return binary.LittleEndian.Uint64(src), DecodeClientRequest(src[FrameHeaderSize:])
}

func EncodeFramedClientResponse(dst []byte, nSeq uint64, r *ClientResponse) {
	binary.LittleEndian.PutUint64(dst, nSeq)
	EncodeClientResponse(dst[FrameHeaderSize:], r)
}

func DecodeFramedClientResponse(src []byte) (uint64, ClientResponse) {
	return binary.LittleEndian.Uint64(src), DecodeClientResponse(src[FrameHeaderSize:])
}

func EncodeFramedMarketUpdate(dst []byte, nSeq uint64, u *MarketUpdate) {
	binary.LittleEndian.PutUint64(dst, nSeq)
	EncodeMarketUpdate(dst[FrameHeaderSize:], u)
}

func DecodeFramedMarketUpdate(src []byte) (uint64, MarketUpdate) {
	return binary.LittleEndian.Uint64(src), DecodeMarketUpdate(src[FrameHeaderSize:])
}
