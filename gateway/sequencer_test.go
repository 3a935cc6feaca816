package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/domain/message"
	"hermes/infra/memory"
)

func TestSequencerOrdersByReceiptTime(t *testing.T) {
	out := memory.NewRing[message.ClientRequest](16)
	s := NewFIFOSequencer(8, out)

	s.Push(300, &message.ClientRequest{ClientOrderID: 3})
	s.Push(100, &message.ClientRequest{ClientOrderID: 1})
	s.Push(200, &message.ClientRequest{ClientOrderID: 2})
	require.Equal(t, 3, s.Pending())

	s.Drain()
	assert.Equal(t, 0, s.Pending())

	var order []message.OrderID
	for r := out.NextToRead(); r != nil; r = out.NextToRead() {
		order = append(order, r.ClientOrderID)
		out.Consume()
	}
	assert.Equal(t, []message.OrderID{1, 2, 3}, order)
}

// Equal timestamps keep their push order.
func TestSequencerStableOnTies(t *testing.T) {
	out := memory.NewRing[message.ClientRequest](16)
	s := NewFIFOSequencer(8, out)

	s.Push(100, &message.ClientRequest{ClientOrderID: 1})
	s.Push(100, &message.ClientRequest{ClientOrderID: 2})
	s.Push(100, &message.ClientRequest{ClientOrderID: 3})
	s.Drain()

	var order []message.OrderID
	for r := out.NextToRead(); r != nil; r = out.NextToRead() {
		order = append(order, r.ClientOrderID)
		out.Consume()
	}
	assert.Equal(t, []message.OrderID{1, 2, 3}, order)
}

func TestSequencerOverflowPanics(t *testing.T) {
	out := memory.NewRing[message.ClientRequest](16)
	s := NewFIFOSequencer(2, out)
	s.Push(1, &message.ClientRequest{})
	s.Push(2, &message.ClientRequest{})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on sequencer overflow, but got none")
		}
	}()
	s.Push(3, &message.ClientRequest{})
}

func TestSequencerDrainEmptyIsNoop(t *testing.T) {
	out := memory.NewRing[message.ClientRequest](16)
	s := NewFIFOSequencer(2, out)
	s.Drain()
	assert.Equal(t, uint64(0), out.Size())
}
