package sockets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameBufferSplitsWholeRecords(t *testing.T) {
	b := NewFrameBuffer(64)
	copy(b.Writable(), []byte("aaaabbbbcc"))
	b.Advance(10)

	var frames []string
	b.Drain(4, func(f []byte) { frames = append(frames, string(f)) })

	require.Equal(t, []string{"aaaa", "bbbb"}, frames)
	assert.Equal(t, 2, b.Pending(), "trailing partial record stays buffered")

	// the remainder completes on the next read
	copy(b.Writable(), []byte("cc"))
	b.Advance(2)
	frames = frames[:0]
	b.Drain(4, func(f []byte) { frames = append(frames, string(f)) })
	assert.Equal(t, []string{"cccc"}, frames)
	assert.Equal(t, 0, b.Pending())
}

func TestFrameBufferNoCompleteRecord(t *testing.T) {
	b := NewFrameBuffer(16)
	copy(b.Writable(), []byte("ab"))
	b.Advance(2)

	called := false
	b.Drain(4, func([]byte) { called = true })
	assert.False(t, called)
	assert.Equal(t, 2, b.Pending())
}
