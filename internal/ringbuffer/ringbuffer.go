// Package ringbuffer implements the fixed-capacity scrollback buffer that
// backs late-joining subscribers.
//
// A Buffer is not safe for concurrent use — the owning session guards
// every access to it with its session mutex.
package ringbuffer

import "encoding/base64"

// Buffer is a fixed-capacity circular byte buffer.
type Buffer struct {
	data   []byte
	cursor int
	full   bool
}

// New allocates a zero-filled buffer of the given capacity.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Write appends data to the buffer, overwriting the oldest bytes once full.
//
// If data is at least as long as the capacity, the whole buffer is
// overwritten with the last capacity bytes of data and marked full.
// Otherwise data is copied in starting at the write cursor, wrapping as
// needed, and the cursor advances modulo capacity. The buffer becomes full
// the first time the cursor wraps.
func (b *Buffer) Write(data []byte) {
	capacity := len(b.data)
	if capacity == 0 {
		return
	}

	if len(data) >= capacity {
		copy(b.data, data[len(data)-capacity:])
		b.cursor = 0
		b.full = true
		return
	}

	n := copy(b.data[b.cursor:], data)
	remaining := data[n:]
	if len(remaining) > 0 {
		copy(b.data, remaining)
		b.full = true
	}

	newCursor := b.cursor + len(data)
	if newCursor >= capacity {
		b.full = true
		newCursor -= capacity
	}
	b.cursor = newCursor
}

// Read returns a copy of all stored bytes in chronological order.
func (b *Buffer) Read() []byte {
	if !b.full {
		out := make([]byte, b.cursor)
		copy(out, b.data[:b.cursor])
		return out
	}

	capacity := len(b.data)
	out := make([]byte, capacity)
	n := copy(out, b.data[b.cursor:])
	copy(out[n:], b.data[:b.cursor])
	return out
}

// Base64 returns the base64 encoding of Read().
func (b *Buffer) Base64() string {
	return base64.StdEncoding.EncodeToString(b.Read())
}

// Len returns the number of stored bytes: the cursor if not yet full,
// else the full capacity.
func (b *Buffer) Len() int {
	if b.full {
		return len(b.data)
	}
	return b.cursor
}
