// Package buffer provides a fixed-capacity byte buffer that refuses writes it
// cannot hold instead of overwriting or truncating.
package buffer

import (
	"errors"
	"fmt"
)

// ErrFull is returned when an operation would exceed the buffer capacity
var ErrFull = errors.New("buffer full")

// Buffer is a fixed-capacity byte buffer. The backing array is allocated once
// and never grows. A Buffer is not safe for concurrent use.
type Buffer struct {
	data []byte
	n    int
}

// New creates a buffer holding at most capacity bytes
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Len returns the number of bytes held
func (b *Buffer) Len() int { return b.n }

// Cap returns the fixed capacity
func (b *Buffer) Cap() int { return len(b.data) }

// Available returns how many more bytes fit
func (b *Buffer) Available() int { return len(b.data) - b.n }

// Bytes returns the held bytes. The slice aliases the buffer and is only
// valid until the next mutating call.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Append copies p onto the end of the buffer. If p does not fit, nothing is
// copied and ErrFull is returned.
func (b *Buffer) Append(p []byte) error {
	if len(p) > b.Available() {
		return fmt.Errorf("%w: %d bytes do not fit, %d of %d available",
			ErrFull, len(p), b.Available(), len(b.data))
	}
	b.n += copy(b.data[b.n:], p)
	return nil
}

// Fill replaces the contents with whatever fn writes into the whole backing
// array. fn returns how many bytes it wrote; on error the buffer is left
// empty.
func (b *Buffer) Fill(fn func(dst []byte) (int, error)) error {
	b.n = 0
	n, err := fn(b.data)
	if err != nil {
		return err
	}
	if n < 0 || n > len(b.data) {
		return fmt.Errorf("%w: fill reported %d bytes for capacity %d", ErrFull, n, len(b.data))
	}
	b.n = n
	return nil
}

// Consume drops the first n bytes and moves the rest to the front
func (b *Buffer) Consume(n int) {
	if n >= b.n {
		b.n = 0
		return
	}
	if n <= 0 {
		return
	}
	b.n = copy(b.data, b.data[n:b.n])
}

// Reset empties the buffer without releasing the backing array
func (b *Buffer) Reset() { b.n = 0 }
