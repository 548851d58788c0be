package protocol

import (
	"crypto/rand"
	"fmt"
	"io"
)

// MaskKeySize is the length of a frame masking key
const MaskKeySize = 4

// NewMaskKey reads a fresh masking key from r.
// A nil reader uses crypto/rand.
func NewMaskKey(r io.Reader) ([MaskKeySize]byte, error) {
	var key [MaskKeySize]byte
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, fmt.Errorf("failed to generate mask key: %w", err)
	}
	return key, nil
}

// Mask XORs b in place with key repeated cyclically. pos is the position of
// b[0] within the payload, so a payload can be masked in pieces.
// Applying Mask twice with the same key and pos restores the input.
// It returns the position following the last byte of b.
func Mask(key [MaskKeySize]byte, b []byte, pos int) int {
	for i := range b {
		b[i] ^= key[(pos+i)%MaskKeySize]
	}
	return pos + len(b)
}
