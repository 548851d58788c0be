package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Length field sentinels and limits
const (
	baseHeaderSize = 2

	// MaxShortLength is the largest payload length carried in the 7-bit field
	MaxShortLength = 125
	// Length16 marks a following 16-bit length field
	Length16 = 126
	// Length64 marks a following 64-bit length field
	Length64 = 127

	// MaxControlPayload is the largest control frame payload CheckControl allows
	MaxControlPayload = 125

	// MaxHeaderSize is the size of the largest possible header
	// (base + 64-bit length + mask key)
	MaxHeaderSize = baseHeaderSize + 8 + MaskKeySize
)

// Header is a decoded frame header
type Header struct {
	Final    bool
	Reserved uint8 // RSV1-3 as a 3-bit value, carried through unexamined
	Opcode   Opcode
	Masked   bool

	// DeclaredLength is the raw 7-bit length field (literal, 126 or 127)
	DeclaredLength uint8
	// ExtendedLength is the 16- or 64-bit length field when DeclaredLength is 126 or 127
	ExtendedLength uint64

	MaskKey [MaskKeySize]byte

	// PayloadOffset is where the payload starts within the raw frame
	PayloadOffset int
	// PayloadLength is the resolved payload length in bytes
	PayloadLength uint64
}

// FrameLength returns the total on-wire size of the frame
func (h Header) FrameLength() uint64 {
	return uint64(h.PayloadOffset) + h.PayloadLength
}

// Payload slices the payload out of the raw frame the header was decoded from
func (h Header) Payload(raw []byte) []byte {
	return raw[h.PayloadOffset : uint64(h.PayloadOffset)+h.PayloadLength]
}

// String returns a debug representation of the header
func (h Header) String() string {
	return fmt.Sprintf("Frame{FIN=%v, Opcode=%s, Masked=%v, Length=%d}",
		h.Final, h.Opcode, h.Masked, h.PayloadLength)
}

// lengthFieldSize returns the size of the extended length field needed for n
func lengthFieldSize(n uint64) int {
	switch {
	case n <= MaxShortLength:
		return 0
	case n <= 0xFFFF:
		return 2
	default:
		return 8
	}
}

// HeaderSize returns the header size of a frame carrying payloadLen bytes
func HeaderSize(payloadLen int, masked bool) int {
	size := baseHeaderSize + lengthFieldSize(uint64(payloadLen))
	if masked {
		size += MaskKeySize
	}
	return size
}

// FrameSize returns the total size of a frame carrying payloadLen bytes
func FrameSize(payloadLen int, masked bool) int {
	return HeaderSize(payloadLen, masked) + payloadLen
}

// Encode writes a single final frame carrying payload into dst starting at
// offset 0 and returns the number of bytes written.
//
// The smallest length representation that fits is used. When applyMask is
// set a fresh key is read from rand (crypto/rand when nil) and the payload is
// masked into dst; payload itself is never modified.
//
// If dst cannot hold the whole frame, Encode returns ErrOverflow and leaves
// dst untouched.
func Encode(dst []byte, op Opcode, payload []byte, applyMask bool, rand io.Reader) (int, error) {
	if !op.Valid() {
		return 0, fmt.Errorf("%w: opcode 0x%X", ErrMalformed, byte(op))
	}

	total := FrameSize(len(payload), applyMask)
	if len(dst) < total {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrOverflow, total, len(dst))
	}

	var key [MaskKeySize]byte
	if applyMask {
		var err error
		if key, err = NewMaskKey(rand); err != nil {
			return 0, err
		}
	}

	// Byte 0: FIN + RSV (always zero) + opcode
	dst[0] = 0x80 | byte(op)&0x0F

	// Byte 1: MASK + 7-bit length
	var b1 byte
	if applyMask {
		b1 = 0x80
	}

	n := uint64(len(payload))
	offset := baseHeaderSize
	switch lengthFieldSize(n) {
	case 0:
		dst[1] = b1 | byte(n)
	case 2:
		dst[1] = b1 | Length16
		binary.BigEndian.PutUint16(dst[offset:], uint16(n))
		offset += 2
	default:
		dst[1] = b1 | Length64
		binary.BigEndian.PutUint64(dst[offset:], n)
		offset += 8
	}

	if applyMask {
		copy(dst[offset:], key[:])
		offset += MaskKeySize
	}

	copy(dst[offset:], payload)
	if applyMask {
		Mask(key, dst[offset:offset+len(payload)], 0)
	}

	return offset + len(payload), nil
}

// CheckControl reports ErrMalformed for a control frame that is fragmented
// or carries more than MaxControlPayload bytes. The codec itself encodes and
// decodes such frames; callers that want the stricter rule apply it.
func CheckControl(op Opcode, final bool, payloadLen uint64) error {
	if !op.IsControl() {
		return nil
	}
	if !final {
		return fmt.Errorf("%w: fragmented %s frame", ErrMalformed, op)
	}
	if payloadLen > MaxControlPayload {
		return fmt.Errorf("%w: %s payload %d bytes exceeds %d", ErrMalformed, op, payloadLen, MaxControlPayload)
	}
	return nil
}

// DecodeHeader parses the frame header at the start of raw without touching
// the payload. It returns ErrIncomplete if raw ends inside the header and
// ErrMalformed if the header is inconsistent.
func DecodeHeader(raw []byte) (Header, error) {
	var h Header
	if len(raw) < baseHeaderSize {
		return h, fmt.Errorf("%w: need %d header bytes, have %d", ErrIncomplete, baseHeaderSize, len(raw))
	}

	// Parse first byte: FIN, RSV1-3, Opcode
	h.Final = raw[0]&0x80 != 0
	h.Reserved = (raw[0] >> 4) & 0x07
	h.Opcode = Opcode(raw[0] & 0x0F)

	// Parse second byte: Mask, Payload length
	h.Masked = raw[1]&0x80 != 0
	h.DeclaredLength = raw[1] & 0x7F

	if !h.Opcode.Valid() {
		return h, fmt.Errorf("%w: reserved opcode 0x%X", ErrMalformed, byte(h.Opcode))
	}

	offset := baseHeaderSize
	switch h.DeclaredLength {
	case Length16:
		if len(raw) < offset+2 {
			return h, fmt.Errorf("%w: need 16-bit length field", ErrIncomplete)
		}
		h.ExtendedLength = uint64(binary.BigEndian.Uint16(raw[offset:]))
		h.PayloadLength = h.ExtendedLength
		offset += 2
	case Length64:
		if len(raw) < offset+8 {
			return h, fmt.Errorf("%w: need 64-bit length field", ErrIncomplete)
		}
		// All eight bytes; the most significant bit must be zero
		h.ExtendedLength = binary.BigEndian.Uint64(raw[offset:])
		if h.ExtendedLength&(1<<63) != 0 {
			return h, fmt.Errorf("%w: 64-bit length has most significant bit set", ErrMalformed)
		}
		h.PayloadLength = h.ExtendedLength
		offset += 8
	default:
		h.PayloadLength = uint64(h.DeclaredLength)
	}

	if h.Masked {
		if len(raw) < offset+MaskKeySize {
			return h, fmt.Errorf("%w: need mask key", ErrIncomplete)
		}
		h.MaskKey[0] = raw[offset]
		h.MaskKey[1] = raw[offset+1]
		h.MaskKey[2] = raw[offset+2]
		h.MaskKey[3] = raw[offset+3]
		offset += MaskKeySize
	}

	h.PayloadOffset = offset
	return h, nil
}

// Decode parses the frame at the start of raw and unmasks its payload in
// place. The payload is h.Payload(raw).
//
// If raw is shorter than the frame, Decode returns ErrIncomplete and raw is
// left unmodified. Decode must be called once per frame: a second call on the
// same bytes would mask the payload again.
func Decode(raw []byte) (Header, error) {
	h, err := DecodeHeader(raw)
	if err != nil {
		return h, err
	}

	if uint64(len(raw)) < h.FrameLength() {
		return h, fmt.Errorf("%w: need %d bytes, have %d", ErrIncomplete, h.FrameLength(), len(raw))
	}

	if h.Masked {
		Mask(h.MaskKey, h.Payload(raw), 0)
	}

	return h, nil
}
