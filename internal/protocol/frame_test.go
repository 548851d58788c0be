package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// patternPayload returns n bytes of a repeating, non-zero pattern
func patternPayload(n int) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i%251 + 1)
	}
	return payload
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		opcode  Opcode
		payload []byte
		mask    bool
		key     []byte
		want    []byte
	}{
		{
			name:    "simple unmasked text frame",
			opcode:  OpText,
			payload: []byte("Hello"),
			want: []byte{
				0x81, // FIN + text opcode
				0x05, // No mask, 5 byte payload
				'H', 'e', 'l', 'l', 'o',
			},
		},
		{
			name:    "masked text frame",
			opcode:  OpText,
			payload: []byte("Hello"),
			mask:    true,
			key:     []byte{0x37, 0xFA, 0x21, 0x3D},
			want: []byte{
				0x81, 0x85, // FIN + text, mask bit + 5 byte payload
				0x37, 0xFA, 0x21, 0x3D, // mask key
				0x7F, 0x9F, 0x4D, 0x51, 0x58,
			},
		},
		{
			name:   "masked empty ping",
			opcode: OpPing,
			mask:   true,
			key:    []byte{0xAA, 0xBB, 0xCC, 0xDD},
			want:   []byte{0x89, 0x80, 0xAA, 0xBB, 0xCC, 0xDD},
		},
		{
			name:    "unmasked close frame",
			opcode:  OpClose,
			payload: []byte{0x03, 0xE8},
			want:    []byte{0x88, 0x02, 0x03, 0xE8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, 64)
			n, err := Encode(dst, tt.opcode, tt.payload, tt.mask, bytes.NewReader(tt.key))
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if n != len(tt.want) {
				t.Fatalf("Encode() wrote %d bytes, want %d", n, len(tt.want))
			}
			if !bytes.Equal(dst[:n], tt.want) {
				t.Errorf("Encode() = % x, want % x", dst[:n], tt.want)
			}
		})
	}
}

func TestEncodeLengthSelection(t *testing.T) {
	tests := []struct {
		length       int
		wantDeclared uint8
		wantOffset   int
	}{
		{length: 0, wantDeclared: 0, wantOffset: 6},
		{length: 125, wantDeclared: 125, wantOffset: 6},
		{length: 126, wantDeclared: Length16, wantOffset: 8},
		{length: 65535, wantDeclared: Length16, wantOffset: 8},
		{length: 65536, wantDeclared: Length64, wantOffset: 14},
	}

	for _, tt := range tests {
		payload := patternPayload(tt.length)
		dst := make([]byte, FrameSize(tt.length, true))

		n, err := Encode(dst, OpBinary, payload, true, nil)
		if err != nil {
			t.Fatalf("Encode(len=%d) error = %v", tt.length, err)
		}
		if n != len(dst) {
			t.Errorf("Encode(len=%d) wrote %d bytes, want %d", tt.length, n, len(dst))
		}
		if got := dst[1] & 0x7F; got != tt.wantDeclared {
			t.Errorf("len=%d: declared length = %d, want %d", tt.length, got, tt.wantDeclared)
		}

		h, err := Decode(dst[:n])
		if err != nil {
			t.Fatalf("Decode(len=%d) error = %v", tt.length, err)
		}
		if h.PayloadOffset != tt.wantOffset {
			t.Errorf("len=%d: payload offset = %d, want %d", tt.length, h.PayloadOffset, tt.wantOffset)
		}
		if h.PayloadLength != uint64(tt.length) {
			t.Errorf("len=%d: decoded length = %d", tt.length, h.PayloadLength)
		}
		if h.DeclaredLength > MaxShortLength && h.ExtendedLength != uint64(tt.length) {
			t.Errorf("len=%d: extended length = %d", tt.length, h.ExtendedLength)
		}
		if !bytes.Equal(h.Payload(dst), payload) {
			t.Errorf("len=%d: payload mismatch after round trip", tt.length)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	opcodes := []Opcode{OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong}
	lengths := []int{0, 1, 3, 4, 5, 125, 126, 1000, 2000}

	for _, op := range opcodes {
		for _, length := range lengths {
			payload := patternPayload(length)
			original := append([]byte(nil), payload...)

			dst := make([]byte, 2048+MaxHeaderSize)
			n, err := Encode(dst, op, payload, true, nil)
			if err != nil {
				t.Fatalf("Encode(%s, %d) error = %v", op, length, err)
			}
			if !bytes.Equal(payload, original) {
				t.Fatalf("Encode(%s, %d) modified the caller's payload", op, length)
			}

			h, err := Decode(dst[:n])
			if err != nil {
				t.Fatalf("Decode(%s, %d) error = %v", op, length, err)
			}
			if h.Opcode != op {
				t.Errorf("opcode = %s, want %s", h.Opcode, op)
			}
			if !h.Final {
				t.Errorf("%s/%d: FIN should be set", op, length)
			}
			if h.Reserved != 0 {
				t.Errorf("%s/%d: reserved = %d, want 0", op, length, h.Reserved)
			}
			if !h.Masked {
				t.Errorf("%s/%d: masked should be true", op, length)
			}
			if !bytes.Equal(h.Payload(dst[:n]), original) {
				t.Errorf("%s/%d: payload mismatch", op, length)
			}
		}
	}
}

func TestEncodeOverflow(t *testing.T) {
	payload := patternPayload(200)
	required := FrameSize(len(payload), true)

	exact := make([]byte, required)
	if n, err := Encode(exact, OpText, payload, true, nil); err != nil || n != required {
		t.Fatalf("Encode() into exact buffer = (%d, %v), want (%d, nil)", n, err, required)
	}

	short := bytes.Repeat([]byte{0xEE}, required-1)
	n, err := Encode(short, OpText, payload, true, nil)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("Encode() into short buffer error = %v, want ErrOverflow", err)
	}
	if n != 0 {
		t.Errorf("Encode() reported %d bytes written on overflow", n)
	}
	if !bytes.Equal(short, bytes.Repeat([]byte{0xEE}, required-1)) {
		t.Error("Encode() wrote into the buffer on overflow")
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	dst := make([]byte, 512)

	if _, err := Encode(dst, Opcode(0x3), nil, true, nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("reserved opcode: error = %v, want ErrMalformed", err)
	}
	if _, err := Encode(dst, OpPing, patternPayload(126), true, nil); err != nil {
		t.Errorf("126-byte ping: error = %v, want nil", err)
	}
	if _, err := Encode(dst, OpText, nil, true, bytes.NewReader([]byte{0x01})); err == nil {
		t.Error("short mask source: expected error")
	}
}

func TestCheckControl(t *testing.T) {
	tests := []struct {
		name    string
		op      Opcode
		final   bool
		length  uint64
		wantErr bool
	}{
		{"final ping at limit", OpPing, true, MaxControlPayload, false},
		{"oversized ping", OpPing, true, MaxControlPayload + 1, true},
		{"fragmented ping", OpPing, false, 0, true},
		{"fragmented close", OpClose, false, 2, true},
		{"oversized pong", OpPong, true, 1000, true},
		{"fragmented text", OpText, false, 1000, false},
		{"large binary", OpBinary, true, 70000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckControl(tt.op, tt.final, tt.length)
			if tt.wantErr && !errors.Is(err, ErrMalformed) {
				t.Errorf("CheckControl() error = %v, want ErrMalformed", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CheckControl() error = %v, want nil", err)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
		verify  func(t *testing.T, h Header, raw []byte)
	}{
		{
			name: "simple unmasked text frame",
			data: []byte{0x81, 0x05, 'H', 'e', 'l', 'l', 'o'},
			verify: func(t *testing.T, h Header, raw []byte) {
				if !h.Final {
					t.Error("FIN should be true")
				}
				if h.Opcode != OpText {
					t.Errorf("opcode = %s, want text", h.Opcode)
				}
				if h.Masked {
					t.Error("masked should be false")
				}
				if h.PayloadOffset != 2 {
					t.Errorf("payload offset = %d, want 2", h.PayloadOffset)
				}
				if !bytes.Equal(h.Payload(raw), []byte("Hello")) {
					t.Errorf("payload = %q, want 'Hello'", h.Payload(raw))
				}
			},
		},
		{
			name: "masked frame stores each key byte in its own slot",
			data: func() []byte {
				payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
				key := [4]byte{0x11, 0x22, 0x33, 0x44}
				Mask(key, payload, 0)
				return append([]byte{0x82, 0x85, 0x11, 0x22, 0x33, 0x44}, payload...)
			}(),
			verify: func(t *testing.T, h Header, raw []byte) {
				want := [4]byte{0x11, 0x22, 0x33, 0x44}
				if h.MaskKey != want {
					t.Errorf("mask key = % x, want % x", h.MaskKey, want)
				}
				if h.PayloadOffset != 6 {
					t.Errorf("payload offset = %d, want 6", h.PayloadOffset)
				}
				if !bytes.Equal(h.Payload(raw), []byte{0x01, 0x02, 0x03, 0x04, 0x05}) {
					t.Errorf("payload = % x", h.Payload(raw))
				}
			},
		},
		{
			name: "reserved bits are carried through",
			data: []byte{0xF1, 0x00},
			verify: func(t *testing.T, h Header, raw []byte) {
				if h.Reserved != 0x07 {
					t.Errorf("reserved = %d, want 7", h.Reserved)
				}
				if h.Opcode != OpText {
					t.Errorf("opcode = %s, want text", h.Opcode)
				}
			},
		},
		{
			name: "non-final continuation frame",
			data: []byte{0x00, 0x01, 'x'},
			verify: func(t *testing.T, h Header, raw []byte) {
				if h.Final {
					t.Error("FIN should be false")
				}
				if h.Opcode != OpContinuation {
					t.Errorf("opcode = %s, want continuation", h.Opcode)
				}
			},
		},
		{
			name: "16-bit extended length",
			data: append([]byte{0x82, 0x7E, 0x00, 0x80}, patternPayload(128)...),
			verify: func(t *testing.T, h Header, raw []byte) {
				if h.DeclaredLength != Length16 || h.ExtendedLength != 128 || h.PayloadLength != 128 {
					t.Errorf("lengths = (%d, %d, %d), want (126, 128, 128)",
						h.DeclaredLength, h.ExtendedLength, h.PayloadLength)
				}
			},
		},
		{
			name:    "reserved opcode",
			data:    []byte{0x83, 0x00},
			wantErr: ErrMalformed,
		},
		{
			name:    "64-bit length with most significant bit set",
			data:    []byte{0x82, 0x7F, 0x80, 0, 0, 0, 0, 0, 0, 0x01},
			wantErr: ErrMalformed,
		},
		{
			name: "fragmented ping",
			data: []byte{0x09, 0x00},
			verify: func(t *testing.T, h Header, raw []byte) {
				if h.Opcode != OpPing || h.Final {
					t.Errorf("header = %s, want non-final ping", h)
				}
			},
		},
		{
			name: "ping with extended length",
			data: append([]byte{0x89, 0x7E, 0x00, 0x7E}, patternPayload(126)...),
			verify: func(t *testing.T, h Header, raw []byte) {
				if h.Opcode != OpPing || h.PayloadLength != 126 {
					t.Errorf("header = %s, want 126-byte ping", h)
				}
				if !bytes.Equal(h.Payload(raw), patternPayload(126)) {
					t.Error("payload mismatch")
				}
			},
		},
		{
			name:    "single byte",
			data:    []byte{0x81},
			wantErr: ErrIncomplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Decode(tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if tt.verify != nil {
				tt.verify(t, h, tt.data)
			}
		})
	}
}

func TestDecodeIncomplete(t *testing.T) {
	payload := patternPayload(300)
	frame := make([]byte, FrameSize(len(payload), true))
	n, err := Encode(frame, OpBinary, payload, true, nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	frame = frame[:n]

	for cut := 0; cut < len(frame); cut++ {
		chunk := append([]byte(nil), frame[:cut]...)
		before := append([]byte(nil), chunk...)

		_, err := Decode(chunk)
		if !errors.Is(err, ErrIncomplete) {
			t.Fatalf("Decode(%d of %d bytes) error = %v, want ErrIncomplete", cut, len(frame), err)
		}
		if !bytes.Equal(chunk, before) {
			t.Fatalf("Decode(%d of %d bytes) modified an incomplete chunk", cut, len(frame))
		}
	}

	h, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode(full frame) error = %v", err)
	}
	if !bytes.Equal(h.Payload(frame), payload) {
		t.Error("payload mismatch after completing the frame")
	}
}

func TestDecodeFull64BitLength(t *testing.T) {
	// 0x00000001_00000005: the high word must not be dropped
	raw := []byte{0x82, 0x7F, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 'a', 'b'}

	h, err := DecodeHeader(raw)
	if err != nil {
		t.Fatalf("DecodeHeader() error = %v", err)
	}
	if h.PayloadLength != 0x100000005 {
		t.Errorf("payload length = %#x, want 0x100000005", h.PayloadLength)
	}
	if h.PayloadOffset != 10 {
		t.Errorf("payload offset = %d, want 10", h.PayloadOffset)
	}

	if _, err := Decode(raw); !errors.Is(err, ErrIncomplete) {
		t.Errorf("Decode() error = %v, want ErrIncomplete", err)
	}
}

func TestDecodeConsecutiveFrames(t *testing.T) {
	var stream []byte
	for _, text := range []string{"one", "two", "three"} {
		buf := make([]byte, 32)
		n, err := Encode(buf, OpText, []byte(text), true, nil)
		if err != nil {
			t.Fatalf("Encode(%q) error = %v", text, err)
		}
		stream = append(stream, buf[:n]...)
	}

	var got []string
	for len(stream) > 0 {
		h, err := Decode(stream)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		got = append(got, string(h.Payload(stream)))
		stream = stream[h.FrameLength():]
	}

	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("decoded %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMaskInvolution(t *testing.T) {
	keys := [][4]byte{
		{0x00, 0x00, 0x00, 0x00},
		{0xFF, 0xFF, 0xFF, 0xFF},
		{0x37, 0xFA, 0x21, 0x3D},
	}

	for _, key := range keys {
		original := patternPayload(37)
		data := append([]byte(nil), original...)

		Mask(key, data, 0)
		Mask(key, data, 0)
		if !bytes.Equal(data, original) {
			t.Errorf("key % x: double mask did not restore payload", key)
		}
	}
}

func TestMaskInPieces(t *testing.T) {
	key := [4]byte{0x01, 0x02, 0x03, 0x04}
	whole := patternPayload(10)
	pieces := append([]byte(nil), whole...)

	Mask(key, whole, 0)
	pos := Mask(key, pieces[:3], 0)
	pos = Mask(key, pieces[3:7], pos)
	Mask(key, pieces[7:], pos)

	if !bytes.Equal(whole, pieces) {
		t.Errorf("masking in pieces = % x, want % x", pieces, whole)
	}
}

func TestHeaderSize(t *testing.T) {
	tests := []struct {
		length int
		masked bool
		want   int
	}{
		{0, false, 2},
		{0, true, 6},
		{125, true, 6},
		{126, false, 4},
		{126, true, 8},
		{65535, true, 8},
		{65536, false, 10},
		{65536, true, 14},
	}
	for _, tt := range tests {
		if got := HeaderSize(tt.length, tt.masked); got != tt.want {
			t.Errorf("HeaderSize(%d, %v) = %d, want %d", tt.length, tt.masked, got, tt.want)
		}
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		opcode Opcode
		want   string
	}{
		{OpContinuation, "continuation"},
		{OpText, "text"},
		{OpBinary, "binary"},
		{OpClose, "close"},
		{OpPing, "ping"},
		{OpPong, "pong"},
		{Opcode(0x5), "unknown(0x5)"},
	}
	for _, tt := range tests {
		if got := tt.opcode.String(); got != tt.want {
			t.Errorf("Opcode(0x%X).String() = %q, want %q", byte(tt.opcode), got, tt.want)
		}
		if tt.opcode.Valid() {
			parsed, err := ParseOpcode(tt.want)
			if err != nil || parsed != tt.opcode {
				t.Errorf("ParseOpcode(%q) = (%v, %v)", tt.want, parsed, err)
			}
		}
	}
	if _, err := ParseOpcode("bogus"); err == nil {
		t.Error("ParseOpcode(bogus) should fail")
	}
}
