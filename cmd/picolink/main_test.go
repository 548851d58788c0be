package main

import (
	"bytes"
	"testing"

	"github.com/muurk/picolink/internal/config"
	"github.com/muurk/picolink/internal/protocol"
	"github.com/muurk/picolink/internal/transport"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{"plain", "8105", []byte{0x81, 0x05}, false},
		{"spaced", "81 05 48", []byte{0x81, 0x05, 0x48}, false},
		{"colons", "81:05", []byte{0x81, 0x05}, false},
		{"prefix", "0x8105", []byte{0x81, 0x05}, false},
		{"multiline", "81 05\n48\t65", []byte{0x81, 0x05, 0x48, 0x65}, false},
		{"odd length", "810", nil, true},
		{"not hex", "zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHex(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHex(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.Equal(got, tt.want) {
				t.Errorf("parseHex(%q) = %x, want %x", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecodeExampleFrame(t *testing.T) {
	raw, err := parseHex("81 85 37 fa 21 3d 7f 9f 4d 51 58")
	if err != nil {
		t.Fatalf("parseHex() error = %v", err)
	}
	h, err := protocol.Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := string(h.Payload(raw)); got != "Hello" {
		t.Errorf("example payload = %q, want %q", got, "Hello")
	}
}

func TestNewDialerReadSize(t *testing.T) {
	tests := []struct {
		name       string
		bufferSize int
		want       int
	}{
		{"configured buffer", 512, 512},
		{"large buffer", 8192, 8192},
		{"unset falls back", 0, transport.DefaultReadSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Link.BufferSize = tt.bufferSize
			if got := newDialer(cfg).ReadSize(); got != tt.want {
				t.Errorf("ReadSize() = %d, want %d", got, tt.want)
			}
		})
	}
}
