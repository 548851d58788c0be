// Package capture writes every frame a link sends or receives to a JSON
// Lines file for offline protocol analysis.
package capture

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/muurk/picolink/internal/logging"
	"github.com/muurk/picolink/internal/protocol"
)

// Directions recorded in captures
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Record represents one captured frame
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	MessageNum   int       `json:"message_num"`
	RemoteAddr   string    `json:"remote_addr"`
	Direction    string    `json:"direction"`
	FrameType    string    `json:"frame_type"`
	Opcode       byte      `json:"opcode"`
	FIN          bool      `json:"fin"`
	Masked       bool      `json:"masked"`
	MaskKeyHex   string    `json:"mask_key_hex,omitempty"`
	PayloadLen   int       `json:"payload_length"`
	PayloadHex   string    `json:"payload_hex"`
	PayloadASCII string    `json:"payload_ascii"`
}

// Writer appends records to a capture file. It implements link.Observer
// and is safe for concurrent use.
type Writer struct {
	mu         sync.Mutex
	file       *os.File
	enc        *json.Encoder
	remoteAddr string
	count      int
	now        func() time.Time
}

// Open creates dir if needed and starts a new capture file in it named
// after the current time
func Open(dir string, remoteAddr string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}

	now := time.Now()
	filename := filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl", now.Format("20060102-150405")))

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	logging.Info("Capturing frames to " + filename)

	return &Writer{
		file:       f,
		enc:        json.NewEncoder(f),
		remoteAddr: remoteAddr,
		now:        time.Now,
	}, nil
}

// Path returns the capture file path
func (w *Writer) Path() string { return w.file.Name() }

// FrameSent records an outbound frame
func (w *Writer) FrameSent(h protocol.Header, payload []byte) {
	w.Record(w.remoteAddr, DirectionSent, h, payload)
}

// FrameReceived records an inbound frame
func (w *Writer) FrameReceived(h protocol.Header, payload []byte) {
	w.Record(w.remoteAddr, DirectionReceived, h, payload)
}

// Record appends one frame. Write failures are logged, not returned, so a
// full disk never disturbs the link.
func (w *Writer) Record(remoteAddr, direction string, h protocol.Header, payload []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.count++
	rec := Record{
		Timestamp:    w.now(),
		MessageNum:   w.count,
		RemoteAddr:   remoteAddr,
		Direction:    direction,
		FrameType:    h.Opcode.String(),
		Opcode:       byte(h.Opcode),
		FIN:          h.Final,
		Masked:       h.Masked,
		PayloadLen:   len(payload),
		PayloadHex:   hex.EncodeToString(payload),
		PayloadASCII: logging.ASCIIDump(payload),
	}
	if h.Masked {
		rec.MaskKeyHex = hex.EncodeToString(h.MaskKey[:])
	}

	if err := w.enc.Encode(rec); err != nil {
		logging.Error(fmt.Sprintf("Failed to write capture record: %v", err))
	}
}

// Count returns how many records were written
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close closes the capture file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
