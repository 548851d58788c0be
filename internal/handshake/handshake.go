// Package handshake builds the HTTP/1.1 upgrade request the device sends when
// its transport connects, and recognises the peer's reply so it can be
// stripped from the inbound stream before frame decoding.
//
// The reply is parsed and reported, not negotiated: no extensions or
// subprotocols are agreed and a mismatched accept key is only logged.
package handshake

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	headerUpgrade      = "Upgrade"
	headerConnection   = "Connection"
	headerSecWsAccept  = "Sec-WebSocket-Accept"
	headerSecWsVersion = "13"

	wsGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

	// MaxResponseSize bounds how far ParseResponse searches for the end of
	// the reply before giving up
	MaxResponseSize = 4096
)

var (
	// ErrIncomplete means the reply has not fully arrived yet
	ErrIncomplete = errors.New("incomplete upgrade response")
	// ErrInvalidResponse means the bytes are not an HTTP response
	ErrInvalidResponse = errors.New("invalid upgrade response")
)

var headerEnd = []byte("\r\n\r\n")

// Request describes the upgrade request
type Request struct {
	Host string // value of the Host header, usually host:port
	Path string // request target; "/" when empty
	Key  string // Sec-WebSocket-Key; see NewKey
}

// NewKey returns a random base64-encoded 16-byte Sec-WebSocket-Key.
// A nil reader uses crypto/rand.
func NewKey(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	var nonce [16]byte
	if _, err := io.ReadFull(r, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate handshake key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(nonce[:]), nil
}

// AcceptFor returns the Sec-WebSocket-Accept value a peer derives from key
func AcceptFor(key string) string {
	sum := sha1.Sum([]byte(key + wsGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Bytes renders the request exactly as it goes on the wire
func (r Request) Bytes() []byte {
	path := r.Path
	if path == "" {
		path = "/"
	}
	return []byte("GET " + path + " HTTP/1.1\r\n" +
		"Host: " + r.Host + "\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + r.Key + "\r\n" +
		"Sec-WebSocket-Version: " + headerSecWsVersion + "\r\n" +
		"\r\n")
}

// Response is the parsed peer reply
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
}

// Upgraded reports whether the reply is a 101 with the upgrade headers
func (r *Response) Upgraded() bool {
	return r.StatusCode == http.StatusSwitchingProtocols &&
		strings.EqualFold(r.Header.Get(headerUpgrade), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get(headerConnection)), "upgrade")
}

// Accept returns the Sec-WebSocket-Accept header
func (r *Response) Accept() string {
	return r.Header.Get(headerSecWsAccept)
}

var httpPrefix = []byte("HTTP/")

// ParseResponse looks for a complete HTTP response header at the start of b.
// It returns the number of bytes the reply occupies; anything after that is
// frame data. ErrIncomplete means more bytes are needed, which is only
// reported while b is still a prefix of an HTTP status line.
func ParseResponse(b []byte) (int, *Response, error) {
	end := bytes.Index(b, headerEnd)
	if end < 0 {
		if len(b) >= MaxResponseSize {
			return 0, nil, fmt.Errorf("%w: no header terminator in %d bytes", ErrInvalidResponse, len(b))
		}
		if !bytes.HasPrefix(httpPrefix, b[:min(len(b), len(httpPrefix))]) {
			return 0, nil, fmt.Errorf("%w: does not start with HTTP/", ErrInvalidResponse)
		}
		return 0, nil, ErrIncomplete
	}
	n := end + len(headerEnd)

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(b[:n])), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	_ = resp.Body.Close()

	return n, &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
	}, nil
}
