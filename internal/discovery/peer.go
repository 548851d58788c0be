package discovery

import (
	"fmt"
	"time"

	"github.com/muurk/picolink/internal/link"
)

// Peer represents a discovered picolink peer on the network
type Peer struct {
	// Instance is the advertised mDNS instance name (e.g., "picolink-server")
	Instance string

	// Hostname is the mDNS hostname (e.g., "bench.local.")
	Hostname string

	// IP is the address to connect to (IPv4 preferred)
	IP string

	// Port is the advertised TCP port
	Port int

	// Path is the upgrade request path from the "path" TXT record
	Path string

	// Metadata contains the remaining mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the peer was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the peer
func (p *Peer) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d%s", p.Instance, p.Hostname, p.IP, p.Port, p.Path)
}

// Endpoint returns the link endpoint for the peer
func (p *Peer) Endpoint() link.Endpoint {
	return link.Endpoint{Host: p.IP, Port: p.Port}
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (p *Peer) GetMetadata(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}
