package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	withInstance := func(e *zeroconf.ServiceEntry, instance string) *zeroconf.ServiceEntry {
		e.Instance = instance
		return e
	}

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
		wantPath string
	}{
		{
			name: "IPv4 peer with path",
			entry: withInstance(&zeroconf.ServiceEntry{
				HostName: "bench.local.",
				Port:     8082,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.20")},
				Text:     []string{"path=/device", "version=1.0"},
			}, "picolink-server"),
			wantIP:   "192.168.1.20",
			wantPort: 8082,
			wantPath: "/device",
		},
		{
			name: "IPv6 fallback",
			entry: &zeroconf.ServiceEntry{
				HostName: "bench.local.",
				Port:     8082,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:   "fe80::1",
			wantPort: 8082,
			wantPath: "/",
		},
		{
			name: "prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				HostName: "bench.local.",
				Port:     9000,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:   "10.0.0.5",
			wantPort: 9000,
			wantPath: "/",
		},
		{
			name: "bad path falls back to root",
			entry: &zeroconf.ServiceEntry{
				Port:     8082,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
				Text:     []string{"path=device"},
			},
			wantIP:   "10.0.0.5",
			wantPort: 8082,
			wantPath: "/",
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				HostName: "bench.local.",
				Port:     8082,
			},
			wantNil: true,
		},
		{
			name: "no port",
			entry: &zeroconf.ServiceEntry{
				HostName: "bench.local.",
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peer := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if peer != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", peer)
				}
				return
			}
			if peer == nil {
				t.Fatal("parseServiceEntry() = nil, want peer")
			}
			if peer.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", peer.IP, tt.wantIP)
			}
			if peer.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", peer.Port, tt.wantPort)
			}
			if peer.Path != tt.wantPath {
				t.Errorf("Path = %v, want %v", peer.Path, tt.wantPath)
			}
			if peer.DiscoveredAt.IsZero() {
				t.Error("DiscoveredAt should be set")
			}
		})
	}
}

func TestParseServiceEntryMetadata(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		Port:     8082,
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.20")},
		Text:     []string{"path=/", "version=1.0", "beta"},
	}
	entry.Instance = "bench"

	peer := parseServiceEntry(entry)
	if peer == nil {
		t.Fatal("parseServiceEntry() = nil")
	}
	if got := peer.GetMetadata("version"); got != "1.0" {
		t.Errorf("GetMetadata(version) = %q", got)
	}
	if _, ok := peer.Metadata["beta"]; !ok {
		t.Error("key without value should be kept")
	}
	if got := peer.Endpoint().String(); got != "192.168.1.20:8082" {
		t.Errorf("Endpoint() = %q", got)
	}
	if got := peer.String(); got != "bench () at 192.168.1.20:8082/" {
		t.Errorf("String() = %q", got)
	}
}

func TestMatchesInstance(t *testing.T) {
	p := &Peer{Instance: "Picolink-Server"}
	if !matchesInstance(p, "") {
		t.Error("empty instance should match any peer")
	}
	if !matchesInstance(p, "picolink-server") {
		t.Error("match should be case-insensitive")
	}
	if matchesInstance(p, "other") {
		t.Error("different instance should not match")
	}
}

func TestNewScanner(t *testing.T) {
	s := NewScanner()
	if s.Service != DefaultService {
		t.Errorf("Service = %q, want %q", s.Service, DefaultService)
	}
	if s.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
}
