package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/picolink/internal/logging"
)

const (
	// DefaultService is the mDNS service type picolink peers advertise
	DefaultService = "_picolink._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for peer discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPath is used when a peer advertises no "path" TXT record
	DefaultPath = "/"
)

// Scanner handles mDNS peer discovery
type Scanner struct {
	// Service is the mDNS service type to browse
	Service string

	// Timeout is the maximum time to wait for discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Service: DefaultService,
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers all peers that answer within the timeout
func (s *Scanner) Scan(ctx context.Context) ([]*Peer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	var (
		mu    sync.Mutex
		peers []*Peer
	)
	collected := make(chan struct{})

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		defer close(collected)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if peer := parseServiceEntry(entry); peer != nil {
					mu.Lock()
					peers = append(peers, peer)
					mu.Unlock()
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, s.Service, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-collected

	mu.Lock()
	defer mu.Unlock()
	return peers, nil
}

// Find waits for the first peer whose instance name matches instance, or
// for any peer when instance is empty
func (s *Scanner) Find(ctx context.Context, instance string) (*Peer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Peer, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				peer := parseServiceEntry(entry)
				if peer != nil && matchesInstance(peer, instance) {
					found <- peer
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, s.Service, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case peer := <-found:
		logging.Info("Discovered peer",
			zap.String("instance", peer.Instance),
			zap.String("remote_addr", peer.Endpoint().String()),
		)
		return peer, nil
	case <-ctx.Done():
		// The finder may have matched just as the timeout fired
		select {
		case peer := <-found:
			return peer, nil
		default:
		}
		if instance != "" {
			return nil, fmt.Errorf("peer %q not found within %s", instance, s.Timeout)
		}
		return nil, fmt.Errorf("no %s peer found within %s", s.Service, s.Timeout)
	}
}

func matchesInstance(p *Peer, instance string) bool {
	return instance == "" || strings.EqualFold(p.Instance, instance)
}

// parseServiceEntry converts a zeroconf service entry to a Peer.
// Returns nil if the entry has no usable address or port.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Peer {
	if entry == nil || entry.Port == 0 {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}

	// Fallback to IPv6 if no IPv4
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	if ip == "" {
		return nil
	}

	// Parse TXT records into metadata
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		// TXT records are in "key=value" format
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	path := metadata["path"]
	if !strings.HasPrefix(path, "/") {
		path = DefaultPath
	}

	return &Peer{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Path:         path,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Advertisement is a running mDNS registration
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise registers instance under service on all interfaces. The "path"
// TXT record tells devices where to send the upgrade request.
func Advertise(instance, service string, port int, path string, txt ...string) (*Advertisement, error) {
	if service == "" {
		service = DefaultService
	}
	records := append([]string{"path=" + path}, txt...)

	server, err := zeroconf.Register(instance, service, ServiceDomain, port, records, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising over mDNS",
		zap.String("instance", instance),
		zap.String("service", service),
		zap.Int("port", port),
	)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the registration
func (a *Advertisement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}
