// Package discovery provides mDNS-based discovery of picolink peers.
//
// When no fixed remote address is configured, the device browses for the
// "_picolink._tcp" service type and connects to the first peer that
// answers (or the one with a matching instance name). The test peer uses
// Advertise to register itself under the same type.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	peer, err := scanner.Find(ctx, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Found: %s\n", peer)
//
// # TXT Records
//
//   - path: upgrade request path (defaults to "/")
//   - version: peer build version
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Peers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
