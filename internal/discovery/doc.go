// Package discovery finds media players that speak the External Control
// Protocol (ECP) on the local network.
//
// # Discovery Process
//
// A discovery run works as follows:
//  1. Every Scanner runs concurrently until the scan timeout:
//     the SSDP scanner sends an M-SEARCH for "roku:ecp" and collects LOCATION
//     headers, the mDNS scanner browses a service type and turns resolved
//     addresses into ECP locations
//  2. Candidate locations are merged in scanner order and de-duplicated
//  3. Each location is probed with GET <location>query/device-info
//  4. Candidates whose probe fails are dropped
//  5. The surviving descriptors are returned as an immutable Snapshot
//
// # Usage Example
//
//	registry := discovery.NewRegistry([]discovery.Scanner{
//	    discovery.NewSSDPScanner(logger),
//	    discovery.NewMDNSScanner("", 8060, logger),
//	}, discovery.NewInfoClient(), logger)
//
//	snapshot, err := registry.Discover(ctx)
//	if errors.Is(err, discovery.ErrDiscoveryTimeout) {
//	    // nobody answered; snapshot is empty
//	}
//
// # Timeouts
//
// When no scanner produced a candidate before the deadline the registry
// returns ErrDiscoveryTimeout together with an empty Snapshot. Callers that
// only need the device list can treat it as "no devices".
//
// # Network Requirements
//
//   - Multicast support on the network interface (SSDP UDP 1900, mDNS UDP 5353)
//   - Devices on the same local network segment
//   - HTTP access to the device control port (8060)
//
// # Thread Safety
//
// Registry.Discover may be called concurrently. Snapshots are immutable and
// safe to read while a newer discovery run is in progress.
package discovery
