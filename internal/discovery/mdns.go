package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	// DefaultMDNSService is browsed for candidate players. Roku TVs and
	// streamers with AirPlay support advertise it; hosts that are not ECP
	// devices are dropped by the device-info probe.
	DefaultMDNSService = "_airplay._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."
)

// MDNSScanner finds candidate players via multicast DNS.
type MDNSScanner struct {
	// Service is the mDNS service type to browse
	Service string

	// ECPPort is the control port used to build candidate locations
	ECPPort int

	logger *zap.Logger
}

// NewMDNSScanner creates a new mDNS scanner for the given service type.
func NewMDNSScanner(service string, ecpPort int, logger *zap.Logger) *MDNSScanner {
	if service == "" {
		service = DefaultMDNSService
	}
	if ecpPort == 0 {
		ecpPort = DefaultECPPort
	}
	return &MDNSScanner{
		Service: service,
		ECPPort: ecpPort,
		logger:  logger,
	}
}

// Name implements Scanner.
func (s *MDNSScanner) Name() string {
	return "mdns"
}

// Scan browses until ctx is done and returns the candidate locations seen.
// A browse that saw no entries at all reports ErrDiscoveryTimeout.
func (s *MDNSScanner) Scan(ctx context.Context) ([]string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)

	var (
		mu        sync.Mutex
		locations []string
	)

	go func() {
		for entry := range entries {
			if location := s.parseServiceEntry(entry); location != "" {
				s.logger.Debug("mDNS candidate",
					zap.String("instance", entry.Instance),
					zap.String("location", location),
				)
				mu.Lock()
				locations = append(locations, location)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, s.Service, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Wait for context to complete (timeout or cancellation)
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()

	if len(locations) == 0 {
		return nil, ErrDiscoveryTimeout
	}
	return append([]string(nil), locations...), nil
}

// parseServiceEntry converts a zeroconf service entry to an ECP location.
// Returns an empty string if the entry has no usable address.
func (s *MDNSScanner) parseServiceEntry(entry *zeroconf.ServiceEntry) string {
	if entry == nil {
		return ""
	}

	// Prefer IPv4
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}

	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	if ip == "" {
		return ""
	}

	return "http://" + net.JoinHostPort(ip, strconv.Itoa(s.ECPPort)) + "/"
}
