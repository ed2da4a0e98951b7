package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/koron/go-ssdp"
	"go.uber.org/zap"
)

const (
	// SearchTarget is the SSDP search target answered by ECP devices
	SearchTarget = "roku:ecp"

	// DefaultECPPort is the device's External Control Protocol port
	DefaultECPPort = 8060
)

// searchFunc matches ssdp.Search so tests can substitute canned responses.
type searchFunc func(searchType string, waitSec int, localAddr string) ([]ssdp.Service, error)

// SSDPScanner finds candidate players by sending an M-SEARCH for roku:ecp
// to 239.255.255.250:1900 and collecting LOCATION headers.
type SSDPScanner struct {
	// LocalAddr optionally binds the search to one interface address
	LocalAddr string

	search searchFunc
	logger *zap.Logger
}

// NewSSDPScanner creates a new SSDP scanner.
func NewSSDPScanner(logger *zap.Logger) *SSDPScanner {
	return &SSDPScanner{
		search: func(searchType string, waitSec int, localAddr string) ([]ssdp.Service, error) {
			return ssdp.Search(searchType, waitSec, localAddr)
		},
		logger: logger,
	}
}

// Name implements Scanner.
func (s *SSDPScanner) Name() string {
	return "ssdp"
}

// Scan sends one M-SEARCH and waits for answers until the context deadline.
// No answers at all is reported as ErrDiscoveryTimeout.
func (s *SSDPScanner) Scan(ctx context.Context) ([]string, error) {
	type result struct {
		services []ssdp.Service
		err      error
	}

	resultCh := make(chan result, 1)
	go func() {
		services, err := s.search(SearchTarget, waitSeconds(ctx), s.LocalAddr)
		resultCh <- result{services: services, err: err}
	}()

	var res result
	select {
	case res = <-resultCh:
	case <-ctx.Done():
		return nil, ErrDiscoveryTimeout
	}

	if res.err != nil {
		return nil, fmt.Errorf("ssdp search failed: %w", res.err)
	}

	locations := make([]string, 0, len(res.services))
	for _, service := range res.services {
		location := strings.TrimSpace(service.Location)
		if location == "" {
			continue
		}
		if !strings.HasSuffix(location, "/") {
			location += "/"
		}
		s.logger.Debug("SSDP candidate",
			zap.String("usn", service.USN),
			zap.String("location", location),
		)
		locations = append(locations, location)
	}

	if len(locations) == 0 {
		return nil, ErrDiscoveryTimeout
	}
	return locations, nil
}

// waitSeconds converts the remaining context time into the whole-second
// MX value ssdp.Search expects, leaving a little headroom before the deadline.
func waitSeconds(ctx context.Context) int {
	deadline, ok := ctx.Deadline()
	if !ok {
		return int(DefaultScanTimeout / time.Second)
	}
	wait := int(time.Until(deadline)/time.Second) - 1
	if wait < 1 {
		wait = 1
	}
	return wait
}
