package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/thoas/go-funk"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultScanTimeout is the default time scanners listen for answers
	DefaultScanTimeout = 5 * time.Second

	// DefaultProbeConcurrency bounds parallel device-info requests
	DefaultProbeConcurrency = 4
)

// ErrDiscoveryTimeout is returned when no device answered before the deadline.
var ErrDiscoveryTimeout = errors.New("discovery timed out: no devices responded")

// Scanner produces candidate device locations (e.g., "http://10.0.0.5:8060/").
type Scanner interface {
	Name() string
	Scan(ctx context.Context) ([]string, error)
}

// Prober turns a candidate location into a Descriptor.
type Prober interface {
	Fetch(ctx context.Context, location string) (Descriptor, error)
}

// Snapshot is the immutable result of one discovery run.
// A new run produces a new Snapshot; existing ones are never modified.
type Snapshot struct {
	devices []Descriptor
	takenAt time.Time
}

// NewSnapshot copies devices into a new Snapshot.
func NewSnapshot(devices []Descriptor) Snapshot {
	return Snapshot{
		devices: append([]Descriptor(nil), devices...),
		takenAt: time.Now(),
	}
}

// Devices returns a copy of the descriptors in discovery order.
func (s Snapshot) Devices() []Descriptor {
	return append([]Descriptor(nil), s.devices...)
}

// Len returns the number of descriptors.
func (s Snapshot) Len() int {
	return len(s.devices)
}

// TakenAt returns when the snapshot was created.
func (s Snapshot) TakenAt() time.Time {
	return s.takenAt
}

// Registry runs all scanners concurrently, de-duplicates the candidate
// locations and probes each one for its device-info.
type Registry struct {
	// Timeout is how long scanners listen for answers
	Timeout time.Duration

	// ProbeTimeout bounds the device-info phase
	ProbeTimeout time.Duration

	// ProbeConcurrency bounds parallel device-info requests
	ProbeConcurrency int

	scanners []Scanner
	prober   Prober
	logger   *zap.Logger
}

// NewRegistry creates a registry over the given scanners.
func NewRegistry(scanners []Scanner, prober Prober, logger *zap.Logger) *Registry {
	return &Registry{
		Timeout:          DefaultScanTimeout,
		ProbeTimeout:     2 * DefaultProbeTimeout,
		ProbeConcurrency: DefaultProbeConcurrency,
		scanners:         scanners,
		prober:           prober,
		logger:           logger,
	}
}

// Discover runs one discovery pass. When nothing answered it returns an
// empty Snapshot together with ErrDiscoveryTimeout.
func (r *Registry) Discover(ctx context.Context) (Snapshot, error) {
	locations, err := r.scan(ctx)
	if err != nil {
		return NewSnapshot(nil), err
	}

	devices := r.probe(ctx, locations)

	r.logger.Info("Discovery complete",
		zap.Int("candidates", len(locations)),
		zap.Int("devices", len(devices)),
	)

	return NewSnapshot(devices), nil
}

// scan runs every scanner and merges their locations in scanner order.
func (r *Registry) scan(ctx context.Context) ([]string, error) {
	scanCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	perScanner := make([][]string, len(r.scanners))
	errs := make([]error, len(r.scanners))

	var g errgroup.Group
	for i, scanner := range r.scanners {
		g.Go(func() error {
			locations, err := scanner.Scan(scanCtx)
			if err != nil {
				r.logger.Debug("Scanner finished without results",
					zap.String("scanner", scanner.Name()),
					zap.Error(err),
				)
				errs[i] = err
				return nil
			}
			perScanner[i] = locations
			return nil
		})
	}
	_ = g.Wait()

	var merged []string
	for _, locations := range perScanner {
		merged = append(merged, locations...)
	}
	merged = funk.UniqString(merged)

	if len(merged) > 0 {
		return merged, nil
	}

	// Nothing found: a timeout anywhere means "nobody answered";
	// otherwise report what went wrong.
	var failures []error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, ErrDiscoveryTimeout) {
			return nil, ErrDiscoveryTimeout
		}
		failures = append(failures, err)
	}
	if len(failures) > 0 {
		return nil, errors.Join(failures...)
	}
	return nil, nil
}

// probe fetches device-info for each location, keeping discovery order.
func (r *Registry) probe(ctx context.Context, locations []string) []Descriptor {
	if len(locations) == 0 {
		return nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.ProbeTimeout)
	defer cancel()

	results := make([]*Descriptor, len(locations))

	var g errgroup.Group
	limit := r.ProbeConcurrency
	if limit <= 0 {
		limit = DefaultProbeConcurrency
	}
	g.SetLimit(limit)

	for i, location := range locations {
		g.Go(func() error {
			descriptor, err := r.prober.Fetch(probeCtx, location)
			if err != nil {
				r.logger.Debug("Dropping candidate, device-info probe failed",
					zap.String("location", location),
					zap.Error(err),
				)
				return nil
			}
			results[i] = &descriptor
			return nil
		})
	}
	_ = g.Wait()

	devices := make([]Descriptor, 0, len(results))
	for _, descriptor := range results {
		if descriptor != nil {
			devices = append(devices, *descriptor)
		}
	}
	return devices
}
