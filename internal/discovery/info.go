package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DeviceInfoPath is appended to a device location to query its identity
	DeviceInfoPath = "query/device-info"

	// DefaultProbeTimeout bounds a single device-info request
	DefaultProbeTimeout = 3 * time.Second

	// DefaultProbeRetries is the number of extra attempts for a failed probe
	DefaultProbeRetries = 1

	// DefaultProbeRetryDelay is the initial delay between probe attempts
	DefaultProbeRetryDelay = 250 * time.Millisecond
)

// deviceInfo mirrors the <device-info> document served by ECP devices.
// Only the fields the selection list needs are decoded.
type deviceInfo struct {
	XMLName                  xml.Name `xml:"device-info"`
	UDN                      string   `xml:"udn"`
	SerialNumber             string   `xml:"serial-number"`
	ModelName                string   `xml:"model-name"`
	UserDeviceName           string   `xml:"user-device-name"`
	FriendlyDeviceName       string   `xml:"friendly-device-name"`
	SupportsPrivateListening string   `xml:"supports-private-listening"`
}

// InfoClient fetches device-info documents from candidate locations.
type InfoClient struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts, doubled per attempt
	RetryDelay time.Duration
}

// NewInfoClient creates a device-info client with default timeouts.
func NewInfoClient() *InfoClient {
	return &InfoClient{
		HTTPClient: &http.Client{Timeout: DefaultProbeTimeout},
		MaxRetries: DefaultProbeRetries,
		RetryDelay: DefaultProbeRetryDelay,
	}
}

// Fetch queries location for its device-info and returns a descriptor whose
// Host is the location itself.
func (c *InfoClient) Fetch(ctx context.Context, location string) (Descriptor, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(currentDelay):
			case <-ctx.Done():
				return Descriptor{}, ctx.Err()
			}
			currentDelay *= 2
		}

		descriptor, err := c.fetchAttempt(ctx, location)
		if err == nil {
			return descriptor, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return Descriptor{}, lastErr
}

// fetchAttempt performs a single device-info request
func (c *InfoClient) fetchAttempt(ctx context.Context, location string) (Descriptor, error) {
	url := strings.TrimSuffix(location, "/") + "/" + DeviceInfoPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to create device-info request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Descriptor{}, fmt.Errorf("device-info request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Descriptor{}, fmt.Errorf("device-info returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to read device-info: %w", err)
	}

	return parseDeviceInfo(location, body)
}

// parseDeviceInfo decodes a device-info document into a Descriptor.
func parseDeviceInfo(location string, body []byte) (Descriptor, error) {
	var info deviceInfo
	if err := xml.Unmarshal(body, &info); err != nil {
		return Descriptor{}, fmt.Errorf("failed to parse device-info: %w", err)
	}

	modelName := strings.TrimSpace(info.ModelName)
	if modelName == "" {
		modelName = strings.TrimSpace(info.FriendlyDeviceName)
	}

	return Descriptor{
		Host:                     location,
		ModelName:                modelName,
		UserDeviceName:           strings.TrimSpace(info.UserDeviceName),
		SupportsPrivateListening: strings.TrimSpace(info.SupportsPrivateListening),
		SerialNumber:             strings.TrimSpace(info.SerialNumber),
		UDN:                      strings.TrimSpace(info.UDN),
		DiscoveredAt:             time.Now(),
	}, nil
}
