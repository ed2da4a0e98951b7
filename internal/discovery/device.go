package discovery

import (
	"fmt"
	"strings"
	"time"
)

// Descriptor describes a media player found on the network.
// Descriptors are read-only snapshots produced by a single discovery run.
type Descriptor struct {
	// Host is the device locator as announced by discovery
	// (e.g., "http://192.168.1.9:8060/")
	Host string `json:"host" yaml:"host"`

	// ModelName is the hardware model (e.g., "Roku Ultra")
	ModelName string `json:"model_name" yaml:"model_name"`

	// UserDeviceName is the name the owner gave the device; may be empty
	UserDeviceName string `json:"user_device_name,omitempty" yaml:"user_device_name,omitempty"`

	// SupportsPrivateListening is the raw capability flag as reported by the
	// device. Empty means the device did not report it.
	SupportsPrivateListening string `json:"supports_private_listening,omitempty" yaml:"supports_private_listening,omitempty"`

	// SerialNumber identifies the device when available
	SerialNumber string `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`

	// UDN is the UPnP unique device name when available
	UDN string `json:"udn,omitempty" yaml:"udn,omitempty"`

	// DiscoveredAt is when the device answered the probe
	DiscoveredAt time.Time `json:"discovered_at" yaml:"discovered_at"`
}

// String returns a human-readable string representation of the device
func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Label(), d.ModelName, d.Host)
}

// Label returns the name shown to the user: the user-assigned name when set,
// otherwise the model name.
func (d Descriptor) Label() string {
	if d.UserDeviceName != "" {
		return d.UserDeviceName
	}
	return d.ModelName
}

// PrivateListening reports whether the capability flag is present and true.
// Absent or unparseable flags are treated as unsupported.
func (d Descriptor) PrivateListening() bool {
	return strings.EqualFold(strings.TrimSpace(d.SupportsPrivateListening), "true")
}
