package selection

import (
	"github.com/muurk/rplisten/internal/discovery"
)

// ManualLabel is the label of the synthetic "type an address" entry.
const ManualLabel = "+ Device IP Address"

// Kind distinguishes the two kinds of selection entries.
type Kind int

const (
	// KindManualAddress is the sentinel that lets the user type an address
	KindManualAddress Kind = iota
	// KindDevice is a discovered device
	KindDevice
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindManualAddress:
		return "manual"
	case KindDevice:
		return "device"
	default:
		return "unknown"
	}
}

// Entry is one row offered to the user. A device entry carries the
// descriptor itself so that resolving it never depends on its label.
type Entry struct {
	kind   Kind
	device discovery.Descriptor
}

// ManualAddress returns the sentinel entry.
func ManualAddress() Entry {
	return Entry{kind: KindManualAddress}
}

// DeviceEntry wraps a discovered device.
func DeviceEntry(d discovery.Descriptor) Entry {
	return Entry{kind: KindDevice, device: d}
}

// Kind returns the entry kind.
func (e Entry) Kind() Kind {
	return e.kind
}

// IsManual reports whether e is the manual-address sentinel.
func (e Entry) IsManual() bool {
	return e.kind == KindManualAddress
}

// Device returns the descriptor of a device entry.
func (e Entry) Device() (discovery.Descriptor, bool) {
	if e.kind != KindDevice {
		return discovery.Descriptor{}, false
	}
	return e.device, true
}

// Label returns the text shown for the entry.
func (e Entry) Label() string {
	if e.kind == KindManualAddress {
		return ManualLabel
	}
	return e.device.Label()
}

// Filter builds the selection list: the manual-address sentinel first,
// followed by every device that advertises private listening, in discovery
// order. Devices with an absent, false or unparseable capability flag are
// left out. Filter has no side effects.
func Filter(descriptors []discovery.Descriptor) []Entry {
	entries := make([]Entry, 0, len(descriptors)+1)
	entries = append(entries, ManualAddress())

	for _, d := range descriptors {
		if !d.PrivateListening() {
			continue
		}
		entries = append(entries, DeviceEntry(d))
	}

	return entries
}
