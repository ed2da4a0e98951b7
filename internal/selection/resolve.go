package selection

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrEmptyAddress is returned when the manual entry is chosen but no
	// address was typed.
	ErrEmptyAddress = errors.New("empty address")

	// ErrUnresolvableHost is returned when a device locator has no host.
	ErrUnresolvableHost = errors.New("unresolvable host")
)

// Resolve maps a selection entry to a connectable address.
//
// For the manual entry the typed text (trimmed) is the address. For a device
// entry the host component of the device locator is returned; scheme, port
// and path are discarded.
func Resolve(entry Entry, manualText string) (string, error) {
	if entry.IsManual() {
		address := strings.TrimSpace(manualText)
		if address == "" {
			return "", ErrEmptyAddress
		}
		return address, nil
	}

	device, ok := entry.Device()
	if !ok {
		return "", fmt.Errorf("%w: unknown entry kind %s", ErrUnresolvableHost, entry.Kind())
	}

	return HostOf(device.Host)
}

// HostOf extracts the host portion of a locator such as
// "http://192.168.1.9:8060/".
func HostOf(locator string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnresolvableHost, locator, err)
	}

	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrUnresolvableHost, locator)
	}

	return host, nil
}
