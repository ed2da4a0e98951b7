// Package selection turns discovery results into the list of choices offered
// to the user and maps a choice back to an address.
//
// The list always starts with the manual-address entry, followed by the
// devices that advertise private listening. Entries carry the device
// descriptor itself, so two devices that share a display name still resolve
// to their own hosts.
package selection
