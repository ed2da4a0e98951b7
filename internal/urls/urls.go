package urls

// Documentation URLs for guides and troubleshooting
// All URLs point to the documentation site at https://muurk.github.io/rplisten/

// Repository is the project home, shown in the footer of the interactive screen.
const Repository = "github.com/muurk/rplisten"

// GettingStarted is the quick start guide covering installation and the
// first listening session.
const GettingStarted = "https://muurk.github.io/rplisten/getting-started/"

// DiscoveryTroubleshooting covers devices that do not show up in a scan:
// multicast on Wi-Fi, firewalls and VPN interfaces.
const DiscoveryTroubleshooting = "https://muurk.github.io/rplisten/troubleshooting/discovery/"

// ConnectTroubleshooting covers sessions that fail to start or play no audio,
// including the UDP port the device streams to.
const ConnectTroubleshooting = "https://muurk.github.io/rplisten/troubleshooting/connect/"
