// Package config loads rplisten's settings.
//
// Values are layered, lowest precedence first: built-in defaults, the YAML
// file, RPLISTEN_* environment variables and finally command-line flags.
// Nested keys map to environment variables by replacing dots with
// underscores, so discovery.timeout is read from RPLISTEN_DISCOVERY_TIMEOUT.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/rplisten/config.yaml or $HOME/.config/rplisten/config.yaml
//   - macOS: $HOME/.config/rplisten/config.yaml
//   - Windows: %LOCALAPPDATA%\rplisten\config.yaml
//
// The file is optional and never written back.
package config
