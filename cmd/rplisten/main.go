// Rplisten discovers media players on the local network and opens private
// listening sessions with them, so their audio plays on this computer.
//
// Usage:
//
//	rplisten [command] [flags]
//
// Running without arguments in a terminal launches the interactive screen.
// See 'rplisten --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/rplisten/internal/config"
	"github.com/muurk/rplisten/internal/logging"
	"github.com/muurk/rplisten/internal/ui"
	"github.com/muurk/rplisten/internal/urls"
	"github.com/muurk/rplisten/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath  string
	logLevel    string
	metricsAddr string

	// cfg is resolved before any command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rplisten",
	Short: "Private listening for network media players",
	Long: `Discover media players on your network and route their audio to this
computer over a private listening session.

Devices are found with SSDP and mDNS. Only devices that report private
listening support are offered; any other device can still be reached by
typing its address.

If no command is specified and stdout is a terminal, the interactive
screen launches. Otherwise the discovered devices are listed.

Documentation: ` + urls.GettingStarted,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded

		return logging.Initialize(cfg.LogLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if ui.IsTerminal() {
			return runTUI(cmd, args)
		}
		return runScan(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/rplisten/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rplisten %s\n", version.Full())
	},
}
