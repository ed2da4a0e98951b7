package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/rplisten/internal/app"
	"github.com/muurk/rplisten/internal/discovery"
	"github.com/muurk/rplisten/internal/logging"
	"github.com/muurk/rplisten/internal/notify"
	"github.com/muurk/rplisten/internal/selection"
	"github.com/muurk/rplisten/internal/session"
	"github.com/muurk/rplisten/internal/ui"
)

// Scan flags
var (
	scanTimeout time.Duration
	scanFormat  string
	scanAll     bool
)

// Listen flags
var (
	listenDevice  string
	listenVerbose bool
)

const retryHint = "This is often temporary. Wait a few seconds and try again"

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List media players that support private listening",
	Long: `Search the local network with SSDP and mDNS and list every media player
that reports private listening support.

The number in front of each device can be passed to 'rplisten listen --device'.`,
	Example: `  rplisten scan
  rplisten scan --timeout 10s
  rplisten scan --format json`,
	RunE: runScan,
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Start a private listening session",
	Long: `Open a private listening session with a device and play its audio here
until interrupted with Ctrl+C.

The device is either an address (IP, hostname or device URL) or the number shown
by 'rplisten scan'.`,
	Example: `  rplisten listen --device 192.168.1.9
  rplisten listen --device 1 --verbose`,
	RunE: runListen,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive screen",
	RunE:  runTUI,
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "How long to wait for devices (default from config, 5s)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "text", "Output format: text, json or yaml")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "Also list devices without private listening support")

	listenCmd.Flags().StringVarP(&listenDevice, "device", "d", "", "Device address or scan number (required)")
	listenCmd.Flags().BoolVarP(&listenVerbose, "verbose", "v", false, "Print session details")
	_ = listenCmd.MarkFlagRequired("device")

	rootCmd.AddCommand(scanCmd, listenCmd, tuiCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runTUI(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	rt.serveMetrics(ctx)

	return ui.Run(ctx, rt.app)
}

func runScan(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(scanFormat)
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q: expected text, json or yaml", scanFormat)
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	rt.serveMetrics(ctx)

	out := cmd.OutOrStdout()
	printer := ui.NewPrinter(out)
	if format == "text" {
		printer.PrintHeader("Device Scan", "rplisten scan",
			ui.Field{Key: "Timeout", Value: cfg.Discovery.Timeout.String()},
			ui.Field{Key: "Methods", Value: scanMethods()},
		)
		printer.Println("  Searching for devices...")
		printer.Newline()
	}

	result, err := rt.app.Discover(ctx)
	if err != nil {
		if format == "text" {
			printer.PrintFailure("Discovery failed", err, ui.DiscoveryTroubleshooting)
		}
		return err
	}

	report := newScanReport(result, scanAll)
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(report)
	}

	printScanReport(printer, report)
	return nil
}

func scanMethods() string {
	var methods []string
	if cfg.Discovery.SSDP {
		methods = append(methods, "SSDP")
	}
	if cfg.Discovery.MDNS {
		methods = append(methods, "mDNS")
	}
	return strings.Join(methods, ", ")
}

// scanDevice is one row of the scan output.
type scanDevice struct {
	// Index is the number accepted by listen --device; unset when the
	// device cannot be selected
	Index            *int   `json:"index,omitempty" yaml:"index,omitempty"`
	Name             string `json:"name" yaml:"name"`
	Model            string `json:"model,omitempty" yaml:"model,omitempty"`
	Address          string `json:"address" yaml:"address"`
	Location         string `json:"location" yaml:"location"`
	PrivateListening bool   `json:"private_listening" yaml:"private_listening"`
}

type scanReport struct {
	TimedOut bool         `json:"timed_out" yaml:"timed_out"`
	Duration string       `json:"duration" yaml:"duration"`
	Found    int          `json:"found" yaml:"found"`
	Devices  []scanDevice `json:"devices" yaml:"devices"`
}

func newScanReport(result app.DiscoveryResult, all bool) scanReport {
	report := scanReport{
		TimedOut: result.TimedOut,
		Duration: result.Duration.Round(time.Millisecond).String(),
		Found:    result.Snapshot.Len(),
		Devices:  []scanDevice{},
	}

	index := make(map[string]int)
	for i, e := range result.Entries {
		if d, ok := e.Device(); ok {
			index[d.Host] = i
		}
	}

	for _, d := range result.Snapshot.Devices() {
		i, selectable := index[d.Host]
		if !selectable && !all {
			continue
		}
		row := newScanDevice(d)
		if selectable {
			row.Index = &i
		}
		report.Devices = append(report.Devices, row)
	}
	return report
}

func newScanDevice(d discovery.Descriptor) scanDevice {
	address, err := selection.HostOf(d.Host)
	if err != nil {
		address = d.Host
	}
	return scanDevice{
		Name:             d.Label(),
		Model:            d.ModelName,
		Address:          address,
		Location:         d.Host,
		PrivateListening: d.PrivateListening(),
	}
}

func printScanReport(p *ui.Printer, report scanReport) {
	if report.TimedOut {
		p.PrintWarning("No devices responded", ui.Field{Key: "Waited", Value: report.Duration})
		printTips(p, ui.DiscoveryTroubleshooting)
		return
	}

	selectable := 0
	fields := make([]ui.Field, 0, len(report.Devices)+1)
	fields = append(fields, ui.Field{Key: "0", Value: selection.ManualLabel + " (any address)"})
	for _, d := range report.Devices {
		key := "-"
		if d.Index != nil {
			key = strconv.Itoa(*d.Index)
			selectable++
		}
		fields = append(fields, ui.Field{Key: key, Value: d.Name + " · " + d.Address})
	}

	if selectable == 0 {
		p.PrintWarning("No private listening devices", fields[1:]...)
		p.Println("  Any device can still be tried with: rplisten listen --device <address>")
		return
	}

	p.PrintSuccess(fmt.Sprintf("%d private listening device(s)", selectable), fields...)
	p.Println("  Start listening with: rplisten listen --device <number>")
}

func printTips(p *ui.Printer, tips []string) {
	p.Println("  Troubleshooting:")
	for _, tip := range tips {
		p.Println("    • " + tip)
	}
}

// deviceIndex reports whether arg is a scan number rather than an address.
func deviceIndex(arg string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, false
	}
	return n, true
}

// startDevice starts a session with the device named by arg.
func startDevice(ctx context.Context, a *app.App, arg string) (string, error) {
	n, isIndex := deviceIndex(arg)
	if !isIndex {
		address := strings.TrimSpace(arg)
		if strings.Contains(address, "://") {
			host, err := selection.HostOf(address)
			if err != nil {
				return "", err
			}
			address = host
		}
		return address, a.StartAddress(address)
	}

	if n < 1 {
		return "", fmt.Errorf("device number must be at least 1, got %d", n)
	}

	result, err := a.Discover(ctx)
	if err != nil {
		return "", err
	}
	if result.TimedOut {
		return "", fmt.Errorf("device %d: %w", n, discovery.ErrDiscoveryTimeout)
	}

	entry, ok := a.Entry(n)
	if !ok {
		return "", fmt.Errorf("no device %d: %d device(s) support private listening, run 'rplisten scan'", n, len(result.Entries)-1)
	}

	address, err := selection.Resolve(entry, "")
	if err != nil {
		return "", err
	}
	return address, a.StartSelected(entry, "")
}

func runListen(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	rt.serveMetrics(ctx)

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader("Private Listening", "rplisten listen",
		ui.Field{Key: "Device", Value: listenDevice},
		ui.Field{Key: "Audio port", Value: strconv.Itoa(cfg.Audio.RTPPort)},
	)

	events := make(chan session.Event, 16)
	rt.app.Subscribe(rt.observer(session.ChannelObserver(events)))
	defer rt.app.Subscribe(rt.observer(nil))

	address, err := startDevice(ctx, rt.app, listenDevice)
	if err != nil {
		printer.PrintFailure("Could not start private listening", err, connectTroubleshooting(err))
		return err
	}

	return followSession(ctx, rt.app, printer, address, events, listenVerbose)
}

// followSession prints status events until the session ends or ctx is
// cancelled. With verbose set the session details follow the Connected
// line.
func followSession(ctx context.Context, a *app.App, p *ui.Printer, address string, events <-chan session.Event, verbose bool) error {
	connected := false
	for {
		select {
		case <-ctx.Done():
			p.Newline()
			p.Println("  Stopping...")
			a.Stop()
			return nil

		case e := <-events:
			p.PrintStatus(e)

			switch {
			case e.Status == session.Connected:
				connected = true
				if verbose {
					printSessionDetails(ctx, a, p)
				}
				p.Println("  Listening. Press Ctrl+C to stop.")
			case e.Status == session.NotConnected && e.Err != nil:
				p.Newline()
				p.PrintFailure("Could not connect to "+address, errors.New(notify.Describe(e.Err)), connectTroubleshooting(e.Err))
				return fmt.Errorf("connect %s: %w", address, e.Err)
			case e.Status == session.NotConnected && connected:
				p.Newline()
				p.PrintSuccess("Session ended", ui.Field{Key: "Device", Value: address})
				return nil
			}
		}
	}
}

// connectTroubleshooting leads with a retry hint when the failure is
// likely transient.
func connectTroubleshooting(err error) []string {
	if !notify.Retryable(err) {
		return ui.ConnectTroubleshooting
	}
	return append([]string{retryHint}, ui.ConnectTroubleshooting...)
}

func printSessionDetails(ctx context.Context, a *app.App, p *ui.Printer) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	details, err := a.Details(ctx)
	if err != nil {
		logging.Debug("Session details unavailable", zap.Error(err))
		return
	}

	var b strings.Builder
	for _, d := range details {
		fmt.Fprintf(&b, "  %-14s %s\n", d.Key+":", d.Value)
	}
	p.Println(strings.TrimRight(b.String(), "\n"))
}
