package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned when the player binary is not on PATH.
var ErrNotFound = errors.New("audio player not found")

// DefaultArgs makes ffplay read an SDP description from stdin and play the
// RTP stream it describes without opening a window.
var DefaultArgs = []string{
	"-hide_banner",
	"-loglevel", "error",
	"-protocol_whitelist", "pipe,file,udp,rtp",
	"-vn",
	"-nodisp",
	"-nostats",
	"-i", "-",
}

// Config holds the configuration for the audio player process.
type Config struct {
	// Path is the player binary.
	// Default: "ffplay" (searches PATH)
	Path string

	// Args replaces DefaultArgs when non-nil.
	Args []string

	// Address is the connection address written into the SDP.
	// Default: "127.0.0.1"
	Address string

	// RTPPort is the UDP port the device streams to.
	// Default: 6970
	RTPPort int

	// PayloadType is the RTP payload type of the stream.
	// Default: 97
	PayloadType int

	// Codec is the rtpmap encoding of the stream.
	// Default: "opus/48000/2"
	Codec string

	// StopTimeout is how long Stop waits for the process to exit.
	// Default: 2 seconds
	StopTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Path:        "ffplay",
		Address:     "127.0.0.1",
		RTPPort:     6970,
		PayloadType: 97,
		Codec:       "opus/48000/2",
		StopTimeout: 2 * time.Second,
	}
}

// Player runs one external player process.
type Player struct {
	config Config
	logger *zap.Logger

	// Output receives the process stdout and stderr. Nil logs each line.
	Output io.Writer

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// New creates a player with the given configuration.
func New(config Config, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		config: config,
		logger: logger,
	}
}

// Available reports whether the player binary can be found.
func (p *Player) Available() error {
	if _, err := exec.LookPath(p.config.Path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotFound, p.config.Path, err)
	}
	return nil
}

// Start launches the player with the SDP description on stdin. The process
// is not tied to ctx; Stop ends it.
func (p *Player) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("player already running (pid %d)", p.cmd.Process.Pid)
	}

	if err := p.Available(); err != nil {
		return err
	}

	description, err := RenderSDP(p.config)
	if err != nil {
		return err
	}

	args := p.config.Args
	if args == nil {
		args = DefaultArgs
	}

	cmd := exec.Command(p.config.Path, args...)
	cmd.Stdin = strings.NewReader(description)

	out := p.Output
	if out == nil {
		out = &logWriter{logger: p.logger}
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.config.Path, err)
	}

	p.logger.Info("Audio player started",
		zap.String("path", p.config.Path),
		zap.Int("pid", cmd.Process.Pid),
		zap.Int("rtp_port", p.config.RTPPort),
	)

	p.cmd = cmd
	p.done = make(chan struct{})
	p.err = nil

	go p.wait(cmd, p.done)

	return nil
}

func (p *Player) wait(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	p.mu.Lock()
	p.err = err
	if p.cmd == cmd {
		p.cmd = nil
	}
	p.mu.Unlock()
	close(done)

	if err != nil {
		p.logger.Debug("Audio player exited", zap.Error(err))
	} else {
		p.logger.Debug("Audio player exited")
	}
}

// Running reports whether the process is alive.
func (p *Player) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

// Err returns the exit error of the last process, if it has exited.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done is closed when the current process exits. It is nil before Start.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Stop kills the process and waits for it to exit. Stopping a player that
// is not running is a no-op.
func (p *Player) Stop(ctx context.Context) error {
	p.mu.Lock()
	cmd, done := p.cmd, p.done
	p.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Debug("Kill failed", zap.Error(err))
	}

	timeout := p.config.StopTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().StopTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		p.logger.Info("Audio player stopped", zap.Int("pid", cmd.Process.Pid))
		return nil
	case <-timer.C:
		return fmt.Errorf("audio player (pid %d) did not exit within %s", cmd.Process.Pid, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// logWriter turns process output into debug log lines.
type logWriter struct {
	logger *zap.Logger
}

func (w *logWriter) Write(b []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
		if line != "" {
			w.logger.Debug("player output", zap.String("line", line))
		}
	}
	return len(b), nil
}
