package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/muurk/rplisten/internal/app"
	"github.com/muurk/rplisten/internal/config"
	"github.com/muurk/rplisten/internal/discovery"
	"github.com/muurk/rplisten/internal/ecp"
	"github.com/muurk/rplisten/internal/logging"
	"github.com/muurk/rplisten/internal/metrics"
	"github.com/muurk/rplisten/internal/notify"
	"github.com/muurk/rplisten/internal/player"
	"github.com/muurk/rplisten/internal/session"
	"github.com/muurk/rplisten/internal/worker"
)

// runtime is the process-wide object graph built from the configuration.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Recorder
	pool    *worker.Pool
	app     *app.App

	// notifier is nil unless notifications are enabled
	notifier *notify.Notifier

	stopMetrics context.CancelFunc
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}

	logger := logging.GetLogger()
	rec := metrics.New()

	var scanners []discovery.Scanner
	if cfg.Discovery.SSDP {
		scanners = append(scanners, discovery.NewSSDPScanner(logging.Named("ssdp")))
	}
	if cfg.Discovery.MDNS {
		scanners = append(scanners, discovery.NewMDNSScanner(cfg.Discovery.MDNSService, cfg.ECP.Port, logging.Named("mdns")))
	}

	registry := discovery.NewRegistry(scanners, discovery.NewInfoClient(), logging.Named("discovery"))
	registry.Timeout = cfg.Discovery.Timeout
	registry.ProbeConcurrency = cfg.Discovery.ProbeConcurrency

	client := ecp.NewClient(logging.Named("ecp"))
	client.Port = cfg.ECP.Port
	client.RTPPort = cfg.Audio.RTPPort

	playerConfig := player.DefaultConfig()
	playerConfig.Path = cfg.Audio.PlayerPath
	playerConfig.RTPPort = cfg.Audio.RTPPort

	protocol := player.NewProtocol(client, playerConfig, cfg.Audio.Player, logger)

	pool := worker.New(cfg.Session.Workers, logger.Named("worker"))

	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: rec,
		pool:    pool,
	}

	opts := []session.Option{
		session.WithLogger(logger.Named("session")),
		session.WithRecorder(rec),
		session.WithRunner(pool),
		session.WithConnectTimeout(cfg.ECP.ConnectTimeout),
		session.WithDisconnectTimeout(cfg.Session.ShutdownTimeout),
	}
	if cfg.Notifications {
		rt.notifier = notify.New(logger)
		opts = append(opts, session.WithObserver(rt.notifier))
	}

	machine := session.NewMachine(protocol, opts...)
	rt.app = app.New(registry, machine,
		app.WithLogger(logger.Named("app")),
		app.WithDiscoveryRecorder(rec),
	)

	return rt, nil
}

// serveMetrics exposes /metrics in the background when an address is set.
func (rt *runtime) serveMetrics(ctx context.Context) {
	if rt.cfg.Metrics.Addr == "" {
		return
	}

	ctx, rt.stopMetrics = context.WithCancel(ctx)
	go func() {
		if err := rt.metrics.Serve(ctx, rt.cfg.Metrics.Addr, rt.logger.Named("metrics")); err != nil {
			logging.Warn("Metrics endpoint failed", zap.Error(err))
		}
	}()
}

// observer combines the notifier, when enabled, with o.
func (rt *runtime) observer(o session.Observer) session.Observer {
	if rt.notifier == nil {
		return o
	}
	return session.Fanout(rt.notifier, o)
}

// close ends any session and waits for background work, bounded by the
// configured shutdown timeout.
func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.Session.ShutdownTimeout)
	defer cancel()

	rt.app.Shutdown(ctx)
	if err := rt.pool.Close(ctx); err != nil {
		rt.logger.Debug("Worker pool did not drain", zap.Error(err))
	}

	if rt.stopMetrics != nil {
		rt.stopMetrics()
	}
}
