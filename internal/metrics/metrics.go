// Package metrics exposes Prometheus metrics for discovery and the session
// lifecycle.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/rplisten/internal/session"
)

const namespace = "rplisten"

// Recorder holds every metric of the process. It implements
// session.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	phase          *prometheus.GaugeVec
	connectFails   prometheus.Counter
	staleCallbacks prometheus.Counter
	rejected       prometheus.Counter
	disconnects    *prometheus.CounterVec

	discoveries       *prometheus.CounterVec
	discoveryDuration prometheus.Histogram
	devicesFound      prometheus.Gauge
}

var _ session.Recorder = (*Recorder)(nil)

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "transitions_total",
				Help:      "Session state transitions.",
			},
			[]string{"from", "to"},
		),
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "phase",
				Help:      "1 for the current session phase, 0 otherwise.",
			},
			[]string{"phase"},
		),
		connectFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "connect_failures_total",
			Help:      "Connect requests that failed or timed out.",
		}),
		staleCallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stale_callbacks_total",
			Help:      "Connect results discarded because their request was abandoned.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "rejected_starts_total",
			Help:      "Start requests rejected because a session was active.",
		}),
		disconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "disconnects_total",
				Help:      "Disconnects issued, by result.",
			},
			[]string{"result"},
		),
		discoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "discovery",
				Name:      "runs_total",
				Help:      "Discovery runs, by outcome.",
			},
			[]string{"outcome"},
		),
		discoveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "duration_seconds",
			Help:      "Duration of discovery runs.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30},
		}),
		devicesFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "devices",
			Help:      "Devices in the latest discovery snapshot.",
		}),
	}

	r.registry.MustRegister(
		r.transitions,
		r.phase,
		r.connectFails,
		r.staleCallbacks,
		r.rejected,
		r.disconnects,
		r.discoveries,
		r.discoveryDuration,
		r.devicesFound,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r.setPhase(session.Idle)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Transition counts a state change.
func (r *Recorder) Transition(from, to session.Phase) {
	r.transitions.WithLabelValues(from.String(), to.String()).Inc()
	r.setPhase(to)
}

// ConnectFailed counts a failed connect.
func (r *Recorder) ConnectFailed(error) {
	r.connectFails.Inc()
}

// StaleCallback counts a discarded connect result.
func (r *Recorder) StaleCallback() {
	r.staleCallbacks.Inc()
}

// Rejected counts a rejected start.
func (r *Recorder) Rejected() {
	r.rejected.Inc()
}

// Disconnected counts a disconnect by result.
func (r *Recorder) Disconnected(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.disconnects.WithLabelValues(result).Inc()
}

// Discovery records one discovery run.
func (r *Recorder) Discovery(d time.Duration, devices int, timedOut bool, err error) {
	outcome := "ok"
	switch {
	case timedOut:
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}

	r.discoveries.WithLabelValues(outcome).Inc()
	r.discoveryDuration.Observe(d.Seconds())
	r.devicesFound.Set(float64(devices))
}

func (r *Recorder) setPhase(current session.Phase) {
	for _, p := range []session.Phase{session.Idle, session.PhaseConnecting, session.PhaseConnected} {
		v := 0.0
		if p == current {
			v = 1
		}
		r.phase.WithLabelValues(p.String()).Set(v)
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
