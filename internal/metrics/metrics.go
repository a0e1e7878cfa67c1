// Package metrics exposes the supervisor transitions as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EgorLis/citybot/internal/session"
)

// Metrics implements session.Observer.
type Metrics struct {
	reg *prometheus.Registry

	sessionsStarted prometheus.Counter
	disconnects     *prometheus.CounterVec
	joinAttempts    *prometheus.CounterVec
	online          prometheus.Gauge
	onlineMinutes   prometheus.Gauge
}

// New creates the collectors on their own registry, together with the Go
// runtime collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citybot_sessions_started_total",
			Help: "Connect attempts started by the supervisor.",
		}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citybot_disconnects_total",
			Help: "Disconnects by classified cause.",
		}, []string{"cause"}),
		joinAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citybot_subserver_join_attempts_total",
			Help: "CityBuild join attempts by outcome.",
		}, []string{"outcome"}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "citybot_online",
			Help: "1 while the bot is logged in.",
		}),
		onlineMinutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "citybot_online_minutes",
			Help: "Accumulated online minutes of this process.",
		}),
	}

	m.reg.MustRegister(
		m.sessionsStarted,
		m.disconnects,
		m.joinAttempts,
		m.online,
		m.onlineMinutes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) SessionStarted() { m.sessionsStarted.Inc() }

func (m *Metrics) SessionOnline(online bool) {
	if online {
		m.online.Set(1)
	} else {
		m.online.Set(0)
	}
}

func (m *Metrics) OnlineMinute() { m.onlineMinutes.Inc() }

func (m *Metrics) Disconnected(cause session.Cause) {
	m.disconnects.WithLabelValues(cause.String()).Inc()
}

func (m *Metrics) JoinAttempt(outcome session.JoinOutcome) {
	m.joinAttempts.WithLabelValues(outcome.String()).Inc()
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves /metrics until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
