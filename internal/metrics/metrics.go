// Package metrics exports outcome counters and latency in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/muratoffalex/discordctl/internal/dispatch"
	"github.com/muratoffalex/discordctl/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "discordctl"

type Metrics struct {
	registry *prometheus.Registry

	OutcomesTotal  *prometheus.CounterVec
	CooldownsTotal *prometheus.CounterVec
	DurationSec    *prometheus.HistogramVec
}

// New builds the collectors on a private registry. inFlight, when non-nil,
// is exported as a gauge sampled at scrape time.
func New(inFlight func() int64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Total number of terminal outcomes",
			},
			[]string{"command", "kind"},
		),
		CooldownsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cooldown_denials_total",
				Help:      "Total number of calls denied by the cooldown throttle",
			},
			[]string{"command"},
		),
		DurationSec: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of requests sent to the API",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
	}

	m.registry.MustRegister(m.OutcomesTotal, m.CooldownsTotal, m.DurationSec)
	if inFlight != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being executed",
			},
			func() float64 { return float64(inFlight()) },
		))
	}
	return m
}

// Observe implements dispatch.Observer.
func (m *Metrics) Observe(o dispatch.Outcome) {
	m.OutcomesTotal.WithLabelValues(o.Command, o.Kind.String()).Inc()
	switch {
	case o.Kind == dispatch.CooldownActive:
		m.CooldownsTotal.WithLabelValues(o.Command).Inc()
	case o.Duration > 0:
		m.DurationSec.WithLabelValues(o.Command).Observe(o.Duration.Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx ends.
func (m *Metrics) Serve(ctx context.Context, addr string, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Metrics server shutdown failed")
		}
	}()

	log.WithField("addr", addr).Info("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
