// Package metrics exports run outcomes to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ibeckermayer/kudos4me/internal/types"
)

const namespace = "kudos4me"

// Metrics holds the run collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry
	url string
	job string

	runs       *prometheus.CounterVec
	kudosTotal prometheus.Counter
	lastKudos  prometheus.Gauge
	lastPasses prometheus.Gauge
	lastDur    prometheus.Gauge
	lastRun    prometheus.Gauge
}

// New creates the collectors. An empty url disables Push.
func New(url, job string) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		url: url,
		job: job,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs finished, by stop reason.",
		}, []string{"stop_reason"}),
		kudosTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kudos_given_total",
			Help:      "Kudos given across runs of this process.",
		}),
		lastKudos: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_kudos_given",
			Help:      "Kudos given in the last run.",
		}),
		lastPasses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_passes",
			Help:      "Feed passes in the last run.",
		}),
		lastDur: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall-clock duration of the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	m.reg.MustRegister(m.runs, m.kudosTotal, m.lastKudos, m.lastPasses, m.lastDur, m.lastRun)
	return m
}

// Enabled reports whether a Pushgateway is configured.
func (m *Metrics) Enabled() bool { return m.url != "" }

// Registry exposes the collectors, for tests and local scraping.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Observe records a finished run.
func (m *Metrics) Observe(sum types.RunSummary) {
	m.runs.WithLabelValues(string(sum.StopReason)).Inc()
	m.kudosTotal.Add(float64(sum.KudosGiven))
	m.lastKudos.Set(float64(sum.KudosGiven))
	m.lastPasses.Set(float64(sum.Passes))
	m.lastDur.Set(sum.Elapsed().Seconds())
	if !sum.FinishedAt.IsZero() {
		m.lastRun.Set(float64(sum.FinishedAt.Unix()))
	}
}

// Push replaces this job's metrics on the Pushgateway. It is a no-op when
// no gateway is configured.
func (m *Metrics) Push(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	if err := push.New(m.url, m.job).Gatherer(m.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
