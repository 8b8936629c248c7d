// SPDX-License-Identifier: MPL-2.0

// Package metrics records per-step outcomes of a justci run in a Prometheus
// registry, which can be written out for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/fnndsc/justci/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "justci"

	// OutcomeSuccess labels a step that exited 0.
	OutcomeSuccess = "success"
	// OutcomeFailure labels a step that exited non-zero.
	OutcomeFailure = "failure"
)

// Collector owns a private registry so a run never touches the global one.
type Collector struct {
	registry     *prometheus.Registry
	stepAttempts *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	exitCode     prometheus.Gauge
}

// NewCollector creates a Collector with its metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		stepAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_attempts_total",
				Help:      "Task runner invocations by step and outcome",
			},
			[]string{"step", "outcome"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Wall-clock duration of task runner invocations",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"step"},
		),
		exitCode: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "exit_code",
				Help:      "Exit status justci terminated with",
			},
		),
	}

	c.registry.MustRegister(c.stepAttempts, c.stepDuration, c.exitCode)
	return c
}

// ObserveStep records one task runner invocation.
func (c *Collector) ObserveStep(step string, code types.ExitCode, d time.Duration) {
	outcome := OutcomeSuccess
	if !code.IsSuccess() {
		outcome = OutcomeFailure
	}
	c.stepAttempts.WithLabelValues(step, outcome).Inc()
	c.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// SetExitCode records the status the run terminated with.
func (c *Collector) SetExitCode(code types.ExitCode) {
	c.exitCode.Set(float64(code))
}

// WriteTextfile writes the registry in the text exposition format. The write
// goes through a temporary file and rename, so a collector never reads a
// partial file.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
