// Package metrics records run statistics as Prometheus metrics and writes them
// to a node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"monobuild/src/poll"
	"monobuild/src/report"
)

const namespace = "monobuild"

// Recorder implements the trigger and poll observers on a private registry.
// All methods are safe on a nil Recorder.
type Recorder struct {
	reg         *prom.Registry
	triggered   *prom.CounterVec
	skipped     *prom.CounterVec
	pollPasses  prom.Counter
	pending     prom.Gauge
	results     *prom.CounterVec
	runDuration prom.Histogram
}

// NewRecorder constructs and registers the run metrics. A nil registry gets a fresh one.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{reg: reg}
	r.triggered = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "builds_triggered_total",
		Help:      "Builds triggered per package",
	}, []string{"package"})
	r.skipped = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "builds_skipped_total",
		Help:      "Modified packages skipped for lack of a CI configuration",
	}, []string{"package"})
	r.pollPasses = prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "poll_passes_total",
		Help:      "Completed polling passes",
	})
	r.pending = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "builds_pending",
		Help:      "Builds not yet finished after the last polling pass",
	})
	r.results = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "build_results_total",
		Help:      "Finished builds by final status",
	}, []string{"status"})
	r.runDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time from change detection to the last finished build",
		Buckets:   []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
	})
	reg.MustRegister(r.triggered, r.skipped, r.pollPasses, r.pending, r.results, r.runDuration)
	return r
}

// Registry returns the registry the metrics live in.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) BuildTriggered(pkg string, buildNum int) {
	if r == nil {
		return
	}
	r.triggered.WithLabelValues(pkg).Inc()
}

func (r *Recorder) BuildSkipped(pkg, reason string) {
	if r == nil {
		return
	}
	r.skipped.WithLabelValues(pkg).Inc()
}

func (r *Recorder) PollPass(p poll.Progress) {
	if r == nil {
		return
	}
	r.pollPasses.Inc()
	r.pending.Set(float64(p.Pending))
}

// ObserveSummary counts final statuses and the run duration.
func (r *Recorder) ObserveSummary(s report.Summary, d time.Duration) {
	if r == nil {
		return
	}
	for _, rec := range s.Records {
		status := string(rec.Status.Status)
		if status == "" {
			status = "unknown"
		}
		r.results.WithLabelValues(status).Inc()
	}
	r.runDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry in the text exposition format to path.
// The write is atomic, so node_exporter never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prom.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
