package ecsim

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// systemTiming tracks one system's exponential moving average update
// duration plus its running peak, per §4.J "Statistics".
type systemTiming struct {
	mu      sync.Mutex
	last    time.Duration
	average time.Duration
	peak    time.Duration
	samples uint64
}

// emaAlpha weights the most recent sample; 0.2 is a conventional EMA
// smoothing factor for per-frame timing series (fast enough to react
// to a regression within a handful of ticks, slow enough not to chase
// single-tick jitter).
const emaAlpha = 0.2

func (t *systemTiming) record(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = d
	if t.samples == 0 {
		t.average = d
	} else {
		t.average = time.Duration(float64(t.average)*(1-emaAlpha) + float64(d)*emaAlpha)
	}
	if d > t.peak {
		t.peak = d
	}
	t.samples++
}

func (t *systemTiming) snapshot() (last, average, peak time.Duration, samples uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.average, t.peak, t.samples
}

// schedulerStats aggregates per-system timing plus scheduler-wide
// Prometheus metrics: a gauge per system for the EMA, and a histogram
// of batch sizes (how many systems ran concurrently per batch) useful
// for diagnosing whether the conflict batcher is over-serializing a
// workload.
type schedulerStats struct {
	mu      sync.Mutex
	timings map[string]*systemTiming

	updateSeconds *prometheus.GaugeVec
	batchSize     prometheus.Histogram
}

// newSchedulerStats builds a stats collector with its own unregistered
// Prometheus metrics (the caller decides whether/where to register them
// with a registry; a library should not force itself onto the default
// global registry).
func newSchedulerStats() *schedulerStats {
	return &schedulerStats{
		timings: make(map[string]*systemTiming),
		updateSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ecsim",
			Subsystem: "scheduler",
			Name:      "system_update_seconds_ema",
			Help:      "Exponential moving average of a system's update duration, in seconds.",
		}, []string{"system"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ecsim",
			Subsystem: "scheduler",
			Name:      "batch_size",
			Help:      "Number of systems executed concurrently within one scheduler batch.",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		}),
	}
}

// Collectors returns the metrics this collector owns, for the host
// application to register with its own prometheus.Registerer.
func (s *schedulerStats) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.updateSeconds, s.batchSize}
}

func (s *schedulerStats) timingFor(name string) *systemTiming {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timings[name]
	if !ok {
		t = &systemTiming{}
		s.timings[name] = t
	}
	return t
}

func (s *schedulerStats) recordUpdate(name string, d time.Duration) {
	t := s.timingFor(name)
	t.record(d)
	_, avg, _, _ := t.snapshot()
	s.updateSeconds.WithLabelValues(name).Set(avg.Seconds())
}

func (s *schedulerStats) recordBatchSize(n int) {
	s.batchSize.Observe(float64(n))
}

// SystemStats is the read-only snapshot a caller (debug UI, CLI, test)
// can pull for one system's timing.
type SystemStats struct {
	Name    string
	Last    time.Duration
	Average time.Duration
	Peak    time.Duration
	Samples uint64
}

// Stats returns a snapshot of every system's recorded timing.
func (s *schedulerStats) Stats() []SystemStats {
	s.mu.Lock()
	names := make([]string, 0, len(s.timings))
	for name := range s.timings {
		names = append(names, name)
	}
	s.mu.Unlock()

	out := make([]SystemStats, 0, len(names))
	for _, name := range names {
		t := s.timingFor(name)
		last, avg, peak, n := t.snapshot()
		out = append(out, SystemStats{Name: name, Last: last, Average: avg, Peak: peak, Samples: n})
	}
	return out
}
