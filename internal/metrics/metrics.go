// Package metrics collects run metrics in a private prometheus registry.
// The generator is a batch job, so the registry is written once at the end
// of a run in the node_exporter textfile format rather than served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "volsynth"

// Recorder holds the run's collectors.
type Recorder struct {
	reg *prometheus.Registry

	volumes   *prometheus.CounterVec
	voxels    *prometheus.CounterVec
	fallbacks prometheus.Counter
	bytes     *prometheus.CounterVec
	stages    *prometheus.HistogramVec
}

// New returns a Recorder with its collectors registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		volumes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volumes_generated_total",
			Help:      "Volumes generated, by the backend that produced them.",
		}, []string{"backend"}),
		voxels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voxels_classified_total",
			Help:      "Voxels classified, by backend.",
		}, []string{"backend"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_fallbacks_total",
			Help:      "Runs that fell back from the accelerated to the scalar backend.",
		}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Bytes written to the output store, by file kind.",
		}, []string{"kind"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each generation stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
	}
	r.reg.MustRegister(r.volumes, r.voxels, r.fallbacks, r.bytes, r.stages)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// ObserveVolume counts one generated volume of n voxels.
func (r *Recorder) ObserveVolume(backend string, n int) {
	r.volumes.WithLabelValues(backend).Inc()
	r.voxels.WithLabelValues(backend).Add(float64(n))
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stages.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveOutput counts bytes written for one output file kind.
func (r *Recorder) ObserveOutput(kind string, n int64) {
	r.bytes.WithLabelValues(kind).Add(float64(n))
}

// Fallback counts a backend fallback.
func (r *Recorder) Fallback() {
	r.fallbacks.Inc()
}

// WriteTextfile writes the registry to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
