// Package metrics exposes Prometheus collectors for circuit builds and
// checkpoint tracking.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Faultbox/circuitgen/internal/logger"
)

const namespace = "circuitgen"

// Collector holds every metric. A nil *Collector is valid and records
// nothing.
type Collector struct {
	stageDuration *prometheus.HistogramVec
	meshTriangles prometheus.Gauge
	waypoints     prometheus.Gauge
	gates         prometheus.Gauge

	passes     prometheus.Counter
	rejections prometheus.Counter
	respawns   prometheus.Counter
	laps       prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each generation stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"stage"}),
		meshTriangles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mesh_triangles",
			Help:      "Triangles in the last built road mesh.",
		}),
		waypoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waypoints",
			Help:      "Waypoints in the last built path.",
		}),
		gates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkpoint_gates",
			Help:      "Gates in the last built checkpoint ring.",
		}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_passes_total",
			Help:      "Accepted forward gate passes.",
		}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Gate entries rejected as out of order.",
		}),
		respawns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_respawns_total",
			Help:      "Respawns forced by an out-of-order gate entry.",
		}),
		laps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "laps_total",
			Help:      "Completed laps across all agents.",
		}),
	}
	reg.MustRegister(
		c.stageDuration, c.meshTriangles, c.waypoints, c.gates,
		c.passes, c.rejections, c.respawns, c.laps,
	)
	return c
}

// ObserveStage records how long a generation stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetBuildSizes records the size of the last build's outputs.
func (c *Collector) SetBuildSizes(triangles, waypoints, gates int) {
	if c == nil {
		return
	}
	c.meshTriangles.Set(float64(triangles))
	c.waypoints.Set(float64(waypoints))
	c.gates.Set(float64(gates))
}

// GatePassed counts an accepted gate advance.
func (c *Collector) GatePassed() {
	if c != nil {
		c.passes.Inc()
	}
}

// GateRejected counts an out-of-order gate entry.
func (c *Collector) GateRejected() {
	if c != nil {
		c.rejections.Inc()
	}
}

// ForcedRespawn counts a respawn forced by a rejected gate.
func (c *Collector) ForcedRespawn() {
	if c != nil {
		c.respawns.Inc()
	}
}

// LapCompleted counts a finished lap.
func (c *Collector) LapCompleted() {
	if c != nil {
		c.laps.Inc()
	}
}

// Serve exposes g on addr at /metrics in the background. The returned
// server can be shut down by the caller.
func Serve(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics endpoint failed", zap.Error(err))
		}
	}()
	return srv
}
