package terrain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	drawNodes  prometheus.Gauge
	liveNodes  prometheus.Gauge
	liveGeoms  prometheus.Gauge
	queuedJobs prometheus.Gauge

	jobsBuilt     prometheus.Counter
	jobsDiscarded prometheus.Counter
	jobsEmpty     prometheus.Counter
	batches       prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &metrics{
		drawNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "voxlod_draw_nodes",
			Help: "The number of nodes drawn in the last frame.",
		}),
		liveNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "voxlod_live_nodes",
			Help: "The number of allocated visibility tree nodes.",
		}),
		liveGeoms: f.NewGauge(prometheus.GaugeOpts{
			Name: "voxlod_live_geoms",
			Help: "The number of geometry slots in use.",
		}),
		queuedJobs: f.NewGauge(prometheus.GaugeOpts{
			Name: "voxlod_queued_jobs",
			Help: "The number of geometry jobs waiting in the queue.",
		}),
		jobsBuilt: f.NewCounter(prometheus.CounterOpts{
			Name: "voxlod_jobs_built_total",
			Help: "The total number of geometry jobs built.",
		}),
		jobsDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "voxlod_jobs_discarded_total",
			Help: "The total number of geometry jobs dropped because their node went away.",
		}),
		jobsEmpty: f.NewCounter(prometheus.CounterOpts{
			Name: "voxlod_jobs_empty_total",
			Help: "The total number of geometry jobs that produced no surface.",
		}),
		batches: f.NewCounter(prometheus.CounterOpts{
			Name: "voxlod_batches_total",
			Help: "The total number of mesh batches baked into geometry slots.",
		}),
	}
}
