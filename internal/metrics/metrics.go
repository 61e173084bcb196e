// Package metrics exposes engine render statistics to Prometheus. Grounded
// on the teacher's internal/metrics/metrics.go: a prometheus.Collector that
// gathers state from small provider interfaces at scrape time rather than
// pushing counters from the hot path, since spec §5 forbids the render path
// from doing anything but audio-rate math.
package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// VoiceProvider exposes the voice pool's current occupancy.
type VoiceProvider interface {
	ActiveCount() int
	Size() int
}

// GraphProvider exposes the device graph's shape.
type GraphProvider interface {
	NodeCount() int
}

// RenderProvider exposes cumulative render-call statistics, tracked by the
// player with plain atomic counters (see internal/player) and read here at
// scrape time.
type RenderProvider interface {
	RenderCallsTotal() uint64
	RenderSecondsTotal() float64
	FramesRenderedTotal() uint64
	DroppedEventsTotal() uint64
}

// Collector is a prometheus.Collector that gathers synthcore metrics at
// scrape time.
type Collector struct {
	voices    VoiceProvider
	graph     GraphProvider
	render    RenderProvider
	startTime time.Time

	activeVoicesDesc   *prometheus.Desc
	voicePoolSizeDesc  *prometheus.Desc
	graphNodesDesc     *prometheus.Desc
	renderCallsDesc    *prometheus.Desc
	renderSecondsDesc  *prometheus.Desc
	framesRenderedDesc *prometheus.Desc
	droppedEventsDesc  *prometheus.Desc
	uptimeDesc         *prometheus.Desc
}

// NewCollector creates a metrics collector. Any provider may be nil if
// unavailable (e.g. before a Handle has been validated).
func NewCollector(voices VoiceProvider, graph GraphProvider, render RenderProvider, startTime time.Time) *Collector {
	return &Collector{
		voices:    voices,
		graph:     graph,
		render:    render,
		startTime: startTime,

		activeVoicesDesc: prometheus.NewDesc(
			"kunquat_active_voices",
			"Number of voice pool slots currently allocated to a group",
			nil, nil,
		),
		voicePoolSizeDesc: prometheus.NewDesc(
			"kunquat_voice_pool_size",
			"Total number of slots in the voice pool",
			nil, nil,
		),
		graphNodesDesc: prometheus.NewDesc(
			"kunquat_graph_nodes",
			"Number of devices in the current Connections graph",
			nil, nil,
		),
		renderCallsDesc: prometheus.NewDesc(
			"kunquat_render_calls_total",
			"Total number of Player.Play invocations",
			nil, nil,
		),
		renderSecondsDesc: prometheus.NewDesc(
			"kunquat_render_seconds_total",
			"Total wall-clock time spent inside Player.Play",
			nil, nil,
		),
		framesRenderedDesc: prometheus.NewDesc(
			"kunquat_frames_rendered_total",
			"Total number of PCM frames produced",
			nil, nil,
		),
		droppedEventsDesc: prometheus.NewDesc(
			"kunquat_dropped_events_total",
			"Total number of triggers dropped for an unknown name or mismatched argument type",
			nil, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"kunquat_uptime_seconds",
			"Seconds since the engine process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeVoicesDesc
	ch <- c.voicePoolSizeDesc
	ch <- c.graphNodesDesc
	ch <- c.renderCallsDesc
	ch <- c.renderSecondsDesc
	ch <- c.framesRenderedDesc
	ch <- c.droppedEventsDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at
// scrape time; a nil provider simply contributes no samples.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.voices != nil {
		ch <- prometheus.MustNewConstMetric(c.activeVoicesDesc, prometheus.GaugeValue, float64(c.voices.ActiveCount()))
		ch <- prometheus.MustNewConstMetric(c.voicePoolSizeDesc, prometheus.GaugeValue, float64(c.voices.Size()))
	}

	if c.graph != nil {
		ch <- prometheus.MustNewConstMetric(c.graphNodesDesc, prometheus.GaugeValue, float64(c.graph.NodeCount()))
	}

	if c.render != nil {
		ch <- prometheus.MustNewConstMetric(c.renderCallsDesc, prometheus.CounterValue, float64(c.render.RenderCallsTotal()))
		ch <- prometheus.MustNewConstMetric(c.renderSecondsDesc, prometheus.CounterValue, c.render.RenderSecondsTotal())
		ch <- prometheus.MustNewConstMetric(c.framesRenderedDesc, prometheus.CounterValue, float64(c.render.FramesRenderedTotal()))
		ch <- prometheus.MustNewConstMetric(c.droppedEventsDesc, prometheus.CounterValue, float64(c.render.DroppedEventsTotal()))
	} else {
		slog.Debug("metrics: no render provider registered yet")
	}

	ch <- prometheus.MustNewConstMetric(c.uptimeDesc, prometheus.GaugeValue, time.Since(c.startTime).Seconds())
}
