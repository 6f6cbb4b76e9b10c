// Package metrics provides Prometheus metrics for a collector run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Probe outcomes used as the "outcome" label.
const (
	OutcomeOK     = "ok"
	OutcomeSlow   = "slow"
	OutcomeFailed = "failed"
	OutcomeCached = "cached"
)

// Run holds one run's collectors on a private registry, so each run's
// textfile export starts from zero.
type Run struct {
	Registry *prometheus.Registry

	SourcesFetched prometheus.Counter
	SourcesFailed  prometheus.Counter
	EntriesParsed  prometheus.Counter
	EntriesDropped *prometheus.CounterVec
	Probes         *prometheus.CounterVec
	ProbeScore     prometheus.Histogram
	Channels       *prometheus.GaugeVec
	BlacklistSize  prometheus.Gauge
	Duration       prometheus.Gauge
	LastSuccess    prometheus.Gauge
}

// New registers a fresh set of run collectors.
func New() *Run {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Run{
		Registry: reg,
		SourcesFetched: f.NewCounter(prometheus.CounterOpts{
			Name: "iptv_collector_sources_fetched_total",
			Help: "Source playlists downloaded and parsed.",
		}),
		SourcesFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "iptv_collector_sources_failed_total",
			Help: "Source playlists that could not be downloaded or parsed.",
		}),
		EntriesParsed: f.NewCounter(prometheus.CounterOpts{
			Name: "iptv_collector_entries_parsed_total",
			Help: "Playlist entries parsed from all sources.",
		}),
		EntriesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iptv_collector_entries_dropped_total",
			Help: "Playlist entries removed before merging, by reason.",
		}, []string{"reason"}),
		Probes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iptv_collector_probes_total",
			Help: "Stream probes, by outcome (ok/slow/failed/cached).",
		}, []string{"outcome"}),
		ProbeScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "iptv_collector_probe_score",
			Help:    "Normalized speed score of successful probes.",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		Channels: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iptv_collector_channels",
			Help: "Merged channels in the last run, by category.",
		}, []string{"category"}),
		BlacklistSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "iptv_collector_blacklist_urls",
			Help: "URLs on the blacklist after the last run.",
		}),
		Duration: f.NewGauge(prometheus.GaugeOpts{
			Name: "iptv_collector_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "iptv_collector_last_success_timestamp_seconds",
			Help: "Unix time the last successful run finished.",
		}),
	}
}

// ObserveProbe counts one probe result.
func (r *Run) ObserveProbe(success, cached bool, score, minScore float64) {
	switch {
	case cached:
		r.Probes.WithLabelValues(OutcomeCached).Inc()
	case !success:
		r.Probes.WithLabelValues(OutcomeFailed).Inc()
		return
	case score < minScore:
		r.Probes.WithLabelValues(OutcomeSlow).Inc()
	default:
		r.Probes.WithLabelValues(OutcomeOK).Inc()
	}
	if success {
		r.ProbeScore.Observe(score)
	}
}

// Finish records the run duration and, when ok, the success timestamp.
func (r *Run) Finish(started, finished time.Time, ok bool) {
	r.Duration.Set(finished.Sub(started).Seconds())
	if ok {
		r.LastSuccess.Set(float64(finished.Unix()))
	}
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (r *Run) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics %s: %w", path, err)
	}
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("metrics %s: %w", path, err)
	}
	return nil
}
